// Package chat provides host chat color codes for user-visible messages.
package chat

import "strings"

// Color represents a ClassiCube chat color code.
// Use them as string prefixes: Yellow + "Hello" or via Colorize().
type Color string

const (
	Black     Color = "&0"
	DarkBlue  Color = "&1"
	DarkGreen Color = "&2"
	DarkTeal  Color = "&3"
	DarkRed   Color = "&4"
	Purple    Color = "&5"
	Gold      Color = "&6"
	Gray      Color = "&7"
	DarkGray  Color = "&8"
	Blue      Color = "&9"
	Green     Color = "&a"
	Teal      Color = "&b"
	Red       Color = "&c"
	Pink      Color = "&d"
	Yellow    Color = "&e"
	White     Color = "&f"
)

// Colorize wraps text with a color prefix and resets to white after.
func Colorize(color Color, text string) string {
	return string(color) + text + string(White)
}

// Strip removes color codes, for output outside the game.
func Strip(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if text[i] == '&' && i+1 < len(text) && isColorCode(text[i+1]) {
			i++
			continue
		}
		b.WriteByte(text[i])
	}
	return b.String()
}

func isColorCode(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
