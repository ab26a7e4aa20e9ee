package chat

import "testing"

func TestColorize(t *testing.T) {
	got := Colorize(Yellow, "restart")
	if got != "&erestart&f" {
		t.Errorf("Colorize() = %q", got)
	}
}

func TestStrip(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"&eEverything done", "Everything done"},
		{"&aok&f and &Cbad", "ok and bad"},
		{"rock & roll", "rock & roll"},
		{"trailing &", "trailing &"},
		{"&zunknown", "&zunknown"},
	}
	for _, tt := range tests {
		if got := Strip(tt.in); got != tt.want {
			t.Errorf("Strip(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
