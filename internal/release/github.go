package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/corrreia/ccupdater/internal/errors"
)

const (
	// DefaultBaseURL is the public GitHub REST API.
	DefaultBaseURL = "https://api.github.com"

	// maxJSONResponseBytes bounds the release document size (10 MB).
	maxJSONResponseBytes = 10 << 20
)

// RateLimitError is returned when the GitHub API rate limit is exhausted.
type RateLimitError struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded (%d remaining, resets at %s)",
		e.Remaining, e.ResetAt.UTC().Format("15:04 UTC"))
}

// githubRelease is the JSON wire format of a GitHub release.
type githubRelease struct {
	TagName string        `json:"tag_name"`
	Name    string        `json:"name"`
	HTMLURL string        `json:"html_url"`
	Assets  []githubAsset `json:"assets"`
}

// githubAsset is the JSON wire format of a release asset.
type githubAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
	Digest             string `json:"digest"`
}

// ClientOption configures a GitHubClient.
type ClientOption func(*GitHubClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(g *GitHubClient) {
		if c != nil {
			g.httpClient = c
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(base string) ClientOption {
	return func(g *GitHubClient) {
		if base != "" {
			g.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithToken sets a token sent as a bearer credential to GitHub hosts only.
func WithToken(token string) ClientOption {
	return func(g *GitHubClient) {
		g.token = token
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(g *GitHubClient) {
		if ua != "" {
			g.userAgent = ua
		}
	}
}

// WithTimeout bounds each release query. Downloads are bounded by the
// caller's context instead.
func WithTimeout(d time.Duration) ClientOption {
	return func(g *GitHubClient) {
		g.timeout = d
	}
}

// GitHubClient queries the GitHub Releases API and downloads release assets.
type GitHubClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	userAgent  string
	timeout    time.Duration
}

// NewGitHubClient creates a client for the public API.
func NewGitHubClient(opts ...ClientOption) *GitHubClient {
	c := &GitHubClient{
		httpClient: http.DefaultClient,
		baseURL:    DefaultBaseURL,
		userAgent:  "ccupdater",
		timeout:    30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LatestRelease fetches the latest published release of owner/repo with a
// single request. A missing release or repository yields an error coded
// CodeNotFound wrapping ErrNotFound; every other failure is CodeNetwork.
func (c *GitHubClient) LatestRelease(ctx context.Context, owner, repo string) (*Release, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	slug := owner + "/" + repo
	latestURL := fmt.Sprintf("%s/repos/%s/%s/releases/latest",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo))

	resp, err := c.doRequest(ctx, latestURL)
	if err != nil {
		return nil, appErrors.New(appErrors.CodeNetwork, "querying latest release of "+slug, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkRateLimit(resp); err != nil {
		return nil, appErrors.New(appErrors.CodeNetwork, "querying latest release of "+slug, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, notFound(owner, repo)
	default:
		return nil, appErrors.New(appErrors.CodeNetwork,
			fmt.Sprintf("querying latest release of %s: unexpected status %d", slug, resp.StatusCode), nil)
	}

	var gr githubRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&gr); err != nil {
		return nil, appErrors.New(appErrors.CodeNetwork, "decoding latest release of "+slug, err)
	}

	r := toRelease(gr)
	return &r, nil
}

// Download opens the asset at assetURL for streaming.
func (c *GitHubClient) Download(ctx context.Context, assetURL string) (io.ReadCloser, int64, error) {
	resp, err := c.doRequest(ctx, assetURL)
	if err != nil {
		return nil, 0, appErrors.New(appErrors.CodeNetwork, "downloading "+redactURL(assetURL), err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, 0, appErrors.New(appErrors.CodeNetwork,
			fmt.Sprintf("downloading %s: unexpected status %d", redactURL(assetURL), resp.StatusCode), nil)
	}

	return resp.Body, resp.ContentLength, nil
}

// doRequest issues a GET with the GitHub API headers.
func (c *GitHubClient) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)

	// Redirects to a CDN must not carry the token.
	if c.token != "" && isGitHubHost(req.URL, c.baseURL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	return resp, nil
}

// checkRateLimit returns a RateLimitError when X-RateLimit-Remaining is zero.
func checkRateLimit(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return nil
	}

	rem, err := strconv.Atoi(remaining)
	if err != nil || rem > 0 {
		return nil
	}

	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)

	return &RateLimitError{
		Limit:     limit,
		Remaining: 0,
		ResetAt:   time.Unix(resetUnix, 0),
	}
}

func toRelease(gr githubRelease) Release {
	assets := make([]Asset, 0, len(gr.Assets))
	for _, ga := range gr.Assets {
		assets = append(assets, Asset{
			Name:   ga.Name,
			URL:    ga.BrowserDownloadURL,
			Size:   ga.Size,
			Digest: ga.Digest,
		})
	}

	return Release{
		TagName: gr.TagName,
		Name:    gr.Name,
		HTMLURL: gr.HTMLURL,
		Assets:  assets,
	}
}

// isGitHubHost reports whether reqURL targets the configured API host, or
// github.com when the API is api.github.com.
func isGitHubHost(reqURL *url.URL, baseURL string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	if strings.EqualFold(reqURL.Host, base.Host) {
		return true
	}
	return strings.EqualFold(base.Host, "api.github.com") && strings.EqualFold(reqURL.Host, "github.com")
}

// redactURL strips query parameters and fragments for log and error output.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
