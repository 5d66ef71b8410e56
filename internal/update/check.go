// Package update checks whether a newer steamwatch release has been
// published in the release manifest.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ManifestURL is the release manifest consulted by [Default]. It is set at
// build time:
//
//	-X tools.zach/dev/steamwatch/internal/update.ManifestURL=https://...
var ManifestURL string

// ErrNoManifest is returned when no manifest URL is configured.
var ErrNoManifest = errors.New("no release manifest configured")

// ///////////////////////////////////////////////
// Checker
// ///////////////////////////////////////////////

// Result is the outcome of one check.
type Result struct {
	Current string
	Latest  string
	// Newer is set when Latest is a strictly greater semver than Current.
	Newer bool
}

// Checker fetches the release manifest. The manifest is a JSON object whose
// "." key holds the latest stable version.
type Checker struct {
	url  string
	http *retryablehttp.Client
}

// New returns a checker for the manifest at url.
func New(url string) *Checker {
	hc := retryablehttp.NewClient()
	hc.RetryMax = 1
	hc.RetryWaitMin = 500 * time.Millisecond
	hc.RetryWaitMax = 2 * time.Second
	hc.HTTPClient.Timeout = 5 * time.Second
	hc.Logger = nil
	return &Checker{url: url, http: hc}
}

// Default returns a checker for [ManifestURL].
func Default() *Checker {
	return New(ManifestURL)
}

// Check compares current against the latest published version.
func (c *Checker) Check(ctx context.Context, current string) (Result, error) {
	latest, err := c.Latest(ctx)
	if err != nil {
		return Result{Current: current}, err
	}
	return Result{Current: current, Latest: latest, Newer: Newer(current, latest)}, nil
}

// Latest downloads the manifest and returns its "." entry.
func (c *Checker) Latest(ctx context.Context) (string, error) {
	if c.url == "" {
		return "", ErrNoManifest
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: status %d", c.url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	var manifest map[string]string
	if err := json.Unmarshal(body, &manifest); err != nil {
		return "", fmt.Errorf("parsing manifest: %w", err)
	}
	return strings.TrimSpace(manifest["."]), nil
}

// Newer reports whether latest is a release after current. Development
// builds ("dev+abc1234") never compare as older.
func Newer(current, latest string) bool {
	if latest == "" || latest == current {
		return false
	}
	return semverLess(current, latest)
}

// ///////////////////////////////////////////////
// Semver
// ///////////////////////////////////////////////

// semverLess returns true if a < b using simple numeric comparison.
// Handles versions like "0.1.0", "1.2.3". Non-semver strings are not compared.
// Per semver, a pre-release version is less than the same version without one
// (e.g., "0.1.0-dev" < "0.1.0").
func semverLess(a, b string) bool {
	pa := parseSemver(a)
	pb := parseSemver(b)
	if pa == nil || pb == nil {
		return false
	}
	for i := range 3 {
		if pa[i] < pb[i] {
			return true
		}
		if pa[i] > pb[i] {
			return false
		}
	}
	// Numeric parts are equal; a pre-release version is less than a release.
	aPre := hasPreRelease(a)
	bPre := hasPreRelease(b)
	if aPre && !bPre {
		return true
	}
	return false
}

// hasPreRelease reports whether a version string contains a pre-release suffix
// (e.g., "0.1.0-dev" or "v1.0.0-beta+build").
func hasPreRelease(s string) bool {
	s = strings.TrimPrefix(s, "v")
	return strings.ContainsAny(s, "-")
}

// parseSemver splits a version string like "v1.2.3" or "0.1.0-dev" into a
// three-element int slice [major, minor, patch]. Pre-release suffixes after
// "-" or "+" are stripped. Returns nil if the string is not valid semver.
func parseSemver(s string) []int {
	s = strings.TrimPrefix(s, "v")
	parts := strings.SplitN(s, ".", 3)
	if len(parts) != 3 {
		return nil
	}
	result := make([]int, 3)
	for i, p := range parts {
		// Strip pre-release suffixes (e.g., "0-dev+abc")
		if idx := strings.IndexAny(p, "-+"); idx >= 0 {
			p = p[:idx]
		}
		n := 0
		for _, c := range p {
			if c < '0' || c > '9' {
				return nil
			}
			n = n*10 + int(c-'0')
		}
		result[i] = n
	}
	return result
}
