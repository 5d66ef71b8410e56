package steam

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ///////////////////////////////////////////////
// SteamID Resolution
// ///////////////////////////////////////////////

// steamID64Re matches an individual-account SteamID64.
var steamID64Re = regexp.MustCompile(`^7656119[0-9]{10}$`)

// ValidSteamID reports whether id is a 17-digit individual SteamID64.
func ValidSteamID(id string) bool {
	return steamID64Re.MatchString(id)
}

// resolveVanity mirrors ISteamUser/ResolveVanityURL/v1.
type resolveVanity struct {
	Response struct {
		SteamID string `json:"steamid"`
		Success int    `json:"success"`
		Message string `json:"message"`
	} `json:"response"`
}

// ResolveCommunityURL turns a community profile reference into a SteamID64.
// Accepted forms:
//
//	76561197960287930
//	https://steamcommunity.com/profiles/76561197960287930/
//	https://steamcommunity.com/id/gabelogannewell/
//	steamcommunity.com/id/gabelogannewell
//
// Only the /id/ form needs an API call.
func (c *Client) ResolveCommunityURL(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ValidSteamID(ref) {
		return ref, nil
	}

	kind, value, err := splitCommunityURL(ref)
	if err != nil {
		return "", err
	}
	if kind == "profiles" {
		if !ValidSteamID(value) {
			return "", fmt.Errorf("%w: %q", ErrInvalidID, value)
		}
		return value, nil
	}

	var out resolveVanity
	if err := c.getJSON(ctx, "/ISteamUser/ResolveVanityURL/v0001/", url.Values{"vanityurl": {value}}, &out); err != nil {
		return "", err
	}
	if out.Response.Success != 1 || out.Response.SteamID == "" {
		return "", fmt.Errorf("%w: vanity name %q", ErrNotFound, value)
	}
	return out.Response.SteamID, nil
}

// splitCommunityURL returns ("id"|"profiles", value) for a community URL.
func splitCommunityURL(ref string) (string, string, error) {
	if !strings.Contains(ref, "://") {
		ref = "https://" + ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host != "steamcommunity.com" {
		return "", "", fmt.Errorf("%w: %q is not a steamcommunity.com URL", ErrInvalidID, ref)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q has no profile path", ErrInvalidID, ref)
	}
	switch parts[0] {
	case "id", "profiles":
		return parts[0], parts[1], nil
	default:
		return "", "", fmt.Errorf("%w: unsupported path /%s/", ErrInvalidID, parts[0])
	}
}
