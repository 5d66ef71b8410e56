package steam

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"tools.zach/dev/steamwatch/internal/presence"
)

// ///////////////////////////////////////////////
// Player Summaries
// ///////////////////////////////////////////////

// Visibility is the community profile visibility state.
type Visibility int

const (
	VisibilityPrivate     Visibility = 1
	VisibilityFriendsOnly Visibility = 2
	VisibilityPublic      Visibility = 3
)

// String returns the lowercase visibility name.
func (v Visibility) String() string {
	switch v {
	case VisibilityPrivate:
		return "private"
	case VisibilityFriendsOnly:
		return "friends only"
	case VisibilityPublic:
		return "public"
	default:
		return "unknown"
	}
}

// Profile is the subset of a player summary the monitor uses.
type Profile struct {
	SteamID     string
	PersonaName string
	// RealName is empty unless the profile is public and sets it.
	RealName   string
	Status     presence.Status
	Visibility Visibility
	// Created is zero when the profile hides it.
	Created time.Time
	// LastLogoff is zero when the profile hides it.
	LastLogoff time.Time
	ProfileURL string
	AvatarURL  string
	// GameID and GameName describe the game being played, empty for none.
	GameID   string
	GameName string
}

// Snapshot converts the profile into a presence observation made at.
func (p Profile) Snapshot(at time.Time) presence.Snapshot {
	return presence.Snapshot{
		Status:       p.Status,
		ActivityID:   p.GameID,
		ActivityName: p.GameName,
		ObservedAt:   at,
		LastLogoff:   p.LastLogoff,
	}
}

// playerSummaries mirrors ISteamUser/GetPlayerSummaries/v2.
type playerSummaries struct {
	Response struct {
		Players []struct {
			SteamID                  string `json:"steamid"`
			PersonaName              string `json:"personaname"`
			RealName                 string `json:"realname"`
			PersonaState             int    `json:"personastate"`
			CommunityVisibilityState int    `json:"communityvisibilitystate"`
			TimeCreated              int64  `json:"timecreated"`
			LastLogoff               int64  `json:"lastlogoff"`
			ProfileURL               string `json:"profileurl"`
			AvatarFull               string `json:"avatarfull"`
			GameID                   string `json:"gameid"`
			GameExtraInfo            string `json:"gameextrainfo"`
		} `json:"players"`
	} `json:"response"`
}

// Profile fetches the player summary for steamID.
func (c *Client) Profile(ctx context.Context, steamID string) (*Profile, error) {
	if !ValidSteamID(steamID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, steamID)
	}
	var out playerSummaries
	params := url.Values{"steamids": {steamID}}
	if err := c.getJSON(ctx, "/ISteamUser/GetPlayerSummaries/v0002/", params, &out); err != nil {
		return nil, err
	}
	if len(out.Response.Players) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, steamID)
	}

	pl := out.Response.Players[0]
	status := presence.Status(pl.PersonaState)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown persona state %d", ErrTransient, pl.PersonaState)
	}
	return &Profile{
		SteamID:     pl.SteamID,
		PersonaName: pl.PersonaName,
		RealName:    pl.RealName,
		Status:      status,
		Visibility:  Visibility(pl.CommunityVisibilityState),
		Created:     unixOrZero(pl.TimeCreated),
		LastLogoff:  unixOrZero(pl.LastLogoff),
		ProfileURL:  pl.ProfileURL,
		AvatarURL:   pl.AvatarFull,
		GameID:      pl.GameID,
		GameName:    pl.GameExtraInfo,
	}, nil
}

// Poll fetches one presence snapshot for steamID. Errors are one of
// [ErrAuthInvalid], [*RateLimitError], [ErrNotFound] or wrap [ErrTransient];
// context errors are returned as-is.
func (c *Client) Poll(ctx context.Context, steamID string) (presence.Snapshot, error) {
	p, err := c.Profile(ctx, steamID)
	if err != nil {
		return presence.Snapshot{}, err
	}
	return p.Snapshot(c.now()), nil
}

// ///////////////////////////////////////////////
// Recently Played
// ///////////////////////////////////////////////

// Game is one entry of the recently played list.
type Game struct {
	AppID           int64
	Name            string
	PlaytimeTwoWeek time.Duration
	PlaytimeTotal   time.Duration
}

// recentlyPlayed mirrors IPlayerService/GetRecentlyPlayedGames/v1.
type recentlyPlayed struct {
	Response struct {
		TotalCount int `json:"total_count"`
		Games      []struct {
			AppID           int64  `json:"appid"`
			Name            string `json:"name"`
			Playtime2Weeks  int64  `json:"playtime_2weeks"`
			PlaytimeForever int64  `json:"playtime_forever"`
		} `json:"games"`
	} `json:"response"`
}

// RecentGames returns up to count recently played games. Private profiles
// yield an empty list, not an error.
func (c *Client) RecentGames(ctx context.Context, steamID string, count int) ([]Game, error) {
	if !ValidSteamID(steamID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, steamID)
	}
	var out recentlyPlayed
	params := url.Values{"steamid": {steamID}, "count": {strconv.Itoa(count)}}
	if err := c.getJSON(ctx, "/IPlayerService/GetRecentlyPlayedGames/v0001/", params, &out); err != nil {
		return nil, err
	}
	games := make([]Game, 0, len(out.Response.Games))
	for _, g := range out.Response.Games {
		games = append(games, Game{
			AppID:           g.AppID,
			Name:            g.Name,
			PlaytimeTwoWeek: time.Duration(g.Playtime2Weeks) * time.Minute,
			PlaytimeTotal:   time.Duration(g.PlaytimeForever) * time.Minute,
		})
	}
	return games, nil
}

// unixOrZero maps 0 (field absent) to the zero time.
func unixOrZero(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
