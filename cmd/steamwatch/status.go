package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"tools.zach/dev/steamwatch/internal/logger"
	"tools.zach/dev/steamwatch/internal/steam"
	"tools.zach/dev/steamwatch/internal/store"
	"tools.zach/dev/steamwatch/internal/timefmt"
)

// ///////////////////////////////////////////////
// Status Command
// ///////////////////////////////////////////////

// newStatusCmd prints the persisted record of an account, whether a daemon
// is tracking it, and the live profile when an API key is configured.
func newStatusCmd(f *flags) *cobra.Command {
	var tail int
	var offline bool

	cmd := &cobra.Command{
		Use:   "status [STEAM_ID]",
		Short: "Show the saved and live status of an account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(f, cmd.Flags().Changed, args)
			if err != nil {
				return err
			}
			id := s.cfg.Steam.SteamID
			if id == "" {
				return errors.New("steam id is required")
			}
			if !steam.ValidSteamID(id) {
				return fmt.Errorf("%w: %q", steam.ErrInvalidID, id)
			}

			out := cmd.OutOrStdout()
			now := time.Now()
			rows := recordRows(store.New(s.dirs, id, logger.Discard()), now)

			if alive, pid := checkStalePID(s.dirs.PID(id)); alive {
				rows = append(rows, []string{"Daemon", fmt.Sprintf("running (pid %d)", pid)})
			} else {
				rows = append(rows, []string{"Daemon", "not running"})
			}

			if !offline && s.cfg.Steam.APIKey != "" {
				client := steam.New(s.cfg.Steam.APIKey, steam.Options{BaseURL: s.cfg.Steam.BaseURL, RetryMax: 1})
				rows = append(rows, profileRows(cmd.Context(), client, id, now)...)
			}

			fmt.Fprintf(out, "Steam ID %s\n\n", id)
			renderTable(out, []string{"Field", "Value"}, rows)

			if tail > 0 {
				text, err := logger.ReadTail(s.dirs.Log(id), tail)
				if err != nil {
					return fmt.Errorf("read log: %w", err)
				}
				if text != "" {
					fmt.Fprintf(out, "\nLast %d log lines:\n%s\n", tail, strings.TrimRight(text, "\n"))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&tail, "tail", "n", 0, "Also print the last N lines of the account's log")
	cmd.Flags().BoolVar(&offline, "offline", false, "Do not query the Steam API")
	return cmd
}

// recordRows describes the persisted record.
func recordRows(st *store.Store, now time.Time) [][]string {
	rec, err := st.Load()
	switch {
	case errors.Is(err, store.ErrNotFound):
		return [][]string{{"Saved status", "none"}}
	case err != nil:
		return [][]string{{"Saved status", "unreadable: " + err.Error()}, {"State file", st.Path()}}
	}

	rows := [][]string{
		{"Saved status", rec.Status.String()},
		{"Since", timefmt.Date(rec.StatusSince)},
		{"For", timefmt.SpanMinutes(rec.StatusSince, now)},
		{"State file", st.Path()},
	}
	if !rec.EstimatedLastActive.IsZero() {
		rows = append(rows, []string{"Estimated last activity", timefmt.Date(rec.EstimatedLastActive) + " (" + timefmt.Ago(rec.EstimatedLastActive, now) + ")"})
	}
	return rows
}

// profileRows fetches the live profile. A failed request becomes a row.
func profileRows(ctx context.Context, client *steam.Client, id string, now time.Time) [][]string {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	p, err := client.Profile(ctx, id)
	if err != nil {
		return [][]string{{"Live profile", "unavailable: " + err.Error()}}
	}
	rows := [][]string{
		{"Name", p.PersonaName},
		{"Live status", p.Status.String()},
		{"Visibility", p.Visibility.String()},
	}
	if p.RealName != "" {
		rows = append(rows, []string{"Real name", p.RealName})
	}
	if p.GameName != "" || p.GameID != "" {
		game := p.GameName
		if game == "" {
			game = "app " + p.GameID
		}
		rows = append(rows, []string{"Playing", game})
	}
	if !p.LastLogoff.IsZero() {
		rows = append(rows, []string{"Last logoff", timefmt.Date(p.LastLogoff) + " (" + timefmt.Ago(p.LastLogoff, now) + ")"})
	}
	if p.ProfileURL != "" {
		rows = append(rows, []string{"Profile", p.ProfileURL})
	}
	return rows
}

// renderTable writes a borderless, left-aligned table.
func renderTable(w io.Writer, headers []string, rows [][]string) {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	for _, row := range rows {
		_ = table.Append(row)
	}
	_ = table.Render()
}
