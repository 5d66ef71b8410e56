package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tools.zach/dev/steamwatch/internal/steam"
)

// newResolveCmd prints the 64-bit Steam ID behind a community profile URL.
// Vanity URLs need an API key; numeric /profiles/ URLs do not.
func newResolveCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve URL",
		Short: "Resolve a Steam community URL to a Steam ID",
		Example: `  steamwatch resolve https://steamcommunity.com/id/gaben
  steamwatch resolve https://steamcommunity.com/profiles/76561197960287930`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(f, cmd.Flags().Changed, nil)
			if err != nil {
				return err
			}
			client := steam.New(s.cfg.Steam.APIKey, steam.Options{BaseURL: s.cfg.Steam.BaseURL})

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			id, err := client.ResolveCommunityURL(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}
