package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/matheus3301/tourchat/internal/core"
	"github.com/spf13/cobra"
)

var refreshFlag bool

func init() {
	profileCmd.Flags().BoolVar(&refreshFlag, "refresh", false, "bypass the cached copy")
	cacheCmd.AddCommand(cacheClearCmd, cacheStatsCmd)
	rootCmd.AddCommand(profileCmd, cacheCmd)
}

var profileCmd = &cobra.Command{
	Use:   "profile <user-id>",
	Short: "Show a guide or traveller profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCore(cmd, func(ctx context.Context, c *core.Core) error {
			if refreshFlag {
				c.Profiles.Invalidate(ctx, args[0])
			}
			p, err := c.Profiles.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonFlag {
				return outputJSON(p)
			}
			fmt.Printf("Name:      %s\n", p.Name)
			fmt.Printf("Role:      %s\n", p.Type)
			fmt.Printf("Verified:  %v\n", p.IsVerified)
			if p.Rating > 0 {
				fmt.Printf("Rating:    %.1f (%d tours)\n", p.Rating, p.ToursCount)
			}
			if len(p.Languages) > 0 {
				fmt.Printf("Languages: %s\n", strings.Join(p.Languages, ", "))
			}
			if p.Bio != "" {
				fmt.Printf("\n%s\n", p.Bio)
			}
			return nil
		})
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the response cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached response of this session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCore(cmd, func(ctx context.Context, c *core.Core) error {
			n := c.Cache.ClearAll(ctx)
			fmt.Printf("cleared %d entries from namespace %q\n", n, c.Cache.Namespace())
			return nil
		})
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many responses this session has cached",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCore(cmd, func(ctx context.Context, c *core.Core) error {
			out := struct {
				Namespace string `json:"namespace"`
				Entries   int    `json:"entries"`
			}{c.Cache.Namespace(), c.Cache.Len(ctx)}
			if jsonFlag {
				return outputJSON(out)
			}
			fmt.Printf("namespace: %s\nentries:   %d\n", out.Namespace, out.Entries)
			return nil
		})
	},
}
