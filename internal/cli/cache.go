package cmd

import (
	"fmt"

	"github.com/rohmanhakim/fetchkit/internal/cache"
	"github.com/spf13/cobra"
)

func newCacheCommand() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the result cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			stats, err := s.engine.CacheStats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Strategy: %s\n", stats.Strategy)
			fmt.Fprintf(out, "Memory Entries: %d/%d\n", stats.MemoryEntries, stats.MemoryCapacity)
			fmt.Fprintf(out, "Persistent Entries: %d\n", stats.PersistentEntries)
			fmt.Fprintf(out, "Size Estimate: %d bytes\n", stats.SizeEstimate)
			fmt.Fprintf(out, "Hits: %d\n", stats.Hits)
			fmt.Fprintf(out, "Misses: %d\n", stats.Misses)
			fmt.Fprintf(out, "Evictions: %d\n", stats.Evictions)
			return nil
		},
	}

	var tier string
	var expiredOnly bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := cache.Tier(tier)
			switch target {
			case cache.TierMemory, cache.TierPersistent, cache.TierAll:
			default:
				return fmt.Errorf("unknown tier %q: use memory, persistent or all", tier)
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if expiredOnly {
				purged, err := s.engine.PurgeExpiredCache(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired entries\n", purged)
				return err
			}
			if err := s.engine.ClearCache(cmd.Context(), target); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s cache\n", target)
			return err
		},
	}
	clearCmd.Flags().StringVar(&tier, "tier", string(cache.TierAll), "memory, persistent or all")
	clearCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only remove expired entries from every tier")

	cacheCmd.AddCommand(statsCmd, clearCmd)
	return cacheCmd
}
