package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/cadence/internal/cache"
)

var cachePruneAge time.Duration

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the speech cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and entry count",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		store, dir, err := openCache()
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		stats := store.Stats()
		fmt.Printf("Cache dir:  %s\n", dir)
		fmt.Printf("Entries:    %d\n", stats.Items)
		fmt.Printf("On disk:    %s\n", humanize.IBytes(uint64(stats.Bytes)))    //nolint:gosec
		fmt.Printf("Decoded:    %s\n", humanize.IBytes(uint64(stats.RawBytes))) //nolint:gosec
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove cache entries older than a given age",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		store, _, err := openCache()
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		removed := store.Prune(cachePruneAge)
		fmt.Printf("Removed %d entries older than %s\n", removed, cachePruneAge)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached clip",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		store, dir, err := openCache()
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Printf("Cleared cache at %s\n", dir)
		return nil
	},
}

func openCache() (*cache.Store, string, error) {
	dir, err := resolveCacheDir()
	if err != nil {
		return nil, "", err
	}
	store, err := cache.Open(dir)
	if err != nil {
		return nil, "", fmt.Errorf("unable to open speech cache: %w", err)
	}
	return store, dir, nil
}

func init() {
	cachePruneCmd.Flags().DurationVar(&cachePruneAge, "older-than", 30*24*time.Hour, "age threshold")
	cacheCmd.AddCommand(cacheStatsCmd, cachePruneCmd, cacheClearCmd)
}
