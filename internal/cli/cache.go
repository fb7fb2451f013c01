package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"textclf/internal/adapter/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the embedding cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show embedding cache size and schema",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached embedding",
	RunE:  runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
}

func openExistingCache() (*store.BoltCache, string, error) {
	path := GetConfig().ResolveCachePath(GetRootDir())
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, path, fmt.Errorf("no embedding cache at %s. Run 'textclf embed' first", path)
	}
	st, err := store.NewBoltCache(path)
	if err != nil {
		return nil, path, err
	}
	return st, path, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	st, path, err := openExistingCache()
	if err != nil {
		return err
	}
	defer st.Close()

	info, err := st.Info()
	if err != nil {
		return err
	}
	check, err := st.CheckMigration(GetConfig())
	if err != nil {
		return err
	}

	fmt.Printf("Embedding cache: %s\n", path)
	fmt.Printf("  Entries:        %d\n", info.Entries)
	fmt.Printf("  Size:           %.1f MiB\n", float64(info.SizeBytes)/(1<<20))
	fmt.Printf("  Schema version: %d\n", info.SchemaVersion)
	if check.NeedsRebuild {
		fmt.Printf("  Stale:          %s (cleared on next embed)\n", check.Reason)
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	st, path, err := openExistingCache()
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.Count()
	if err != nil {
		return err
	}
	if err := st.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Printf("Cleared %d embeddings from %s\n", n, path)
	return nil
}
