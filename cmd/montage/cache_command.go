package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/montagekit/montage/internal/rendercache"
	"github.com/montagekit/montage/internal/util"
)

func newCacheCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the render cache",
	}
	cmd.AddCommand(newCacheLsCommand(opts))
	cmd.AddCommand(newCacheClearCommand(opts))
	return cmd
}

func newCacheLsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List cached clip renders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.engineConfig()
			cache := rendercache.New(cfg.ScratchDir, opts.logger())

			entries, err := cache.Entries()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("cache is empty")
				return nil
			}

			keys := make([]string, 0, len(entries))
			for k := range entries {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			rows := make([][]string, 0, len(keys))
			var total uint64
			for _, k := range keys {
				file := entries[k]
				size, err := util.GetFileSize(file)
				if err != nil {
					size = 0
				}
				total += size
				rows = append(rows, []string{k, util.GetFilename(file), formatSize(size)})
			}

			fmt.Println(renderTable(
				[]string{"FINGERPRINT", "FILE", "SIZE"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			fmt.Printf("%d entries, %s in %s\n", len(keys), formatSize(total), cfg.ScratchDir)
			return nil
		},
	}
}

func newCacheClearCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached render and the cache table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.engineConfig()
			cache := rendercache.New(cfg.ScratchDir, opts.logger())
			if err := cache.Clear(); err != nil {
				return err
			}
			fmt.Printf("cleared %s\n", cfg.ScratchDir)
			return nil
		},
	}
}

func formatSize(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
