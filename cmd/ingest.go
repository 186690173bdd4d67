package cmd

import (
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
)

func ingestCMD() *cobra.Command {
	var dir string
	var watch bool
	ingest := &cobra.Command{
		Use:   "ingest",
		Short: "Index a directory of PDF, text and Markdown files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dir != "" {
				cfg.Ingest.Dir = dir
			}
			if cmd.Flags().Changed("watch") {
				cfg.Ingest.Watch = watch
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			indexer := a.newIndexer()
			report, err := indexer.ScanAndIndexDirectory(ctx, cfg.Ingest.Dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "indexed %d files (%d chunks), %d unchanged, %d removed\n",
				len(report.Indexed), report.Chunks, report.Unchanged, len(report.Removed))
			failed := make([]string, 0, len(report.Failed))
			for path := range report.Failed {
				failed = append(failed, path)
			}
			sort.Strings(failed)
			for _, path := range failed {
				fmt.Fprintf(out, "failed: %s: %v\n", path, report.Failed[path])
			}

			if !cfg.Ingest.Watch {
				return nil
			}
			return indexer.WatchDirectory(ctx, cfg.Ingest.Dir)
		},
	}
	ingest.Flags().StringVarP(&dir, "dir", "d", "", "directory to index (overrides ingest.dir)")
	ingest.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and re-index files as they change")
	return ingest
}
