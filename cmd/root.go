// Package cmd holds the sectionrag command line: serve, query, section and
// ingest.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/itish2003/sectionrag/config"
)

var cfgPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sectionrag",
		Short:         "Section-aware retrieval over a medical reference corpus",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config.yaml or ./config/config.yaml)")
	root.AddCommand(serveCMD(), queryCMD(), sectionCMD(), ingestCMD())
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
