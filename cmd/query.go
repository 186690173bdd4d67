package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/itish2003/sectionrag/models"
)

func queryCMD() *cobra.Command {
	var mode, output string
	var n int
	query := &cobra.Command{
		Use:   "query [question]",
		Short: "Answer a question from the corpus",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			pipeline, err := a.newPipeline(cmd.Context())
			if err != nil {
				return err
			}
			resp, qerr := pipeline.Query(cmd.Context(), strings.Join(args, " "), mode, n)
			if resp != nil {
				if err := writeOutput(cmd.OutOrStdout(), output, resp); err != nil {
					return err
				}
			}
			return qerr
		},
	}
	query.Flags().StringVarP(&mode, "mode", "m", "default", "retrieval mode: default or comprehensive")
	query.Flags().IntVarP(&n, "n-results", "n", 0, "top-K size (0 uses retrieval.n_results)")
	query.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")
	return query
}

func sectionCMD() *cobra.Command {
	var output string
	section := &cobra.Command{
		Use:   "section [title]",
		Short: "Print one section, assembled in page order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			pipeline, err := a.newPipeline(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := pipeline.Section(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, resp)
		},
	}
	section.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")
	return section
}

func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		_, err := io.WriteString(w, renderText(v))
		return err
	}
	return fmt.Errorf("unknown output format %q", format)
}

func renderText(v any) string {
	switch r := v.(type) {
	case *models.QueryResponse:
		var b strings.Builder
		b.WriteString(r.Response)
		b.WriteString("\n")
		for _, warn := range r.Warnings {
			fmt.Fprintf(&b, "\nwarning: %s: %s", warn.Section, warn.Message)
		}
		if len(r.Warnings) > 0 {
			b.WriteString("\n")
		}
		return b.String()
	case *models.SectionResponse:
		s := r.Section
		return fmt.Sprintf("# %s\n%s\npages %v, %d chunks\n\n%s\n", s.SectionTitle, s.Subhead, s.Pages, s.ChunkCount, s.Text)
	}
	return fmt.Sprintf("%v\n", v)
}
