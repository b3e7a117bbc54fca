package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ari/internal/materials"
)

func newImportCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <url-or-file>...",
		Short: "Import reference material into the study library",
		Long: `Fetch documents from URLs or local files, chunk them, embed the
chunks, and store them in the materials library. Imported material is
retrieved as reference context during generation.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildContainer(opts)
			if err != nil {
				return err
			}
			defer c.Close()

			if c.library == nil {
				return fmt.Errorf("materials are not configured: set materials.path in the config")
			}

			importer := materials.NewImporter(c.library, c.embedder, materials.ImporterConfig{})
			reports, err := importer.ImportAll(cmd.Context(), args)
			if err != nil {
				return err
			}

			failures := 0
			for _, report := range reports {
				if report.Err != nil {
					failures++
					fmt.Printf("%s %s: %v\n", red("failed"), report.Source, report.Err)
					continue
				}
				fmt.Printf("%s %s %s\n", green("imported"), report.Title,
					gray(fmt.Sprintf("(%d chunks from %s)", report.Chunks, report.Source)))
			}
			fmt.Printf("%s library now holds %d chunks\n", gray("•"), c.library.Count())
			if failures > 0 {
				return fmt.Errorf("%d of %d sources failed", failures, len(reports))
			}
			return nil
		},
	}
	return cmd
}
