package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-regions/internal/annotate"
	"github.com/inodb/vibe-regions/internal/duckdb"
	"github.com/inodb/vibe-regions/internal/output"
	"github.com/inodb/vibe-regions/internal/region"
)

func newLookupCmd() *cobra.Command {
	var gene string

	cmd := &cobra.Command{
		Use:   "lookup [flags] [chrom:start-end]",
		Short: "Show stored annotation results",
		Long: `Show annotation results stored by "annotate --db", either for one region
(exactly as it was annotated, 0-based half-open) or for a gene symbol or ID.`,
		Example: `  vibe-regions lookup --db regions.duckdb chr12:25209800-25209900
  vibe-regions lookup --db regions.duckdb --gene KRAS`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{"db": "db", "format": "output-format"})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if (gene == "") == (len(args) == 0) {
				return fmt.Errorf("specify either a region or --gene")
			}

			dbPath := viper.GetString("db")
			if dbPath == "" {
				return fmt.Errorf("--db is required")
			}
			store, err := duckdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			var records []*annotate.Record
			if gene != "" {
				records, err = store.SearchByGene(cmd.Context(), gene)
			} else {
				var r region.Region
				r, err = region.Parse(args[0])
				if err != nil {
					return err
				}
				records, err = store.LookupRegion(cmd.Context(), r)
			}
			if err != nil {
				return err
			}

			writer, err := output.NewWriter(viper.GetString("format"), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := writer.WriteHeader(); err != nil {
				return err
			}
			for _, rec := range records {
				if err := writer.Write(rec); err != nil {
					return err
				}
			}
			return writer.Flush()
		},
	}

	cmd.Flags().String("db", "", "DuckDB database written by annotate --db")
	cmd.Flags().StringVar(&gene, "gene", "", "HUGO symbol or Ensembl gene ID")
	cmd.Flags().StringP("output-format", "f", output.FormatTab, "Output format: tab, csv")

	return cmd
}
