package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-regions/internal/cache"
	"github.com/inodb/vibe-regions/internal/duckdb"
)

func newIndexCmd() *cobra.Command {
	var (
		assembly string
		appendTo bool
	)

	cmd := &cobra.Command{
		Use:   "index [flags] [gtf]",
		Short: "Build a DuckDB feature index from a GTF",
		Long: `Parse a GTF once and store its gene, transcript, exon and CDS features
in a DuckDB database. "annotate --db" then answers overlap queries from the
database without re-parsing the GTF.`,
		Example: `  vibe-regions index --db regions.duckdb gencode.v46.annotation.gtf.gz
  vibe-regions index --assembly GRCh37                 # downloaded GTF, default database`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{"gtf": "gtf", "db": "db"})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			gtfPath := viper.GetString("gtf")
			if len(args) == 1 {
				gtfPath = args[0]
			}
			if gtfPath == "" {
				gtfPath, _ = FindGENCODEFiles(assembly)
			}
			if gtfPath == "" {
				return fmt.Errorf("no GTF given and none downloaded for %s", assembly)
			}

			dbPath := viper.GetString("db")
			if dbPath == "" {
				dir := defaultDataDir(assembly)
				if dir == "" {
					return fmt.Errorf("cannot determine home directory; pass --db")
				}
				dbPath = filepath.Join(dir, "features.duckdb")
			}
			return runIndex(cmd, gtfPath, dbPath, appendTo)
		},
	}

	addIndexFlags(cmd.Flags(), &assembly)
	cmd.Flags().BoolVar(&appendTo, "append", false, "Add to the existing index instead of replacing it")

	return cmd
}

func runIndex(cmd *cobra.Command, gtfPath, dbPath string, appendTo bool) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	ix := cache.NewIndex()
	loader := cache.NewGTFLoader(gtfPath)
	if err := loader.Load(ix); err != nil {
		return fmt.Errorf("loading GTF: %w", err)
	}
	logger.Info("loaded GTF", zap.String("gtf", gtfPath),
		zap.Int("features", ix.FeatureCount()), zap.Int("transcripts", ix.TranscriptCount()),
		zap.Int("skipped_lines", loader.Skipped()))

	store, err := duckdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	fs := duckdb.NewFeatureStore(store)
	write := fs.ReplaceIndex
	if appendTo {
		write = fs.WriteIndex
	}
	if err := write(cmd.Context(), ix); err != nil {
		return fmt.Errorf("writing feature index: %w", err)
	}

	n, err := fs.FeatureCount(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d features (%d chromosomes) into %s\n", n, len(ix.Chromosomes()), dbPath)
	return nil
}
