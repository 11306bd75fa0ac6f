package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-regions/internal/annotate"
	"github.com/inodb/vibe-regions/internal/cache"
	"github.com/inodb/vibe-regions/internal/duckdb"
	"github.com/inodb/vibe-regions/internal/output"
	"github.com/inodb/vibe-regions/internal/region"
)

// bindFlags binds viper keys to the flags of the command being run.
// Keys shared between commands must be bound at run time, not at construction.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return fmt.Errorf("unknown flag %q", flag)
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %s: %w", flag, err)
		}
	}
	return nil
}

type annotateOptions struct {
	assembly      string
	features      string
	outputFile    string
	keepUnmatched bool
	skipMalformed bool
	noCache       bool
	summary       string
}

func newAnnotateCmd() *cobra.Command {
	var opts annotateOptions

	cmd := &cobra.Command{
		Use:   "annotate [flags] <regions.bed>",
		Short: "Annotate regions in a BED file with overlapping transcripts",
		Long: `Annotate regions in a BED file with overlapping transcripts.

Features come from, in order of preference: --features (JSON), --gtf (or the
GENCODE GTF downloaded for --assembly), or the feature index stored in --db.
When --db is set, annotation results are also stored there for lookup.`,
		Example: `  vibe-regions annotate regions.bed
  vibe-regions annotate --gtf gencode.v46.annotation.gtf.gz regions.bed.gz
  vibe-regions annotate --mode best_one -f csv -o out.csv regions.bed
  cat regions.bed | vibe-regions annotate --db regions.duckdb -`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"mode":    "mode",
				"workers": "workers",
				"gtf":     "gtf",
				"db":      "db",
				"format":  "output-format",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnnotate(cmd, args[0], &opts)
		},
	}

	addIndexFlags(cmd.Flags(), &opts.assembly)
	cmd.Flags().StringVar(&opts.features, "features", "", "JSON feature file or directory (instead of a GTF)")
	cmd.Flags().String("mode", string(annotate.ModeBestAll), "Reporting mode: best_all, best_one, all")
	cmd.Flags().Int("workers", runtime.NumCPU(), "Number of annotation workers")
	cmd.Flags().StringP("output-format", "f", output.FormatTab, "Output format: tab, csv")
	cmd.Flags().StringVarP(&opts.outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.keepUnmatched, "keep-unmatched", false, "Write a placeholder row for regions without overlapping transcripts")
	cmd.Flags().BoolVar(&opts.skipMalformed, "skip-malformed", false, "Skip malformed BED lines instead of failing")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "Parse the GTF even if a valid feature cache exists")
	cmd.Flags().StringVar(&opts.summary, "summary", "yaml", "Summary written to stderr: yaml, text, none")

	return cmd
}

// addIndexFlags registers the flags locating the feature source.
func addIndexFlags(fs *pflag.FlagSet, assembly *string) {
	fs.StringVar(assembly, "assembly", "GRCh38", "Genome assembly of downloaded annotations: GRCh37 or GRCh38")
	fs.String("gtf", "", "GENCODE/Ensembl GTF file (default: downloaded GTF for --assembly)")
	fs.String("db", "", "DuckDB database holding a feature index and annotation results")
}

func runAnnotate(cmd *cobra.Command, inputPath string, opts *annotateOptions) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	mode, err := annotate.ParseMode(viper.GetString("mode"))
	if err != nil {
		return err
	}
	format := viper.GetString("format")
	if _, err := output.NewWriter(format, io.Discard); err != nil {
		return err
	}

	parser, err := region.NewParser(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w (check that the file path is correct)", err)
		}
		return err
	}
	defer parser.Close()
	parser.SetSkipMalformed(opts.skipMalformed)

	regions, err := parser.ReadAll()
	if err != nil {
		return fmt.Errorf("reading regions: %w", err)
	}
	if n := parser.Skipped(); n > 0 {
		logger.Warn("skipped malformed BED lines", zap.Int("count", n))
	}
	logger.Info("read regions", zap.String("path", inputPath), zap.Int("count", len(regions)))

	var store *duckdb.Store
	if dbPath := viper.GetString("db"); dbPath != "" {
		store, err = duckdb.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	ix, err := loadFeatureIndex(ctx, logger, opts.assembly, opts.features, opts.noCache, store)
	if err != nil {
		return err
	}

	ann := annotate.NewAnnotator(ix)
	ann.SetMode(mode)
	ann.SetWorkers(viper.GetInt("workers"))
	ann.SetLogger(logger)

	res, annErr := ann.Annotate(ctx, regions)
	if res == nil {
		return annErr
	}

	out := cmd.OutOrStdout()
	if opts.outputFile != "" {
		f, err := os.Create(opts.outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	writer, err := output.NewWriter(format, out)
	if err != nil {
		return err
	}
	if err := output.WriteResult(writer, regions, res, opts.keepUnmatched); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if store != nil {
		// Background context: results already computed are kept even after an interrupt.
		if err := store.WriteRecords(context.Background(), res.Records); err != nil {
			return fmt.Errorf("storing results: %w", err)
		}
		logger.Info("stored results", zap.String("db", store.Path()), zap.Int("records", len(res.Records)))
	}

	if err := writeSummary(cmd.ErrOrStderr(), opts.summary, res); err != nil {
		return err
	}

	if annErr != nil {
		var qe *annotate.QueryError
		if errors.As(annErr, &qe) && res.Complete {
			return fmt.Errorf("%d of %d regions failed: %w", len(res.Failures), len(regions), annErr)
		}
		return annErr
	}
	return nil
}

func writeSummary(w io.Writer, kind string, res *annotate.Result) error {
	switch kind {
	case "yaml":
		return output.WriteSummary(w, res)
	case "text":
		output.WriteSummaryText(w, res)
		return nil
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unknown summary format %q (use yaml, text or none)", kind)
	}
}

// loadFeatureIndex returns the feature index to annotate against.
func loadFeatureIndex(ctx context.Context, logger *zap.Logger, assembly, featuresPath string, noCache bool, store *duckdb.Store) (annotate.FeatureIndex, error) {
	if featuresPath != "" {
		ix := cache.NewIndex()
		if err := cache.NewJSONLoader(featuresPath).Load(ix); err != nil {
			return nil, fmt.Errorf("loading features: %w", err)
		}
		logger.Info("loaded JSON features", zap.String("path", featuresPath),
			zap.Int("features", ix.FeatureCount()), zap.Int("transcripts", ix.TranscriptCount()))
		return ix, nil
	}

	gtfPath := viper.GetString("gtf")
	if gtfPath == "" {
		gtfPath, _ = FindGENCODEFiles(assembly)
	}
	if gtfPath != "" {
		return loadGTFIndex(logger, gtfPath, noCache)
	}

	if store != nil {
		fs := duckdb.NewFeatureStore(store)
		n, err := fs.FeatureCount(ctx)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			logger.Info("using stored feature index", zap.String("db", store.Path()), zap.Int("features", n))
			return fs, nil
		}
	}

	return nil, fmt.Errorf("no feature source for %s: pass --gtf or --features, "+
		"or download GENCODE annotations with: vibe-regions download --assembly %s", assembly, assembly)
}

// loadGTFIndex parses a GTF into an in-memory index, reusing the gob feature
// cache next to the GTF when its fingerprint still matches.
func loadGTFIndex(logger *zap.Logger, gtfPath string, noCache bool) (*cache.Index, error) {
	fp, err := duckdb.StatFile(gtfPath)
	if err != nil {
		return nil, err
	}

	fc := duckdb.NewFeatureCache(filepath.Join(filepath.Dir(gtfPath), ".vibe-regions-cache"))
	ix := cache.NewIndex()

	if !noCache && fc.Valid(fp) {
		loadErr := fc.Load(ix)
		if loadErr == nil {
			logger.Info("loaded feature cache", zap.String("gtf", gtfPath), zap.Int("features", ix.FeatureCount()))
			return ix, nil
		}
		logger.Warn("feature cache unreadable, re-parsing GTF", zap.String("gtf", gtfPath), zap.Error(loadErr))
		ix = cache.NewIndex()
	}

	loader := cache.NewGTFLoader(gtfPath)
	if err := loader.Load(ix); err != nil {
		return nil, fmt.Errorf("loading GTF: %w", err)
	}
	logger.Info("loaded GTF", zap.String("gtf", gtfPath),
		zap.Int("features", ix.FeatureCount()), zap.Int("transcripts", ix.TranscriptCount()),
		zap.Int("skipped_lines", loader.Skipped()))

	if err := fc.Write(ix, fp); err != nil {
		logger.Warn("could not write feature cache", zap.Error(err))
	}
	return ix, nil
}
