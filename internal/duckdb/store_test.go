package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-regions/internal/annotate"
	"github.com/inodb/vibe-regions/internal/cache"
	"github.com/inodb/vibe-regions/internal/region"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func krasFeatures() []*cache.Feature {
	return []*cache.Feature{
		{Chrom: "chr12", Start: 25205245, End: 25250929, Strand: "-", Level: cache.LevelTranscript,
			GeneID: "ENSG00000133703", TranscriptID: "ENST00000311936", HugoSymbol: "KRAS",
			Biotype: "protein_coding", TSL: "1"},
		{Chrom: "chr12", Start: 25205245, End: 25209911, Strand: "-", Level: cache.LevelExon,
			GeneID: "ENSG00000133703", ParentTranscriptID: "ENST00000311936"},
		{Chrom: "chr12", Start: 25209797, End: 25209911, Strand: "-", Level: cache.LevelCDS,
			GeneID: "ENSG00000133703", ParentTranscriptID: "ENST00000311936"},
		{Chrom: "chr12", Start: 25205245, End: 25225000, Strand: "-", Level: cache.LevelTranscript,
			GeneID: "ENSG00000133703", TranscriptID: "ENST00000556131", HugoSymbol: "KRAS",
			Biotype: "nonsense_mediated_decay"},
		{Chrom: "7", Start: 140719326, End: 140924929, Strand: "-", Level: cache.LevelTranscript,
			GeneID: "ENSG00000157764", TranscriptID: "ENST00000288602", HugoSymbol: "BRAF",
			Biotype: "protein_coding"},
	}
}

// --- Database tests (DuckDB) ---

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Empty(t, s.Path())
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "regions.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFeatureStoreQueryOverlapping(t *testing.T) {
	ctx := context.Background()
	fs := NewFeatureStore(openInMemory(t))
	require.NoError(t, fs.WriteFeatures(ctx, krasFeatures()))

	n, err := fs.FeatureCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	got, err := fs.QueryOverlapping(ctx, "12", 25209800, 25209900)
	require.NoError(t, err)
	require.Len(t, got, 4)
	// Equal starts keep write order
	assert.Equal(t, "ENST00000311936", got[0].TranscriptID)
	assert.Equal(t, cache.LevelTranscript, got[0].Level)
	assert.Equal(t, "1", got[0].TSL)
	assert.Equal(t, cache.LevelExon, got[1].Level)
	assert.Equal(t, "ENST00000556131", got[2].TranscriptID)
	assert.Equal(t, cache.LevelCDS, got[3].Level)
	assert.Equal(t, "12", got[0].Chrom, "stored chromosome is normalized")

	// Caller may pass the prefixed name
	got, err = fs.QueryOverlapping(ctx, "chr12", 25230000, 25230001)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ENST00000311936", got[0].TranscriptID)

	// Half-open: a query ending at a feature start does not overlap
	got, err = fs.QueryOverlapping(ctx, "12", 25205000, 25205245)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = fs.QueryOverlapping(ctx, "X", 0, 1000)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFeatureStoreAppendKeepsOrder(t *testing.T) {
	ctx := context.Background()
	fs := NewFeatureStore(openInMemory(t))

	features := krasFeatures()
	require.NoError(t, fs.WriteFeatures(ctx, features[3:4]))
	require.NoError(t, fs.WriteFeatures(ctx, features[0:1]))

	got, err := fs.QueryOverlapping(ctx, "12", 25210000, 25211000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ENST00000556131", got[0].TranscriptID)
	assert.Equal(t, "ENST00000311936", got[1].TranscriptID)
}

func TestFeatureStoreRoundTripIndex(t *testing.T) {
	ctx := context.Background()
	fs := NewFeatureStore(openInMemory(t))

	require.NoError(t, fs.WriteIndex(ctx, cache.NewIndexFromFeatures(krasFeatures())))

	ix := cache.NewIndex()
	require.NoError(t, fs.LoadInto(ctx, ix))
	assert.Equal(t, 5, ix.FeatureCount())
	assert.Equal(t, 3, ix.TranscriptCount())
	assert.Equal(t, []string{"12", "7"}, ix.Chromosomes())

	require.NoError(t, fs.ClearFeatures())
	n, err := fs.FeatureCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFeatureStoreReplaceIndex(t *testing.T) {
	ctx := context.Background()
	fs := NewFeatureStore(openInMemory(t))
	require.NoError(t, fs.WriteFeatures(ctx, krasFeatures()))

	braf := krasFeatures()[4:]
	require.NoError(t, fs.ReplaceIndex(ctx, cache.NewIndexFromFeatures(braf)))

	n, err := fs.FeatureCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := fs.QueryOverlapping(ctx, "12", 25209800, 25209900)
	require.NoError(t, err)
	assert.Empty(t, got, "previous features are gone")
}

func TestFeatureStoreReplaceIndexRollsBack(t *testing.T) {
	ctx := context.Background()
	fs := NewFeatureStore(openInMemory(t))
	require.NoError(t, fs.WriteFeatures(ctx, krasFeatures()))

	bad := []*cache.Feature{
		{Chrom: "1", Start: 0, End: 100, Level: cache.LevelTranscript, TranscriptID: "T1"},
		{Chrom: "1", Start: 10, End: 20, ParentTranscriptID: "T1"},
	}
	err := fs.ReplaceIndex(ctx, cache.NewIndexFromFeatures(bad))
	require.ErrorContains(t, err, "unknown level")

	n, err := fs.FeatureCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n, "failed replace keeps the previous index")

	got, err := fs.QueryOverlapping(ctx, "1", 0, 100)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFeatureStoreAsIndex(t *testing.T) {
	ctx := context.Background()
	fs := NewFeatureStore(openInMemory(t))
	require.NoError(t, fs.WriteFeatures(ctx, krasFeatures()))

	var _ annotate.FeatureIndex = fs

	ann := annotate.NewAnnotator(fs)
	ann.SetMode(annotate.ModeAll)
	res, err := ann.Annotate(ctx, []region.Region{{Chrom: "chr12", Start: 25209800, End: 25209900}})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	// The shorter transcript has the larger share covered
	assert.Equal(t, "ENST00000556131", res.Records[0].TranscriptID)
	assert.Equal(t, 1, res.Records[0].Rank)
	assert.Equal(t, "ENST00000311936", res.Records[1].TranscriptID)
	assert.InDelta(t, 100.0*100/114, res.Records[1].CDSOverlapPct, 1e-9)
}

func sampleRecords() []*annotate.Record {
	kras := region.Region{Chrom: "chr12", Start: 25209800, End: 25209900}
	braf := region.Region{Chrom: "7", Start: 140753000, End: 140754000}
	return []*annotate.Record{
		{Region: kras, GeneID: "ENSG00000133703", Hugo: "KRAS", TranscriptID: "ENST00000311936",
			Strand: "-", Biotype: "protein_coding", TSL: "1",
			TxOverlapPct: 0.218, ExonOverlapPct: 2.145, CDSOverlapPct: 87.719, Rank: 1},
		{Region: kras, GeneID: "ENSG00000133703", Hugo: "KRAS", TranscriptID: "ENST00000556131",
			Strand: "-", Biotype: "nonsense_mediated_decay", TxOverlapPct: 0.505, Rank: 2},
		{Region: braf, GeneID: "ENSG00000157764", Hugo: "BRAF", TranscriptID: "ENST00000288602",
			Strand: "-", Biotype: "protein_coding", TxOverlapPct: 0.486, Rank: 1},
	}
}

func TestWriteAndLookupRecords(t *testing.T) {
	ctx := context.Background()
	s := openInMemory(t)

	records := sampleRecords()
	require.NoError(t, s.WriteRecords(ctx, records))

	got, err := s.LookupRegion(ctx, records[0].Region)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, records[0], got[0])
	assert.Equal(t, records[1], got[1])

	got, err = s.LookupRegion(ctx, region.Region{Chrom: "chr12", Start: 1, End: 2})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteRecordsDeduplicatesAndReplaces(t *testing.T) {
	ctx := context.Background()
	s := openInMemory(t)

	records := sampleRecords()
	// Same region annotated twice in one batch
	require.NoError(t, s.WriteRecords(ctx, append(records, records[0])))

	// Re-annotating a region replaces its results
	updated := *records[2]
	updated.Biotype = "protein_coding"
	updated.TxOverlapPct = 1.5
	require.NoError(t, s.WriteRecords(ctx, []*annotate.Record{&updated}))

	got, err := s.LookupRegion(ctx, records[2].Region)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1.5, got[0].TxOverlapPct)

	got, err = s.LookupRegion(ctx, records[0].Region)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSearchByGene(t *testing.T) {
	ctx := context.Background()
	s := openInMemory(t)
	require.NoError(t, s.WriteRecords(ctx, sampleRecords()))

	kras, err := s.SearchByGene(ctx, "KRAS")
	require.NoError(t, err)
	require.Len(t, kras, 2)
	assert.Equal(t, 1, kras[0].Rank)
	assert.Equal(t, 2, kras[1].Rank)

	braf, err := s.SearchByGene(ctx, "ENSG00000157764")
	require.NoError(t, err)
	require.Len(t, braf, 1)
	assert.Equal(t, "BRAF", braf[0].Hugo)

	none, err := s.SearchByGene(ctx, "NOTEXIST")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestClearResults(t *testing.T) {
	ctx := context.Background()
	s := openInMemory(t)
	records := sampleRecords()
	require.NoError(t, s.WriteRecords(ctx, records))

	require.NoError(t, s.ClearResults())

	got, err := s.LookupRegion(ctx, records[0].Region)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteRecordsEmpty(t *testing.T) {
	s := openInMemory(t)
	assert.NoError(t, s.WriteRecords(context.Background(), nil))
}

// --- Feature cache tests (gob) ---

func TestFeatureCacheWriteAndLoad(t *testing.T) {
	dir := t.TempDir()
	fc := NewFeatureCache(dir)

	ix := cache.NewIndexFromFeatures(krasFeatures())
	fp := FileFingerprint{Path: "genes.gtf", Size: 1000, ModTime: time.Now()}
	require.NoError(t, fc.Write(ix, fp))

	ix2 := cache.NewIndex()
	require.NoError(t, fc.Load(ix2))

	assert.Equal(t, 5, ix2.FeatureCount())
	assert.Equal(t, []string{"12", "7"}, ix2.Chromosomes())

	got, err := ix2.QueryOverlapping(context.Background(), "12", 25209800, 25209900)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "ENST00000311936", got[0].TranscriptID)
	assert.Equal(t, "KRAS", got[0].HugoSymbol)
	assert.Equal(t, cache.LevelTranscript, got[0].Level)
	assert.Equal(t, "ENST00000311936", got[1].ParentTranscriptID)
}

func TestFeatureCacheValidation(t *testing.T) {
	dir := t.TempDir()
	fc := NewFeatureCache(filepath.Join(dir, "grch38"))

	now := time.Now()
	gtf := FileFingerprint{Path: "genes.gtf", Size: 1000, ModTime: now}

	// No cache yet → invalid
	assert.False(t, fc.Valid(gtf))

	require.NoError(t, fc.Write(cache.NewIndexFromFeatures(krasFeatures()[:1]), gtf))

	// Same fingerprint → valid
	assert.True(t, fc.Valid(gtf))

	// Different size → stale
	changed := gtf
	changed.Size = 9999
	assert.False(t, fc.Valid(changed))

	// Different modtime → stale
	changed = gtf
	changed.ModTime = now.Add(time.Hour)
	assert.False(t, fc.Valid(changed))

	// Another GTF with identical size and modtime → stale
	changed = gtf
	changed.Path = "other.gtf"
	assert.False(t, fc.Valid(changed))

	fc.Clear()
	assert.False(t, fc.Valid(gtf))
}

func TestStatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genes.gtf")
	require.NoError(t, os.WriteFile(path, []byte("12\tHAVANA\tgene\n"), 0644))

	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, fp.Path)
	assert.Equal(t, int64(15), fp.Size)

	_, err = StatFile(filepath.Join(t.TempDir(), "missing.gtf"))
	assert.Error(t, err)
}
