package cache

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAttributes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]string
	}{
		{
			name:  "basic attributes",
			input: `gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; gene_name "KRAS";`,
			expected: map[string]string{
				"gene_id":       "ENSG00000133703",
				"transcript_id": "ENST00000311936",
				"gene_name":     "KRAS",
			},
		},
		{
			name:  "with tags",
			input: `gene_id "ENSG00000133703"; tag "Ensembl_canonical"; tag "MANE_Select";`,
			expected: map[string]string{
				"gene_id": "ENSG00000133703",
				"tag":     "MANE_Select", // Last value wins
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseAttributes(tt.input)
			for key, want := range tt.expected {
				assert.Equal(t, want, result[key], "parseAttributes()[%q]", key)
			}
		})
	}
}

func TestStripVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"ENST00000311936.8", "ENST00000311936"},
		{"ENSG00000133703.14", "ENSG00000133703"},
		{"ENST00000311936", "ENST00000311936"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, stripVersion(tt.input), "stripVersion(%q)", tt.input)
	}
}

func TestGTFLoader_ParseGTF(t *testing.T) {
	gtfContent := `##description: Test GTF
chr12	HAVANA	gene	25205246	25250929	.	-	.	gene_id "ENSG00000133703"; gene_type "protein_coding"; gene_name "KRAS";
chr12	HAVANA	transcript	25205246	25250929	.	-	.	gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; gene_type "protein_coding"; gene_name "KRAS"; transcript_type "protein_coding"; tag "Ensembl_canonical";
chr12	HAVANA	exon	25250751	25250929	.	-	.	gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; gene_name "KRAS"; exon_number "1";
chr12	HAVANA	CDS	25250751	25250808	.	-	0	gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; gene_name "KRAS"; exon_number "1";
chr12	HAVANA	start_codon	25250806	25250808	.	-	0	gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; gene_name "KRAS";
`

	loader := &GTFLoader{}
	features, err := loader.parseGTF(strings.NewReader(gtfContent), "")
	require.NoError(t, err)

	// start_codon is not indexed
	require.Len(t, features, 4)

	gene := features[0]
	assert.Equal(t, LevelGene, gene.Level)
	assert.Equal(t, "protein_coding", gene.Biotype)
	assert.Empty(t, gene.TranscriptID)

	tr := features[1]
	assert.Equal(t, LevelTranscript, tr.Level)
	assert.Equal(t, "ENST00000311936", tr.TranscriptID)
	assert.Equal(t, "ENSG00000133703", tr.GeneID)
	assert.Equal(t, "KRAS", tr.HugoSymbol)
	assert.Equal(t, "12", tr.Chrom)
	assert.Equal(t, "-", tr.Strand)
	assert.Equal(t, "protein_coding", tr.Biotype)
	assert.Empty(t, tr.ParentTranscriptID)

	// 1-based inclusive converted to 0-based half-open
	assert.Equal(t, int64(25205245), tr.Start)
	assert.Equal(t, int64(25250929), tr.End)
	assert.Equal(t, int64(25250929-25205246+1), tr.Len())

	exon := features[2]
	assert.Equal(t, LevelExon, exon.Level)
	assert.Equal(t, "ENST00000311936", exon.ParentTranscriptID)
	assert.Equal(t, "protein_coding", exon.Biotype, "falls back to gene_type")

	cds := features[3]
	assert.Equal(t, LevelCDS, cds.Level)
	assert.Equal(t, "ENST00000311936", cds.Parent())
}

func TestGTFLoader_EnsemblAttributes(t *testing.T) {
	gtfContent := `1	ensembl	transcript	11869	14409	.	+	.	gene_id "ENSG00000223972"; transcript_id "ENST00000456328"; gene_biotype "transcribed_unprocessed_pseudogene"; transcript_biotype "lncRNA"; gene "DDX11L1"; tsl "1";
`
	loader := &GTFLoader{}
	features, err := loader.parseGTF(strings.NewReader(gtfContent), "")
	require.NoError(t, err)
	require.Len(t, features, 1)

	assert.Equal(t, "lncRNA", features[0].Biotype)
	assert.Equal(t, "DDX11L1", features[0].HugoSymbol)
	assert.Equal(t, "1", features[0].TSL)
}

func TestGTFLoader_FilterChromosome(t *testing.T) {
	gtfContent := `chr12	HAVANA	transcript	25205246	25250929	.	-	.	gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; gene_name "KRAS"; transcript_type "protein_coding";
chr12	HAVANA	exon	25250751	25250929	.	-	.	gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; exon_number "1";
chr1	HAVANA	transcript	100000	200000	.	+	.	gene_id "ENSG00000000001"; transcript_id "ENST00000000001"; gene_name "TEST"; transcript_type "protein_coding";
chr1	HAVANA	exon	100000	100100	.	+	.	gene_id "ENSG00000000001"; transcript_id "ENST00000000001"; exon_number "1";
`

	loader := &GTFLoader{}

	features, err := loader.parseGTF(strings.NewReader(gtfContent), "chr12")
	require.NoError(t, err)

	require.Len(t, features, 2)
	for _, f := range features {
		assert.Equal(t, "ENST00000311936", f.TranscriptID)
	}
}

func TestGTFLoader_LoadFile(t *testing.T) {
	loader := NewGTFLoader("testdata/sample.gtf")
	ix := NewIndex()

	require.NoError(t, loader.Load(ix))

	assert.Equal(t, 15, ix.FeatureCount())
	assert.Equal(t, 3, ix.TranscriptCount())
	assert.Equal(t, 1, loader.Skipped(), "malformed coordinate line")
	assert.Equal(t, []string{"12"}, ix.Chromosomes())

	// KRAS exon 2 (25245274-25245395, 1-based)
	features, err := ix.QueryOverlapping(context.Background(), "chr12", 25245300, 25245301)
	require.NoError(t, err)

	byLevel := map[Level]int{}
	for _, f := range features {
		byLevel[f.Level]++
	}
	assert.Equal(t, 1, byLevel[LevelGene])
	assert.Equal(t, 2, byLevel[LevelTranscript], "canonical and NMD transcripts")
	assert.Equal(t, 1, byLevel[LevelExon])
	assert.Equal(t, 1, byLevel[LevelCDS])

	for _, f := range features {
		if f.TranscriptID == "ENST00000556131" && f.Level == LevelTranscript {
			assert.Equal(t, "3", f.TSL, "free text after the TSL value is dropped")
			assert.Equal(t, "nonsense_mediated_decay", f.Biotype)
		}
	}
}

func TestGTFLoader_MissingFile(t *testing.T) {
	loader := NewGTFLoader("testdata/missing.gtf")
	assert.Error(t, loader.Load(NewIndex()))
}
