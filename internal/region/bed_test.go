package region

import (
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_ReadAll(t *testing.T) {
	input := `track name=regions
browser position chr1:1-100
# comment
chr1	1000	2000	peak1
2	500	600

chrX 10 20
`
	p := NewParserFromReader(strings.NewReader(input))
	regions, err := p.ReadAll()
	require.NoError(t, err)

	expected := []Region{
		{Chrom: "chr1", Start: 1000, End: 2000},
		{Chrom: "2", Start: 500, End: 600},
		{Chrom: "chrX", Start: 10, End: 20},
	}
	assert.Equal(t, expected, regions)
}

func TestParser_NoTrailingNewline(t *testing.T) {
	p := NewParserFromReader(strings.NewReader("1\t10\t20"))
	regions, err := p.ReadAll()
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, int64(20), regions[0].End)
}

func TestParser_MalformedLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"too few columns", "1\t10\t20\n1\t10\n", 2},
		{"bad start", "1\tabc\t20\n", 1},
		{"bad end", "1\t10\txyz\n", 1},
		{"empty interval", "1\t20\t20\n", 1},
		{"inverted interval", "# header\n1\t30\t20\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParserFromReader(strings.NewReader(tt.input))
			_, err := p.ReadAll()
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.line, perr.Line)
		})
	}
}

func TestParser_SkipMalformed(t *testing.T) {
	input := "1\t10\t20\n1\t30\t20\nbad\n2\t5\t6"
	p := NewParserFromReader(strings.NewReader(input))
	p.SetSkipMalformed(true)

	regions, err := p.ReadAll()
	require.NoError(t, err)
	assert.Len(t, regions, 2)
	assert.Equal(t, 2, p.Skipped())
}

func TestNewParser_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.bed.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte("chr12\t25245000\t25246000\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	p, err := NewParser(path)
	require.NoError(t, err)
	defer p.Close()

	regions, err := p.ReadAll()
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, Region{Chrom: "chr12", Start: 25245000, End: 25246000}, regions[0])
}

func TestNewParser_MissingFile(t *testing.T) {
	_, err := NewParser(filepath.Join(t.TempDir(), "missing.bed"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errors.Unwrap(err)))
}
