package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeChrom(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"chr1", "1"},
		{"CHR12", "12"},
		{"chrX", "X"},
		{"12", "12"},
		{"chr", "chr"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeChrom(tt.input), "NormalizeChrom(%q)", tt.input)
	}
}

func TestRegion_Validate(t *testing.T) {
	tests := []struct {
		name    string
		region  Region
		wantErr bool
	}{
		{"valid", Region{Chrom: "1", Start: 1000, End: 2000}, false},
		{"single base", Region{Chrom: "1", Start: 0, End: 1}, false},
		{"empty", Region{Chrom: "1", Start: 1000, End: 1000}, true},
		{"inverted", Region{Chrom: "1", Start: 2000, End: 1000}, true},
		{"negative start", Region{Chrom: "1", Start: -5, End: 10}, true},
		{"no chrom", Region{Start: 0, End: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.region.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegion_String(t *testing.T) {
	r := Region{Chrom: "chr1", Start: 1000, End: 2000}
	assert.Equal(t, "chr1:1000-2000", r.String())
	assert.Equal(t, int64(1000), r.Len())
	assert.Equal(t, "1", r.NormalizedChrom())
}

func TestParse(t *testing.T) {
	r, err := Parse("chr12:25,209,800-25209900")
	assert.NoError(t, err)
	assert.Equal(t, Region{Chrom: "chr12", Start: 25209800, End: 25209900}, r)

	r, err = Parse(Region{Chrom: "X", Start: 0, End: 1}.String())
	assert.NoError(t, err)
	assert.Equal(t, Region{Chrom: "X", Start: 0, End: 1}, r)

	for _, bad := range []string{"chr1", "chr1:100", "chr1:a-200", "chr1:100-b", "chr1:200-100", ":1-2"} {
		_, err := Parse(bad)
		assert.Error(t, err, "Parse(%q)", bad)
	}
}
