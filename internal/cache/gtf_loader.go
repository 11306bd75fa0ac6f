package cache

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/inodb/vibe-regions/internal/region"
)

// GTFLoader loads gene, transcript, exon and CDS features from GENCODE/Ensembl GTF files.
type GTFLoader struct {
	path    string
	skipped int
}

// NewGTFLoader creates a new GTF loader.
func NewGTFLoader(path string) *GTFLoader {
	return &GTFLoader{path: path}
}

// Load loads all features from the GTF file into the index and builds it.
func (l *GTFLoader) Load(ix *Index) error {
	return l.loadGTF(ix, "")
}

// LoadChromosome loads features for a specific chromosome.
func (l *GTFLoader) LoadChromosome(ix *Index, chrom string) error {
	return l.loadGTF(ix, chrom)
}

// Skipped returns the number of malformed lines skipped by the last load.
func (l *GTFLoader) Skipped() int {
	return l.skipped
}

// loadGTF parses the GTF file and populates the index.
// If filterChrom is non-empty, only loads that chromosome.
func (l *GTFLoader) loadGTF(ix *Index, filterChrom string) error {
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("open GTF file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f

	if strings.HasSuffix(l.path, ".gz") || strings.HasSuffix(l.path, ".bgz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	features, err := l.parseGTF(reader, filterChrom)
	if err != nil {
		return err
	}

	for _, feat := range features {
		ix.AddFeature(feat)
	}
	ix.Build()

	return nil
}

// gtfLine represents a parsed GTF line.
type gtfLine struct {
	chrom       string
	source      string
	featureType string
	start       int64
	end         int64
	strand      string
	attributes  map[string]string
}

// parseGTF parses GTF content and returns features in file order.
func (l *GTFLoader) parseGTF(reader io.Reader, filterChrom string) ([]*Feature, error) {
	scanner := bufio.NewScanner(reader)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	l.skipped = 0
	if filterChrom != "" {
		filterChrom = region.NormalizeChrom(filterChrom)
	}

	var features []*Feature
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		gl, err := l.parseLine(line)
		if err != nil {
			l.skipped++
			continue
		}

		if filterChrom != "" && gl.chrom != filterChrom {
			continue
		}

		level, ok := ParseLevel(gl.featureType)
		if !ok {
			continue
		}

		features = append(features, newFeature(gl, level))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF: %w", err)
	}

	return features, nil
}

// newFeature converts a GTF line (1-based, inclusive) into a half-open Feature.
func newFeature(gl *gtfLine, level Level) *Feature {
	attrs := gl.attributes
	transcriptID := stripVersion(attrs["transcript_id"])

	f := &Feature{
		Chrom:        gl.chrom,
		Start:        gl.start - 1,
		End:          gl.end,
		Strand:       gl.strand,
		Level:        level,
		GeneID:       stripVersion(attrs["gene_id"]),
		TranscriptID: transcriptID,
		HugoSymbol:   firstNonEmpty(attrs["gene_name"], attrs["gene"]),
		TSL:          firstNonEmpty(attrs["transcript_support_level"], attrs["tsl"]),
	}

	if level == LevelGene {
		f.Biotype = firstNonEmpty(attrs["gene_type"], attrs["gene_biotype"])
	} else {
		f.Biotype = firstNonEmpty(attrs["transcript_type"], attrs["transcript_biotype"],
			attrs["gene_type"], attrs["gene_biotype"])
	}

	if level == LevelExon || level == LevelCDS {
		f.ParentTranscriptID = transcriptID
	}

	// GENCODE appends free text to TSL values, e.g. "1 (assigned to previous version 5)"
	if i := strings.IndexByte(f.TSL, ' '); i > 0 {
		f.TSL = f.TSL[:i]
	}

	return f
}

// parseLine parses a single GTF line.
func (l *GTFLoader) parseLine(line string) (*gtfLine, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return nil, fmt.Errorf("invalid GTF line: expected 9 fields, got %d", len(fields))
	}

	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}

	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}

	return &gtfLine{
		chrom:       region.NormalizeChrom(fields[0]),
		source:      fields[1],
		featureType: fields[2],
		start:       start,
		end:         end,
		strand:      fields[6],
		attributes:  parseAttributes(fields[8]),
	}, nil
}

// parseAttributes parses GTF attribute column.
// Format: key "value"; key "value"; ...
func parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)

	parts := strings.Split(attrStr, ";")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		// Find the first space to separate key from value
		idx := strings.Index(part, " ")
		if idx == -1 {
			continue
		}

		key := part[:idx]
		value := strings.TrimSpace(part[idx+1:])
		value = strings.Trim(value, "\"")

		attrs[key] = value
	}

	return attrs
}

// stripVersion removes the version suffix from an Ensembl ID.
// e.g., "ENST00000456328.2" -> "ENST00000456328"
func stripVersion(id string) string {
	if idx := strings.LastIndex(id, "."); idx != -1 {
		return id[:idx]
	}
	return id
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
