package region

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Parser reads regions from a BED file. Only the first three columns are used.
type Parser struct {
	reader        *bufio.Reader
	file          *os.File
	gzipReader    *gzip.Reader
	lineNumber    int
	skipMalformed bool
	skipped       int
}

// NewParser creates a new BED parser for the given file.
// Supports both plain and gzipped (.bed.gz) files. Use "-" for stdin.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bed file: %w", err)
	}

	p := &Parser{file: file}

	buf := make([]byte, 2)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read bed file: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek bed file: %w", err)
	}

	// gzip magic number (0x1f, 0x8b)
	if n == 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = bufio.NewReader(file)
	}

	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader.
func NewParserFromReader(r io.Reader) *Parser {
	return &Parser{reader: bufio.NewReader(r)}
}

// SetSkipMalformed configures whether malformed lines are skipped instead of
// returned as a *ParseError. Skipped lines are counted in Skipped.
func (p *Parser) SetSkipMalformed(skip bool) {
	p.skipMalformed = skip
}

// Next reads the next region.
// Returns nil, nil when there are no more regions.
func (p *Parser) Next() (*Region, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read bed line: %w", err)
		}
		if err == io.EOF && line == "" {
			return nil, nil
		}
		p.lineNumber++

		line = strings.TrimSpace(line)
		if line == "" || isHeaderLine(line) {
			if err == io.EOF {
				return nil, nil
			}
			continue
		}

		r, perr := p.parseLine(line)
		if perr != nil {
			if p.skipMalformed {
				p.skipped++
				if err == io.EOF {
					return nil, nil
				}
				continue
			}
			return nil, perr
		}
		return r, nil
	}
}

// ReadAll reads every remaining region.
func (p *Parser) ReadAll() ([]Region, error) {
	var regions []Region
	for {
		r, err := p.Next()
		if err != nil {
			return nil, err
		}
		if r == nil {
			return regions, nil
		}
		regions = append(regions, *r)
	}
}

func (p *Parser) parseLine(line string) (*Region, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least 3 columns, found %d", len(fields)),
		}
	}

	start, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid start: %s", fields[1]),
		}
	}
	end, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid end: %s", fields[2]),
		}
	}

	r := &Region{Chrom: fields[0], Start: start, End: end}
	if err := r.Validate(); err != nil {
		return nil, &ParseError{Line: p.lineNumber, Message: err.Error()}
	}
	return r, nil
}

// isHeaderLine reports whether a BED line is a comment or browser/track directive.
func isHeaderLine(line string) bool {
	return strings.HasPrefix(line, "#") ||
		strings.HasPrefix(line, "track") ||
		strings.HasPrefix(line, "browser")
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Skipped returns the number of malformed lines skipped.
func (p *Parser) Skipped() int {
	return p.skipped
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError represents an error during BED parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bed parse error at line %d: %s", e.Line, e.Message)
}
