package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/datadash-cli/internal/dataset"
)

// Parser turns one uploaded file format into a dataset.
type Parser interface {
	CanParse(filename string) bool
	Parse(name string, r io.Reader) (*dataset.Dataset, error)
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// ErrUnsupportedFormat indicates the file extension has no registered parser.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrEmptyDataset indicates a parse produced zero records.
var ErrEmptyDataset = errors.New("no data found")

// ParseError carries the underlying library's message for one format.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error parsing %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// lookup picks a parser by filename alone; no content sniffing.
func lookup(name string) (Parser, error) {
	for _, p := range registry {
		if p.CanParse(name) {
			return p, nil
		}
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
}

// Supported reports whether name has a registered parser.
func Supported(name string) bool {
	_, err := lookup(name)
	return err == nil
}

// ParseFile selects a parser based on the extension and parses the file at path.
// Unsupported extensions fail before the file is opened.
func ParseFile(path string) (*dataset.Dataset, error) {
	p, err := lookup(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	defer f.Close()
	return p.Parse(filepath.Base(path), f)
}

// Parse selects a parser from name and reads the content from r.
func Parse(name string, r io.Reader) (*dataset.Dataset, error) {
	p, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return p.Parse(filepath.Base(name), r)
}

// Load parses path and rejects datasets without records.
func Load(path string) (*dataset.Dataset, error) {
	ds, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrEmptyDataset)
	}
	return ds, nil
}

func init() {
	Register(csvParser{})
	Register(jsonParser{})
	Register(xlsxParser{})
}
