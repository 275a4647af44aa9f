package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/datadash-cli/internal/dataset"
)

type csvParser struct{}

func (csvParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".csv")
}

// Parse reads a header-aware CSV. Every data row must have as many fields as the header;
// the first reader error aborts the parse.
func (csvParser) Parse(name string, r io.Reader) (*dataset.Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return dataset.New(name, nil, nil), nil
		}
		return nil, &ParseError{Format: "CSV", Err: err}
	}
	columns := normalizeHeader(header)

	var records []dataset.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Format: "CSV", Err: err}
		}
		if blankRow(row) {
			continue
		}
		vals := make([]dataset.Value, len(columns))
		for i := range columns {
			if i < len(row) {
				vals[i] = dataset.Coerce(row[i])
			}
		}
		records = append(records, dataset.NewRecord(columns, vals))
	}
	return dataset.New(name, columns, records), nil
}

// normalizeHeader trims names, strips a UTF-8 BOM, names blank headers Column_N
// and suffixes duplicates so every column is distinct.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		if n, dup := seen[h]; dup {
			base := h
			for {
				h = fmt.Sprintf("%s_%d", base, n)
				n++
				if _, taken := seen[h]; !taken {
					break
				}
			}
			seen[base] = n
		}
		seen[h]++
		out[i] = h
	}
	return out
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
