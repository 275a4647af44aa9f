package parser

import (
	"errors"
	"io"
	"strings"

	"github.com/KaramelBytes/datadash-cli/internal/dataset"
	"github.com/xuri/excelize/v2"
)

type xlsxParser struct{}

func (xlsxParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".xlsx") || strings.HasSuffix(name, ".xls")
}

// Parse reads the first sheet only and uses its first row as the header.
func (xlsxParser) Parse(name string, r io.Reader) (*dataset.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Format: "Excel", Err: err}
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, &ParseError{Format: "Excel", Err: errors.New("workbook has no sheets")}
	}
	// Raw values keep number-formatted cells (1,234 / 25% / $12.50) numeric.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ParseError{Format: "Excel", Err: err}
	}
	if len(rows) == 0 {
		return dataset.New(name, nil, nil), nil
	}
	header := normalizeHeader(rows[0])

	var records []dataset.Record
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		vals := make([]dataset.Value, len(header))
		for i := range header {
			if i < len(row) {
				vals[i] = dataset.Coerce(row[i])
			}
		}
		records = append(records, dataset.NewRecord(header, vals))
	}
	// Columns follow the first record, so a header-only sheet has none.
	return dataset.New(name, dataset.ColumnsFromFirst(records), records), nil
}
