package parser_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/datadash-cli/internal/dataset"
	"github.com/KaramelBytes/datadash-cli/internal/parser"
	"github.com/xuri/excelize/v2"
)

func TestUnsupportedExtensionFailsBeforeRead(t *testing.T) {
	// The file does not exist: a read attempt would produce a different error.
	missing := filepath.Join(t.TempDir(), "notes.txt")
	_, err := parser.ParseFile(missing)
	if !errors.Is(err, parser.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if err.Error() != "unsupported file format: txt" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if parser.Supported("report.PDF") || !parser.Supported("Data.XLSX") {
		t.Fatalf("Supported mismatch")
	}
}

func TestParseJSON_Shapes(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		records int
		columns string
	}{
		{"array", `[{"b":1,"a":"x"},{"b":2,"a":"y","extra":true}]`, 2, "b,a"},
		{"data field", `{"meta":{"v":1},"data":[{"id":1},{"id":2},{"id":3}]}`, 3, "id"},
		{"bare object", `{"id":7,"name":"solo","data":"not an array"}`, 1, "id,name,data"},
		{"empty array", `[]`, 0, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ds, err := parser.Parse("in.json", strings.NewReader(c.body))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if ds.Len() != c.records {
				t.Fatalf("records=%d want %d", ds.Len(), c.records)
			}
			if got := strings.Join(ds.Columns, ","); got != c.columns {
				t.Fatalf("columns=%q want %q", got, c.columns)
			}
		})
	}
}

func TestParseJSON_Values(t *testing.T) {
	ds, err := parser.Parse("v.json", strings.NewReader(`[{"n":1.5,"s":"12","z":null,"b":false,"o":{"k": [1, 2]}}]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r := ds.Records[0]
	if f, ok := r.Get("n").Float(); !ok || f != 1.5 {
		t.Fatalf("n=%v", r.Get("n"))
	}
	if r.Get("s").IsNumber() || r.Get("s").String() != "12" {
		t.Fatalf("JSON strings must stay strings: %v", r.Get("s"))
	}
	if !r.Get("z").IsNull() || r.Get("b").String() != "false" {
		t.Fatalf("z=%v b=%v", r.Get("z"), r.Get("b"))
	}
	if r.Get("o").String() != `{"k":[1,2]}` {
		t.Fatalf("o=%v", r.Get("o"))
	}
}

func TestParseJSON_Errors(t *testing.T) {
	for _, body := range []string{`[1,2]`, `"text"`, `{"a":`, ``, `{} {}`} {
		_, err := parser.Parse("bad.json", strings.NewReader(body))
		var pe *parser.ParseError
		if !errors.As(err, &pe) || pe.Format != "JSON" {
			t.Fatalf("body %q: expected JSON ParseError, got %v", body, err)
		}
	}
}

func xlsxFixture(t *testing.T, sheets map[string][][]any, order []string) *strings.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		for r, row := range sheets[name] {
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	return strings.NewReader(buf.String())
}

func TestParseXLSX_FirstSheetOnly(t *testing.T) {
	r := xlsxFixture(t, map[string][][]any{
		"Harvest": {
			{"plot", "yield", "grade"},
			{"A1", 12.5, "gold"},
			{"B2", 9, "silver"},
		},
		"Other": {
			{"ignored"},
			{"x"},
		},
	}, []string{"Harvest", "Other"})
	ds, err := parser.Parse("harvest.xlsx", r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if strings.Join(ds.Columns, ",") != "plot,yield,grade" {
		t.Fatalf("columns=%v", ds.Columns)
	}
	if ds.Len() != 2 {
		t.Fatalf("records=%d", ds.Len())
	}
	if f, ok := ds.Records[1].Get("yield").Float(); !ok || f != 9 {
		t.Fatalf("yield=%v", ds.Records[1].Get("yield"))
	}
}

func TestParseXLSX_HeaderOnlyHasNoColumns(t *testing.T) {
	r := xlsxFixture(t, map[string][][]any{"S": {{"a", "b"}}}, []string{"S"})
	ds, err := parser.Parse("h.xlsx", r)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ds.Len() != 0 || len(ds.Columns) != 0 {
		t.Fatalf("expected empty dataset, got %d records %v", ds.Len(), ds.Columns)
	}
}

func TestParseXLSX_Garbage(t *testing.T) {
	_, err := parser.Parse("legacy.xls", strings.NewReader("not a workbook"))
	var pe *parser.ParseError
	if !errors.As(err, &pe) || pe.Format != "Excel" {
		t.Fatalf("expected Excel ParseError, got %v", err)
	}
}

func TestParseXLSX_FormattedNumbersStayNumeric(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"region", "revenue", "share"},
		{"north", 1234567, 0.25},
		{"south", 89012, 0.5},
	}
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	thousands, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	if err != nil {
		t.Fatalf("style: %v", err)
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 9})
	if err != nil {
		t.Fatalf("style: %v", err)
	}
	if err := f.SetCellStyle("Sheet1", "B2", "B3", thousands); err != nil {
		t.Fatalf("apply style: %v", err)
	}
	if err := f.SetCellStyle("Sheet1", "C2", "C3", percent); err != nil {
		t.Fatalf("apply style: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	ds, err := parser.Parse("sales.xlsx", strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, col := range []string{"revenue", "share"} {
		if ds.Kind(col) != dataset.KindNumeric {
			t.Fatalf("%s kind=%v", col, ds.Kind(col))
		}
	}
	if v, ok := ds.Records[0].Get("revenue").Float(); !ok || v != 1234567 {
		t.Fatalf("revenue=%v", ds.Records[0].Get("revenue"))
	}
	if v, ok := ds.Records[0].Get("share").Float(); !ok || v != 0.25 {
		t.Fatalf("share=%v", ds.Records[0].Get("share"))
	}
}
