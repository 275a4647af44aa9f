package dataset

// ColumnKind is the schema type inferred for a column at parse time.
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindCategorical ColumnKind = "categorical"
	KindEmpty       ColumnKind = "empty"
)

// Dataset is an ordered collection of records plus the column schema.
//
// Columns come from the header row (CSV) or the first record's keys (JSON/Excel).
// Later records with extra keys are not reconciled against the schema.
type Dataset struct {
	Name    string                `json:"name"`
	Columns []string              `json:"columns"`
	Records []Record              `json:"records"`
	Kinds   map[string]ColumnKind `json:"kinds"`
}

// New builds a dataset and infers column kinds once.
func New(name string, columns []string, records []Record) *Dataset {
	if columns == nil {
		columns = []string{}
	}
	if records == nil {
		records = []Record{}
	}
	d := &Dataset{Name: name, Columns: columns, Records: records}
	d.Kinds = inferKinds(columns, records)
	return d
}

// ColumnsFromFirst derives the column set from the first record's keys.
func ColumnsFromFirst(records []Record) []string {
	if len(records) == 0 {
		return []string{}
	}
	return records[0].Keys()
}

// A column is numeric when it has at least one non-null value and all of them are numbers.
func inferKinds(columns []string, records []Record) map[string]ColumnKind {
	kinds := make(map[string]ColumnKind, len(columns))
	for _, c := range columns {
		nums, other := 0, 0
		for _, r := range records {
			v := r.Get(c)
			switch {
			case v.IsNull():
			case v.IsNumber():
				nums++
			default:
				other++
			}
		}
		switch {
		case nums == 0 && other == 0:
			kinds[c] = KindEmpty
		case other == 0:
			kinds[c] = KindNumeric
		default:
			kinds[c] = KindCategorical
		}
	}
	return kinds
}

// Len returns the record count.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Kind returns the inferred kind for col.
func (d *Dataset) Kind(col string) ColumnKind {
	if k, ok := d.Kinds[col]; ok {
		return k
	}
	return KindEmpty
}

// NumericColumns lists numeric columns in column order.
func (d *Dataset) NumericColumns() []string {
	var out []string
	for _, c := range d.Columns {
		if d.Kinds[c] == KindNumeric {
			out = append(out, c)
		}
	}
	return out
}

// CategoricalColumns lists every non-numeric column in column order.
func (d *Dataset) CategoricalColumns() []string {
	var out []string
	for _, c := range d.Columns {
		if d.Kinds[c] != KindNumeric {
			out = append(out, c)
		}
	}
	return out
}

// HasColumn reports whether col is part of the schema.
func (d *Dataset) HasColumn(col string) bool {
	for _, c := range d.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Sample returns up to n leading records.
func (d *Dataset) Sample(n int) []Record {
	if n <= 0 || d.Len() == 0 {
		return []Record{}
	}
	if n > len(d.Records) {
		n = len(d.Records)
	}
	return d.Records[:n]
}
