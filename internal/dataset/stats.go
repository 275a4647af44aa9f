package dataset

import "math"

// ColumnStats are single-pass aggregates over a numeric column.
type ColumnStats struct {
	Column  string  `json:"-"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
	Average float64 `json:"avg"`
	Total   float64 `json:"total"`
	Count   int     `json:"count"`
}

// ColumnStats computes max/min/average/total for col, skipping non-number values.
func (d *Dataset) ColumnStats(col string) (ColumnStats, bool) {
	st := ColumnStats{Column: col, Max: math.Inf(-1), Min: math.Inf(1)}
	for _, r := range d.Records {
		f, ok := r.Get(col).Float()
		if !ok {
			continue
		}
		st.Count++
		st.Total += f
		if f > st.Max {
			st.Max = f
		}
		if f < st.Min {
			st.Min = f
		}
	}
	if st.Count == 0 {
		return ColumnStats{Column: col}, false
	}
	st.Average = st.Total / float64(st.Count)
	return st, true
}

// Stats computes ColumnStats for every numeric column, in column order.
func (d *Dataset) Stats() []ColumnStats {
	var out []ColumnStats
	for _, c := range d.NumericColumns() {
		if st, ok := d.ColumnStats(c); ok {
			out = append(out, st)
		}
	}
	return out
}

// MaxRecord returns the record holding the largest value of col. Ties keep the first occurrence.
func (d *Dataset) MaxRecord(col string) (Record, bool) {
	return d.extremeRecord(col, func(a, b float64) bool { return a > b })
}

// MinRecord returns the record holding the smallest value of col. Ties keep the first occurrence.
func (d *Dataset) MinRecord(col string) (Record, bool) {
	return d.extremeRecord(col, func(a, b float64) bool { return a < b })
}

func (d *Dataset) extremeRecord(col string, better func(a, b float64) bool) (Record, bool) {
	var best Record
	var bestVal float64
	found := false
	for _, r := range d.Records {
		f, ok := r.Get(col).Float()
		if !ok {
			continue
		}
		if !found || better(f, bestVal) {
			best, bestVal, found = r, f, true
		}
	}
	return best, found
}

// MostFrequent returns the most common display value of col and its count.
// Ties resolve to the value seen first.
func (d *Dataset) MostFrequent(col string) (string, int) {
	counts := make(map[string]int)
	var order []string
	for _, r := range d.Records {
		s := r.Get(col).String()
		if _, ok := counts[s]; !ok {
			order = append(order, s)
		}
		counts[s]++
	}
	best, bestN := "", 0
	for _, s := range order {
		if counts[s] > bestN {
			best, bestN = s, counts[s]
		}
	}
	return best, bestN
}
