// Package analysis builds a column-by-column report for a parsed dataset.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/datadash-cli/internal/dataset"
)

// Options controls the describe report.
type Options struct {
	// SampleRows is how many leading records the report shows.
	SampleRows int
	// TopValues caps the most-frequent list for categorical columns.
	TopValues int
	// GroupBy adds per-group means of numeric columns for one categorical column.
	GroupBy string
	// Correlations adds Pearson r for numeric column pairs.
	Correlations bool
	// OutlierThreshold is the robust |z| (MAD based) above which a value counts as an outlier; 0 disables.
	OutlierThreshold float64
}

func DefaultOptions() Options {
	return Options{SampleRows: 5, TopValues: 5, OutlierThreshold: 3.5}
}

// Report is a Markdown-friendly description of a dataset.
type Report struct {
	Name    string
	Rows    int
	Cols    []ColumnSummary
	Samples []dataset.Record
	Groups  []GroupResult
	Pairs   []PairCorr
	Notes   []string
}

// ColumnSummary holds the inferred kind and statistics of one column.
type ColumnSummary struct {
	Name    string
	Kind    dataset.ColumnKind
	NonNull int
	Missing int
	Unique  int
	// numeric
	Min, Max, Mean, Std float64
	Outliers            int
	// categorical
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// GroupResult is the mean of each numeric column within one group.
type GroupResult struct {
	Key   string
	Size  int
	Means map[string]float64
}

type PairCorr struct {
	A, B string
	R    float64
}

// Describe summarizes every column of ds.
func Describe(ds *dataset.Dataset, opt Options) *Report {
	if opt.TopValues <= 0 {
		opt.TopValues = 5
	}
	r := &Report{Name: ds.Name, Rows: ds.Len(), Samples: ds.Sample(opt.SampleRows)}
	for _, col := range ds.Columns {
		r.Cols = append(r.Cols, summarize(ds, col, opt))
	}
	if opt.GroupBy != "" {
		if ds.HasColumn(opt.GroupBy) {
			r.Groups = groupMeans(ds, opt.GroupBy)
		} else {
			r.Notes = append(r.Notes, fmt.Sprintf("group-by column %q not found", opt.GroupBy))
		}
	}
	if opt.Correlations {
		r.Pairs = correlations(ds)
	}
	if r.Rows == 0 {
		r.Notes = append(r.Notes, "dataset has no records")
	}
	return r
}

func summarize(ds *dataset.Dataset, col string, opt Options) ColumnSummary {
	cs := ColumnSummary{Name: col, Kind: ds.Kind(col)}
	counts := map[string]int{}
	var order []string
	var nums []float64
	for _, rec := range ds.Records {
		v := rec.Get(col)
		if v.IsNull() {
			cs.Missing++
			continue
		}
		cs.NonNull++
		key := v.String()
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key]++
		if f, ok := v.Float(); ok {
			nums = append(nums, f)
		}
	}
	cs.Unique = len(counts)

	switch cs.Kind {
	case dataset.KindNumeric:
		if st, ok := ds.ColumnStats(col); ok {
			cs.Min, cs.Max, cs.Mean = st.Min, st.Max, st.Average
		}
		cs.Std = stddev(nums, cs.Mean)
		if opt.OutlierThreshold > 0 {
			cs.Outliers = countOutliers(nums, opt.OutlierThreshold)
		}
	case dataset.KindCategorical:
		sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
		for i, k := range order {
			if i == opt.TopValues {
				break
			}
			cs.TopValues = append(cs.TopValues, CategoryCount{Value: k, Count: counts[k]})
		}
	}
	return cs
}

func stddev(vals []float64, mean float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var ss float64
	for _, v := range vals {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(len(vals)-1))
}

// countOutliers uses the robust z-score 0.6745*(x-median)/MAD.
func countOutliers(vals []float64, threshold float64) int {
	median, mad := medianMAD(vals)
	if mad == 0 {
		return 0
	}
	n := 0
	for _, v := range vals {
		if math.Abs(0.6745*(v-median)/mad) > threshold {
			n++
		}
	}
	return n
}

func groupMeans(ds *dataset.Dataset, by string) []GroupResult {
	numeric := ds.NumericColumns()
	type acc struct {
		size   int
		sums   map[string]float64
		counts map[string]int
	}
	groups := map[string]*acc{}
	var keys []string
	for _, rec := range ds.Records {
		k := rec.Get(by).String()
		g, ok := groups[k]
		if !ok {
			g = &acc{sums: map[string]float64{}, counts: map[string]int{}}
			groups[k] = g
			keys = append(keys, k)
		}
		g.size++
		for _, c := range numeric {
			if f, ok := rec.Get(c).Float(); ok {
				g.sums[c] += f
				g.counts[c]++
			}
		}
	}
	out := make([]GroupResult, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		gr := GroupResult{Key: k, Size: g.size, Means: map[string]float64{}}
		for c, n := range g.counts {
			gr.Means[c] = g.sums[c] / float64(n)
		}
		out = append(out, gr)
	}
	return out
}

// correlations returns Pearson r for every numeric pair over records where both
// values are numbers, strongest first.
func correlations(ds *dataset.Dataset) []PairCorr {
	numeric := ds.NumericColumns()
	var out []PairCorr
	for i := 0; i < len(numeric); i++ {
		for j := i + 1; j < len(numeric); j++ {
			var xs, ys []float64
			for _, rec := range ds.Records {
				x, okx := rec.Get(numeric[i]).Float()
				y, oky := rec.Get(numeric[j]).Float()
				if okx && oky {
					xs = append(xs, x)
					ys = append(ys, y)
				}
			}
			if r, ok := pearson(xs, ys); ok {
				out = append(out, PairCorr{A: numeric[i], B: numeric[j], R: r})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return math.Abs(out[i].R) > math.Abs(out[j].R) })
	return out
}

func pearson(xs, ys []float64) (float64, bool) {
	n := float64(len(xs))
	if n < 2 {
		return 0, false
	}
	var sx, sy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
	}
	mx, my := sx/n, sy/n
	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0, false
	}
	return cov / math.Sqrt(vx*vy), true
}

// Markdown renders the report as plain Markdown sections.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", r.Name)
	}
	fmt.Fprintf(&b, "Rows: %d\n", r.Rows)
	fmt.Fprintf(&b, "Columns: %d\n\n", len(r.Cols))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		missPct := 0.0
		if total := c.NonNull + c.Missing; total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		fmt.Fprintf(&b, "- %s: %s (non-null %d, missing %.1f%%, unique %d)", safeName(c.Name), c.Kind, c.NonNull, missPct, c.Unique)
		switch c.Kind {
		case dataset.KindNumeric:
			fmt.Fprintf(&b, "; min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std)
			if c.Outliers > 0 {
				fmt.Fprintf(&b, "; outliers %d", c.Outliers)
			}
		case dataset.KindCategorical:
			if len(c.TopValues) > 0 {
				b.WriteString("; top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					fmt.Fprintf(&b, "%s(%d)", safeVal(kv.Value), kv.Count)
				}
			}
		}
		b.WriteString("\n")
	}

	if len(r.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range r.Groups {
			fmt.Fprintf(&b, "- %s (n=%d)\n", safeVal(g.Key), g.Size)
			cols := make([]string, 0, len(g.Means))
			for c := range g.Means {
				cols = append(cols, c)
			}
			sort.Strings(cols)
			for _, c := range cols {
				fmt.Fprintf(&b, "  • %s: mean %.4g\n", c, g.Means[c])
			}
		}
	}

	if len(r.Pairs) > 0 {
		b.WriteString("\n[CORRELATIONS]\n")
		for i, p := range r.Pairs {
			if i == 10 {
				break
			}
			fmt.Fprintf(&b, "- %s ~ %s: r=%.3f\n", p.A, p.B, p.R)
		}
	}

	if len(r.Samples) > 0 && len(r.Cols) > 0 {
		b.WriteString("\n[SAMPLE ROWS]\n| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n|")
		for range r.Cols {
			b.WriteString(" --- |")
		}
		b.WriteString("\n")
		for _, rec := range r.Samples {
			b.WriteString("| ")
			for i, c := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if v := rec.Get(c.Name); !v.IsNull() {
					val = v.String()
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}

	if len(r.Notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range r.Notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// medianMAD computes the median and the median absolute deviation.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	return median, quantile(dev, 0.5)
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo, hi := int(math.Floor(pos)), int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
