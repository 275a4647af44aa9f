package dataset

import "strings"

// Search returns records where any cell's display text contains query (case-insensitive).
// An empty query matches everything.
func (d *Dataset) Search(query string) []Record {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return d.Records
	}
	var out []Record
	for _, r := range d.Records {
		for _, k := range r.keys {
			v := r.values[k]
			if v.IsNull() {
				continue
			}
			if strings.Contains(strings.ToLower(v.String()), q) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// PageResult is one page of a table view.
type PageResult struct {
	Records []Record `json:"records"`
	Page    int      `json:"page"`
	Pages   int      `json:"pages"`
	Total   int      `json:"total"`
}

// Page slices records into 1-based pages of size. Out-of-range pages clamp to the nearest valid one.
func Page(records []Record, page, size int) PageResult {
	if size <= 0 {
		size = 10
	}
	total := len(records)
	pages := (total + size - 1) / size
	if pages == 0 {
		return PageResult{Records: []Record{}, Page: 1, Pages: 0, Total: 0}
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	return PageResult{Records: records[start:end], Page: page, Pages: pages, Total: total}
}
