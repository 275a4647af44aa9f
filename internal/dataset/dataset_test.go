package dataset

import (
	"encoding/json"
	"math"
	"testing"
)

func sales() *Dataset {
	cols := []string{"region", "units", "price"}
	recs := []Record{
		NewRecord(cols, []Value{Text("north"), Number(10), Number(2.5)}),
		NewRecord(cols, []Value{Text("south"), Number(30), Number(1.25)}),
		NewRecord(cols, []Value{Text("north"), Number(30), Null()}),
		NewRecord(cols, []Value{Text("east"), Number(5), Number(4)}),
	}
	return New("sales.csv", cols, recs)
}

func TestCoerce(t *testing.T) {
	cases := []struct {
		in   string
		kind ValueKind
		num  float64
	}{
		{"", ValueNull, 0},
		{"   ", ValueNull, 0},
		{"42", ValueNumber, 42},
		{"-3.5", ValueNumber, -3.5},
		{".5", ValueNumber, 0.5},
		{"1e3", ValueNumber, 1000},
		{"NaN", ValueString, 0},
		{"inf", ValueString, 0},
		{"0x10", ValueString, 0},
		{"12%", ValueString, 0},
		{"hello", ValueString, 0},
	}
	for _, c := range cases {
		v := Coerce(c.in)
		if v.Kind() != c.kind {
			t.Errorf("Coerce(%q) kind=%v want %v", c.in, v.Kind(), c.kind)
			continue
		}
		if c.kind == ValueNumber {
			if f, _ := v.Float(); f != c.num {
				t.Errorf("Coerce(%q)=%v want %v", c.in, f, c.num)
			}
		}
	}
}

func TestKindsInferredOnce(t *testing.T) {
	cols := []string{"a", "b", "c"}
	recs := []Record{
		NewRecord(cols, []Value{Number(1), Text("x"), Null()}),
		NewRecord(cols, []Value{Number(2), Number(3), Null()}),
	}
	d := New("t", cols, recs)
	if d.Kind("a") != KindNumeric || d.Kind("b") != KindCategorical || d.Kind("c") != KindEmpty {
		t.Fatalf("unexpected kinds: %+v", d.Kinds)
	}
	if got := d.NumericColumns(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("numeric columns: %v", got)
	}
	if got := d.CategoricalColumns(); len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("categorical columns: %v", got)
	}
}

func TestColumnStats(t *testing.T) {
	d := sales()
	st, ok := d.ColumnStats("price")
	if !ok {
		t.Fatalf("expected stats for price")
	}
	if st.Count != 3 || st.Max != 4 || st.Min != 1.25 || st.Total != 7.75 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if math.Abs(st.Average-7.75/3) > 1e-9 {
		t.Fatalf("average=%v", st.Average)
	}
	if _, ok := d.ColumnStats("region"); ok {
		t.Fatalf("expected no stats for text column")
	}
	if got := d.Stats(); len(got) != 2 || got[0].Column != "units" || got[1].Column != "price" {
		t.Fatalf("stats order: %+v", got)
	}
}

func TestMaxRecordTiesKeepFirst(t *testing.T) {
	d := sales()
	r, ok := d.MaxRecord("units")
	if !ok {
		t.Fatalf("expected a max record")
	}
	if r.Get("region").String() != "south" {
		t.Fatalf("expected first max (south), got %s", r.Get("region"))
	}
	r, _ = d.MinRecord("units")
	if r.Get("region").String() != "east" {
		t.Fatalf("expected east as min, got %s", r.Get("region"))
	}
}

func TestMostFrequent(t *testing.T) {
	v, n := sales().MostFrequent("region")
	if v != "north" || n != 2 {
		t.Fatalf("got %q x%d", v, n)
	}
}

func TestSearchAndPage(t *testing.T) {
	d := sales()
	if got := d.Search("NOR"); len(got) != 2 {
		t.Fatalf("search NOR: %d", len(got))
	}
	if got := d.Search("1.25"); len(got) != 1 {
		t.Fatalf("search 1.25: %d", len(got))
	}
	if got := d.Search("null"); len(got) != 0 {
		t.Fatalf("null cells must not match: %d", len(got))
	}
	p := Page(d.Records, 2, 3)
	if p.Pages != 2 || p.Page != 2 || len(p.Records) != 1 || p.Total != 4 {
		t.Fatalf("unexpected page: %+v", p)
	}
	p = Page(d.Records, 9, 3)
	if p.Page != 2 {
		t.Fatalf("expected clamp to last page, got %d", p.Page)
	}
	p = Page(nil, 1, 3)
	if p.Pages != 0 || len(p.Records) != 0 {
		t.Fatalf("unexpected empty page: %+v", p)
	}
}

func TestRecordJSONKeepsOrder(t *testing.T) {
	r := NewRecord([]string{"z", "a", "m"}, []Value{Number(1), Text("x"), Null()})
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"z":1,"a":"x","m":null}` {
		t.Fatalf("got %s", b)
	}
}
