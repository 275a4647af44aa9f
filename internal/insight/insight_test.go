package insight

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/KaramelBytes/datadash-cli/internal/ai"
	"github.com/KaramelBytes/datadash-cli/internal/dataset"
)

type stubRuntime struct {
	text   string
	err    error
	prompt string
}

func (s *stubRuntime) Generate(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	s.prompt = req.Messages[0].Content
	if s.err != nil {
		return nil, s.err
	}
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: s.text}}}}, nil
}

func build(cols []string, rows ...[]dataset.Value) *dataset.Dataset {
	recs := make([]dataset.Record, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, dataset.NewRecord(cols, r))
	}
	return dataset.New("t", cols, recs)
}

func TestHeuristicAlwaysReturnsOneToFive(t *testing.T) {
	n, s := dataset.Number, dataset.Text
	cases := map[string]*dataset.Dataset{
		"nil":            nil,
		"empty":          dataset.New("e", nil, nil),
		"columns only":   dataset.New("h", []string{"a", "b"}, nil),
		"no numeric":     build([]string{"city"}, []dataset.Value{s("Oslo")}, []dataset.Value{s("Rome")}),
		"no categorical": build([]string{"x", "y"}, []dataset.Value{n(1), n(2)}),
		"mixed": build([]string{"region", "units", "price"},
			[]dataset.Value{s("north"), n(3), n(1.5)},
			[]dataset.Value{s("north"), n(5), n(2.5)}),
	}
	for name, ds := range cases {
		t.Run(name, func(t *testing.T) {
			g := New(nil, DefaultOptions(), rand.New(rand.NewSource(1)))
			out := g.Generate(context.Background(), ds)
			if len(out) < 1 || len(out) > 5 {
				t.Fatalf("got %d insights", len(out))
			}
			for i, s := range out {
				if strings.TrimSpace(s) == "" {
					t.Fatalf("insight %d empty", i)
				}
			}
		})
	}
}

func TestHeuristicContent(t *testing.T) {
	n, s := dataset.Number, dataset.Text
	ds := build([]string{"region", "units", "price"},
		[]dataset.Value{s("north"), n(3), n(1.5)},
		[]dataset.Value{s("south"), n(5), n(2.5)},
		[]dataset.Value{s("north"), n(4), n(2)})
	out := Heuristic(ds, rand.New(rand.NewSource(7)), 5)
	if len(out) != 5 {
		t.Fatalf("expected 5 insights, got %d: %v", len(out), out)
	}
	if out[0] != "The dataset contains 3 records with 3 attributes: region, units, price." {
		t.Fatalf("unexpected count insight: %q", out[0])
	}
	if !strings.HasPrefix(out[1], "The average units is approximately 4.00") && !strings.HasPrefix(out[1], "The average price is approximately 2.00") {
		t.Fatalf("unexpected average insight: %q", out[1])
	}
	if out[2] != `The most common region is "north", appearing 2 times.` {
		t.Fatalf("unexpected mode insight: %q", out[2])
	}
	if out[3] != "There appears to be a relationship between units and price." {
		t.Fatalf("unexpected relationship insight: %q", out[3])
	}
}

func TestParseInsights(t *testing.T) {
	text := "Here are insights:\n\n1. Revenue grows steadily each quarter.\n2) North leads unit sales overall.\n- Prices cluster around 2.00 dollars.\n* Short\n• Returns spike after holiday promotions.\n3. Sixth line should be dropped by the cap.\n4. Seventh too."
	got := ParseInsights(text, 5)
	want := []string{
		"Here are insights:",
		"Revenue grows steadily each quarter.",
		"North leads unit sales overall.",
		"Prices cluster around 2.00 dollars.",
		"Returns spike after holiday promotions.",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q", got)
	}
}

func TestGenerateUsesRuntime(t *testing.T) {
	rt := &stubRuntime{text: "1. Units rise with price across regions.\n2. North is the busiest region."}
	ds := build([]string{"region", "units"}, []dataset.Value{dataset.Text("north"), dataset.Number(1)})
	out := New(rt, DefaultOptions(), rand.New(rand.NewSource(1))).Generate(context.Background(), ds)
	if len(out) != 2 || out[1] != "North is the busiest region." {
		t.Fatalf("unexpected insights: %q", out)
	}
	if !strings.Contains(rt.prompt, "columns: region, units.") || !strings.Contains(rt.prompt, `"region": "north"`) {
		t.Fatalf("prompt missing columns or sample: %s", rt.prompt)
	}
}

func TestGenerateFallsBackOnFailure(t *testing.T) {
	ds := build([]string{"a"}, []dataset.Value{dataset.Number(1)})
	for _, rt := range []*stubRuntime{{err: errors.New("quota")}, {text: "ok\nshort"}} {
		out := New(rt, DefaultOptions(), rand.New(rand.NewSource(1))).Generate(context.Background(), ds)
		if len(out) == 0 || !strings.HasPrefix(out[0], "The dataset contains 1 records") {
			t.Fatalf("expected heuristic fallback, got %q", out)
		}
	}
}

func TestBuildPromptSampleSize(t *testing.T) {
	cols := []string{"i"}
	var rows [][]dataset.Value
	for i := 0; i < 30; i++ {
		rows = append(rows, []dataset.Value{dataset.Number(float64(i))})
	}
	p := BuildPrompt(build(cols, rows...), 20, 0)
	if strings.Count(p, `"i":`) != 20 {
		t.Fatalf("expected 20 sampled rows, got %d", strings.Count(p, `"i":`))
	}
}

func TestBuildPromptTokenBudgetDropsWholeRows(t *testing.T) {
	cols := []string{"i", "note"}
	var rows [][]dataset.Value
	for i := 0; i < 30; i++ {
		rows = append(rows, []dataset.Value{dataset.Number(float64(i)), dataset.Text("a fairly long free text note")})
	}
	p := BuildPrompt(build(cols, rows...), 20, 60)
	n := strings.Count(p, `"i":`)
	if n == 0 || n >= 20 {
		t.Fatalf("expected a trimmed sample, got %d rows", n)
	}
	start := strings.Index(p, "Here's a sample of the data:\n")
	end := strings.Index(p, "\n\nPlease provide")
	if start < 0 || end < 0 {
		t.Fatalf("prompt layout changed:\n%s", p)
	}
	sample := p[start+len("Here's a sample of the data:\n") : end]
	if !json.Valid([]byte(sample)) {
		t.Fatalf("sample is not valid JSON:\n%s", sample)
	}
}
