package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/KaramelBytes/datadash-cli/internal/ai"
	"github.com/KaramelBytes/datadash-cli/internal/dataset"
)

type stubRuntime struct {
	reply  string
	err    error
	calls  int
	prompt string
}

func (s *stubRuntime) Generate(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	s.calls++
	s.prompt = req.Messages[0].Content
	if s.err != nil {
		return nil, s.err
	}
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Content: s.reply}}}}, nil
}

func sales() *dataset.Dataset {
	cols := []string{"region", "units", "price"}
	n, s := dataset.Number, dataset.Text
	return dataset.New("sales", cols, []dataset.Record{
		dataset.NewRecord(cols, []dataset.Value{s("north"), n(10), n(2.5)}),
		dataset.NewRecord(cols, []dataset.Value{s("south"), n(30), n(1.25)}),
		dataset.NewRecord(cols, []dataset.Value{s("east"), n(30), n(4)}),
	})
}

func TestRuleAnswers(t *testing.T) {
	cases := []struct {
		name     string
		question string
		want     string
	}{
		{
			name:     "highest with column keeps first tie",
			question: "Which row has the HIGHEST units?",
			want:     "Highest units:\n- region: south\n- units: 30\n- price: 1.25",
		},
		{
			name:     "maximum without column",
			question: "show me the maximum values",
			want:     "Highest values for each numeric column:\n- units: 30.00\n- price: 4.00",
		},
		{
			name:     "average",
			question: "What is the mean?",
			want:     "Average values for numeric columns:\n- units: 23.33\n- price: 2.58",
		},
		{
			name:     "lowest with column",
			question: "lowest price please",
			want:     "Lowest price:\n- region: south\n- units: 30\n- price: 1.25",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rt := &stubRuntime{reply: "unused"}
			got := New(rt, Options{}).Respond(context.Background(), tc.question, sales(), nil)
			if got != tc.want {
				t.Fatalf("got:\n%s\nwant:\n%s", got, tc.want)
			}
			if rt.calls != 0 {
				t.Fatalf("rule answers must not call the runtime")
			}
		})
	}
}

func TestHighestTakesPrecedenceOverAverage(t *testing.T) {
	got := New(nil, Options{}).Respond(context.Background(), "highest average price", sales(), nil)
	if !strings.HasPrefix(got, "Highest price:") {
		t.Fatalf("unexpected answer: %s", got)
	}
}

func TestSummary(t *testing.T) {
	got := New(nil, Options{}).Respond(context.Background(), "give me a summary", sales(), nil)
	for _, want := range []string{
		"Dataset Summary:",
		"- Total records: 3",
		"- Columns: region, units, price",
		"units:\n- Maximum: 30.00\n- Minimum: 10.00\n- Average: 23.33\n- Total: 70.00",
		"price:\n- Maximum: 4.00\n- Minimum: 1.25",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestFreeQuestionUsesRuntime(t *testing.T) {
	rt := &stubRuntime{reply: "  North sells the least.  "}
	got := New(rt, Options{Model: "m"}).Respond(context.Background(), "Which region is weakest?", sales(), []string{"prior insight"})
	if got != "North sells the least." {
		t.Fatalf("unexpected answer %q", got)
	}
	for _, want := range []string{"- Total records: 3", `"units": {`, `"region": "north"`, "prior insight", `User question: "Which region is weakest?"`} {
		if !strings.Contains(rt.prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, rt.prompt)
		}
	}
}

func TestFallback(t *testing.T) {
	for name, rt := range map[string]ai.Runtime{
		"unconfigured": nil,
		"error":        &stubRuntime{err: errors.New("boom")},
		"empty reply":  &stubRuntime{reply: "   "},
	} {
		t.Run(name, func(t *testing.T) {
			got := New(rt, Options{}).Respond(context.Background(), "tell me a story", sales(), nil)
			if !strings.HasPrefix(got, "I apologize") || !strings.HasSuffix(got, "Available columns: region, units, price") {
				t.Fatalf("unexpected fallback: %s", got)
			}
		})
	}
}

func TestNoNumericColumns(t *testing.T) {
	cols := []string{"name"}
	ds := dataset.New("n", cols, []dataset.Record{dataset.NewRecord(cols, []dataset.Value{dataset.Text("a")})})
	got := New(nil, Options{}).Respond(context.Background(), "average", ds, nil)
	if got != "Average values for numeric columns:" {
		t.Fatalf("unexpected answer %q", got)
	}
}

func TestPromptTokenBudget(t *testing.T) {
	ds := sales()
	full := BuildPrompt("why?", ds, ds.Stats(), nil, 0)
	capped := BuildPrompt("why?", ds, ds.Stats(), nil, 20)
	if len(capped) >= len(full) {
		t.Fatalf("budget did not shrink prompt: %d >= %d", len(capped), len(full))
	}
	if !strings.Contains(capped, `User question: "why?"`) {
		t.Fatalf("question lost:\n%s", capped)
	}

	rt := &stubRuntime{reply: "ok"}
	New(rt, Options{MaxPromptTokens: 20}).Respond(context.Background(), "why?", ds, nil)
	if rt.prompt != capped {
		t.Fatalf("responder ignored MaxPromptTokens:\n%s", rt.prompt)
	}
}
