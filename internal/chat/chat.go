// Package chat answers free-text questions about a dataset. Common statistical
// questions are answered locally; anything else goes to the AI runtime.
package chat

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/KaramelBytes/datadash-cli/internal/ai"
	"github.com/KaramelBytes/datadash-cli/internal/dataset"
	"github.com/KaramelBytes/datadash-cli/internal/utils"
)

// Options controls the AI call made for questions no local rule handles.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// MaxPromptTokens caps the stats and sample embedded in the prompt; 0 disables it.
	MaxPromptTokens int
}

// Responder answers questions. A nil runtime means AI is not configured.
type Responder struct {
	rt  ai.Runtime
	opt Options
}

func New(rt ai.Runtime, opt Options) *Responder {
	if opt.MaxTokens <= 0 {
		opt.MaxTokens = 1024
	}
	return &Responder{rt: rt, opt: opt}
}

// rule matches a lower-cased question and builds an answer.
type rule struct {
	keywords []string
	answer   func(q string, ds *dataset.Dataset, stats []dataset.ColumnStats) string
}

var rules = []rule{
	{[]string{"highest", "maximum"}, answerHighest},
	{[]string{"average", "mean"}, answerAverage},
	{[]string{"summary", "statistics"}, answerSummary},
	{[]string{"lowest", "minimum"}, answerLowest},
}

// Respond always returns a displayable answer. Failures are logged and replaced
// by a fixed help message listing the dataset's columns.
func (r *Responder) Respond(ctx context.Context, question string, ds *dataset.Dataset, insights []string) (answer string) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("⚠ chat: rule failed: %v", p)
			answer = Fallback(ds)
		}
	}()
	if ds == nil {
		return Fallback(ds)
	}
	stats := ds.Stats()
	q := strings.ToLower(question)
	for _, rl := range rules {
		if containsAny(q, rl.keywords) {
			return rl.answer(q, ds, stats)
		}
	}
	text, err := ai.Complete(ctx, r.rt, r.opt.Model, BuildPrompt(question, ds, stats, insights, r.opt.MaxPromptTokens), r.opt.MaxTokens, r.opt.Temperature)
	if err != nil {
		log.Printf("⚠ chat: ai response failed: %v", err)
		return Fallback(ds)
	}
	return text
}

func answerHighest(q string, ds *dataset.Dataset, stats []dataset.ColumnStats) string {
	return answerExtreme(q, ds, stats, "Highest", ds.MaxRecord, func(s dataset.ColumnStats) float64 { return s.Max })
}

func answerLowest(q string, ds *dataset.Dataset, stats []dataset.ColumnStats) string {
	return answerExtreme(q, ds, stats, "Lowest", ds.MinRecord, func(s dataset.ColumnStats) float64 { return s.Min })
}

// answerExtreme prints the whole extreme record when the question names a numeric
// column, otherwise the extreme of every numeric column.
func answerExtreme(q string, ds *dataset.Dataset, stats []dataset.ColumnStats, label string,
	find func(string) (dataset.Record, bool), pick func(dataset.ColumnStats) float64) string {
	for _, col := range ds.NumericColumns() {
		if !strings.Contains(q, strings.ToLower(col)) {
			continue
		}
		rec, ok := find(col)
		if !ok {
			break
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s %s:\n", label, col)
		for _, k := range rec.Keys() {
			fmt.Fprintf(&sb, "- %s: %s\n", k, rec.Get(k))
		}
		return strings.TrimRight(sb.String(), "\n")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s values for each numeric column:", label)
	for _, s := range stats {
		fmt.Fprintf(&sb, "\n- %s: %.2f", s.Column, pick(s))
	}
	return sb.String()
}

func answerAverage(_ string, _ *dataset.Dataset, stats []dataset.ColumnStats) string {
	var sb strings.Builder
	sb.WriteString("Average values for numeric columns:")
	for _, s := range stats {
		fmt.Fprintf(&sb, "\n- %s: %.2f", s.Column, s.Average)
	}
	return sb.String()
}

func answerSummary(_ string, ds *dataset.Dataset, stats []dataset.ColumnStats) string {
	var sb strings.Builder
	sb.WriteString("Dataset Summary:\n")
	fmt.Fprintf(&sb, "- Total records: %d\n", ds.Len())
	fmt.Fprintf(&sb, "- Columns: %s\n", strings.Join(ds.Columns, ", "))
	if len(stats) == 0 {
		return strings.TrimRight(sb.String(), "\n")
	}
	sb.WriteString("\nStatistics for numeric columns:")
	for _, s := range stats {
		fmt.Fprintf(&sb, "\n\n%s:\n", s.Column)
		fmt.Fprintf(&sb, "- Maximum: %.2f\n", s.Max)
		fmt.Fprintf(&sb, "- Minimum: %.2f\n", s.Min)
		fmt.Fprintf(&sb, "- Average: %.2f\n", s.Average)
		fmt.Fprintf(&sb, "- Total: %.2f", s.Total)
	}
	return sb.String()
}

// BuildPrompt embeds the dataset summary, stats, a sample record and prior insights.
// The stats and sample share maxPromptTokens when it is positive.
func BuildPrompt(question string, ds *dataset.Dataset, stats []dataset.ColumnStats, insights []string, maxPromptTokens int) string {
	byCol := make(map[string]dataset.ColumnStats, len(stats))
	for _, s := range stats {
		byCol[s.Column] = s
	}
	statsJSON, err := utils.PrettyJSON(byCol)
	if err != nil {
		statsJSON = []byte("{}")
	}
	sample := []byte("{}")
	if ds.Len() > 0 {
		if b, err := utils.PrettyJSON(ds.Records[0]); err == nil {
			sample = b
		}
	}

	var sb strings.Builder
	sb.WriteString("You are analyzing a dataset with the following information:\n\n")
	sb.WriteString("Dataset Summary:\n")
	fmt.Fprintf(&sb, "- Total records: %d\n", ds.Len())
	fmt.Fprintf(&sb, "- Columns: %s\n\n", strings.Join(ds.Columns, ", "))
	sampleText := utils.TruncateToTokenLimit(string(sample), maxPromptTokens/2)
	statsBudget := 0
	if maxPromptTokens > 0 {
		statsBudget = max(maxPromptTokens-utils.CountTokens(sampleText), 1)
	}
	fmt.Fprintf(&sb, "Statistical Summary:\n%s\n\n", utils.TruncateToTokenLimit(string(statsJSON), statsBudget))
	fmt.Fprintf(&sb, "Sample data point:\n%s\n\n", sampleText)
	fmt.Fprintf(&sb, "Previous Insights:\n%s\n\n", strings.Join(insights, "\n"))
	fmt.Fprintf(&sb, "User question: %q\n\n", question)
	sb.WriteString("Please provide a detailed answer that includes:\n")
	sb.WriteString("1. Specific values and calculations when relevant\n")
	sb.WriteString("2. Context about the data\n")
	sb.WriteString("3. Patterns or trends related to the question\n")
	sb.WriteString("4. Suggestions for follow-up questions\n\n")
	sb.WriteString("Base your response only on the actual data available.\n")
	return sb.String()
}

// Fallback is the answer shown when a question cannot be handled.
func Fallback(ds *dataset.Dataset) string {
	var cols []string
	if ds != nil {
		cols = ds.Columns
	}
	return "I apologize, but I encountered an error while processing your request.\n" +
		"You can try:\n" +
		"- Asking about specific columns\n" +
		"- Requesting statistics or summaries\n" +
		"- Querying for maximum/minimum values\n" +
		"- Getting general insights about the data\n\n" +
		"Available columns: " + strings.Join(cols, ", ")
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
