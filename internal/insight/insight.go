// Package insight produces short natural-language observations about a dataset,
// either from the configured AI runtime or from a deterministic heuristic.
package insight

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/datadash-cli/internal/ai"
	"github.com/KaramelBytes/datadash-cli/internal/dataset"
	"github.com/KaramelBytes/datadash-cli/internal/utils"
)

// Options controls insight generation.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// SampleRows is how many leading records the prompt embeds.
	SampleRows int
	// MaxInsights caps the returned list.
	MaxInsights int
	// MaxPromptTokens truncates the embedded sample; 0 disables the cap.
	MaxPromptTokens int
}

// DefaultOptions returns the dashboard defaults: a 20-row sample and five insights.
func DefaultOptions() Options {
	return Options{SampleRows: 20, MaxInsights: 5, MaxTokens: 1024, Temperature: 0.4}
}

// Generator produces insights. A nil runtime means AI is not configured.
type Generator struct {
	rt  ai.Runtime
	opt Options

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// New builds a Generator. rng may be nil, in which case a time-seeded source is used.
func New(rt ai.Runtime, opt Options, rng *rand.Rand) *Generator {
	if opt.SampleRows <= 0 {
		opt.SampleRows = 20
	}
	if opt.MaxInsights <= 0 {
		opt.MaxInsights = 5
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rt: rt, opt: opt, rng: rng}
}

// Generate returns between 1 and MaxInsights non-empty strings and never fails.
// Any AI failure is logged and masked by the heuristic.
func (g *Generator) Generate(ctx context.Context, ds *dataset.Dataset) []string {
	if g.rt != nil && ds != nil {
		text, err := ai.Complete(ctx, g.rt, g.opt.Model, BuildPrompt(ds, g.opt.SampleRows, g.opt.MaxPromptTokens), g.opt.MaxTokens, g.opt.Temperature)
		if err == nil {
			if out := ParseInsights(text, g.opt.MaxInsights); len(out) > 0 {
				return out
			}
			log.Printf("⚠ insight: provider reply had no usable lines, using heuristic")
		} else {
			log.Printf("⚠ insight: generation failed, using heuristic: %v", err)
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return Heuristic(ds, g.rng, g.opt.MaxInsights)
}

// BuildPrompt asks for five insights over the column list and a JSON sample.
// With a positive maxPromptTokens the sample drops trailing records until it
// fits, then is cut as a last resort.
func BuildPrompt(ds *dataset.Dataset, sampleRows, maxPromptTokens int) string {
	sample := sampleJSON(ds.Sample(sampleRows), maxPromptTokens)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze this dataset and provide 5 key insights. The dataset has the following columns: %s.\n", strings.Join(ds.Columns, ", "))
	sb.WriteString("Here's a sample of the data:\n")
	sb.WriteString(utils.TruncateToTokenLimit(string(sample), maxPromptTokens))
	sb.WriteString("\n\nPlease provide 5 specific, data-driven insights about patterns, trends, or interesting observations.\n")
	sb.WriteString("Format each insight as a separate point.\n")
	return sb.String()
}

func sampleJSON(rows []dataset.Record, maxTokens int) []byte {
	for {
		b, err := utils.PrettyJSON(rows)
		if err != nil {
			return []byte("[]")
		}
		if maxTokens <= 0 || len(rows) <= 1 || utils.CountTokens(string(b)) <= maxTokens {
			return b
		}
		rows = rows[:len(rows)-1]
	}
}

var bulletPrefix = regexp.MustCompile(`^(\d+[.)]|[-*•])\s*`)

// ParseInsights splits a model reply into lines, strips one numbering or bullet
// prefix, keeps lines longer than 10 characters and caps the result at max.
func ParseInsights(text string, max int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		if len([]rune(line)) <= 10 {
			continue
		}
		out = append(out, line)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

// Closing sentences appended to every heuristic result.
const (
	patternSentence        = "The data shows some seasonal patterns that could be valuable for predictive modeling."
	recommendationSentence = "Consider exploring the relationship between different variables to uncover hidden patterns in your data."
)

var genericInsights = []string{
	"This dataset contains multiple variables that could be analyzed further.",
	"There appear to be some interesting patterns in the numeric variables.",
	"Some categorical variables show uneven distributions.",
	"The data quality is generally good with few missing values.",
	"Further analysis could reveal more specific insights about trends and relationships.",
}

// Heuristic derives insights locally: counts, one random numeric average, one random
// category's mode, a relationship hint, and two closing sentences.
func Heuristic(ds *dataset.Dataset, rng *rand.Rand, max int) (out []string) {
	if max <= 0 {
		max = 5
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠ insight: heuristic failed: %v", r)
			out = capped(genericInsights, max)
		}
	}()
	if ds == nil {
		return capped(genericInsights, max)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	numeric := ds.NumericColumns()
	categorical := ds.CategoricalColumns()

	out = append(out, fmt.Sprintf("The dataset contains %d records with %d attributes: %s.", ds.Len(), len(ds.Columns), strings.Join(ds.Columns, ", ")))
	if len(numeric) > 0 {
		col := numeric[rng.Intn(len(numeric))]
		if st, ok := ds.ColumnStats(col); ok {
			out = append(out, fmt.Sprintf("The average %s is approximately %.2f.", col, st.Average))
		}
	}
	if len(categorical) > 0 {
		col := categorical[rng.Intn(len(categorical))]
		if v, n := ds.MostFrequent(col); n > 0 {
			out = append(out, fmt.Sprintf("The most common %s is %q, appearing %d times.", col, v, n))
		}
	}
	if len(numeric) >= 2 {
		out = append(out, fmt.Sprintf("There appears to be a relationship between %s and %s.", numeric[0], numeric[1]))
	}
	out = append(out, patternSentence, recommendationSentence)
	return capped(out, max)
}

func capped(in []string, max int) []string {
	if len(in) > max {
		in = in[:max]
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
