package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// runCmd executes the root command with args and returns its stdout.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func execCmd(args ...string) (string, error) {
	// Reset sticky flag state between invocations
	cfg = nil
	cfgFile, debug = "", false
	flagProvider, flagModel = "", ""
	tableSearch, tablePage, tablePageSize = "", 1, 0
	parseJSON = false
	chartType, chartX, chartY, chartOutput = "bar", "", "", "chart.png"
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DATADASH_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	return home
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

const salesCSV = "region,units,price\nnorth,10,2.5\nsouth,30,1.25\neast,20,4\n"

func TestCLI_ParseTableDescribe(t *testing.T) {
	home := isolateHome(t)
	csvPath := writeFile(t, home, "sales.csv", salesCSV)

	out := runCmd(t, "parse", csvPath)
	if !strings.Contains(out, "✓ Parsed sales.csv: 3 records, 3 columns") || !strings.Contains(out, "- units (numeric)") {
		t.Fatalf("unexpected parse output:\n%s", out)
	}

	out = runCmd(t, "table", csvPath, "--search", "south")
	if !strings.Contains(out, "south") || strings.Contains(out, "north") || !strings.Contains(out, "Page 1 of 1 (1 rows)") {
		t.Fatalf("unexpected table output:\n%s", out)
	}

	out = runCmd(t, "describe", csvPath, "--correlations")
	if !strings.Contains(out, "[SCHEMA]") || !strings.Contains(out, "[CORRELATIONS]") {
		t.Fatalf("unexpected describe output:\n%s", out)
	}
}

func TestCLI_InsightsAndAskWithoutCredentials(t *testing.T) {
	home := isolateHome(t)
	jsonPath := writeFile(t, home, "sales.json", `{"data":[{"region":"north","units":10},{"region":"south","units":30}]}`)

	out := runCmd(t, "insights", jsonPath)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if lines[0] != "Key Insights" || len(lines) < 2 || len(lines) > 6 {
		t.Fatalf("unexpected insights output:\n%s", out)
	}

	out = runCmd(t, "ask", jsonPath, "which", "has", "the", "highest", "units?")
	if !strings.Contains(out, "Highest units:\n- region: south\n- units: 30") {
		t.Fatalf("unexpected ask output:\n%s", out)
	}

	out = runCmd(t, "ask", jsonPath, "tell me a story")
	if !strings.Contains(out, "Available columns: region, units") {
		t.Fatalf("expected fallback answer, got:\n%s", out)
	}
}

func TestCLI_ChartAndErrors(t *testing.T) {
	home := isolateHome(t)
	csvPath := writeFile(t, home, "sales.csv", salesCSV)
	png := filepath.Join(home, "out", "sales.png")

	runCmd(t, "chart", csvPath, "--type", "pie", "-o", png)
	b, err := os.ReadFile(png)
	if err != nil || !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Fatalf("chart not written: %v", err)
	}

	if _, err := execCmd("chart", csvPath, "--type", "radar", "-o", png); err == nil {
		t.Fatal("expected error for unsupported chart type")
	}
	if _, err := execCmd("parse", filepath.Join(home, "notes.txt")); err == nil || !strings.Contains(err.Error(), "unsupported file format: txt") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
	empty := writeFile(t, home, "empty.csv", "a,b\n")
	if _, err := execCmd("parse", empty); err == nil || !strings.Contains(err.Error(), "no data found") {
		t.Fatalf("expected empty dataset error, got %v", err)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := isolateHome(t)
	cfgPath := filepath.Join(home, "cfg.yaml")

	runCmd(t, "--config", cfgPath, "config", "set", "provider", "ollama")
	runCmd(t, "--config", cfgPath, "config", "set", "api_key", "abcdefghij")
	out := runCmd(t, "--config", cfgPath, "config", "show")
	if !strings.Contains(out, "provider: ollama") || !strings.Contains(out, "api_key: abc****hij") {
		t.Fatalf("unexpected config show:\n%s", out)
	}
	if _, err := execCmd("--config", cfgPath, "config", "set", "provider", "bedrock"); err == nil {
		t.Fatal("expected invalid provider error")
	}
}

func TestCLI_ConfigSetDoesNotPersistOverrides(t *testing.T) {
	home := isolateHome(t)
	cfgPath := filepath.Join(home, "cfg.yaml")
	t.Setenv("DATADASH_PROVIDER", "openrouter")

	runCmd(t, "--config", cfgPath, "--model", "flag-model", "config", "set", "max_insights", "3")
	b, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	saved := string(b)
	if strings.Contains(saved, "flag-model") || strings.Contains(saved, "openrouter") {
		t.Fatalf("overrides written to disk:\n%s", saved)
	}
	if !strings.Contains(saved, "max_insights: 3") || !strings.Contains(saved, "provider: gemini") {
		t.Fatalf("unexpected saved config:\n%s", saved)
	}
}
