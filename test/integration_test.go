package test

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// rdlBinary is the path to the compiled rdl binary, set by TestMain.
var rdlBinary string

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(0)
	}

	tmpDir, err := os.MkdirTemp("", "rdl-integration-build-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "create temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(tmpDir)

	rdlBinary = filepath.Join(tmpDir, "rdl")
	cmd := exec.Command("go", "build", "-o", rdlBinary, "./cmd/rdl")
	// Test working dir is test/, so go up one level to project root
	cmd.Dir = filepath.Join("..")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "build rdl binary: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// --- Fixtures ---

// fixtureSteady builds a log where one line repeats count times with an
// injected anomaly in the middle (at record index count/2).
func fixtureSteady(count int) string {
	normal := "2026-02-16 10:00:01 httpd[312]: GET /api/v1/status 200 12ms\n"
	panicLine := "KERNEL PANIC: fatal exception 0xDEADBEEF in interrupt handler, segfault at ffffffffc01a\n"

	var b strings.Builder
	for i := 0; i < count/2; i++ {
		b.WriteString(normal)
	}
	b.WriteString(panicLine)
	for i := 0; i < count-count/2; i++ {
		b.WriteString(normal)
	}
	return b.String()
}

// fixtureJSONL builds a JSON-lines log with one record missing the level
// field (at index count).
func fixtureJSONL(count int) string {
	var b strings.Builder
	for i := 0; i < count; i++ {
		fmt.Fprintf(&b, "{\"level\": \"info\", \"msg\": \"request served\", \"seq\": %d}\n", i)
	}
	b.WriteString("{\"msg\": \"orphan record\", \"seq\": -1}\n")
	return b.String()
}

// --- Helpers ---

func runRDL(t *testing.T, env []string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := exec.Command(rdlBinary, args...)
	cmd.Env = env
	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

func mustRunRDL(t *testing.T, env []string, args ...string) string {
	t.Helper()
	stdout, stderr, err := runRDL(t, env, args...)
	if err != nil {
		t.Fatalf("rdl %s failed: %v\nstdout: %s\nstderr: %s", strings.Join(args, " "), err, stdout, stderr)
	}
	return stdout
}

func writeFixture(t *testing.T, dir, filename, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}

func buildEnv(xdgConfigHome string) []string {
	return []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + os.Getenv("HOME"),
		"XDG_CONFIG_HOME=" + xdgConfigHome,
	}
}

// --- Tests ---

func TestVersion(t *testing.T) {
	out := mustRunRDL(t, buildEnv(t.TempDir()), "version")
	if !strings.Contains(out, "rdl v") {
		t.Errorf("version output = %q", out)
	}
}

func TestUnknownCommand(t *testing.T) {
	_, stderr, err := runRDL(t, buildEnv(t.TempDir()), "frobnicate")
	if err == nil {
		t.Error("unknown command should exit nonzero")
	}
	if !strings.Contains(stderr, "unknown command") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestScanCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "app.log", fixtureSteady(100))

	out := mustRunRDL(t, buildEnv(dir), "scan", path)
	if !strings.Contains(out, "LZ77 Scan") {
		t.Errorf("scan output missing header:\n%s", out)
	}
	if !strings.Contains(out, "backrefs:") {
		t.Errorf("scan output missing backref count:\n%s", out)
	}
}

func TestDictCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "app.log", fixtureSteady(100))

	out := mustRunRDL(t, buildEnv(dir), "dict", path)
	if !strings.Contains(out, "Dictionary") {
		t.Errorf("dict output missing header:\n%s", out)
	}
	if !strings.Contains(out, "count=") {
		t.Errorf("dict output has no entries:\n%s", out)
	}
}

func TestDictJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "app.log", fixtureSteady(100))

	out := mustRunRDL(t, buildEnv(dir), "dict", "--json", path)
	var entries []map[string]any
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("dict --json output is not valid JSON: %v\n%s", err, out)
	}
	if len(entries) == 0 {
		t.Error("dict --json returned no entries")
	}
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "app.log", fixtureSteady(100))

	out := mustRunRDL(t, buildEnv(dir), "analyze", path)
	for _, want := range []string{"Analysis:", "Coverage Distribution", "Coverage Histogram"} {
		if !strings.Contains(out, want) {
			t.Errorf("analyze output missing %q:\n%s", want, out)
		}
	}
}

func TestAnomaliesFindsInjectedPanic(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "app.log", fixtureSteady(100))

	out := mustRunRDL(t, buildEnv(dir), "anomalies", "--top-n", "5", path)
	if !strings.Contains(out, "KERNEL PANIC") {
		t.Errorf("anomaly report missing the injected panic line:\n%s", out)
	}
}

func TestAnomaliesJSONOutput(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "app.log", fixtureSteady(100))

	out := mustRunRDL(t, buildEnv(dir), "anomalies", "--top-n", "5", "--json", path)
	var report struct {
		TotalRecords int `json:"total_records"`
		AnomalyCount int `json:"anomaly_count"`
		Anomalies    []struct {
			Index   int    `json:"index"`
			Content string `json:"content"`
		} `json:"anomalies"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("anomalies --json output is not valid JSON: %v\n%s", err, out)
	}
	if report.TotalRecords != 101 {
		t.Errorf("total_records = %d, want 101", report.TotalRecords)
	}
	if report.AnomalyCount != 5 {
		t.Errorf("anomaly_count = %d, want 5", report.AnomalyCount)
	}

	found := false
	for _, a := range report.Anomalies {
		if a.Index == 50 {
			found = true
			if !strings.Contains(a.Content, "KERNEL PANIC") {
				t.Errorf("record 50 content = %q", a.Content)
			}
		}
	}
	if !found {
		t.Errorf("record 50 missing from anomalies: %+v", report.Anomalies)
	}
}

func TestAnomaliesTopNExact(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("abcdefgh-line-padding-24\n", 30)
	path := writeFixture(t, dir, "uniform.log", content)

	out := mustRunRDL(t, buildEnv(dir), "anomalies", "--top-n", "5", "--json", path)
	var report struct {
		AnomalyCount int `json:"anomaly_count"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if report.AnomalyCount != 5 {
		t.Errorf("anomaly_count = %d, want exactly 5 on a uniform log", report.AnomalyCount)
	}
}

func TestAnomaliesExtract(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "app.log", fixtureSteady(100))

	out := mustRunRDL(t, buildEnv(dir), "anomalies", "--top-n", "1", "--extract", path)
	if !strings.Contains(out, "Extracted Anomalous Records") {
		t.Errorf("output missing extract section:\n%s", out)
	}
	if !strings.Contains(out, "KERNEL PANIC: fatal exception") {
		t.Errorf("extract missing raw record content:\n%s", out)
	}
}

func TestReportMarkdown(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "app.log", fixtureSteady(100))

	out := mustRunRDL(t, buildEnv(dir), "report", "--top-n", "3", path)
	for _, want := range []string{
		"type: redundancy-report",
		"# Redundancy Report:",
		"## Summary",
		"KERNEL PANIC",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestReportToFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "app.log", fixtureSteady(100))
	outPath := filepath.Join(dir, "report.md")

	mustRunRDL(t, buildEnv(dir), "report", "-o", outPath, path)
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("report file not written: %v", err)
	}
	if !strings.Contains(string(data), "# Redundancy Report:") {
		t.Error("report file missing content")
	}
}

func TestAnomaliesEmptyInput(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "empty.log", "")

	out := mustRunRDL(t, buildEnv(dir), "anomalies", path)
	if !strings.Contains(out, "records:") {
		t.Errorf("empty input should still produce a report:\n%s", out)
	}
}

func TestAnomaliesDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "app.log", fixtureSteady(100))

	env := buildEnv(dir)
	first := mustRunRDL(t, env, "anomalies", "--top-n", "5", "--json", path)
	second := mustRunRDL(t, env, "anomalies", "--top-n", "5", "--json", path)
	if first != second {
		t.Error("identical runs produced different output")
	}
}

func TestJSONInputUsesSchemaProfiler(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "app.jsonl", fixtureJSONL(50))

	out := mustRunRDL(t, buildEnv(dir), "anomalies", "--top-n", "1", path)
	if !strings.Contains(out, "JSON Schema Report") {
		t.Errorf("JSON-lines input should route to the schema profiler:\n%s", out)
	}
	if !strings.Contains(out, "missing: level") {
		t.Errorf("report missing the missing-field explanation:\n%s", out)
	}
}

func TestRawFlagForcesByteAnalysis(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "app.jsonl", fixtureJSONL(50))

	out := mustRunRDL(t, buildEnv(dir), "anomalies", "--raw", "--top-n", "1", path)
	if !strings.Contains(out, "Anomaly Report") {
		t.Errorf("--raw should use byte-level analysis:\n%s", out)
	}
	if strings.Contains(out, "JSON Schema Report") {
		t.Error("--raw should not route to the schema profiler")
	}
}

func TestStdinInput(t *testing.T) {
	cmd := exec.Command(rdlBinary, "scan", "-")
	cmd.Env = buildEnv(t.TempDir())
	cmd.Stdin = strings.NewReader(fixtureSteady(20))
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("scan from stdin: %v", err)
	}
	if !strings.Contains(string(out), "LZ77 Scan") {
		t.Errorf("stdin scan output:\n%s", out)
	}
}

func TestGzipInput(t *testing.T) {
	dir := t.TempDir()
	plain := writeFixture(t, dir, "app.log", fixtureSteady(100))
	gzPath := plain + ".gz"

	gz := exec.Command("gzip", "-k", plain)
	if err := gz.Run(); err != nil {
		t.Skipf("gzip unavailable: %v", err)
	}

	plainOut := mustRunRDL(t, buildEnv(dir), "dict", "--json", plain)
	gzOut := mustRunRDL(t, buildEnv(dir), "dict", "--json", gzPath)
	if plainOut != gzOut {
		t.Error("gzip input produced a different dictionary than plain input")
	}
}

func TestInitConfig(t *testing.T) {
	dir := t.TempDir()
	env := buildEnv(dir)

	out := mustRunRDL(t, env, "init-config")
	if !strings.Contains(out, "config.toml") {
		t.Errorf("init-config output = %q", out)
	}

	path := filepath.Join(dir, "redlens", "config.toml")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
}

func TestConfigDrivesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "redlens")
	writeFixture(t, cfgDir, "config.toml", "[detect]\nmethod = \"top\"\ntop_n = 3\n")
	path := writeFixture(t, dir, "app.log", fixtureSteady(100))

	out := mustRunRDL(t, buildEnv(dir), "anomalies", "--json", path)
	var report struct {
		AnomalyCount int `json:"anomaly_count"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if report.AnomalyCount != 3 {
		t.Errorf("anomaly_count = %d, want 3 from config", report.AnomalyCount)
	}
}

func TestFlagOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "redlens")
	writeFixture(t, cfgDir, "config.toml", "[detect]\nmethod = \"top\"\ntop_n = 3\n")
	path := writeFixture(t, dir, "app.log", fixtureSteady(100))

	out := mustRunRDL(t, buildEnv(dir), "anomalies", "--top-n", "7", "--json", path)
	var report struct {
		AnomalyCount int `json:"anomaly_count"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if report.AnomalyCount != 7 {
		t.Errorf("anomaly_count = %d, want 7 from flag", report.AnomalyCount)
	}
}

func TestMissingInputFile(t *testing.T) {
	_, stderr, err := runRDL(t, buildEnv(t.TempDir()), "scan", "/nonexistent/app.log")
	if err == nil {
		t.Error("scan of a missing file should exit nonzero")
	}
	if !strings.Contains(stderr, "rdl:") {
		t.Errorf("stderr = %q", stderr)
	}
}
