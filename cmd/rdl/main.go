// rdl analyzes log files by LZ77 redundancy: repeated byte patterns are
// ranked into a dictionary, each record is scored by how well the corpus
// explains it, and outliers are flagged.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/suykerbuyk/redlens/internal/anomaly"
	"github.com/suykerbuyk/redlens/internal/config"
	"github.com/suykerbuyk/redlens/internal/dict"
	"github.com/suykerbuyk/redlens/internal/input"
	"github.com/suykerbuyk/redlens/internal/jsonprofile"
	"github.com/suykerbuyk/redlens/internal/render"
	"github.com/suykerbuyk/redlens/internal/scan"
	"github.com/suykerbuyk/redlens/internal/score"
	"github.com/suykerbuyk/redlens/internal/watch"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "scan":
		cmdScan(os.Args[2:])
	case "dict":
		cmdDict(os.Args[2:])
	case "analyze":
		cmdAnalyze(os.Args[2:])
	case "anomalies":
		cmdAnomalies(os.Args[2:])
	case "report":
		cmdReport(os.Args[2:])
	case "watch":
		cmdWatch(os.Args[2:])
	case "init-config":
		path, err := config.WriteDefault()
		if err != nil {
			fatal("%v", err)
		}
		fmt.Printf("wrote %s\n", path)
	case "version":
		fmt.Printf("rdl v%s (redlens)\n", version)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

// common holds the flags shared by every analysis command. Flags the
// user did not set fall back to the config file, which falls back to
// built-in defaults.
type common struct {
	fs         *pflag.FlagSet
	windowSize int
	minMatch   int
	delimiter  string
	configPath string
	verbose    bool
}

func newCommon(name string) *common {
	c := &common{fs: pflag.NewFlagSet(name, pflag.ExitOnError)}
	c.fs.IntVar(&c.windowSize, "window-size", scan.DefaultWindow, "LZ77 sliding window size in bytes")
	c.fs.IntVar(&c.minMatch, "min-match", scan.MinMatch, "minimum match length in bytes")
	c.fs.StringVar(&c.delimiter, "delimiter", `\n`, "record delimiter byte")
	c.fs.StringVar(&c.configPath, "config", "", "config file path")
	c.fs.BoolVarP(&c.verbose, "verbose", "v", false, "print stage timings to stderr")
	return c
}

// resolve parses args, loads config, and fills in unset flags from it.
// Returns the config and the single input path argument.
func (c *common) resolve(args []string) (config.Config, string) {
	c.fs.Parse(args)

	cfg, err := config.Load(c.configPath)
	if err != nil {
		fatal("load config: %v", err)
	}
	if !c.fs.Changed("window-size") {
		c.windowSize = cfg.Scan.WindowSize
	}
	if !c.fs.Changed("min-match") {
		c.minMatch = cfg.Scan.MinMatch
	}
	if c.fs.Changed("delimiter") {
		cfg.Scan.Delimiter = c.delimiter
	}

	rest := c.fs.Args()
	if len(rest) != 1 {
		fatal("usage: rdl %s [flags] <file>", c.fs.Name())
	}
	return cfg, rest[0]
}

func delimiterByte(cfg config.Config) byte {
	b, err := cfg.DelimiterByte()
	if err != nil {
		fatal("%v", err)
	}
	return b
}

func readInput(path string) []byte {
	data, err := input.Read(path)
	if err != nil {
		fatal("%v", err)
	}
	return data
}

func cmdScan(args []string) {
	c := newCommon("scan")
	showOps := c.fs.Int("show-ops", 0, "show first N operations")
	_, path := c.resolve(args)

	data := readInput(path)
	t0 := time.Now()
	ops := scan.Scan(data, c.windowSize, c.minMatch, scan.MaxMatch)
	render.ScanSummary(os.Stdout, path, data, ops, time.Since(t0), *showOps)
}

func cmdDict(args []string) {
	c := newCommon("dict")
	minCount := c.fs.Int("min-count", dict.DefaultMinCount, "minimum backref count for an entry")
	top := c.fs.Int("top", 0, "show only top N entries")
	asJSON := c.fs.Bool("json", false, "output as JSON")
	cfg, path := c.resolve(args)
	if !c.fs.Changed("min-count") {
		*minCount = cfg.Dict.MinCount
	}
	if !c.fs.Changed("top") {
		*top = cfg.Render.TopEntries
	}

	data := readInput(path)
	t0 := time.Now()
	ops := scan.Scan(data, c.windowSize, c.minMatch, scan.MaxMatch)
	if c.verbose {
		fmt.Fprintf(os.Stderr, "  scan: %.4fs\n", time.Since(t0).Seconds())
	}
	entries := dict.Build(data, ops, *minCount)

	if *asJSON {
		if err := render.DictionaryJSON(os.Stdout, entries, *top); err != nil {
			fatal("%v", err)
		}
		return
	}
	render.Dictionary(os.Stdout, path, data, entries, *top)
}

func cmdAnalyze(args []string) {
	c := newCommon("analyze")
	minCount := c.fs.Int("min-count", dict.DefaultMinCount, "minimum backref count for an entry")
	cfg, path := c.resolve(args)
	if !c.fs.Changed("min-count") {
		*minCount = cfg.Dict.MinCount
	}

	data := readInput(path)
	t0 := time.Now()
	ops := scan.Scan(data, c.windowSize, c.minMatch, scan.MaxMatch)
	t1 := time.Now()
	entries := dict.Build(data, ops, *minCount)
	t2 := time.Now()
	records := score.Records(data, ops, entries, delimiterByte(cfg))
	if c.verbose {
		fmt.Fprintf(os.Stderr, "  scan:  %.4fs\n", t1.Sub(t0).Seconds())
		fmt.Fprintf(os.Stderr, "  dict:  %.4fs\n", t2.Sub(t1).Seconds())
		fmt.Fprintf(os.Stderr, "  score: %.4fs\n", time.Since(t2).Seconds())
	}

	render.Analysis(os.Stdout, path, data, ops, entries, records)
}

// anomalyFlags holds the detection flags shared by anomalies and watch.
type anomalyFlags struct {
	minCount  *int
	method    *string
	threshold *float64
	topN      *int
	asJSON    *bool
	extract   *bool
	raw       *bool
}

func addAnomalyFlags(c *common) anomalyFlags {
	return anomalyFlags{
		minCount:  c.fs.Int("min-count", dict.DefaultMinCount, "minimum backref count for an entry"),
		method:    c.fs.String("method", "", "detection method: score, coverage, percentile, top"),
		threshold: c.fs.Float64("threshold", 0, "detection threshold (method-dependent)"),
		topN:      c.fs.Int("top-n", 0, "show top N anomalies (implies --method top)"),
		asJSON:    c.fs.Bool("json", false, "output as JSON"),
		extract:   c.fs.Bool("extract", false, "print raw anomalous record content"),
		raw:       c.fs.Bool("raw", false, "force byte-level analysis even for JSON input"),
	}
}

// detection resolves method and options from flags and config.
func (f anomalyFlags) detection(c *common, cfg config.Config) (anomaly.Method, anomaly.Options) {
	opts := anomaly.Options{TopN: cfg.Detect.TopN, Threshold: cfg.Detect.Threshold}
	if c.fs.Changed("top-n") {
		opts.TopN = *f.topN
	}
	if c.fs.Changed("threshold") {
		opts.Threshold = f.threshold
	}

	name := cfg.Detect.Method
	if c.fs.Changed("method") {
		name = *f.method
	}
	if c.fs.Changed("top-n") {
		name = "top"
	}
	method, err := anomaly.ParseMethod(name)
	if err != nil {
		fatal("%v", err)
	}
	return method, opts
}

func cmdAnomalies(args []string) {
	c := newCommon("anomalies")
	f := addAnomalyFlags(c)
	cfg, path := c.resolve(args)
	if !c.fs.Changed("min-count") {
		*f.minCount = cfg.Dict.MinCount
	}

	runAnomalies(c, f, cfg, path)
}

func runAnomalies(c *common, f anomalyFlags, cfg config.Config, path string) {
	data := readInput(path)
	method, opts := f.detection(c, cfg)
	delim := delimiterByte(cfg)

	if !*f.raw && jsonprofile.LooksLikeJSON(data) {
		runJSONAnomalies(c, f, data, path, method, opts, delim)
		return
	}

	t0 := time.Now()
	ops := scan.Scan(data, c.windowSize, c.minMatch, scan.MaxMatch)
	entries := dict.Build(data, ops, *f.minCount)
	records := score.Records(data, ops, entries, delim)
	if c.verbose {
		fmt.Fprintf(os.Stderr, "  pipeline: %.4fs\n", time.Since(t0).Seconds())
	}

	report := anomaly.DetectRecords(records, len(entries), method, opts)

	if *f.asJSON {
		if err := render.AnomaliesJSON(os.Stdout, data, records, report); err != nil {
			fatal("%v", err)
		}
		return
	}
	render.Anomalies(os.Stdout, path, data, records, report)
	if *f.extract {
		fmt.Println("\n--- Extracted Anomalous Records ---")
		render.ExtractAnomalies(os.Stdout, data, records, report.AnomalyIndices)
	}
}

func runJSONAnomalies(c *common, f anomalyFlags, data []byte, path string, method anomaly.Method, opts anomaly.Options, delim byte) {
	t0 := time.Now()
	records := jsonprofile.ParseRecords(data, delim)
	schema := jsonprofile.BuildSchema(records)
	scored := jsonprofile.ScoreRecords(records, schema)
	if c.verbose {
		fmt.Fprintf(os.Stderr, "  pipeline: %.4fs\n", time.Since(t0).Seconds())
	}

	scores := make([]float64, len(scored))
	for i, s := range scored {
		scores[i] = s.AnomalyScore
	}
	threshold, indices := anomaly.DetectIndices(scores, nil, method, opts)
	report := jsonprofile.BuildReport(records, scored, schema, threshold, indices)

	if *f.asJSON {
		if err := render.JSONProfileJSON(os.Stdout, data, scored, report); err != nil {
			fatal("%v", err)
		}
		return
	}
	render.JSONProfile(os.Stdout, path, data, scored, report)
	if *f.extract {
		fmt.Println("\n--- Extracted Anomalous Records ---")
		for _, i := range report.AnomalyIndices {
			os.Stdout.Write(scored[i].Content(data))
		}
	}
}

func cmdReport(args []string) {
	c := newCommon("report")
	f := addAnomalyFlags(c)
	top := c.fs.Int("top", 0, "cap dictionary table at N entries")
	output := c.fs.StringP("output", "o", "", "write report to file instead of stdout")
	cfg, path := c.resolve(args)
	if !c.fs.Changed("min-count") {
		*f.minCount = cfg.Dict.MinCount
	}
	if !c.fs.Changed("top") {
		*top = cfg.Render.TopEntries
	}

	data := readInput(path)
	method, opts := f.detection(c, cfg)

	ops := scan.Scan(data, c.windowSize, c.minMatch, scan.MaxMatch)
	entries := dict.Build(data, ops, *f.minCount)
	records := score.Records(data, ops, entries, delimiterByte(cfg))
	report := anomaly.DetectRecords(records, len(entries), method, opts)

	md := render.MarkdownReport(render.ReportData{
		Path:       path,
		Generated:  time.Now(),
		Method:     method.String(),
		Data:       data,
		Entries:    entries,
		Records:    records,
		Report:     report,
		TopEntries: *top,
	})

	if *output != "" {
		if err := os.WriteFile(*output, []byte(md), 0o644); err != nil {
			fatal("write report: %v", err)
		}
		fmt.Printf("wrote %s\n", *output)
		return
	}
	os.Stdout.WriteString(md)
}

func cmdWatch(args []string) {
	c := newCommon("watch")
	f := addAnomalyFlags(c)
	debounceMS := c.fs.Int("debounce-ms", 0, "quiet time before re-analyzing")
	cfg, path := c.resolve(args)
	if !c.fs.Changed("min-count") {
		*f.minCount = cfg.Dict.MinCount
	}
	if !c.fs.Changed("debounce-ms") {
		*debounceMS = cfg.Watch.DebounceMS
	}

	runAnomalies(c, f, cfg, path)
	err := watch.File(path, time.Duration(*debounceMS)*time.Millisecond, func() error {
		fmt.Println()
		runAnomalies(c, f, cfg, path)
		return nil
	})
	if err != nil {
		fatal("%v", err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `rdl v%s — LZ77 redundancy analyzer for logs

Usage:
  rdl scan [flags] <file>        Run the LZ77 scanner, print operation summary
  rdl dict [flags] <file>        Build and display the frequency dictionary
  rdl analyze [flags] <file>     Full analysis: scan + dict + per-record scoring
  rdl anomalies [flags] <file>   Detect and display anomalous records
  rdl report [flags] <file>      Write a markdown analysis report
  rdl watch [flags] <file>       Re-run anomaly detection when the file changes
  rdl init-config                Write a default config file
  rdl version                    Print version
  rdl help                       Show this help

Inputs ending in .gz or .zst are decompressed; "-" reads stdin.
JSON-lines inputs use the schema profiler unless --raw is given.

Configuration: ~/.config/redlens/config.toml (see rdl init-config)
`, version)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "rdl: "+format+"\n", args...)
	os.Exit(1)
}
