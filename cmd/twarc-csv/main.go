// Command twarc-csv converts newline-delimited JSON of tweets, users,
// compliance actions, or counts into CSV.
//
// Usage:
//
//	twarc-csv [flags] [infile] [outfile]
//
// infile and outfile default to "-" (stdin/stdout). It loads an optional
// YAML profile, applies flag overrides, optionally initializes a metrics
// backend and a persistent dedup state store, and executes the streaming
// run.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/M7sn1982/twarc-csv/internal/config"
	"github.com/M7sn1982/twarc-csv/internal/datasource"
	"github.com/M7sn1982/twarc-csv/internal/metrics"
	"github.com/M7sn1982/twarc-csv/internal/metrics/prompush"
	"github.com/M7sn1982/twarc-csv/internal/pipeline"
	"github.com/M7sn1982/twarc-csv/internal/schema"
	"github.com/M7sn1982/twarc-csv/internal/state"
	statesqlite "github.com/M7sn1982/twarc-csv/internal/state/sqlite"
	"github.com/M7sn1982/twarc-csv/internal/transformer"
)

func main() {
	def := config.Default()

	var (
		cfgPath   string
		hideStats bool
		validate  bool
	)
	cfg := def

	flag.StringVar(&cfgPath, "config", "", "YAML profile path (flags override profile values)")
	flag.StringVar(&cfg.InputDataType, "input-data-type", def.InputDataType,
		"input data kind(s): tweets, users, compliance, counts (comma separated)")
	flag.BoolVar(&cfg.JSONEncodeAll, "json-encode-all", def.JSONEncodeAll, "JSON encode/escape all fields")
	flag.BoolVar(&cfg.JSONEncodeText, "json-encode-text", def.JSONEncodeText, "JSON encode/escape text fields")
	flag.BoolVar(&cfg.JSONEncodeLists, "json-encode-lists", def.JSONEncodeLists, "JSON encode/escape lists and objects")
	flag.BoolVar(&cfg.InlineReferencedTweets, "inline-referenced-tweets", def.InlineReferencedTweets,
		"output referenced tweets inline as separate rows")
	flag.BoolVar(&cfg.MergeRetweets, "merge-retweets", def.MergeRetweets,
		"merge original tweet metadata into retweets (text, metrics, entities)")
	flag.BoolVar(&cfg.AllowDuplicates, "allow-duplicates", def.AllowDuplicates,
		"list every record as is, including duplicates (retweets are not duplicates)")
	flag.StringVar(&cfg.ExtraInputColumns, "extra-input-columns", def.ExtraInputColumns,
		"extra accepted input columns (comma separated key paths)")
	flag.StringVar(&cfg.OutputColumns, "output-columns", def.OutputColumns,
		"columns to output (comma separated); default is all input columns")
	flag.IntVar(&cfg.BatchSize, "batch-size", def.BatchSize, "lines to process per chunk")
	flag.StringVar(&cfg.Delimiter, "delimiter", def.Delimiter, "output field separator (one character)")
	flag.StringVar(&cfg.State.Path, "state", def.State.Path,
		"SQLite state path for resumable deduplication (empty disables)")
	flag.StringVar(&cfg.Metrics.Backend, "metrics-backend", def.Metrics.Backend,
		"metrics backend to use (pushgateway, none)")
	flag.StringVar(&cfg.Metrics.PushgatewayURL, "pushgateway-url", def.Metrics.PushgatewayURL,
		"Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.BoolVar(&hideStats, "hide-stats", false, "hide dataset stats on completion")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			fatalf("%v", err)
		}
		// Flags set explicitly on the command line win over the profile.
		overrides := map[string]struct{}{}
		flag.Visit(func(f *flag.Flag) { overrides[f.Name] = struct{}{} })
		cfg = mergeSettings(loaded, cfg, overrides)
	}

	issues := config.Validate(cfg)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		os.Exit(1)
	}
	if validate {
		log.Printf("configuration is valid")
		os.Exit(0)
	}

	inPath, outPath := "-", "-"
	switch args := flag.Args(); len(args) {
	case 0:
	case 1:
		inPath = args[0]
	case 2:
		inPath, outPath = args[0], args[1]
	default:
		fatalf("too many arguments: want [infile] [outfile]")
	}
	if inPath != "-" && inPath == outPath {
		fatalf("cannot convert files in-place, specify a different output file")
	}

	setupMetrics(cfg.Metrics, *verbose)

	ctx := context.Background()
	start := time.Now()

	rs := state.New()
	var store state.Store
	if cfg.State.Path != "" {
		st, err := statesqlite.Open(ctx, cfg.State.Path)
		if err != nil {
			fatalf("open state store: %v", err)
		}
		defer st.Close()
		n, err := st.SeedInto(ctx, rs)
		if err != nil {
			fatalf("seed state: %v", err)
		}
		if *verbose {
			log.Printf("state: seeded %d identifiers from %s", n, cfg.State.Path)
		}
		store = st
	}

	if err := run(ctx, cfg, rs, store, inPath, outPath, *verbose); err != nil {
		log.Fatalf("%v", err)
	}

	if err := metrics.Flush(); err != nil {
		log.Printf("metrics: flush error: %v", err)
	}
	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
	if !hideStats && outPath != "-" {
		printStats(os.Stderr, &rs.Counters, cfg.InlineReferencedTweets)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func run(ctx context.Context, cfg config.Settings, rs *state.RunState, store state.Store,
	inPath, outPath string, verbose bool) error {

	kinds, err := schema.ParseKinds(cfg.InputDataType)
	if err != nil {
		return err
	}
	s, err := schema.New(kinds, splitColumns(cfg.ExtraInputColumns), splitColumns(cfg.OutputColumns))
	if err != nil {
		return err
	}

	var src datasource.Source = datasource.Std{}
	var sink datasource.Sink = datasource.Std{}
	if inPath != "-" {
		local := datasource.NewLocal(inPath)
		if size, err := local.Size(); err == nil && size == 0 {
			return fmt.Errorf("input file is empty, nothing to convert")
		}
		src = local
	}
	if outPath != "-" {
		sink = datasource.NewLocal(outPath)
	}

	in, err := src.Open(ctx)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := sink.Create(ctx)
	if err != nil {
		return err
	}

	p := &pipeline.Pipeline{
		Converter: transformer.NewConverter(s, transformer.Options{
			Encoding: transformer.Encoding{
				All:   cfg.JSONEncodeAll,
				Text:  cfg.JSONEncodeText,
				Lists: cfg.JSONEncodeLists,
			},
			InlineReferencedTweets: cfg.InlineReferencedTweets,
			MergeRetweets:          cfg.MergeRetweets,
			AllowDuplicates:        cfg.AllowDuplicates,
		}),
		Schema:    s,
		State:     rs,
		Store:     store,
		BatchSize: cfg.BatchSize,
		Delimiter: []rune(cfg.Delimiter)[0],
		Verbose:   verbose,
	}
	if err := p.Run(ctx, in, out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// setupMetrics decides the metrics backend: flag/profile → env → disabled.
func setupMetrics(m config.Metrics, verbose bool) {
	backendName := m.Backend
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway":
		gwURL := m.PushgatewayURL
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		job := m.Job
		if job == "" {
			job = "twarc_csv"
		}
		b, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return
		}
		if verbose {
			log.Printf("metrics: url=%v backend=%v job=%v", gwURL, backendName, job)
		}
		metrics.SetBackend(b)
	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

// mergeSettings layers explicitly-set flag values (from flags) over base
// (from the profile).
func mergeSettings(base, flags config.Settings, set map[string]struct{}) config.Settings {
	out := base
	if _, ok := set["input-data-type"]; ok {
		out.InputDataType = flags.InputDataType
	}
	if _, ok := set["json-encode-all"]; ok {
		out.JSONEncodeAll = flags.JSONEncodeAll
	}
	if _, ok := set["json-encode-text"]; ok {
		out.JSONEncodeText = flags.JSONEncodeText
	}
	if _, ok := set["json-encode-lists"]; ok {
		out.JSONEncodeLists = flags.JSONEncodeLists
	}
	if _, ok := set["inline-referenced-tweets"]; ok {
		out.InlineReferencedTweets = flags.InlineReferencedTweets
	}
	if _, ok := set["merge-retweets"]; ok {
		out.MergeRetweets = flags.MergeRetweets
	}
	if _, ok := set["allow-duplicates"]; ok {
		out.AllowDuplicates = flags.AllowDuplicates
	}
	if _, ok := set["extra-input-columns"]; ok {
		out.ExtraInputColumns = flags.ExtraInputColumns
	}
	if _, ok := set["output-columns"]; ok {
		out.OutputColumns = flags.OutputColumns
	}
	if _, ok := set["batch-size"]; ok {
		out.BatchSize = flags.BatchSize
	}
	if _, ok := set["delimiter"]; ok {
		out.Delimiter = flags.Delimiter
	}
	if _, ok := set["state"]; ok {
		out.State = flags.State
	}
	if _, ok := set["metrics-backend"]; ok {
		out.Metrics.Backend = flags.Metrics.Backend
	}
	if _, ok := set["pushgateway-url"]; ok {
		out.Metrics.PushgatewayURL = flags.Metrics.PushgatewayURL
	}
	return out
}

func splitColumns(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// printStats writes the end-of-run dataset summary.
func printStats(w *os.File, c *state.Counters, inlined bool) {
	fmt.Fprintf(w, "\nParsed %d tweets from %d lines in the file, and %d non tweet objects.\n",
		c.Tweets, c.Lines, c.NonTweets)
	if inlined {
		fmt.Fprintf(w, "%d were referenced tweets, %d were referenced multiple times, and %d were referenced but not available in the API responses.\n",
			c.ReferencedTweets, c.Duplicates, c.Unavailable)
	}
	if c.ParseErrors > 0 {
		fmt.Fprintf(w, "%d failed to parse. See the log for details.\n", c.ParseErrors)
	}
	fmt.Fprintf(w, "Wrote %d rows and output %d of %d input columns in the CSV.\n",
		c.Rows, c.OutputColumns, c.InputColumns)
}
