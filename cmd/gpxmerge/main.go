package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/planbiir/gpxmerge/internal/config"
	"github.com/planbiir/gpxmerge/internal/gpx"
	"github.com/planbiir/gpxmerge/internal/logging"
	"github.com/planbiir/gpxmerge/internal/merge"
	"github.com/planbiir/gpxmerge/internal/ordering"
	"github.com/planbiir/gpxmerge/internal/stats"
)

const version = "gpxmerge v1.0.0 - GPX tour merger"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// report is the machine-readable summary printed by -stats-json.
type report struct {
	Mode     string                 `json:"mode"`
	Results  []merge.FileResult     `json:"results"`
	Outputs  []string               `json:"outputs"`
	Stats    *stats.RouteStatistics `json:"stats,omitempty"`
	Ordering *ordering.Decision     `json:"ordering,omitempty"`
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gpxmerge", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		input      = fs.String("i", "", "Input folder or GPX file (default: current directory)")
		outputDir  = fs.String("o", "", "Output directory (default from config: output)")
		normalize  = fs.Bool("normalize", false, "Normalize each file individually instead of merging")
		files      = fs.String("files", "", "Comma separated name filters, e.g. Day_1,Day_2")
		configPath = fs.String("config", "", "Optional YAML config file")
		title      = fs.String("title", "", "Name of the merged route")
		logLevel   = fs.String("log-level", "", "Log level: debug, info, warn, error")
		quiet      = fs.Bool("quiet", false, "Disable the progress bar")
		showStats  = fs.Bool("stats", false, "Show route statistics")
		statsJSON  = fs.Bool("stats-json", false, "Output the run summary as JSON")
		showVer    = fs.Bool("version", false, "Show version information")
	)

	fs.Usage = func() {
		fmt.Fprintf(stderr, "gpxmerge - Merge or normalize GPX tour files\n\n")
		fmt.Fprintf(stderr, "usage: gpxmerge [-i folder] [flags] [file.gpx ...]\n\n")
		fmt.Fprintf(stderr, "examples:\n")
		fmt.Fprintf(stderr, "  gpxmerge -i ./tour\n")
		fmt.Fprintf(stderr, "  gpxmerge -i ./tour -normalize\n")
		fmt.Fprintf(stderr, "  gpxmerge -i ./tour -files Day_1,Day_2 -o merged\n\n")
		fmt.Fprintf(stderr, "options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVer {
		fmt.Fprintln(stdout, version)
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	if *normalize {
		cfg.Mode = string(merge.ModeNormalize)
	}
	if *files != "" {
		cfg.Files = config.SplitList(*files)
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *title != "" {
		cfg.Title = *title
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	runID := uuid.NewString()
	log := logging.NewZerolog(logging.NewConsole(stderr, level, runID))

	inputs := fs.Args()
	if *input != "" {
		inputs = append([]string{*input}, inputs...)
	}
	if len(inputs) == 0 {
		inputs = []string{"."}
	}

	exclude := merge.Exclude{OutputDir: cfg.OutputDir, MergedName: cfg.MergedName}

	var sources []merge.Source
	for _, in := range inputs {
		found, err := merge.Discover(in, exclude)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading input: %v\n", err)
			return 1
		}
		sources = append(sources, found...)
	}
	if len(sources) == 0 {
		fmt.Fprintf(stdout, "❌ No GPX files found\n")
		return 1
	}

	pc, err := cfg.Processing()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	fmt.Fprintf(stdout, "📖 Found %d GPX files\n", len(sources))

	var progress merge.ProgressFunc
	var bar *progressbar.ProgressBar
	if !*quiet && !*statsJSON {
		bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(stderr),
			progressbar.OptionSetDescription("Processing"),
		)
		progress = func(percent float64, status string) {
			bar.Describe(status)
			_ = bar.Set(int(percent))
		}
	}

	res, procErr := merge.NewProcessor(pc, log, progress).Process(sources)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(stderr)
	}
	if procErr != nil && !errors.Is(procErr, merge.ErrNoPoints) {
		fmt.Fprintf(stderr, "Error processing files: %v\n", procErr)
		return 1
	}

	printResults(stdout, res.Results)

	if procErr != nil {
		fmt.Fprintf(stdout, "❌ %v\n", procErr)
		return 1
	}

	var written []string
	if len(res.Outputs) > 0 {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			fmt.Fprintf(stderr, "Error creating output directory: %v\n", err)
			return 1
		}
	}
	for _, out := range res.Outputs {
		path, err := out.Save(cfg.OutputDir)
		if err != nil {
			fmt.Fprintf(stderr, "Error writing GPX file: %v\n", err)
			return 1
		}
		written = append(written, path)
	}

	if *statsJSON {
		rep := report{
			Mode:     cfg.Mode,
			Results:  res.Results,
			Outputs:  written,
			Stats:    res.Stats,
			Ordering: res.Ordering,
		}
		jsonData, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			fmt.Fprintf(stderr, "Error marshaling stats: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, string(jsonData))
	} else if *showStats && res.Stats != nil {
		printStats(stdout, *res.Stats)
	}

	if len(res.Outputs) == 0 {
		fmt.Fprintf(stdout, "❌ No files could be normalized\n")
		return 1
	}

	if pc.Mode == merge.ModeNormalize {
		printDays(stdout, res.Outputs)
	} else {
		fmt.Fprintf(stdout, "💾 Merged track written: %s\n", written[0])
		if res.Ordering != nil && merge.DayOrderConflicts(res.Ordering.FileOrder) {
			fmt.Fprintf(stdout, "⚠️  File order does not follow day numbers: %v\n", res.Ordering.FileOrder)
		}
	}

	fmt.Fprintf(stdout, "✅ Done: %d of %d files processed successfully\n",
		len(res.Results)-res.Failed(), len(res.Results))
	return 0
}

func printResults(w io.Writer, results []merge.FileResult) {
	for _, r := range results {
		if r.Success {
			fmt.Fprintf(w, "   ✓ %s: %d points\n", r.FileName, r.PointCount)
		} else {
			fmt.Fprintf(w, "   ✗ %s: %s\n", r.FileName, r.Error)
		}
	}
}

func printDays(w io.Writer, outputs []gpx.Output) {
	fmt.Fprintf(w, "💾 Normalized files:\n")
	for _, g := range merge.GroupByDay(outputs) {
		if g.HasDay {
			fmt.Fprintf(w, "   Day %d:\n", g.Day)
		} else {
			fmt.Fprintf(w, "   Other:\n")
		}
		for _, out := range g.Outputs {
			fmt.Fprintf(w, "     %s\n", out.Name)
		}
	}
}

func printStats(w io.Writer, s stats.RouteStatistics) {
	fmt.Fprintf(w, "\n📊 Route Statistics:\n")
	fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(w, "📏 Total Distance: %.2f km\n", s.TotalDistanceKm)
	fmt.Fprintf(w, "⛰️  Elevation Gain: %d m\n", s.ElevationGainM)
	fmt.Fprintf(w, "⬇️  Elevation Loss: %d m\n", s.ElevationLossM)
	if s.MinElevationM != nil && s.MaxElevationM != nil {
		fmt.Fprintf(w, "📐 Elevation Range: %dm - %dm\n", *s.MinElevationM, *s.MaxElevationM)
	}
	fmt.Fprintf(w, "📍 Total Points: %d\n", s.TotalPoints)
	fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
}
