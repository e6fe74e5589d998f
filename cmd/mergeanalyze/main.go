package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/planbiir/gpxmerge/internal/config"
	"github.com/planbiir/gpxmerge/internal/gpx"
	"github.com/planbiir/gpxmerge/internal/logging"
	"github.com/planbiir/gpxmerge/internal/merge"
	"github.com/planbiir/gpxmerge/internal/ordering"
	"github.com/planbiir/gpxmerge/internal/stats"
)

func main() {
	filesFlag := flag.String("files", "", "Comma separated name filters, e.g. Day_1,Day_2")
	verbose := flag.Bool("v", false, "Print processing log")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		log.Fatalf("usage: %s [flags] <folder|file.gpx> [...]", os.Args[0])
	}

	var logger logging.Logger = logging.Nop()
	if *verbose {
		logger = logging.NewZerolog(logging.NewConsole(os.Stderr, logging.LevelDebug, ""))
	}

	if err := analyze(os.Stdout, args, config.SplitList(*filesFlag), logger); err != nil {
		log.Fatalf("analyze: %v", err)
	}
}

// analyze prints what a merge of inputs would produce without writing
// anything.
func analyze(w io.Writer, inputs, filters []string, logger logging.Logger) error {
	defaults := config.Default()
	exclude := merge.Exclude{OutputDir: defaults.OutputDir, MergedName: defaults.MergedName}

	var sources []merge.Source
	for _, in := range inputs {
		found, err := merge.Discover(in, exclude)
		if err != nil {
			return err
		}
		sources = append(sources, found...)
	}

	// Sources are filtered here, so the processor gets no filter of its own.
	cfg := merge.DefaultConfig()

	// Read each source once so the summary and the merge see the same bytes.
	var loaded []merge.Source
	for _, src := range sources {
		if !merge.MatchesFilter(src.Name(), filters) {
			continue
		}
		content, err := src.Read()
		if err != nil {
			fmt.Fprintf(w, "%s\n  unreadable: %v\n", src.Name(), err)
			continue
		}
		loaded = append(loaded, merge.MemorySource(src.Name(), content))

		points, err := gpx.Parse(content, src.Name(), nil)
		fmt.Fprintf(w, "%s\n", src.Name())
		if day, ok := ordering.DayNumber(src.Name()); ok {
			fmt.Fprintf(w, "  day: %d\n", day)
		}
		if err != nil {
			fmt.Fprintf(w, "  invalid: %v\n", err)
			continue
		}
		printTrackStats(w, points)
	}

	rec := &logging.Recorder{}
	var sink logging.Logger = rec
	if logger != nil {
		sink = logging.Tee{rec, logger}
	}

	res, err := merge.NewProcessor(cfg, sink, nil).Process(loaded)
	if errors.Is(err, merge.ErrNoPoints) {
		fmt.Fprintf(w, "\nNothing to merge: %v\n", err)
		return nil
	}
	if err != nil {
		return err
	}

	d := res.Ordering
	fmt.Fprintf(w, "\nOrdering: %s", d.Tag)
	if d.Mixed {
		fmt.Fprintf(w, " (mixed timestamps)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "File order:\n")
	for i, name := range d.FileOrder {
		fmt.Fprintf(w, "  %d. %s (timestamps: %t)\n", i+1, name, d.HasTimestamps(name))
	}
	if merge.DayOrderConflicts(d.FileOrder) {
		fmt.Fprintf(w, "  warning: file order disagrees with day numbers\n")
	}

	fmt.Fprintf(w, "\nMerged route:\n")
	printRouteStats(w, *res.Stats)
	if n := res.Failed(); n > 0 {
		fmt.Fprintf(w, "  failed files: %d\n", n)
	}
	if n := rec.Count(logging.LevelWarn); n > 0 {
		fmt.Fprintf(w, "  warnings: %d\n", n)
	}
	return nil
}

func printTrackStats(w io.Writer, points []gpx.TrackPoint) {
	if len(points) == 0 {
		fmt.Fprintf(w, "  points: 0\n")
		return
	}
	s := stats.Compute(points)
	timed, start, end := timeBounds(points)
	fmt.Fprintf(w, "  points: %d (%d with timestamps)\n", len(points), timed)
	if timed > 0 {
		fmt.Fprintf(w, "  time span: %s – %s (duration %v)\n",
			start.Format(time.RFC3339), end.Format(time.RFC3339), end.Sub(start))
	}
	fmt.Fprintf(w, "  distance: %.2f km\n", s.TotalDistanceKm)
}

func printRouteStats(w io.Writer, s stats.RouteStatistics) {
	fmt.Fprintf(w, "  points: %d\n", s.TotalPoints)
	fmt.Fprintf(w, "  distance: %.2f km\n", s.TotalDistanceKm)
	fmt.Fprintf(w, "  elevation: +%d m / -%d m\n", s.ElevationGainM, s.ElevationLossM)
	if s.MinElevationM != nil && s.MaxElevationM != nil {
		fmt.Fprintf(w, "  elevation range: %dm - %dm\n", *s.MinElevationM, *s.MaxElevationM)
	}
}

func timeBounds(points []gpx.TrackPoint) (int, time.Time, time.Time) {
	var start, end time.Time
	timed := 0
	for _, pt := range points {
		t, ok := ordering.ParseTimestamp(pt.Time)
		if !ok {
			continue
		}
		timed++
		if start.IsZero() || t.Before(start) {
			start = t
		}
		if end.IsZero() || t.After(end) {
			end = t
		}
	}
	return timed, start, end
}
