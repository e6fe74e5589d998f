package merge

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/planbiir/gpxmerge/internal/gpx"
	"github.com/planbiir/gpxmerge/internal/logging"
	"github.com/planbiir/gpxmerge/internal/ordering"
	"github.com/planbiir/gpxmerge/internal/stats"
)

// Mode selects what a run produces.
type Mode string

const (
	// ModeMerge combines every input into one route.
	ModeMerge Mode = "merge"
	// ModeNormalize writes one canonical document per input.
	ModeNormalize Mode = "normalize"
)

// ParseMode validates a textual mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeMerge:
		return ModeMerge, nil
	case ModeNormalize:
		return ModeNormalize, nil
	}
	return "", fmt.Errorf("unknown mode %q (want merge or normalize)", s)
}

// ErrNoPoints is returned in merge mode when no input yielded a single point.
var ErrNoPoints = errors.New("no points found in any GPX files")

// Config controls how a batch is processed.
type Config struct {
	Mode Mode

	// Files restricts processing to sources whose name contains one of the
	// given substrings. Empty means every source.
	Files []string

	// Labels for the merged document.
	Title        string
	Description  string
	ActivityType string
	MergedName   string

	// Now supplies the generation timestamp. Zero means time.Now.
	Now func() time.Time
}

// DefaultConfig returns the configuration used by the command line tool.
func DefaultConfig() Config {
	w := gpx.NewWriter()
	return Config{
		Mode:       ModeMerge,
		Title:      w.Title,
		MergedName: w.MergedName,
	}
}

// FileResult reports the outcome for one input file. A failed file always
// has a zero point count.
type FileResult struct {
	FileName   string `json:"file_name"`
	Success    bool   `json:"success"`
	PointCount int    `json:"point_count"`
	Error      string `json:"error,omitempty"`
}

// Result is everything a run produces.
type Result struct {
	Results []FileResult `json:"results"`
	Outputs []gpx.Output `json:"-"`

	// Merge mode only.
	Coordinates [][2]float64           `json:"coordinates,omitempty"`
	Stats       *stats.RouteStatistics `json:"stats,omitempty"`
	Ordering    *ordering.Decision     `json:"ordering,omitempty"`
}

// Failed returns the number of files that could not be parsed.
func (r *Result) Failed() int {
	n := 0
	for _, fr := range r.Results {
		if !fr.Success {
			n++
		}
	}
	return n
}

// ProgressFunc observes progress after each file. It has no influence on
// processing.
type ProgressFunc func(percent float64, status string)

// Processor drives a batch of sources through parsing, ordering, statistics
// and serialization. Sources are handled strictly one after another.
type Processor struct {
	cfg      Config
	log      logging.Logger
	progress ProgressFunc
	writer   *gpx.Writer
}

// NewProcessor creates a Processor. log and progress may be nil.
func NewProcessor(cfg Config, log logging.Logger, progress ProgressFunc) *Processor {
	if log == nil {
		log = logging.Nop()
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeMerge
	}

	w := gpx.NewWriter()
	if cfg.Title != "" {
		w.Title = cfg.Title
	}
	if cfg.MergedName != "" {
		w.MergedName = cfg.MergedName
	}
	w.Description = cfg.Description
	w.ActivityType = cfg.ActivityType
	if cfg.Now != nil {
		w.Now = cfg.Now
	}

	return &Processor{cfg: cfg, log: log, progress: progress, writer: w}
}

// Process runs the batch. A file that cannot be read or parsed is recorded
// as failed and the batch continues. In merge mode ErrNoPoints is returned
// when nothing could be extracted; the returned Result then carries only the
// per-file results.
func (p *Processor) Process(sources []Source) (*Result, error) {
	logging.Logf(p.log, logging.LevelInfo, "Processing %d files in %s mode", len(sources), p.cfg.Mode)

	selected := p.filter(sources)
	logging.Logf(p.log, logging.LevelInfo, "Files to process: %d", len(selected))

	result := &Result{Results: make([]FileResult, 0, len(selected))}
	var accepted [][]gpx.TrackPoint

	for i, src := range selected {
		name := src.Name()
		logging.Logf(p.log, logging.LevelInfo, "Processing: %s", name)

		points, err := p.load(src)
		if err != nil {
			logging.Logf(p.log, logging.LevelError, "Error processing %s: %v", name, err)
			result.Results = append(result.Results, FileResult{FileName: name, Error: err.Error()})
			p.report(i, len(selected), "Failed "+name)
			continue
		}

		result.Results = append(result.Results, FileResult{
			FileName:   name,
			Success:    true,
			PointCount: len(points),
		})

		if p.cfg.Mode == ModeNormalize {
			out, err := p.writer.Normalized(name, ordering.SortFile(points))
			if err != nil {
				return nil, fmt.Errorf("render %s: %w", name, err)
			}
			result.Outputs = append(result.Outputs, out)
			logging.Logf(p.log, logging.LevelInfo, "  Normalized file prepared: %s", out.Name)
		} else {
			accepted = append(accepted, points)
		}

		p.report(i, len(selected), "Processed "+name)
	}

	if p.cfg.Mode == ModeNormalize {
		logging.Logf(p.log, logging.LevelInfo, "Normalized %d of %d files individually", len(result.Outputs), len(selected))
		return result, nil
	}

	return p.finishMerge(result, accepted)
}

func (p *Processor) finishMerge(result *Result, accepted [][]gpx.TrackPoint) (*Result, error) {
	indexed := ordering.Index(accepted)
	if len(indexed) == 0 {
		logging.Logf(p.log, logging.LevelError, "No points found in any GPX files")
		return result, ErrNoPoints
	}

	logging.Logf(p.log, logging.LevelInfo, "Total files processed: %d", len(result.Results))
	logging.Logf(p.log, logging.LevelInfo, "Total points found: %d", len(indexed))

	decision, ordered := ordering.Decide(indexed)
	switch {
	case decision.Tag == ordering.Chronological:
		logging.Logf(p.log, logging.LevelInfo, "Ordering points chronologically, file order: %s", strings.Join(decision.FileOrder, ", "))
	case decision.Mixed:
		logging.Logf(p.log, logging.LevelWarn, "Mixed timestamps: some files lack time data, keeping file order")
	default:
		logging.Logf(p.log, logging.LevelInfo, "No timestamps found, keeping file order")
	}

	points := ordering.Points(ordered)

	out, err := p.writer.Merged(points, len(accepted))
	if err != nil {
		return nil, fmt.Errorf("render merged track: %w", err)
	}
	logging.Logf(p.log, logging.LevelInfo, "Merged GPX prepared: %s", out.Name)

	routeStats := stats.Compute(points)
	p.logStats(routeStats)

	coords := make([][2]float64, len(points))
	for i, pt := range points {
		coords[i] = [2]float64{pt.Lat, pt.Lon}
	}

	result.Outputs = append(result.Outputs, out)
	result.Coordinates = coords
	result.Stats = &routeStats
	result.Ordering = &decision

	return result, nil
}

func (p *Processor) load(src Source) ([]gpx.TrackPoint, error) {
	content, err := src.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return gpx.Parse(content, src.Name(), p.log)
}

func (p *Processor) filter(sources []Source) []Source {
	if len(p.cfg.Files) == 0 {
		return sources
	}

	logging.Logf(p.log, logging.LevelInfo, "Filtering for files: %s", strings.Join(p.cfg.Files, ", "))

	var out []Source
	for _, src := range sources {
		if MatchesFilter(src.Name(), p.cfg.Files) {
			out = append(out, src)
		}
	}
	return out
}

// MatchesFilter reports whether name contains one of the non-empty filters.
// An empty filter list matches every name.
func MatchesFilter(name string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, want := range filters {
		if want != "" && strings.Contains(name, want) {
			return true
		}
	}
	return false
}

func (p *Processor) report(i, total int, status string) {
	if p.progress == nil || total == 0 {
		return
	}
	p.progress(float64(i+1)/float64(total)*100, status)
}

func (p *Processor) logStats(s stats.RouteStatistics) {
	p.log.Log(logging.LevelInfo, "Route Statistics:")
	logging.Logf(p.log, logging.LevelInfo, "  Total Distance: %.2f km", s.TotalDistanceKm)
	logging.Logf(p.log, logging.LevelInfo, "  Elevation Gain: %d m", s.ElevationGainM)
	logging.Logf(p.log, logging.LevelInfo, "  Elevation Loss: %d m", s.ElevationLossM)
	if s.MinElevationM != nil && s.MaxElevationM != nil {
		logging.Logf(p.log, logging.LevelInfo, "  Elevation Range: %dm - %dm", *s.MinElevationM, *s.MaxElevationM)
	}
	logging.Logf(p.log, logging.LevelInfo, "  Total Points: %d", s.TotalPoints)
}
