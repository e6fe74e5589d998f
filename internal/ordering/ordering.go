package ordering

import (
	"fmt"
	"sort"
	"time"

	"github.com/planbiir/gpxmerge/internal/gpx"
)

// Tag names the policy chosen for a run.
type Tag int

const (
	// Chronological means every point carried a timestamp and the merged
	// route is sorted by time.
	Chronological Tag = iota
	// FilenameFallback keeps the order files were supplied in, then the
	// original point order within each file.
	FilenameFallback
)

func (t Tag) String() string {
	if t == Chronological {
		return "chronological"
	}
	return "filename"
}

// MarshalText renders the tag in JSON output.
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (t *Tag) UnmarshalText(b []byte) error {
	switch string(b) {
	case "chronological":
		*t = Chronological
	case "filename":
		*t = FilenameFallback
	default:
		return fmt.Errorf("unknown ordering %q", b)
	}
	return nil
}

// Indexed is a trackpoint annotated with its position in the input: the
// arrival index of its file and its index within that file.
type Indexed struct {
	Point      gpx.TrackPoint
	FileIndex  int
	PointIndex int
}

// FileTimestamps describes the timestamp coverage of one contributing file.
type FileTimestamps struct {
	FileName  string `json:"file_name"`
	FileIndex int    `json:"file_index"`
	Points    int    `json:"points"`

	// HasTimestamps is set when every point of the file has a valid timestamp.
	HasTimestamps bool `json:"has_timestamps"`

	// FirstTimestamp is the time of the file's first point, empty when unknown.
	FirstTimestamp string `json:"first_timestamp,omitempty"`
}

// Decision is the outcome of the ordering policy for one merge run.
type Decision struct {
	Tag Tag `json:"ordering"`

	// Mixed is set when some, but not all, points carried a timestamp.
	Mixed bool `json:"mixed_timestamps"`

	// FileOrder lists contributing files in resolved emission order.
	FileOrder []string `json:"file_order"`

	Files []FileTimestamps `json:"files"`
}

// HasTimestamps reports the timestamp flag of the named file.
func (d Decision) HasTimestamps(fileName string) bool {
	for _, f := range d.Files {
		if f.FileName == fileName {
			return f.HasTimestamps
		}
	}
	return false
}

// Index annotates the points of each file, in arrival order, with their
// file and point indices.
func Index(files [][]gpx.TrackPoint) []Indexed {
	var out []Indexed
	for fileIdx, points := range files {
		for ptIdx, p := range points {
			out = append(out, Indexed{Point: p, FileIndex: fileIdx, PointIndex: ptIdx})
		}
	}
	return out
}

// Decide classifies the full point set by timestamp coverage and returns the
// decision together with the points in emission order. The input slice is
// not modified.
func Decide(points []Indexed) (Decision, []Indexed) {
	times := make([]time.Time, len(points))
	valid := make([]bool, len(points))
	timed := 0
	for i, p := range points {
		if t, ok := ParseTimestamp(p.Point.Time); ok {
			times[i], valid[i] = t, true
			timed++
		}
	}

	files := summarizeFiles(points, valid)
	ordered := make([]Indexed, len(points))
	copy(ordered, points)

	if len(points) > 0 && timed == len(points) {
		perm := make([]int, len(points))
		for i := range perm {
			perm[i] = i
		}
		sort.SliceStable(perm, func(a, b int) bool {
			return times[perm[a]].Before(times[perm[b]])
		})
		for i, idx := range perm {
			ordered[i] = points[idx]
		}

		byFirst := make([]FileTimestamps, len(files))
		copy(byFirst, files)
		firstTimes := firstTimestamps(points, times)
		sort.SliceStable(byFirst, func(a, b int) bool {
			return firstTimes[byFirst[a].FileIndex].Before(firstTimes[byFirst[b].FileIndex])
		})

		return Decision{
			Tag:       Chronological,
			FileOrder: fileNames(byFirst),
			Files:     files,
		}, ordered
	}

	sort.SliceStable(ordered, func(a, b int) bool {
		if ordered[a].FileIndex != ordered[b].FileIndex {
			return ordered[a].FileIndex < ordered[b].FileIndex
		}
		return ordered[a].PointIndex < ordered[b].PointIndex
	})

	return Decision{
		Tag:       FilenameFallback,
		Mixed:     timed > 0,
		FileOrder: fileNames(files),
		Files:     files,
	}, ordered
}

// SortFile orders the points of a single file by time when every point has a
// valid timestamp; otherwise it returns them as parsed. A new slice is
// always returned.
func SortFile(points []gpx.TrackPoint) []gpx.TrackPoint {
	out := make([]gpx.TrackPoint, len(points))
	copy(out, points)

	times := make([]time.Time, len(points))
	for i, p := range points {
		t, ok := ParseTimestamp(p.Time)
		if !ok {
			return out
		}
		times[i] = t
	}

	perm := make([]int, len(points))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return times[perm[a]].Before(times[perm[b]])
	})
	for i, idx := range perm {
		out[i] = points[idx]
	}
	return out
}

// Points strips the indices.
func Points(indexed []Indexed) []gpx.TrackPoint {
	out := make([]gpx.TrackPoint, len(indexed))
	for i, p := range indexed {
		out[i] = p.Point
	}
	return out
}

func summarizeFiles(points []Indexed, valid []bool) []FileTimestamps {
	var files []FileTimestamps
	pos := make(map[int]int)

	for i, p := range points {
		idx, seen := pos[p.FileIndex]
		if !seen {
			idx = len(files)
			pos[p.FileIndex] = idx
			files = append(files, FileTimestamps{
				FileName:      p.Point.SourceFile,
				FileIndex:     p.FileIndex,
				HasTimestamps: true,
			})
			if valid[i] {
				files[idx].FirstTimestamp = p.Point.Time
			}
		}
		files[idx].Points++
		if !valid[i] {
			files[idx].HasTimestamps = false
		}
	}

	sort.SliceStable(files, func(a, b int) bool {
		return files[a].FileIndex < files[b].FileIndex
	})
	return files
}

func firstTimestamps(points []Indexed, times []time.Time) map[int]time.Time {
	first := make(map[int]time.Time)
	for i, p := range points {
		if _, ok := first[p.FileIndex]; !ok {
			first[p.FileIndex] = times[i]
		}
	}
	return first
}

func fileNames(files []FileTimestamps) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.FileName
	}
	return names
}
