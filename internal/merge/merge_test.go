package merge

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planbiir/gpxmerge/internal/gpx"
	"github.com/planbiir/gpxmerge/internal/logging"
	"github.com/planbiir/gpxmerge/internal/ordering"
)

func fixedNow() time.Time {
	return time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
}

type trkpt struct {
	lat, lon float64
	ele      string
	time     string
}

func buildGPX(points ...trkpt) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1"><trk><trkseg>`)
	for _, p := range points {
		fmt.Fprintf(&b, `<trkpt lat="%v" lon="%v">`, p.lat, p.lon)
		if p.ele != "" {
			fmt.Fprintf(&b, "<ele>%s</ele>", p.ele)
		}
		if p.time != "" {
			fmt.Fprintf(&b, "<time>%s</time>", p.time)
		}
		b.WriteString("</trkpt>")
	}
	b.WriteString(`</trkseg></trk></gpx>`)
	return b.String()
}

type failingSource struct{ name string }

func (f failingSource) Name() string          { return f.name }
func (f failingSource) Read() (string, error) { return "", errors.New("disk on fire") }

func TestMergeChronologicalRegardlessOfInputOrder(t *testing.T) {
	day1 := MemorySource("Day_1.gpx", buildGPX(
		trkpt{lat: 46.50, lon: 11.70, ele: "1500", time: "2025-07-01T08:00:00Z"},
		trkpt{lat: 46.51, lon: 11.71, ele: "1550", time: "2025-07-01T09:00:00Z"},
	))
	day2 := MemorySource("Day_2.gpx", buildGPX(
		trkpt{lat: 46.52, lon: 11.72, ele: "1540", time: "2025-07-02T08:00:00Z"},
		trkpt{lat: 46.53, lon: 11.73, ele: "1600", time: "2025-07-02T09:00:00Z"},
	))
	day3 := MemorySource("Day_3.gpx", buildGPX(
		trkpt{lat: 46.54, lon: 11.74, ele: "1580", time: "2025-07-03T08:00:00Z"},
	))

	p := NewProcessor(Config{Mode: ModeMerge, Now: fixedNow}, nil, nil)
	res, err := p.Process([]Source{day3, day1, day2})
	require.NoError(t, err)

	require.Len(t, res.Results, 3)
	require.Len(t, res.Outputs, 1)
	assert.Equal(t, "merged.gpx", res.Outputs[0].Name)

	require.NotNil(t, res.Ordering)
	assert.Equal(t, ordering.Chronological, res.Ordering.Tag)
	assert.Equal(t, []string{"Day_1.gpx", "Day_2.gpx", "Day_3.gpx"}, res.Ordering.FileOrder)

	merged, err := gpx.Parse(res.Outputs[0].Content, "merged.gpx", nil)
	require.NoError(t, err)
	require.Len(t, merged, 5)

	var prev time.Time
	for i, pt := range merged {
		ts, ok := ordering.ParseTimestamp(pt.Time)
		require.True(t, ok)
		if i > 0 {
			assert.False(t, ts.Before(prev))
		}
		prev = ts
	}

	require.Len(t, res.Coordinates, 5)
	assert.Equal(t, [2]float64{46.50, 11.70}, res.Coordinates[0])
	assert.Equal(t, [2]float64{46.54, 11.74}, res.Coordinates[4])

	require.NotNil(t, res.Stats)
	assert.Equal(t, 5, res.Stats.TotalPoints)
	assert.Equal(t, 50+60, res.Stats.ElevationGainM)
	assert.Equal(t, 10+20, res.Stats.ElevationLossM)
	assert.Equal(t, 1500, *res.Stats.MinElevationM)
	assert.Equal(t, 1600, *res.Stats.MaxElevationM)
}

func TestMergeMixedTimestampsKeepsArrivalOrder(t *testing.T) {
	timed := MemorySource("Day_2.gpx", buildGPX(
		trkpt{lat: 2.0, lon: 2.0, time: "2025-07-02T08:00:00Z"},
		trkpt{lat: 2.1, lon: 2.1, time: "2025-07-02T07:00:00Z"},
	))
	untimed := MemorySource("Day_1.gpx", buildGPX(
		trkpt{lat: 1.0, lon: 1.0},
		trkpt{lat: 1.1, lon: 1.1},
	))

	rec := &logging.Recorder{}
	res, err := NewProcessor(Config{Now: fixedNow}, rec, nil).Process([]Source{timed, untimed})
	require.NoError(t, err)

	assert.Equal(t, ordering.FilenameFallback, res.Ordering.Tag)
	assert.True(t, res.Ordering.Mixed)
	assert.Equal(t, []string{"Day_2.gpx", "Day_1.gpx"}, res.Ordering.FileOrder)
	assert.Equal(t, [][2]float64{{2.0, 2.0}, {2.1, 2.1}, {1.0, 1.0}, {1.1, 1.1}}, res.Coordinates)
	assert.True(t, res.Ordering.HasTimestamps("Day_2.gpx"))
	assert.False(t, res.Ordering.HasTimestamps("Day_1.gpx"))
	assert.True(t, rec.Contains("Mixed timestamps"))
}

func TestMergeToleratesBrokenFiles(t *testing.T) {
	sources := []Source{
		MemorySource("good.gpx", buildGPX(trkpt{lat: 1, lon: 1}, trkpt{lat: 1.001, lon: 1})),
		MemorySource("broken.gpx", `<gpx><trk>`),
		failingSource{name: "unreadable.gpx"},
		MemorySource("other.gpx", `<kml></kml>`),
	}

	res, err := NewProcessor(Config{Now: fixedNow}, nil, nil).Process(sources)
	require.NoError(t, err)

	require.Len(t, res.Results, 4)
	assert.True(t, res.Results[0].Success)
	assert.Equal(t, 2, res.Results[0].PointCount)

	for _, fr := range res.Results[1:] {
		assert.False(t, fr.Success, fr.FileName)
		assert.Zero(t, fr.PointCount, fr.FileName)
		assert.NotEmpty(t, fr.Error, fr.FileName)
	}
	assert.Contains(t, res.Results[2].Error, "disk on fire")
	assert.Contains(t, res.Results[3].Error, "root element is not <gpx>")
	assert.Equal(t, 3, res.Failed())

	assert.Len(t, res.Outputs, 1)
	assert.Len(t, res.Coordinates, 2)
	assert.Equal(t, ordering.FilenameFallback, res.Ordering.Tag)
}

func TestMergeAllMalformedFailsBatch(t *testing.T) {
	sources := []Source{
		MemorySource("a.gpx", `nope`),
		MemorySource("b.gpx", `<notgpx/>`),
	}

	res, err := NewProcessor(Config{}, nil, nil).Process(sources)
	require.ErrorIs(t, err, ErrNoPoints)
	require.NotNil(t, res)
	assert.Len(t, res.Results, 2)
	assert.Empty(t, res.Outputs)
	assert.Nil(t, res.Stats)
	assert.Nil(t, res.Ordering)
	assert.Empty(t, res.Coordinates)
}

func TestMergeValidFilesWithoutPointsFailBatch(t *testing.T) {
	sources := []Source{MemorySource("waypoints.gpx", `<gpx><wpt lat="1" lon="1"/></gpx>`)}

	res, err := NewProcessor(Config{}, nil, nil).Process(sources)
	require.ErrorIs(t, err, ErrNoPoints)
	require.Len(t, res.Results, 1)
	assert.True(t, res.Results[0].Success)
	assert.Zero(t, res.Results[0].PointCount)
}

func TestMergeNoSources(t *testing.T) {
	_, err := NewProcessor(Config{}, nil, nil).Process(nil)
	assert.ErrorIs(t, err, ErrNoPoints)
}

func TestNormalizeProducesOneOutputPerGoodFile(t *testing.T) {
	sources := []Source{
		MemorySource("Day_1.gpx", buildGPX(
			trkpt{lat: 1.2, lon: 1, time: "2025-07-01T09:00:00Z"},
			trkpt{lat: 1.1, lon: 1, time: "2025-07-01T08:00:00Z"},
		)),
		MemorySource("Day_2.gpx", `<gpx><trk><trkseg><trkpt lat="2" lon="2"></trk></gpx>`),
		MemorySource("Day_3.gpx", buildGPX(trkpt{lat: 3, lon: 3, ele: "100"})),
		MemorySource("Day_4.gpx", `garbage`),
		MemorySource("Day_5.gpx", buildGPX()),
	}

	res, err := NewProcessor(Config{Mode: ModeNormalize, Now: fixedNow}, nil, nil).Process(sources)
	require.NoError(t, err)

	assert.Len(t, res.Results, 5)
	assert.Equal(t, 2, res.Failed())
	require.Len(t, res.Outputs, 3)
	assert.Equal(t, "Day_1_normalized.gpx", res.Outputs[0].Name)
	assert.Equal(t, "Day_3_normalized.gpx", res.Outputs[1].Name)
	assert.Equal(t, "Day_5_normalized.gpx", res.Outputs[2].Name)

	assert.Nil(t, res.Stats)
	assert.Nil(t, res.Ordering)
	assert.Empty(t, res.Coordinates)

	day1, err := gpx.Parse(res.Outputs[0].Content, res.Outputs[0].Name, nil)
	require.NoError(t, err)
	require.Len(t, day1, 2)
	assert.Equal(t, 1.1, day1[0].Lat, "points sorted by time within the file")
	assert.Contains(t, res.Outputs[0].Content, "<name>Day_1.gpx</name>")
}

func TestFileFilter(t *testing.T) {
	sources := []Source{
		MemorySource("Tour_Day_1.gpx", buildGPX(trkpt{lat: 1, lon: 1})),
		MemorySource("Tour_Day_2.gpx", buildGPX(trkpt{lat: 2, lon: 2})),
		MemorySource("Tour_Day_3.gpx", buildGPX(trkpt{lat: 3, lon: 3})),
	}

	cfg := Config{Files: []string{"Day_1", "Day_3"}, Now: fixedNow}
	res, err := NewProcessor(cfg, nil, nil).Process(sources)
	require.NoError(t, err)

	require.Len(t, res.Results, 2)
	assert.Equal(t, "Tour_Day_1.gpx", res.Results[0].FileName)
	assert.Equal(t, "Tour_Day_3.gpx", res.Results[1].FileName)
	assert.Equal(t, [][2]float64{{1, 1}, {3, 3}}, res.Coordinates)
}

func TestProgressReportedAfterEachFile(t *testing.T) {
	sources := []Source{
		MemorySource("a.gpx", buildGPX(trkpt{lat: 1, lon: 1})),
		MemorySource("b.gpx", `bad`),
		MemorySource("c.gpx", buildGPX(trkpt{lat: 2, lon: 2})),
		MemorySource("d.gpx", buildGPX(trkpt{lat: 3, lon: 3})),
	}

	var percents []float64
	var statuses []string
	progress := func(pct float64, status string) {
		percents = append(percents, pct)
		statuses = append(statuses, status)
	}

	_, err := NewProcessor(Config{Now: fixedNow}, nil, progress).Process(sources)
	require.NoError(t, err)

	assert.Equal(t, []float64{25, 50, 75, 100}, percents)
	assert.Equal(t, "Failed b.gpx", statuses[1])
	assert.Equal(t, "Processed d.gpx", statuses[3])
}

func TestMergedOutputUsesConfiguredLabels(t *testing.T) {
	cfg := Config{
		Title:        "Transdolomiti Complete Tour",
		Description:  "Complete 6-day Transdolomiti tour - all days combined",
		ActivityType: "cycling",
		MergedName:   "transdolomiti.gpx",
		Now:          fixedNow,
	}
	res, err := NewProcessor(cfg, nil, nil).Process([]Source{MemorySource("Day_1.gpx", buildGPX(trkpt{lat: 1, lon: 1}))})
	require.NoError(t, err)

	out := res.Outputs[0]
	assert.Equal(t, "transdolomiti.gpx", out.Name)
	assert.Contains(t, out.Content, "<name>Transdolomiti Complete Tour</name>")
	assert.Contains(t, out.Content, "<desc>Complete 6-day Transdolomiti tour - all days combined</desc>")
	assert.Contains(t, out.Content, "<type>cycling</type>")
	assert.Contains(t, out.Content, "<time>2025-07-10T12:00:00.000Z</time>")
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeMerge, m)

	m, err = ParseMode("Normalize")
	require.NoError(t, err)
	assert.Equal(t, ModeNormalize, m)

	_, err = ParseMode("split")
	assert.Error(t, err)
}

func TestMatchesFilter(t *testing.T) {
	tests := []struct {
		name    string
		filters []string
		want    bool
	}{
		{"Day_1.gpx", nil, true},
		{"Day_1.gpx", []string{"Day_1"}, true},
		{"Day_1.gpx", []string{"Day_2", "Day_1"}, true},
		{"Day_1.gpx", []string{"Day_2"}, false},
		{"Day_1.gpx", []string{""}, false},
		{"Day_1.gpx", []string{"", "Day"}, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchesFilter(tt.name, tt.filters), "%s %q", tt.name, tt.filters)
	}
}
