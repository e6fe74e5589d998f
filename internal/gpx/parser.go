package gpx

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/planbiir/gpxmerge/internal/logging"
)

// Parse extracts the trackpoints of one GPX document in document order
// (track, segment, point). Waypoints and routes are only reported in the log.
// Points with missing or invalid coordinates are skipped; a document that is
// not XML or not GPX fails with a *ParseError.
func Parse(content, fileName string, log logging.Logger) ([]TrackPoint, error) {
	if log == nil {
		log = logging.Nop()
	}

	root, err := ParseDocument(content)
	if err != nil {
		logging.Logf(log, logging.LevelError, "  Error parsing %s: %v", fileName, err)
		return nil, &ParseError{File: fileName, Err: err}
	}

	if root.Name() != "gpx" {
		logging.Logf(log, logging.LevelError, "  Error parsing %s: %v", fileName, ErrNotGPX)
		return nil, &ParseError{File: fileName, Err: ErrNotGPX}
	}

	tracks := root.Children("trk")

	logging.Logf(log, logging.LevelDebug, "  Analyzing %s:", fileName)
	logging.Logf(log, logging.LevelDebug, "    Has tracks: %t", len(tracks) > 0)
	logging.Logf(log, logging.LevelDebug, "    Has waypoints: %t", len(root.Children("wpt")) > 0)
	logging.Logf(log, logging.LevelDebug, "    Has routes: %t", len(root.Children("rte")) > 0)

	var points []TrackPoint
	if len(tracks) > 0 {
		logging.Logf(log, logging.LevelDebug, "    Number of tracks: %d", len(tracks))
	}

	for _, trk := range tracks {
		segments := trk.Children("trkseg")
		logging.Logf(log, logging.LevelDebug, "    Number of track segments: %d", len(segments))

		for _, seg := range segments {
			for _, trkpt := range seg.Children("trkpt") {
				if point, ok := parsePoint(trkpt, fileName, log); ok {
					points = append(points, point)
				}
			}
		}
	}

	logging.Logf(log, logging.LevelInfo, "    Extracted %d valid track points from %s", len(points), fileName)

	return points, nil
}

func parsePoint(trkpt Element, fileName string, log logging.Logger) (TrackPoint, bool) {
	latStr, hasLat := trkpt.Attr("lat")
	lonStr, hasLon := trkpt.Attr("lon")
	if !hasLat || !hasLon || strings.TrimSpace(latStr) == "" || strings.TrimSpace(lonStr) == "" {
		log.Log(logging.LevelWarn, "    Skipping point without coordinates")
		return TrackPoint{}, false
	}

	lat, latErr := parseFinite(latStr)
	lon, lonErr := parseFinite(lonStr)
	if latErr != nil || lonErr != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		logging.Logf(log, logging.LevelWarn, "    Skipping invalid coordinates: lat=%s, lon=%s", latStr, lonStr)
		return TrackPoint{}, false
	}

	point := TrackPoint{Lat: lat, Lon: lon, SourceFile: fileName}

	if ele, ok := trkpt.Child("ele"); ok {
		text := strings.TrimSpace(ele.Text())
		if v, err := parseFinite(text); err == nil {
			point.Elevation = v
			point.HasElevation = true
		} else if text != "" {
			logging.Logf(log, logging.LevelDebug, "    Ignoring invalid elevation %q", text)
		}
	}

	if tm, ok := trkpt.Child("time"); ok {
		point.Time = strings.TrimSpace(tm.Text())
	}

	return point, true
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return v, nil
}
