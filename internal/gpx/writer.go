package gpx

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// MetadataTimeLayout is the layout of the generation timestamp in <metadata>.
const MetadataTimeLayout = "2006-01-02T15:04:05.000Z"

// Writer renders trackpoints as GPX 1.1 documents.
type Writer struct {
	// Title and Description label the merged document. Description defaults
	// to a summary of the number of combined files.
	Title        string
	Description  string
	ActivityType string
	MergedName   string

	// Now supplies the generation timestamp.
	Now func() time.Time
}

// NewWriter returns a Writer with the default labels.
func NewWriter() *Writer {
	return &Writer{
		Title:      "Merged Tour",
		MergedName: "merged.gpx",
		Now:        time.Now,
	}
}

// Merged renders every point into a single track with a single segment, in
// the order given.
func (w *Writer) Merged(points []TrackPoint, fileCount int) (Output, error) {
	desc := w.Description
	if desc == "" {
		desc = fmt.Sprintf("Complete tour - %d files combined", fileCount)
	}

	doc := w.newDocument("GPX Merger", w.Title, desc)
	doc.Tracks = []track{{
		Name:     w.Title,
		Type:     w.ActivityType,
		Segments: []segment{{Points: toWire(points)}},
	}}

	content, err := render(doc)
	if err != nil {
		return Output{}, err
	}

	name := w.MergedName
	if name == "" {
		name = "merged.gpx"
	}
	return Output{Name: name, Content: content}, nil
}

// Normalized renders the points of one source file as a single track named
// after that file.
func (w *Writer) Normalized(fileName string, points []TrackPoint) (Output, error) {
	doc := w.newDocument("GPX Normalizer", "Normalized: "+fileName, "Normalized GPX file from "+fileName)
	doc.Tracks = []track{{
		Name:     fileName,
		Segments: []segment{{Points: toWire(points)}},
	}}

	content, err := render(doc)
	if err != nil {
		return Output{}, err
	}
	return Output{Name: NormalizedName(fileName), Content: content}, nil
}

// NormalizedName derives the output name of a normalized file:
// "Day_1.gpx" becomes "Day_1_normalized.gpx".
func NormalizedName(fileName string) string {
	base := fileName
	if ext := filepath.Ext(fileName); strings.EqualFold(ext, ".gpx") {
		base = strings.TrimSuffix(fileName, ext)
	}
	return base + "_normalized.gpx"
}

// FormatCoordinate writes v with the fewest digits that parse back to
// exactly v.
func FormatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Save writes the output into dir and returns the full path.
func (o Output) Save(dir string) (string, error) {
	path := filepath.Join(dir, o.Name)
	if err := os.WriteFile(path, []byte(o.Content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func (w *Writer) newDocument(creator, name, desc string) document {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	return document{
		Version: "1.1",
		Creator: creator,
		XMLNS:   Namespace,
		Metadata: metadata{
			Name:        name,
			Description: desc,
			Time:        now().UTC().Format(MetadataTimeLayout),
		},
	}
}

func toWire(points []TrackPoint) []wirePoint {
	out := make([]wirePoint, len(points))
	for i, p := range points {
		wp := wirePoint{
			Lat:  FormatCoordinate(p.Lat),
			Lon:  FormatCoordinate(p.Lon),
			Time: p.Time,
		}
		if p.HasElevation {
			wp.Elevation = FormatCoordinate(p.Elevation)
		}
		out[i] = wp
	}
	return out
}

func render(doc document) (string, error) {
	var buf strings.Builder
	if err := encode(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func encode(w io.Writer, doc document) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}

	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode GPX: %w", err)
	}

	return nil
}
