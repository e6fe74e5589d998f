package gpx

import (
	"encoding/xml"
	"errors"
	"fmt"
)

// Namespace is the GPX 1.1 namespace written into every generated document.
const Namespace = "http://www.topografix.com/GPX/1/1"

// TrackPoint is a single validated trackpoint. It is a value type and is
// never modified after the parser creates it.
type TrackPoint struct {
	Lat float64
	Lon float64

	// Elevation is meaningful only when HasElevation is set.
	Elevation    float64
	HasElevation bool

	// Time is the <time> text as found in the source, empty when absent.
	Time string

	SourceFile string
}

// HasTime reports whether the point carried a <time> element.
func (p TrackPoint) HasTime() bool {
	return p.Time != ""
}

// Output is a generated GPX document together with its suggested file name.
type Output struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ErrNotGPX is returned when a document's root element is not <gpx>.
var ErrNotGPX = errors.New("invalid GPX file: root element is not <gpx>")

// ParseError is a file-level failure: the document could not be read as GPX.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// document is the wire shape of a generated GPX file.
type document struct {
	XMLName  xml.Name `xml:"gpx"`
	Version  string   `xml:"version,attr"`
	Creator  string   `xml:"creator,attr"`
	XMLNS    string   `xml:"xmlns,attr"`
	Metadata metadata `xml:"metadata"`
	Tracks   []track  `xml:"trk"`
}

type metadata struct {
	Name        string `xml:"name,omitempty"`
	Description string `xml:"desc,omitempty"`
	Time        string `xml:"time,omitempty"`
}

type track struct {
	Name     string    `xml:"name,omitempty"`
	Type     string    `xml:"type,omitempty"`
	Segments []segment `xml:"trkseg"`
}

type segment struct {
	Points []wirePoint `xml:"trkpt"`
}

// wirePoint keeps coordinates as text so that values are written exactly as
// formatted, never re-rounded by the encoder.
type wirePoint struct {
	Lat       string `xml:"lat,attr"`
	Lon       string `xml:"lon,attr"`
	Elevation string `xml:"ele,omitempty"`
	Time      string `xml:"time,omitempty"`
}
