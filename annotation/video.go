// Package annotation folds tracked object histories into a single video level
// annotation with stable object identities, per frame figures and tags.
package annotation

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/swdee/go-deepsort/tracker"
)

// Size is the canvas size of the video in pixels
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect returns the canvas as a rectangle anchored at the origin
func (s Size) Rect() tracker.Rect {
	return tracker.NewRect(0, 0, float32(s.Width), float32(s.Height))
}

// Tag is a name/value label attached to an object for a range of frames
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
	// FrameRange is the inclusive [first, last] frame the tag applies to
	FrameRange [2]int `json:"frameRange"`
}

// Object is one tracked identity in the video
type Object struct {
	// Key is a stable unique key of the object
	Key string `json:"key"`
	// TrackID is the tracker identity the object was built from
	TrackID int `json:"trackId"`
	// Class is the class name of the object
	Class string `json:"classTitle"`
	Tags  []Tag  `json:"tags"`
	// FirstFrame and LastFrame bound the frames the object has figures on
	FirstFrame int `json:"-"`
	LastFrame  int `json:"-"`
}

// Figure is the geometry of an object on one frame
type Figure struct {
	Key       string
	ObjectKey string
	Shape     tracker.Shape
}

type figureJSON struct {
	Key          string       `json:"key"`
	ObjectKey    string       `json:"objectKey"`
	GeometryType string       `json:"geometryType"`
	Geometry     geometryJSON `json:"geometry"`
}

type geometryJSON struct {
	Points pointsJSON `json:"points"`
}

type pointsJSON struct {
	Exterior [][2]int `json:"exterior"`
	Interior [][2]int `json:"interior"`
}

// MarshalJSON encodes the figure with rectangles as their top left and
// bottom right corners and polygons as their exterior ring
func (f Figure) MarshalJSON() ([]byte, error) {

	out := figureJSON{
		Key:          f.Key,
		ObjectKey:    f.ObjectKey,
		GeometryType: f.Shape.Kind.String(),
		Geometry: geometryJSON{
			Points: pointsJSON{Interior: [][2]int{}},
		},
	}

	switch f.Shape.Kind {
	case tracker.Rectangle:
		r := f.Shape.Rect
		out.Geometry.Points.Exterior = [][2]int{
			{round(r.X()), round(r.Y())},
			{round(r.BRX()), round(r.BRY())},
		}

	case tracker.Polygon:
		for _, p := range f.Shape.Points {
			out.Geometry.Points.Exterior = append(out.Geometry.Points.Exterior,
				[2]int{round(p.X), round(p.Y)})
		}

	default:
		return nil, fmt.Errorf("figure %s has unknown geometry", f.Key)
	}

	return json.Marshal(out)
}

func round(v float32) int {
	return int(math.Round(float64(v)))
}

// Frame holds the figures present on one frame
type Frame struct {
	Index   int      `json:"index"`
	Figures []Figure `json:"figures"`
}

// Video is the annotation of a whole video segment
type Video struct {
	Key         string   `json:"key"`
	Size        Size     `json:"size"`
	FramesCount int      `json:"framesCount"`
	Description string   `json:"description"`
	Tags        []Tag    `json:"tags"`
	Objects     []Object `json:"objects"`
	Frames      []Frame  `json:"frames"`
}

// Object returns the object with the given key
func (v *Video) Object(key string) (Object, bool) {
	for _, o := range v.Objects {
		if o.Key == key {
			return o, true
		}
	}
	return Object{}, false
}

// Frame returns the frame with the given index, frames without figures are
// not stored
func (v *Video) Frame(index int) (Frame, bool) {
	for _, f := range v.Frames {
		if f.Index == index {
			return f, true
		}
	}
	return Frame{}, false
}

// Figures returns all figures of an object ordered by frame index
func (v *Video) Figures(objectKey string) []Frame {

	var out []Frame

	for _, f := range v.Frames {
		for _, fig := range f.Figures {
			if fig.ObjectKey == objectKey {
				out = append(out, Frame{Index: f.Index, Figures: []Figure{fig}})
			}
		}
	}

	return out
}

// FiguresCount returns the total number of figures over all frames
func (v *Video) FiguresCount() int {
	n := 0
	for _, f := range v.Frames {
		n += len(f.Figures)
	}
	return n
}

// MarshalIndent encodes the annotation as indented JSON
func (v *Video) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
