package annotation

import (
	"math"

	clipper "github.com/ctessum/go.clipper"
	"github.com/swdee/go-deepsort/tracker"
)

// clipScale converts pixel coordinates to clipper integer coordinates,
// keeping two decimal places
const clipScale = 100

// clipShape clips a shape to the canvas.  The boolean is false when nothing
// of the shape remains inside the canvas
func clipShape(s tracker.Shape, canvas tracker.Rect) (tracker.Shape, bool) {

	switch s.Kind {
	case tracker.Rectangle:
		r, ok := s.Rect.Intersect(canvas)
		if !ok {
			return tracker.Shape{}, false
		}
		return tracker.NewRectShape(r), true

	case tracker.Polygon:
		return clipPolygon(s.Points, canvas)
	}

	return tracker.Shape{}, false
}

// clipPolygon intersects the polygon with the canvas rectangle.  If the
// intersection splits into several pieces the largest is kept
func clipPolygon(points []tracker.Point, canvas tracker.Rect) (tracker.Shape, bool) {

	if len(points) < 3 {
		return tracker.Shape{}, false
	}

	// polygon fully inside the canvas is kept as is
	bounds := tracker.NewPolygonShape(points).Bounds()

	if inter, ok := bounds.Intersect(canvas); ok && inter == bounds {
		return tracker.NewPolygonShape(points), true
	}

	subject := make(clipper.Path, 0, len(points))

	for _, p := range points {
		subject = append(subject, toIntPoint(p.X, p.Y))
	}

	tlbr := canvas.GetTlbr()
	clip := clipper.Path{
		toIntPoint(tlbr[0], tlbr[1]),
		toIntPoint(tlbr[2], tlbr[1]),
		toIntPoint(tlbr[2], tlbr[3]),
		toIntPoint(tlbr[0], tlbr[3]),
	}

	c := clipper.NewClipper(0)
	c.AddPath(subject, clipper.PtSubject, true)
	c.AddPath(clip, clipper.PtClip, true)

	solution, ok := c.Execute1(clipper.CtIntersection, clipper.PftNonZero, clipper.PftNonZero)

	if !ok || len(solution) == 0 {
		return tracker.Shape{}, false
	}

	var best tracker.Shape
	bestArea := float32(0)

	for _, path := range solution {

		pts := make([]tracker.Point, 0, len(path))

		for _, ip := range path {
			pts = append(pts, tracker.Point{
				X: float32(ip.X) / clipScale,
				Y: float32(ip.Y) / clipScale,
			})
		}

		shape := tracker.NewPolygonShape(pts)

		if a := shape.Area(); a > bestArea {
			best = shape
			bestArea = a
		}
	}

	if bestArea <= 0 {
		return tracker.Shape{}, false
	}

	return best, true
}

func toIntPoint(x, y float32) *clipper.IntPoint {
	return &clipper.IntPoint{
		X: clipper.CInt(math.Round(float64(x) * clipScale)),
		Y: clipper.CInt(math.Round(float64(y) * clipScale)),
	}
}
