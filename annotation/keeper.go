package annotation

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/swdee/go-deepsort/tracker"
)

var (
	// ErrUnknownClass is returned when a track class is missing from the
	// class taxonomy
	ErrUnknownClass = errors.New("unknown class")
	// ErrInvalidCanvas is returned for a non positive canvas size or a
	// negative frame count
	ErrInvalidCanvas = errors.New("invalid canvas")
)

// Classes is the set of class names objects may be annotated with
type Classes interface {
	Has(name string) bool
}

// DefaultNamespace seeds the object and figure keys
var DefaultNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("go-deepsort/annotation"))

// Keeper reconciles the tracks of a video into a Video annotation
type Keeper struct {
	size        Size
	framesCount int
	classes     Classes
	graceWindow int
	namespace   uuid.UUID
	description string
	tags        []Tag
}

// NewKeeper returns a Keeper for a canvas of the given size and number of
// frames.  classes may be nil to accept any class.  graceWindow is the
// smallest gap in frames at which a track history is split into separate
// objects
func NewKeeper(size Size, framesCount int, classes Classes, graceWindow int) (*Keeper, error) {

	if size.Width <= 0 || size.Height <= 0 || framesCount < 0 {
		return nil, fmt.Errorf("%w: %dx%d with %d frames", ErrInvalidCanvas,
			size.Width, size.Height, framesCount)
	}

	if graceWindow < 1 {
		graceWindow = 1
	}

	return &Keeper{
		size:        size,
		framesCount: framesCount,
		classes:     classes,
		graceWindow: graceWindow,
		namespace:   DefaultNamespace,
	}, nil
}

// SetNamespace changes the namespace keys are derived from, use a different
// namespace per video so keys do not collide between videos
func (k *Keeper) SetNamespace(ns uuid.UUID) {
	k.namespace = ns
}

// SetDescription sets the video description
func (k *Keeper) SetDescription(desc string) {
	k.description = desc
}

// AddVideoTag attaches a tag to the whole video
func (k *Keeper) AddVideoTag(name, value string) {
	k.tags = append(k.tags, Tag{Name: name, Value: value, FrameRange: [2]int{0, max(k.framesCount-1, 0)}})
}

// segment is a run of history entries without a gap of graceWindow frames
type segment struct {
	trackID int
	index   int
	class   string
	entries []tracker.Entry
	tags    []tracker.TagSpan
}

// objectFigures is an object and its figures by frame
type objectFigures struct {
	object  Object
	index   int
	figures []frameFigure
}

type frameFigure struct {
	frame  int
	figure Figure
}

// Build creates the video annotation from the track records.  Tracks that
// never reached confirmation are skipped.  The result only depends on the
// input, calling Build twice with the same records gives identical output
func (k *Keeper) Build(tracks []tracker.TrackRecord) (*Video, error) {

	canvas := k.size.Rect()

	var objs []objectFigures

	for _, rec := range tracks {

		if !rec.EverConfirmed || len(rec.History) == 0 {
			continue
		}

		if k.classes != nil && !k.classes.Has(rec.Class) {
			return nil, fmt.Errorf("%w: track %d has class %q", ErrUnknownClass, rec.ID, rec.Class)
		}

		for _, seg := range k.split(rec) {

			obj, ok := k.buildObject(seg, canvas)

			if ok {
				objs = append(objs, obj)
			}
		}
	}

	sort.SliceStable(objs, func(a, b int) bool {
		oa, ob := objs[a].object, objs[b].object
		if oa.FirstFrame != ob.FirstFrame {
			return oa.FirstFrame < ob.FirstFrame
		}
		if oa.TrackID != ob.TrackID {
			return oa.TrackID < ob.TrackID
		}
		return objs[a].index < objs[b].index
	})

	video := &Video{
		Key:         k.key("video").String(),
		Size:        k.size,
		FramesCount: k.framesCount,
		Description: k.description,
		Tags:        append([]Tag{}, k.tags...),
		Objects:     make([]Object, 0, len(objs)),
		Frames:      []Frame{},
	}

	byFrame := make(map[int][]Figure)

	for _, obj := range objs {

		video.Objects = append(video.Objects, obj.object)

		for _, ff := range obj.figures {
			byFrame[ff.frame] = append(byFrame[ff.frame], ff.figure)
		}
	}

	indices := make([]int, 0, len(byFrame))

	for idx := range byFrame {
		indices = append(indices, idx)
	}

	sort.Ints(indices)

	for _, idx := range indices {
		video.Frames = append(video.Frames, Frame{Index: idx, Figures: byFrame[idx]})
	}

	return video, nil
}

// split divides a track history into segments at every gap of at least
// graceWindow missing frames
func (k *Keeper) split(rec tracker.TrackRecord) []segment {

	var out []segment

	cur := segment{trackID: rec.ID, class: rec.Class, tags: rec.Tags}

	for i, e := range rec.History {

		if i > 0 {
			gap := e.Frame - rec.History[i-1].Frame - 1

			if gap >= k.graceWindow {
				out = append(out, cur)
				cur = segment{trackID: rec.ID, index: cur.index + 1, class: rec.Class, tags: rec.Tags}
			}
		}

		cur.entries = append(cur.entries, e)
	}

	return append(out, cur)
}

// buildObject converts a segment into an object with one figure per frame.
// Frames missing inside the segment carry the last known geometry forward.
// The boolean is false when no figure remains on the canvas
func (k *Keeper) buildObject(seg segment, canvas tracker.Rect) (objectFigures, bool) {

	objKey := k.key(fmt.Sprintf("object/%d/%d", seg.trackID, seg.index)).String()

	out := objectFigures{index: seg.index}

	add := func(frame int, shape tracker.Shape) {

		if frame < 0 || frame >= k.framesCount {
			return
		}

		clipped, ok := clipShape(shape, canvas)

		if !ok {
			return
		}

		out.figures = append(out.figures, frameFigure{
			frame: frame,
			figure: Figure{
				Key:       k.key(fmt.Sprintf("figure/%d/%d/%d", seg.trackID, seg.index, frame)).String(),
				ObjectKey: objKey,
				Shape:     clipped,
			},
		})
	}

	for i, e := range seg.entries {

		if i > 0 {
			prev := seg.entries[i-1]

			for f := prev.Frame + 1; f < e.Frame; f++ {
				add(f, prev.Shape)
			}
		}

		add(e.Frame, e.Shape)
	}

	if len(out.figures) == 0 {
		return out, false
	}

	first := out.figures[0].frame
	last := out.figures[len(out.figures)-1].frame

	out.object = Object{
		Key:        objKey,
		TrackID:    seg.trackID,
		Class:      seg.class,
		Tags:       segmentTags(seg.tags, first, last),
		FirstFrame: first,
		LastFrame:  last,
	}

	return out, true
}

// segmentTags clamps tag frame ranges to [first, last] and drops tags that
// were not seen inside it
func segmentTags(spans []tracker.TagSpan, first, last int) []Tag {

	out := []Tag{}

	for _, s := range spans {

		a := max(s.First, first)
		b := min(s.Last, last)

		if a > b {
			continue
		}

		out = append(out, Tag{
			Name:       s.Tag.Name,
			Value:      s.Tag.Value,
			FrameRange: [2]int{a, b},
		})
	}

	return out
}

// key derives a deterministic key within the keeper namespace
func (k *Keeper) key(name string) uuid.UUID {
	return uuid.NewSHA1(k.namespace, []byte(name))
}
