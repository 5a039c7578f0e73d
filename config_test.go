package deepsort

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-deepsort/reid"
	"github.com/swdee/go-deepsort/source"
	"github.com/swdee/go-deepsort/tracker"
)

func TestParseConfigKeepsDefaults(t *testing.T) {

	cfg, err := ParseConfig([]byte(`
grace_window: 10
solver: greedy
classes: [person, car]
`))
	require.NoError(t, err)

	def := DefaultConfig()

	assert.Equal(t, 10, cfg.GraceWindow)
	assert.Equal(t, "greedy", cfg.Solver)
	assert.Equal(t, []string{"person", "car"}, cfg.Classes)
	assert.Equal(t, def.MinHits, cfg.MinHits)
	assert.Equal(t, def.MaxIoUDistance, cfg.MaxIoUDistance)
	assert.Equal(t, def.PrefetchDepth, cfg.PrefetchDepth)

	tc, err := cfg.TrackerConfig()
	require.NoError(t, err)
	assert.IsType(t, tracker.Greedy{}, tc.Solver)
	assert.Equal(t, 10, tc.GraceWindow)
	assert.Equal(t, reid.Cosine, tc.Metric)
}

func TestParseConfigInvalid(t *testing.T) {

	tests := []struct {
		name string
		doc  string
	}{
		{"bad yaml", "grace_window: [1"},
		{"unknown solver", "solver: hungarian"},
		{"unknown metric", "metric: manhattan"},
		{"zero grace window", "grace_window: 0"},
		{"lambda out of range", "lambda: 1.5"},
		{"gate probability", "gate_probability: 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {

	cfg := DefaultConfig()
	cfg.Lambda = 0.3
	cfg.Metric = "euclidean"
	cfg.MinConfidence = 0.25
	cfg.Classes = []string{"car"}

	data, err := cfg.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tracker.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadTaxonomy(t *testing.T) {

	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("person\n\n car \nbicycle\n"), 0o644))

	tax, err := LoadTaxonomy(path)
	require.NoError(t, err)

	assert.Equal(t, 3, tax.Len())
	assert.Equal(t, []string{"person", "car", "bicycle"}, tax.Names())

	id, ok := tax.Lookup("car")
	assert.True(t, ok)
	assert.Equal(t, ClassID(1), id)

	name, ok := tax.Name(2)
	assert.True(t, ok)
	assert.Equal(t, "bicycle", name)

	_, ok = tax.Name(3)
	assert.False(t, ok)
	assert.False(t, tax.Has("boat"))

	_, err = NewTaxonomy([]string{"person", "car", "person"})
	assert.Error(t, err)

	_, err = NewTaxonomy([]string{"person", ""})
	assert.Error(t, err)
}

func TestNewDetection(t *testing.T) {

	tax := testTaxonomy(t)

	// corner order is normalized
	raw := rawRect("car", 100, 50, -40, 30, 0.7)
	det, err := NewDetection(raw, testMeta, tax, 7)
	require.NoError(t, err)

	assert.Equal(t, int64(7), det.ID)
	assert.Equal(t, tracker.Rectangle, det.Shape.Kind)
	assert.Equal(t, float32(60), det.Shape.Rect.Tlwh[0])
	assert.Equal(t, float32(50), det.Shape.Rect.Tlwh[1])
	assert.Equal(t, float32(40), det.Shape.Rect.Tlwh[2])
	assert.Equal(t, float32(30), det.Shape.Rect.Tlwh[3])

	poly := source.RawDetection{
		Class:        "person",
		GeometryType: source.GeometryPolygon,
		Points:       [][2]float32{{10, 10}, {50, 10}, {50, 60}, {10, 60}},
		Feature:      []float32{1, 0},
	}

	det, err = NewDetection(poly, testMeta, tax, 8)
	require.NoError(t, err)
	assert.Equal(t, tracker.Polygon, det.Shape.Kind)
	assert.Len(t, det.Shape.Points, 4)
	assert.Equal(t, float32(40), det.Shape.Bounds().Tlwh[2])
	assert.Equal(t, []float32{1, 0}, det.Feature)

	// any class is accepted without a taxonomy
	_, err = NewDetection(rawRect("boat", 10, 10, 5, 5, 1), testMeta, nil, 9)
	assert.NoError(t, err)

	// partly outside the canvas is kept
	_, err = NewDetection(rawRect("car", 620, 460, 50, 50, 1), testMeta, tax, 10)
	assert.NoError(t, err)
}

func TestNewDetectionInvalid(t *testing.T) {

	tax := testTaxonomy(t)

	tests := []struct {
		name string
		raw  source.RawDetection
		err  error
	}{
		{"unknown class", rawRect("boat", 10, 10, 5, 5, 1), ErrUnknownClass},
		{"zero width", rawRect("car", 10, 10, 0, 5, 1), ErrInvalidGeometry},
		{"outside canvas", rawRect("car", -100, -100, 50, 50, 1), ErrInvalidGeometry},
		{"rectangle one point", source.RawDetection{Class: "car", GeometryType: source.GeometryRectangle,
			Points: [][2]float32{{1, 1}}}, ErrInvalidGeometry},
		{"polygon two points", source.RawDetection{Class: "car", GeometryType: source.GeometryPolygon,
			Points: [][2]float32{{1, 1}, {5, 5}}}, ErrInvalidGeometry},
		{"collinear polygon", source.RawDetection{Class: "car", GeometryType: source.GeometryPolygon,
			Points: [][2]float32{{1, 1}, {5, 5}, {9, 9}}}, ErrInvalidGeometry},
		{"unknown geometry", source.RawDetection{Class: "car", GeometryType: "ellipse",
			Points: [][2]float32{{1, 1}, {5, 5}}}, ErrInvalidGeometry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDetection(tt.raw, testMeta, tax, 1)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
