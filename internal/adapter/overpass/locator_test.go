package overpass

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/serjvanilla/go-overpass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storefront-estimator/internal/domain"
	"github.com/couchcryptid/storefront-estimator/internal/observability"
)

// Offsets of 0.0005° are roughly 55 m at the equator.
var (
	origin = point{id: 100, lat: 0, lon: 0}
	west   = point{id: 1, lat: 0, lon: -0.0005}
	east   = point{id: 2, lat: 0, lon: 0.0005}
	north  = point{id: 3, lat: 0.0005, lon: 0}
	south  = point{id: 4, lat: -0.0005, lon: 0}
)

func way(id int64, class string, nodes ...point) highway {
	return highway{id: id, class: class, nodes: nodes}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		ways []highway
		want domain.JunctionSequence
	}{
		{
			name: "bend",
			ways: []highway{way(10, "residential", west, origin), way(11, "residential", origin, north)},
			want: domain.JunctionSequence{domain.JunctionTurn},
		},
		{
			name: "straight continuation is not a junction",
			ways: []highway{way(10, "primary", west, origin), way(11, "primary", origin, east)},
			want: domain.JunctionSequence{},
		},
		{
			name: "T-junction",
			ways: []highway{way(10, "primary", west, origin, east), way(11, "residential", origin, north)},
			want: domain.JunctionSequence{domain.JunctionTee},
		},
		{
			name: "crossing with minor road",
			ways: []highway{way(10, "primary", west, origin, east), way(11, "residential", north, origin, south)},
			want: domain.JunctionSequence{domain.JunctionMinorRoad},
		},
		{
			name: "crossing of main roads",
			ways: []highway{way(10, "primary", west, origin, east), way(11, "trunk", north, origin, south)},
			want: domain.JunctionSequence{domain.JunctionMainRoad},
		},
		{
			name: "single road",
			ways: []highway{way(10, "secondary", west, origin, east)},
			want: domain.JunctionSequence{},
		},
		{
			name: "no roads",
			want: domain.JunctionSequence{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(point{lat: 0.0001, lon: 0.0001}, tt.ways, DefaultRadius, MaxJunctions)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_OutsideRadius(t *testing.T) {
	ways := []highway{way(10, "primary", west, origin, east), way(11, "residential", origin, north)}
	got := classify(point{lat: 0.01, lon: 0}, ways, DefaultRadius, MaxJunctions)
	assert.Empty(t, got)
}

func TestClassify_NearestFirstAndLimited(t *testing.T) {
	// A main road along the equator with side streets every 0.0004°.
	var mainNodes []point
	var ways []highway
	for i := int64(0); i < 6; i++ {
		n := point{id: 200 + i, lat: 0, lon: float64(i) * 0.0004}
		mainNodes = append(mainNodes, n)
		if i > 0 && i < 5 {
			ways = append(ways, way(300+i, "residential", n, point{id: 400 + i, lat: 0.0005, lon: n.lon}))
		}
	}
	ways = append(ways, way(1, "primary", mainNodes...))

	got := classify(point{lat: 0, lon: 0.0004}, ways, 1000, 3)

	require.Len(t, got, 3)
	for _, c := range got {
		assert.Equal(t, domain.JunctionTee, c)
	}
}

func TestIsStraight(t *testing.T) {
	assert.True(t, isStraight(origin, west, east))
	assert.False(t, isStraight(origin, west, north))
	assert.False(t, isStraight(origin, origin, east))
}

func TestHaversineMeters(t *testing.T) {
	d := haversineMeters(point{lat: 0, lon: 0}, point{lat: 0, lon: 1})
	assert.InDelta(t, 111195, d, 1)
}

type fakeFetcher struct {
	ways   []highway
	err    error
	radius int
}

func (f *fakeFetcher) fetchHighways(_ context.Context, _, _ float64, radius int) ([]highway, error) {
	f.radius = radius
	return f.ways, f.err
}

func testLocator(f highwayFetcher) *Locator {
	return &Locator{
		fetcher: f,
		radius:  DefaultRadius,
		metrics: observability.NewMetricsForTesting(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestLocator_LocateJunctions(t *testing.T) {
	f := &fakeFetcher{ways: []highway{way(10, "primary", west, origin, east), way(11, "residential", origin, north)}}
	l := testLocator(f)

	seq, err := l.LocateJunctions(context.Background(), 0, 0)
	require.NoError(t, err)

	assert.Equal(t, domain.JunctionSequence{domain.JunctionTee}, seq)
	assert.Equal(t, DefaultRadius, f.radius)
	assert.Equal(t, 1.0, testutil.ToFloat64(l.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorJunctions, observability.OutcomeSuccess)))
}

func TestLocator_Error(t *testing.T) {
	l := testLocator(&fakeFetcher{err: errors.New("overpass query failed: 504")})

	_, err := l.LocateJunctions(context.Background(), 0, 0)
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(l.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorJunctions, observability.OutcomeError)))
}

func TestLocator_Empty(t *testing.T) {
	l := testLocator(&fakeFetcher{})

	seq, err := l.LocateJunctions(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, seq)
	assert.Equal(t, 1.0, testutil.ToFloat64(l.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorJunctions, observability.OutcomeEmpty)))
}

func TestConvertWays(t *testing.T) {
	n1 := &overpass.Node{Meta: overpass.Meta{ID: 1}, Lat: 1, Lon: 2}
	n2 := &overpass.Node{Meta: overpass.Meta{ID: 2}, Lat: 3, Lon: 4}
	result := &overpass.Result{
		Ways: map[int64]*overpass.Way{
			20: {Meta: overpass.Meta{ID: 20, Tags: map[string]string{"highway": "tertiary"}}, Nodes: []*overpass.Node{n2, nil}},
			10: {Meta: overpass.Meta{ID: 10, Tags: map[string]string{"highway": "primary"}}, Nodes: []*overpass.Node{n1, n2}},
		},
	}

	got := convertWays(result)

	require.Len(t, got, 2)
	assert.Equal(t, int64(10), got[0].id)
	assert.Equal(t, "primary", got[0].class)
	assert.Equal(t, []point{{id: 1, lat: 1, lon: 2}, {id: 2, lat: 3, lon: 4}}, got[0].nodes)
	assert.Len(t, got[1].nodes, 1)
}

func TestNewLocator_Defaults(t *testing.T) {
	l := NewLocator("", 0, observability.NewMetricsForTesting(), slog.Default())
	assert.Equal(t, DefaultRadius, l.radius)
	assert.IsType(t, &overpassFetcher{}, l.fetcher)
}
