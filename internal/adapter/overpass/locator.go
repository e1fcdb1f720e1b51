// Package overpass implements domain.JunctionLocator by classifying the
// OpenStreetMap highway junctions around a coordinate.
package overpass

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/serjvanilla/go-overpass"

	"github.com/couchcryptid/storefront-estimator/internal/domain"
	"github.com/couchcryptid/storefront-estimator/internal/observability"
)

const (
	// DefaultEndpoint is the public Overpass API interpreter.
	DefaultEndpoint = "https://overpass-api.de/api/interpreter"
	// DefaultRadius is the search radius around the location in meters.
	DefaultRadius = 150
	// MaxJunctions caps the sequence length.
	MaxJunctions = 3
)

// highwayClasses are the OSM highway values that carry passing traffic.
const highwayClasses = "motorway|trunk|primary|secondary|tertiary|unclassified|residential|living_street|service"

var mainRoads = map[string]bool{
	"motorway":  true,
	"trunk":     true,
	"primary":   true,
	"secondary": true,
}

type point struct {
	id       int64
	lat, lon float64
}

// highway is one OSM way with its ordered nodes.
type highway struct {
	id    int64
	class string
	nodes []point
}

// highwayFetcher loads the highways within radius meters of a coordinate.
type highwayFetcher interface {
	fetchHighways(ctx context.Context, lat, lon float64, radius int) ([]highway, error)
}

// Locator derives junction sequences from OSM data.
type Locator struct {
	fetcher highwayFetcher
	radius  int
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewLocator creates a Locator backed by an Overpass endpoint. An empty
// endpoint uses DefaultEndpoint.
func NewLocator(endpoint string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Locator {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	httpClient := &http.Client{
		Timeout: timeout,
	}
	client := overpass.NewWithSettings(endpoint, 2, httpClient)
	return &Locator{
		fetcher: &overpassFetcher{client: &client, timeout: timeout},
		radius:  DefaultRadius,
		metrics: metrics,
		logger:  logger,
	}
}

// LocateJunctions implements domain.JunctionLocator. The sequence lists the
// nearest junctions first.
func (l *Locator) LocateJunctions(ctx context.Context, lat, lon float64) (domain.JunctionSequence, error) {
	start := time.Now()
	ways, err := l.fetcher.fetchHighways(ctx, lat, lon, l.radius)
	l.metrics.CollaboratorDuration.WithLabelValues(observability.CollaboratorJunctions).Observe(time.Since(start).Seconds())
	if err != nil {
		l.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorJunctions, observability.OutcomeError).Inc()
		return nil, err
	}

	seq := classify(point{lat: lat, lon: lon}, ways, float64(l.radius), MaxJunctions)
	outcome := observability.OutcomeSuccess
	if len(seq) == 0 {
		outcome = observability.OutcomeEmpty
	}
	l.metrics.CollaboratorRequests.WithLabelValues(observability.CollaboratorJunctions, outcome).Inc()
	l.logger.Debug("junctions located", "lat", lat, "lon", lon, "ways", len(ways), "junctions", seq.String())
	return seq, nil
}

type junction struct {
	node      point
	arms      int
	neighbors []point
	classes   []string
	distance  float64
}

// classify finds nodes shared by two or more highways within radius meters
// of center and maps each to a junction code. Two-arm nodes where the road
// continues nearly straight are not junctions.
//
//	2 arms           B  (bend where one road turns into another)
//	3 arms           P  (T-junction)
//	4+ arms, minor   JK (crossing with a minor road)
//	4+ arms, major   M  (crossing of main roads)
func classify(center point, ways []highway, radius float64, limit int) domain.JunctionSequence {
	byNode := map[int64]*junction{}
	waysAt := map[int64]int{}

	for _, w := range ways {
		for i, n := range w.nodes {
			j, ok := byNode[n.id]
			if !ok {
				j = &junction{node: n}
				byNode[n.id] = j
			}
			waysAt[n.id]++
			if i > 0 {
				j.arms++
				j.neighbors = append(j.neighbors, w.nodes[i-1])
			}
			if i < len(w.nodes)-1 {
				j.arms++
				j.neighbors = append(j.neighbors, w.nodes[i+1])
			}
			j.classes = append(j.classes, w.class)
		}
	}

	var found []*junction
	for id, j := range byNode {
		if waysAt[id] < 2 || j.arms < 2 {
			continue
		}
		if j.arms == 2 && isStraight(j.node, j.neighbors[0], j.neighbors[1]) {
			continue
		}
		j.distance = haversineMeters(center, j.node)
		if j.distance <= radius {
			found = append(found, j)
		}
	}
	sort.Slice(found, func(a, b int) bool {
		if found[a].distance != found[b].distance {
			return found[a].distance < found[b].distance
		}
		return found[a].node.id < found[b].node.id
	})
	if len(found) > limit {
		found = found[:limit]
	}

	seq := make(domain.JunctionSequence, 0, len(found))
	for _, j := range found {
		seq = append(seq, junctionCode(j))
	}
	return seq
}

// straightAngle is the minimum angle, in degrees, between the two arms of a
// node for the road to count as continuing straight through it.
const straightAngle = 150.0

// isStraight reports whether the arms at via toward a and b are nearly
// opposite, using a local equirectangular projection.
func isStraight(via, a, b point) bool {
	k := math.Cos(via.lat * math.Pi / 180)
	ax, ay := (a.lon-via.lon)*k, a.lat-via.lat
	bx, by := (b.lon-via.lon)*k, b.lat-via.lat
	na, nb := math.Hypot(ax, ay), math.Hypot(bx, by)
	if na == 0 || nb == 0 {
		return false
	}
	cos := (ax*bx + ay*by) / (na * nb)
	angle := math.Acos(math.Max(-1, math.Min(1, cos))) * 180 / math.Pi
	return angle >= straightAngle
}

func junctionCode(j *junction) domain.JunctionCode {
	switch {
	case j.arms <= 2:
		return domain.JunctionTurn
	case j.arms == 3:
		return domain.JunctionTee
	}
	for _, c := range j.classes {
		if !mainRoads[c] {
			return domain.JunctionMinorRoad
		}
	}
	return domain.JunctionMainRoad
}

func haversineMeters(a, b point) float64 {
	const earthRadius = 6371000.0
	dLat := (b.lat - a.lat) * math.Pi / 180
	dLon := (b.lon - a.lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.lat*math.Pi/180)*math.Cos(b.lat*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadius * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// overpassFetcher queries the Overpass API.
type overpassFetcher struct {
	client  *overpass.Client
	timeout time.Duration
}

func (f *overpassFetcher) fetchHighways(ctx context.Context, lat, lon float64, radius int) ([]highway, error) {
	seconds := int(f.timeout.Seconds())
	if seconds < 1 {
		seconds = 25
	}
	query := fmt.Sprintf(`
		[out:json][timeout:%d];
		way["highway"~"^(%s)$"](around:%d,%f,%f);
		out body;
		>;
		out skel qt;
	`, seconds, highwayClasses, radius, lat, lon)

	type outcome struct {
		result overpass.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := f.client.Query(query)
		done <- outcome{r, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("overpass query: %w", ctx.Err())
	case o := <-done:
		if o.err != nil {
			return nil, fmt.Errorf("overpass query failed: %w", o.err)
		}
		return convertWays(&o.result), nil
	}
}

func convertWays(result *overpass.Result) []highway {
	ways := make([]highway, 0, len(result.Ways))
	for _, w := range result.Ways {
		h := highway{id: w.ID, class: w.Tags["highway"]}
		for _, n := range w.Nodes {
			if n == nil {
				continue
			}
			h.nodes = append(h.nodes, point{id: n.ID, lat: n.Lat, lon: n.Lon})
		}
		ways = append(ways, h)
	}
	sort.Slice(ways, func(a, b int) bool { return ways[a].id < ways[b].id })
	return ways
}
