// Package spatial answers radius and nearest-neighbour questions over property locations.
// Candidates are narrowed with a latitude/longitude bounding box and then checked with
// the exact haversine distance, which is enough for catalogs of moderate size.
package spatial

import (
	"bytes"
	"math"
	"search-analytics-service/internal/core/domain"
	"search-analytics-service/internal/core/port"
	"sort"

	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"
	"github.com/umahmood/haversine"
)

// earthRadiusKm matches the radius haversine.Distance uses for kilometres.
const earthRadiusKm = 6371.0

// boundaryEpsilonKm absorbs float rounding so that a point exactly on the circle is included.
const boundaryEpsilonKm = 1e-9

const geohashPrecision = 7 // ~153m x 153m

type Point struct {
	ID       uuid.UUID
	Location domain.Coordinate
}

type Hit struct {
	ID         uuid.UUID
	DistanceKm float64
}

type Index struct {
	points []Point
}

func NewIndex(points []Point) *Index {
	copied := make([]Point, len(points))
	copy(copied, points)
	return &Index{points: copied}
}

// NewIndexFromProperties indexes the location of every property.
func NewIndexFromProperties(properties []domain.Property) *Index {
	points := make([]Point, 0, len(properties))
	for _, p := range properties {
		points = append(points, Point{ID: p.ID, Location: p.Location})
	}
	return &Index{points: points}
}

func (i *Index) Len() int { return len(i.points) }

// QueryRadius returns every point within radiusKm of center, nearest first.
// Points exactly at the radius are included. No match yields an empty slice.
func (i *Index) QueryRadius(center domain.Coordinate, radiusKm float64) []Hit {
	hits := make([]Hit, 0)
	if radiusKm < 0 {
		return hits
	}

	box := BoundingBoxFor(center, radiusKm)
	for _, p := range i.points {
		if !Contains(box, p.Location) {
			continue
		}
		d := Distance(center, p.Location)
		if d <= radiusKm+boundaryEpsilonKm {
			hits = append(hits, Hit{ID: p.ID, DistanceKm: d})
		}
	}

	sortHits(hits)
	return hits
}

// Nearest returns up to k points closest to center.
func (i *Index) Nearest(center domain.Coordinate, k int) []Hit {
	if k <= 0 {
		return []Hit{}
	}
	hits := make([]Hit, 0, len(i.points))
	for _, p := range i.points {
		hits = append(hits, Hit{ID: p.ID, DistanceKm: Distance(center, p.Location)})
	}
	sortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Distance is the great-circle distance in kilometres.
func Distance(a, b domain.Coordinate) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: a.Latitude, Lon: a.Longitude},
		haversine.Coord{Lat: b.Latitude, Lon: b.Longitude},
	)
	return km
}

// BoundingBoxFor returns the smallest lat/lon box that contains the whole circle.
// The radius is widened by the same epsilon as the exact check so the box never drops a boundary point.
func BoundingBoxFor(center domain.Coordinate, radiusKm float64) port.BoundingBox {
	angular := (radiusKm + boundaryEpsilonKm) / earthRadiusKm // radians
	latDelta := toDegrees(angular)

	box := port.BoundingBox{
		MinLatitude: center.Latitude - latDelta,
		MaxLatitude: center.Latitude + latDelta,
	}

	// circle reaches a pole: every longitude is inside
	if box.MinLatitude <= -90 || box.MaxLatitude >= 90 {
		box.MinLatitude = math.Max(box.MinLatitude, -90)
		box.MaxLatitude = math.Min(box.MaxLatitude, 90)
		box.MinLongitude = -180
		box.MaxLongitude = 180
		return box
	}

	sinAngular := math.Sin(angular)
	cosLat := math.Cos(toRadians(center.Latitude))
	if sinAngular >= cosLat {
		box.MinLongitude = -180
		box.MaxLongitude = 180
		return box
	}
	lonDelta := toDegrees(math.Asin(sinAngular / cosLat))
	if lonDelta >= 180 {
		box.MinLongitude = -180
		box.MaxLongitude = 180
		return box
	}

	box.MinLongitude = normalizeLongitude(center.Longitude - lonDelta)
	box.MaxLongitude = normalizeLongitude(center.Longitude + lonDelta)
	return box
}

// Contains checks the coordinate against the box, honouring antimeridian wrap.
func Contains(box port.BoundingBox, c domain.Coordinate) bool {
	if c.Latitude < box.MinLatitude || c.Latitude > box.MaxLatitude {
		return false
	}
	if box.MinLongitude <= box.MaxLongitude {
		return c.Longitude >= box.MinLongitude && c.Longitude <= box.MaxLongitude
	}
	return c.Longitude >= box.MinLongitude || c.Longitude <= box.MaxLongitude
}

// Geohash encodes the coordinate for result cards and cache keys.
func Geohash(c domain.Coordinate) string {
	return geohash.EncodeWithPrecision(c.Latitude, c.Longitude, geohashPrecision)
}

func sortHits(hits []Hit) {
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].DistanceKm != hits[b].DistanceKm {
			return hits[a].DistanceKm < hits[b].DistanceKm
		}
		return bytes.Compare(hits[a].ID[:], hits[b].ID[:]) < 0
	})
}

func normalizeLongitude(lon float64) float64 {
	for lon < -180 {
		lon += 360
	}
	for lon > 180 {
		lon -= 360
	}
	return lon
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }
func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }
