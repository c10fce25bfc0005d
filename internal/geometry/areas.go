package geometry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/sirupsen/logrus"

	"pourprice/server/internal/models"
)

// MarketArea is a named polygon on the map. Venues inside it form one
// comparable market for benchmarking purposes.
type MarketArea struct {
	Name    string
	polygon orb.Polygon
}

// Contains reports whether the point (lon, lat) falls inside the area.
func (a *MarketArea) Contains(lon, lat float64) bool {
	return planar.PolygonContains(a.polygon, orb.Point{lon, lat})
}

// AreaIndex holds all configured market areas and answers venue membership
// queries. It is immutable after loading.
type AreaIndex struct {
	areas  []MarketArea
	logger *logrus.Logger
}

// LoadAreas reads a GeoJSON feature collection of market-area polygons. Each
// feature needs a "name" property and a Polygon or MultiPolygon geometry;
// anything else is skipped with a warning.
func LoadAreas(path string, logger *logrus.Logger) (*AreaIndex, error) {
	if logger == nil {
		logger = logrus.New()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read market areas: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse market areas: %w", err)
	}

	idx := &AreaIndex{logger: logger}
	for _, feature := range fc.Features {
		name, _ := feature.Properties["name"].(string)
		if name == "" {
			logger.Warn("Skipping market area feature without a name property")
			continue
		}

		switch geom := feature.Geometry.(type) {
		case orb.Polygon:
			idx.areas = append(idx.areas, MarketArea{Name: name, polygon: geom})
		case orb.MultiPolygon:
			for _, polygon := range geom {
				idx.areas = append(idx.areas, MarketArea{Name: name, polygon: polygon})
			}
		default:
			logger.WithField("area", name).Warn("Skipping market area with non-polygon geometry")
		}
	}

	logger.WithFields(logrus.Fields{
		"path":  path,
		"areas": len(idx.areas),
	}).Info("Loaded market areas")
	return idx, nil
}

// NewAreaIndex builds an index from already constructed areas.
func NewAreaIndex(areas []MarketArea, logger *logrus.Logger) *AreaIndex {
	if logger == nil {
		logger = logrus.New()
	}
	return &AreaIndex{areas: areas, logger: logger}
}

// Names lists the distinct area names, sorted.
func (idx *AreaIndex) Names() []string {
	seen := map[string]bool{}
	var names []string
	for _, a := range idx.areas {
		if !seen[a.Name] {
			seen[a.Name] = true
			names = append(names, a.Name)
		}
	}
	sort.Strings(names)
	return names
}

// AreaFor returns the name of the first area containing the point.
func (idx *AreaIndex) AreaFor(lon, lat float64) (string, bool) {
	for _, a := range idx.areas {
		if a.Contains(lon, lat) {
			return a.Name, true
		}
	}
	return "", false
}

// VenuesIn filters venues to those whose coordinates fall inside the named
// area. Venues without coordinates never match.
func (idx *AreaIndex) VenuesIn(area string, venues []models.Venue) []string {
	var members []string
	for _, v := range venues {
		if v.Latitude == nil || v.Longitude == nil {
			continue
		}
		for _, a := range idx.areas {
			if a.Name == area && a.Contains(*v.Longitude, *v.Latitude) {
				members = append(members, v.Name)
				break
			}
		}
	}
	return members
}

// AreaFromVenues derives a market area as the convex hull of the venues'
// coordinates. At least three located venues are required.
func AreaFromVenues(name string, venues []models.Venue) (*MarketArea, error) {
	var points []orb.Point
	for _, v := range venues {
		if v.Latitude == nil || v.Longitude == nil {
			continue
		}
		points = append(points, orb.Point{*v.Longitude, *v.Latitude})
	}
	if len(points) < 3 {
		return nil, fmt.Errorf("need at least 3 located venues to derive area %q, got %d", name, len(points))
	}

	hull := convexHull(points)
	if len(hull) < 4 {
		return nil, fmt.Errorf("venues for area %q are collinear", name)
	}
	return &MarketArea{Name: name, polygon: orb.Polygon{hull}}, nil
}

// Save writes the index back out as a GeoJSON feature collection.
func (idx *AreaIndex) Save(path string) error {
	fc := geojson.NewFeatureCollection()
	for _, a := range idx.areas {
		feature := geojson.NewFeature(a.polygon)
		feature.Properties = geojson.Properties{"name": a.Name}
		fc.Features = append(fc.Features, feature)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create market areas file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(fc); err != nil {
		return fmt.Errorf("failed to encode market areas: %w", err)
	}
	return nil
}

// convexHull runs an Andrew monotone chain over the points and returns a
// closed ring in counter-clockwise order.
func convexHull(points []orb.Point) orb.Ring {
	pts := make([]orb.Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})

	cross := func(o, a, b orb.Point) float64 {
		return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
	}

	var lower []orb.Point
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	var upper []orb.Point
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(hull) < 3 {
		return nil
	}
	return orb.Ring(append(hull, hull[0]))
}
