package scene

// FeatureCollection is a GeoJSON (RFC 7946) collection of marker points.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a single marker.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Point          `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Point holds [lng, lat].
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// FeatureCollection converts the snapshot's markers into GeoJSON points.
func (s Snapshot) FeatureCollection() FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(s.Markers))}
	for _, m := range s.Markers {
		open := s.OpenMarker != nil && *s.OpenMarker == m.Handle
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Geometry: Point{
				Type:        "Point",
				Coordinates: [2]float64{m.Position.Lng, m.Position.Lat},
			},
			Properties: map[string]any{
				"id":     m.MachineID,
				"name":   m.Title,
				"handle": m.Handle,
				"status": m.Status,
				"color":  m.Color,
				"kind":   m.Kind,
				"blink":  m.Blink,
				"open":   open,
			},
		})
	}
	return fc
}
