package machines

import (
	"fmt"
	"math"
	"strings"
)

// Position is a WGS84 coordinate in decimal degrees.
type Position struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Finite reports whether both coordinates are usable numbers.
func (p Position) Finite() bool {
	return !math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0) &&
		!math.IsNaN(p.Lng) && !math.IsInf(p.Lng, 0)
}

// Kind selects the icon drawn for a machine.
type Kind string

const (
	KindHarvester Kind = "harvester"
	KindForwarder Kind = "forwarder"
)

// Record describes one machine of the fleet.
type Record struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	Model           string   `json:"model" yaml:"model"`
	SerialNumber    string   `json:"serialNumber" yaml:"serialNumber"`
	ManufactureYear int      `json:"manufactureYear" yaml:"manufactureYear"`
	OperatorName    string   `json:"operatorName" yaml:"operatorName"`
	Position        Position `json:"position" yaml:"position"`
	Status          Status   `json:"status" yaml:"status"`
}

// Kind derives the icon kind from the machine name. Anything that is not a
// forwarder is drawn as a harvester.
func (r Record) Kind() Kind {
	if strings.Contains(strings.ToLower(r.Name), "forwarder") {
		return KindForwarder
	}
	return KindHarvester
}

// Validate checks the fields a catalog entry must carry.
func (r Record) Validate() error {
	switch {
	case strings.TrimSpace(r.ID) == "":
		return fmt.Errorf("%w: empty id", ErrInvalidRecord)
	case strings.TrimSpace(r.Name) == "":
		return fmt.Errorf("%w: %s: empty name", ErrInvalidRecord, r.ID)
	case strings.TrimSpace(r.Model) == "":
		return fmt.Errorf("%w: %s: empty model", ErrInvalidRecord, r.ID)
	case strings.TrimSpace(r.SerialNumber) == "":
		return fmt.Errorf("%w: %s: empty serial number", ErrInvalidRecord, r.ID)
	case r.ManufactureYear <= 0:
		return fmt.Errorf("%w: %s: manufacture year %d", ErrInvalidRecord, r.ID, r.ManufactureYear)
	case !r.Position.Finite():
		return fmt.Errorf("%w: %s: position is not finite", ErrInvalidRecord, r.ID)
	}
	return nil
}
