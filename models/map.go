package models

import "strings"

// CoordinateSystemType is the map's coordinate system kind.
type CoordinateSystemType int

const (
	CSTypeGeocentric CoordinateSystemType = iota
	CSTypeProjected
	CSTypeGeocentricCube
)

var csAliases = map[string]CoordinateSystemType{
	"geocentric":  CSTypeGeocentric,
	"round":       CSTypeGeocentric,
	"globe":       CSTypeGeocentric,
	"earth":       CSTypeGeocentric,
	"geographic":  CSTypeProjected,
	"flat":        CSTypeProjected,
	"plate carre": CSTypeProjected,
	"projected":   CSTypeProjected,
	"cube":        CSTypeGeocentricCube,
}

// ParseCoordinateSystemType resolves a textual alias case-insensitively. Unknown and
// empty aliases resolve to CSTypeGeocentric; known reports whether the alias matched.
func ParseCoordinateSystemType(alias string) (cs CoordinateSystemType, known bool) {
	cs, known = csAliases[strings.ToLower(strings.TrimSpace(alias))]
	if !known {
		return CSTypeGeocentric, false
	}
	return cs, true
}

// Canonical returns the name written to earth files.
func (t CoordinateSystemType) Canonical() (string, bool) {
	switch t {
	case CSTypeGeocentric:
		return "geocentric", true
	case CSTypeProjected:
		return "projected", true
	case CSTypeGeocentricCube:
		return "cube", true
	}
	return "", false
}

func (t CoordinateSystemType) String() string {
	if s, ok := t.Canonical(); ok {
		return s
	}
	return "unknown"
}
