package domain

import (
	"strings"
)

// JunctionCode identifies a road feature traffic must pass to reach the site.
type JunctionCode string

const (
	JunctionTurn      JunctionCode = "B"
	JunctionTee       JunctionCode = "P"
	JunctionMinorRoad JunctionCode = "JK"
	JunctionMainRoad  JunctionCode = "M"
)

// Probability that a passer-by continues through the junction toward the site.
// Codes other than the three named ones count as a main road.
const (
	turnProbability      = 0.5
	teeProbability       = 1.0 / 3.0
	minorRoadProbability = 0.4
	mainRoadProbability  = 0.8
)

// Probability returns the pass-through probability for the code.
func (c JunctionCode) Probability() float64 {
	switch JunctionCode(strings.ToUpper(string(c))) {
	case JunctionTurn:
		return turnProbability
	case JunctionTee:
		return teeProbability
	case JunctionMinorRoad:
		return minorRoadProbability
	default:
		return mainRoadProbability
	}
}

// JunctionSequence is the ordered list of junctions between the traffic source
// and the site.
type JunctionSequence []JunctionCode

// CombinedProbability is the product of the per-junction probabilities. Each
// junction is treated as independent; this is a modeling simplification. An
// empty sequence yields 1.
func (s JunctionSequence) CombinedProbability() float64 {
	p := 1.0
	for _, c := range s {
		p *= c.Probability()
	}
	return p
}

// String renders the sequence in the comma-separated form accepted by
// ParseJunctionSequence.
func (s JunctionSequence) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = string(c)
	}
	return strings.Join(parts, ",")
}

// AttenuateJunctions scales traffic by the combined probability of the sequence.
func AttenuateJunctions(traffic float64, junctions JunctionSequence) float64 {
	return traffic * junctions.CombinedProbability()
}

// ParseJunctionSequence parses "B,P,JK" style input. Blank entries are skipped
// and codes are upper-cased.
func ParseJunctionSequence(s string) JunctionSequence {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var seq JunctionSequence
	for _, part := range strings.Split(s, ",") {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code == "" {
			continue
		}
		seq = append(seq, JunctionCode(code))
	}
	return seq
}
