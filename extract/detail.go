package extract

import (
	"errors"
	"fmt"
	"math"
)

// JunctionDetail is the per-junction object in the feed response. Every field
// is a pointer so that an absent or null key is distinguishable from a zero.
type JunctionDetail struct {
	JunctionName      *string  `json:"junctionName"`
	PrimaryDownstream *Section `json:"primaryDownstreamJunctionSection"`
	SecondaryUpstream *Section `json:"secondaryUpstreamJunctionSection"`
}

type Section struct {
	AvgSpeed *float64 `json:"avgSpeed"`
	Links    []Link   `json:"links"`
}

type Link struct {
	Direction  *string  `json:"direction"`
	SpeedLimit *float64 `json:"speedLimit"`
}

// reading is the part of a section a record keeps: the first link's
// direction and limit plus the section average.
type reading struct {
	direction  string
	speedLimit int
	avgSpeed   float64
}

var errMissing = errors.New("missing")

// reading returns the field path of the first unusable value on failure.
// Absent values fail with errMissing; present but invalid ones with a
// describing error.
func (s *Section) reading() (reading, string, error) {
	if s == nil {
		return reading{}, "", errMissing
	}
	if len(s.Links) == 0 {
		return reading{}, "links[0]", errMissing
	}
	first := s.Links[0]
	if first.Direction == nil {
		return reading{}, "links[0].direction", errMissing
	}
	if first.SpeedLimit == nil {
		return reading{}, "links[0].speedLimit", errMissing
	}
	limit, err := wholeNumber(*first.SpeedLimit)
	if err != nil {
		return reading{}, "links[0].speedLimit", err
	}
	if s.AvgSpeed == nil {
		return reading{}, "avgSpeed", errMissing
	}
	return reading{
		direction:  *first.Direction,
		speedLimit: limit,
		avgSpeed:   Round2(*s.AvgSpeed),
	}, "", nil
}

// wholeNumber accepts integral values however the feed spells them, 70 or 70.0.
func wholeNumber(v float64) (int, error) {
	if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return 0, fmt.Errorf("speed limit %v is not a whole number", v)
	}
	return int(v), nil
}
