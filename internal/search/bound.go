package search

import (
	"fmt"
	"strconv"
	"strings"
)

// Bound gives a count per entity kind and the size of the time domain.
// As a search bound every field is a maximum; as a goal minimum the time
// field is ignored.
type Bound struct {
	Objects  int `json:"objects" yaml:"objects"`
	Events   int `json:"events" yaml:"events"`
	Observes int `json:"observes" yaml:"observes"`
	Time     int `json:"time" yaml:"time"`
}

// ParseBound parses "objects,events,observes,time", for example "5,8,12,4".
func ParseBound(s string) (Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Bound{}, NewBoundError(s, "want objects,events,observes,time")
	}
	var vals [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Bound{}, NewBoundError(s, fmt.Sprintf("%q is not an integer", p))
		}
		vals[i] = n
	}
	b := Bound{Objects: vals[0], Events: vals[1], Observes: vals[2], Time: vals[3]}
	if err := b.Validate(); err != nil {
		return Bound{}, err
	}
	return b, nil
}

// String formats b the way ParseBound reads it.
func (b Bound) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", b.Objects, b.Events, b.Observes, b.Time)
}

// Validate rejects negative counts.
func (b Bound) Validate() error {
	if b.Objects < 0 || b.Events < 0 || b.Observes < 0 || b.Time < 0 {
		return NewBoundError(b.String(), "counts must be non-negative")
	}
	return nil
}

// IsZero reports whether every count is zero.
func (b Bound) IsZero() bool { return b == Bound{} }

// covers reports whether min fits inside b on the entity dimensions.
func (b Bound) covers(min Bound) bool {
	return min.Objects <= b.Objects && min.Events <= b.Events && min.Observes <= b.Observes
}
