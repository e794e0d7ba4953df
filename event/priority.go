package event

import (
	"fmt"
	"strings"
)

// Priority tier, lower runs first. The zero value is Normal
type Priority int

const (
	AlwaysFirst Priority = -2 // at most one per event type
	Highest     Priority = -1
	Normal      Priority = 0
	Lowest      Priority = 1
	AlwaysLast  Priority = 2 // at most one per event type
)

var priorityNames = map[Priority]string{
	AlwaysFirst: "always_first",
	Highest:     "highest",
	Normal:      "normal",
	Lowest:      "lowest",
	AlwaysLast:  "always_last",
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// Valid reports whether p is one of the five tiers
func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

// exclusive tiers and the tier a second claimant is demoted to
func (p Priority) demoted() (Priority, bool) {
	switch p {
	case AlwaysFirst:
		return Highest, true
	case AlwaysLast:
		return Lowest, true
	}
	return p, false
}

// ParsePriority accepts "always_first", "AlwaysFirst", "always-first" and the like
func ParsePriority(s string) (Priority, error) {
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(s))
	for p, name := range priorityNames {
		if strings.ReplaceAll(name, "_", "") == key {
			return p, nil
		}
	}
	return Normal, fmt.Errorf("unknown priority %q", s)
}
