package event

import (
	"sort"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Override adjusts registrations whose handler name matches Pattern
// Patterns: exact name, "*", a trailing wildcard ("audit.*", "hooks.(*Guard).*")
// or per-segment wildcards split on "." ("hooks.*.OnOpen")
type Override struct {
	Pattern   string        `mapstructure:"pattern"`
	Event     string        `mapstructure:"event"` // optional, restricts the rule to one event type
	Priority  string        `mapstructure:"priority"`
	Timeout   time.Duration `mapstructure:"timeout"`
	DoNotWait *bool         `mapstructure:"do_not_wait"`
	DoNotKill *bool         `mapstructure:"do_not_kill"`
	Disabled  bool          `mapstructure:"disabled"`
}

// Validate checks pattern and priority
func (o Override) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Pattern, validation.Required),
		validation.Field(&o.Priority, validation.By(func(v interface{}) error {
			s, _ := v.(string)
			if s == "" {
				return nil
			}
			_, err := ParsePriority(s)
			return err
		})),
		validation.Field(&o.Timeout, validation.Min(time.Duration(0))),
	)
}

// apply rewrites desc in place, reports false when the handler is disabled
func (o Override) apply(desc *Descriptor) bool {
	if o.Disabled {
		return false
	}
	if o.Priority != "" {
		if p, err := ParsePriority(o.Priority); err == nil {
			desc.Priority = p
		}
	}
	if o.Timeout > 0 {
		desc.Sync.Timeout = o.Timeout
	}
	if o.DoNotWait != nil {
		desc.Sync.DoNotWait = *o.DoNotWait
	}
	if o.DoNotKill != nil {
		desc.Sync.DoNotKill = *o.DoNotKill
	}
	return true
}

// OverrideRouter picks the most specific override for a handler name
type OverrideRouter struct {
	mu     sync.RWMutex
	sorted []overrideEntry
}

type overrideEntry struct {
	rule     Override
	rank     int // exact match < longer prefix < shorter prefix < "*"
	position int
}

// NewOverrideRouter builds a router from configured rules
func NewOverrideRouter(rules []Override) *OverrideRouter {
	r := &OverrideRouter{}
	r.Load(rules)
	return r
}

// Load replaces the rules
func (r *OverrideRouter) Load(rules []Override) {
	sorted := make([]overrideEntry, 0, len(rules))
	for i, rule := range rules {
		entry := overrideEntry{rule: rule, position: i}
		switch {
		case !strings.Contains(rule.Pattern, "*"):
			entry.rank = 0
		case rule.Pattern == "*":
			entry.rank = 1 << 20
		default:
			// "hooks.audit.*" wins over "hooks.*"
			entry.rank = 1<<16 - len(strings.TrimSuffix(rule.Pattern, "*"))
		}
		if rule.Event != "" {
			entry.rank-- // event-scoped rules beat unscoped ones of the same shape
		}
		sorted = append(sorted, entry)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].rank != sorted[j].rank {
			return sorted[i].rank < sorted[j].rank
		}
		return sorted[i].position < sorted[j].position
	})

	r.mu.Lock()
	r.sorted = sorted
	r.mu.Unlock()
}

// Match returns the override for a handler of event type t, nil when none applies
func (r *OverrideRouter) Match(handler string, t Type) *Override {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entry := range r.sorted {
		if entry.rule.Event != "" && Type(entry.rule.Event) != t {
			continue
		}
		if matchPattern(entry.rule.Pattern, handler) {
			rule := entry.rule
			return &rule
		}
	}
	return nil
}

// Len number of rules
func (r *OverrideRouter) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sorted)
}

func matchPattern(pattern, name string) bool {
	switch {
	case pattern == name, pattern == "*":
		return true
	case strings.HasSuffix(pattern, "*") && !strings.Contains(strings.TrimSuffix(pattern, "*"), "*"):
		return strings.HasPrefix(name, strings.TrimSuffix(pattern, "*"))
	case strings.Contains(pattern, "*"):
		return matchSegments(pattern, name)
	}
	return false
}

// matchSegments treats each "*" segment as any non-empty segment
func matchSegments(pattern, name string) bool {
	patternParts := strings.Split(pattern, ".")
	nameParts := strings.Split(name, ".")
	if len(patternParts) != len(nameParts) {
		return false
	}
	for i, pp := range patternParts {
		if pp == "*" {
			if nameParts[i] == "" {
				return false
			}
			continue
		}
		if pp != nameParts[i] {
			return false
		}
	}
	return true
}
