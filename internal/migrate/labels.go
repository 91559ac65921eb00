package migrate

import (
	"fmt"
	"regexp"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/trello"
)

// Rule maps label names matching Pattern to Value.
type Rule struct {
	Pattern *regexp.Regexp
	Value   int
}

// NewRule compiles a case-insensitive rule anchored at the start of the
// label name.
func NewRule(pattern string, value int) (Rule, error) {
	re, err := regexp.Compile(`(?i)^(?:` + pattern + `)`)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid label pattern %q: %w", pattern, err)
	}
	return Rule{Pattern: re, Value: value}, nil
}

// MustRule is like NewRule but panics on an invalid pattern.
func MustRule(pattern string, value int) Rule {
	r, err := NewRule(pattern, value)
	if err != nil {
		panic(err)
	}
	return r
}

func matchRules(name string, rules []Rule) (int, bool) {
	for _, r := range rules {
		if r.Pattern.MatchString(name) {
			return r.Value, true
		}
	}
	return 0, false
}

// Classification is the task attributes derived from a card's labels.
type Classification struct {
	Priority *int
	Score    *int
	Tags     []string
}

// Classify maps labels to priority, complexity score and free-form tags.
//
// Color-only labels are ignored. Each label is tested against the complexity
// rules first and then the priority rules; a label matching either is
// consumed. The first label to set an attribute keeps it, so label order
// decides between competing labels and rule order decides between
// competing rules. Labels matching no rule become tags.
func Classify(labels []trello.Label, complexity, priority []Rule) Classification {
	var c Classification
	for _, label := range labels {
		if label.Name == "" {
			continue
		}
		if v, ok := matchRules(label.Name, complexity); ok {
			if c.Score == nil {
				c.Score = intPtr(v)
			}
			continue
		}
		if v, ok := matchRules(label.Name, priority); ok {
			if c.Priority == nil {
				c.Priority = intPtr(v)
			}
			continue
		}
		c.Tags = append(c.Tags, label.Name)
	}
	return c
}

func intPtr(v int) *int {
	return &v
}
