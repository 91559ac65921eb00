package migrate

import (
	"reflect"
	"testing"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/trello"
)

func labels(names ...string) []trello.Label {
	out := make([]trello.Label, 0, len(names))
	for _, n := range names {
		out = append(out, trello.Label{Name: n, Color: "blue"})
	}
	return out
}

func intValue(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func TestClassify(t *testing.T) {
	complexity := []Rule{
		MustRule(`complexity: high`, 8),
		MustRule(`complexity: (low|easy)`, 1),
		MustRule(`complexity`, 3),
	}
	priority := []Rule{
		MustRule(`priority: high`, 5),
		MustRule(`priority: none`, 0),
		MustRule(`priority`, 2),
	}

	tests := []struct {
		name         string
		labels       []trello.Label
		wantPriority interface{}
		wantScore    interface{}
		wantTags     []string
	}{
		{
			name:         "priority only",
			labels:       labels("priority: high"),
			wantPriority: 5,
			wantScore:    nil,
			wantTags:     nil,
		},
		{
			name:         "case insensitive",
			labels:       labels("PRIORITY: HIGH", "Complexity: Easy"),
			wantPriority: 5,
			wantScore:    1,
		},
		{
			name:      "first label wins, not the most specific rule",
			labels:    labels("complexity: medium", "complexity: high"),
			wantScore: 3,
		},
		{
			name:      "label order decides between two matching labels",
			labels:    labels("complexity: high", "complexity: medium"),
			wantScore: 8,
		},
		{
			name:         "rule order decides for one label",
			labels:       labels("priority: high and urgent"),
			wantPriority: 5,
		},
		{
			name:     "anchored at start",
			labels:   labels("low priority", "very complexity"),
			wantTags: []string{"low priority", "very complexity"},
		},
		{
			name:         "zero value still matches",
			labels:       labels("priority: none", "priority: high"),
			wantPriority: 0,
		},
		{
			name:         "consumed labels are not tags",
			labels:       labels("bug", "priority: high", "priority: low", "frontend"),
			wantPriority: 5,
			wantTags:     []string{"bug", "frontend"},
		},
		{
			name:     "color only labels ignored",
			labels:   []trello.Label{{Color: "red"}, {Name: "ops", Color: "green"}},
			wantTags: []string{"ops"},
		},
		{
			name:      "complexity tested before priority",
			labels:    labels("complexity priority"),
			wantScore: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.labels, complexity, priority)
			if intValue(got.Priority) != tt.wantPriority {
				t.Errorf("priority = %v, want %v", intValue(got.Priority), tt.wantPriority)
			}
			if intValue(got.Score) != tt.wantScore {
				t.Errorf("score = %v, want %v", intValue(got.Score), tt.wantScore)
			}
			if !reflect.DeepEqual(got.Tags, tt.wantTags) {
				t.Errorf("tags = %#v, want %#v", got.Tags, tt.wantTags)
			}
		})
	}
}

func TestClassify_ComplexityRuleOnPriorityLabel(t *testing.T) {
	// A label matching both lists only sets the complexity score.
	got := Classify(labels("urgent"), []Rule{MustRule(`urgent`, 13)}, []Rule{MustRule(`urgent`, 5)})
	if intValue(got.Score) != 13 || got.Priority != nil {
		t.Errorf("got score %v priority %v, want 13 and unset", intValue(got.Score), intValue(got.Priority))
	}
}

func TestNewRule_InvalidPattern(t *testing.T) {
	if _, err := NewRule(`priority: (high`, 1); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
