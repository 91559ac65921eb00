package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cl0ne/trello-to-kanboard-migrate/internal/migrate"
)

// RuleSpec is a label pattern and the value it assigns
type RuleSpec struct {
	Pattern string `yaml:"pattern"`
	Value   int    `yaml:"value"`
}

// ByteSize is a size in bytes that may be written as "3MiB" in YAML
type ByteSize int64

// UnmarshalYAML accepts a plain integer or a number with a unit suffix
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	n, err := ParseByteSize(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*b = ByteSize(n)
	return nil
}

var byteUnits = []struct {
	suffix string
	factor int64
}{
	{"kib", 1 << 10},
	{"mib", 1 << 20},
	{"gib", 1 << 30},
	{"kb", 1000},
	{"mb", 1000 * 1000},
	{"gb", 1000 * 1000 * 1000},
	{"k", 1 << 10},
	{"m", 1 << 20},
	{"g", 1 << 30},
	{"b", 1},
}

// ParseByteSize parses sizes such as "3145728", "512KiB", "3MiB" or "2MB"
func ParseByteSize(s string) (int64, error) {
	str := strings.ToLower(strings.TrimSpace(s))
	if str == "" {
		return 0, fmt.Errorf("empty size")
	}

	factor := int64(1)
	for _, u := range byteUnits {
		if strings.HasSuffix(str, u.suffix) {
			factor = u.factor
			str = strings.TrimSpace(strings.TrimSuffix(str, u.suffix))
			break
		}
	}

	n, err := strconv.ParseInt(str, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * factor, nil
}

// Rules holds the per-board migration settings read from a rules file
type Rules struct {
	Users             map[string]int `yaml:"users"`
	Complexity        []RuleSpec     `yaml:"complexity"`
	Priority          []RuleSpec     `yaml:"priority"`
	AttachmentMaxSize ByteSize       `yaml:"attachment_max_size"`
	Timezone          string         `yaml:"timezone"`
}

// LoadRules reads a rules file
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	return &rules, nil
}

// Apply compiles the rules into opts. Unset fields and a nil receiver leave
// opts unchanged.
func (r *Rules) Apply(opts *migrate.Options) error {
	if r == nil {
		return nil
	}

	if len(r.Users) > 0 {
		opts.Users = make(map[string]int, len(r.Users))
		for name, id := range r.Users {
			opts.Users[name] = id
		}
	}

	if len(r.Complexity) > 0 {
		complexity, err := compileRules("complexity", r.Complexity)
		if err != nil {
			return err
		}
		opts.Complexity = complexity
	}
	if len(r.Priority) > 0 {
		priority, err := compileRules("priority", r.Priority)
		if err != nil {
			return err
		}
		opts.Priority = priority
	}

	if r.AttachmentMaxSize > 0 {
		opts.AttachmentMaxSize = int64(r.AttachmentMaxSize)
	}

	if r.Timezone != "" {
		loc, err := time.LoadLocation(r.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone %q: %w", r.Timezone, err)
		}
		opts.Location = loc
	}

	return nil
}

func compileRules(kind string, specs []RuleSpec) ([]migrate.Rule, error) {
	rules := make([]migrate.Rule, 0, len(specs))
	for i, spec := range specs {
		rule, err := migrate.NewRule(spec.Pattern, spec.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s rule #%d: %w", kind, i+1, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
