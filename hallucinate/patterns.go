package hallucinate

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Rule targets select what a pattern rule matches against.
const (
	TargetName = "name" // element name
	TargetText = "text" // docstring, decorators, signature
)

// Rule is one suspicious-construct pattern. Score is the suspicion a
// match contributes, between 0 and 1.
type Rule struct {
	Name   string  `yaml:"name"`
	Match  string  `yaml:"match"`
	Target string  `yaml:"target"`
	Score  float64 `yaml:"score"`

	re *regexp.Regexp
}

// DefaultRules returns the built-in suspicious-construct patterns:
// speculative naming, placeholder bodies, and unfinished markers.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:   "speculative-prefix",
			Match:  `^(auto|smart|magic|enhanced|advanced|intelligent|quantum|ultra)_`,
			Target: TargetName,
			Score:  0.7,
		},
		{
			Name:   "speculative-suffix",
			Match:  `_(v2|v3|new|final|improved)$`,
			Target: TargetName,
			Score:  0.4,
		},
		{
			Name:   "not-implemented",
			Match:  `NotImplementedError`,
			Target: TargetText,
			Score:  0.7,
		},
		{
			Name:   "todo-marker",
			Match:  `\b(TODO|FIXME|XXX)\b`,
			Target: TargetText,
			Score:  0.5,
		},
		{
			Name:   "placeholder-text",
			Match:  `(?i)\b(placeholder|stub|not yet implemented|to be implemented)\b`,
			Target: TargetText,
			Score:  0.5,
		},
	}
}

// ruleFile is the YAML shape for a pattern table.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads a pattern table from a YAML file and compiles it.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern rules: %w", err)
	}
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse pattern rules: %w", err)
	}
	if err := compileRules(f.Rules); err != nil {
		return nil, err
	}
	return f.Rules, nil
}

func compileRules(rules []Rule) error {
	for i := range rules {
		r := &rules[i]
		if r.Target == "" {
			r.Target = TargetText
		}
		if r.Target != TargetName && r.Target != TargetText {
			return fmt.Errorf("rule %s: unknown target %q", r.Name, r.Target)
		}
		if r.Score <= 0 || r.Score > 1 {
			return fmt.Errorf("rule %s: score must be in (0,1]", r.Name)
		}
		re, err := regexp.Compile(r.Match)
		if err != nil {
			return fmt.Errorf("rule %s: %w", r.Name, err)
		}
		r.re = re
	}
	return nil
}
