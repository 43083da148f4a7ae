package routing

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type policyFile struct {
	DefaultSpecialist string     `yaml:"defaultSpecialist"`
	Scope             *scopeFile `yaml:"scope"`
	Rules             []Rule     `yaml:"rules"`
}

type scopeFile struct {
	OutOfScope []string `yaml:"outOfScope"`
	InScope    []string `yaml:"inScope"`
}

// LoadRulesFile reads a YAML rule table and overlays it on base. Sections
// missing from the file keep the base values.
func LoadRulesFile(path string, base Policy) (Policy, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Policy{}, fmt.Errorf("read rules file: %w", err)
	}
	policy, err := ParseRules(data, base)
	if err != nil {
		return Policy{}, fmt.Errorf("rules file %s: %w", path, err)
	}
	return policy, nil
}

// ParseRules overlays a YAML rule table on base.
func ParseRules(data []byte, base Policy) (Policy, error) {
	var file policyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return Policy{}, fmt.Errorf("decode: %w", err)
	}

	out := base
	if s := strings.TrimSpace(file.DefaultSpecialist); s != "" {
		out.DefaultSpecialist = s
	}

	if len(file.Rules) > 0 {
		rules := make([]Rule, 0, len(file.Rules))
		for i, r := range file.Rules {
			rule, err := normalizeRule(r)
			if err != nil {
				return Policy{}, fmt.Errorf("rules[%d]: %w", i, err)
			}
			rules = append(rules, rule)
		}
		out.Rules = rules
	}

	if file.Scope != nil {
		if base.Scope == nil {
			return Policy{}, fmt.Errorf("policy %q has no scope filter to override", base.Name)
		}
		scope := *base.Scope
		if len(file.Scope.OutOfScope) > 0 {
			scope.OutOfScopeTerms = lowerAll(file.Scope.OutOfScope)
		}
		if len(file.Scope.InScope) > 0 {
			scope.InScopeTerms = lowerAll(file.Scope.InScope)
		}
		out.Scope = &scope
	}

	return out, nil
}

func normalizeRule(r Rule) (Rule, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Specialist = strings.TrimSpace(r.Specialist)
	if r.Name == "" {
		return Rule{}, errors.New("name is required")
	}
	if r.Specialist == "" {
		return Rule{}, errors.New("specialist is required")
	}
	r.ConditionKeywords = lowerAll(r.ConditionKeywords)
	if len(r.ConditionKeywords) == 0 {
		return Rule{}, errors.New("conditionKeywords must not be empty")
	}
	r.RegionKeywords = lowerAll(r.RegionKeywords)
	return r, nil
}

func lowerAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.ToLower(strings.TrimSpace(item)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
