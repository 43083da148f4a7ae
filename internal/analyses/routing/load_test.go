package routing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const customRules = `
defaultSpecialist: Emergency Physician
scope:
  outOfScope: [Arthritis, tumor]
rules:
  - name: skull
    conditionKeywords: [Skull, cranial]
    specialist: Neurosurgeon
  - name: fracture
    conditionKeywords: [fracture]
    specialist: Orthopedic Surgeon
`

func TestParseRulesOverlay(t *testing.T) {
	policy, err := ParseRules([]byte(customRules), FractureOnlyPolicy())
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	if policy.Name != PolicyFractureOnly {
		t.Fatalf("policy name should come from base, got %q", policy.Name)
	}
	if len(policy.Rules) != 2 || policy.Rules[0].Name != "skull" {
		t.Fatalf("unexpected rules: %+v", policy.Rules)
	}
	if policy.Rules[0].ConditionKeywords[0] != "skull" {
		t.Fatalf("keywords must be lowercased, got %q", policy.Rules[0].ConditionKeywords[0])
	}
	if policy.DefaultSpecialist != "Emergency Physician" {
		t.Fatalf("default specialist = %q", policy.DefaultSpecialist)
	}
	if got := strings.Join(policy.Scope.OutOfScopeTerms, ","); got != "arthritis,tumor" {
		t.Fatalf("out of scope terms = %q", got)
	}
	if len(policy.Scope.InScopeTerms) != len(inScopeTerms()) {
		t.Fatalf("in-scope terms should be inherited from base")
	}

	engine := NewEngine(policy)
	out := engine.Apply(detectedRecord("Cranial vault fracture", "", ""))
	if out.Record.DoctorType != "Neurosurgeon" {
		t.Fatalf("doctorType = %q", out.Record.DoctorType)
	}
}

func TestParseRulesKeepsBaseWhenSectionsMissing(t *testing.T) {
	policy, err := ParseRules([]byte("defaultSpecialist: Triage Nurse\n"), GeneralPolicy())
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	if len(policy.Rules) != len(GeneralPolicy().Rules) {
		t.Fatalf("rules should be inherited")
	}
}

func TestParseRulesErrors(t *testing.T) {
	cases := map[string]struct {
		doc  string
		base Policy
	}{
		"unknown_field":      {doc: "rulez: []\n", base: FractureOnlyPolicy()},
		"missing_specialist": {doc: "rules:\n  - name: x\n    conditionKeywords: [a]\n", base: FractureOnlyPolicy()},
		"missing_keywords":   {doc: "rules:\n  - name: x\n    specialist: Y\n", base: FractureOnlyPolicy()},
		"missing_name":       {doc: "rules:\n  - specialist: Y\n    conditionKeywords: [a]\n", base: FractureOnlyPolicy()},
		"scope_on_general":   {doc: "scope:\n  inScope: [fracture]\n", base: GeneralPolicy()},
		"not_yaml":           {doc: "rules: [", base: FractureOnlyPolicy()},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseRules([]byte(tc.doc), tc.base); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadRulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(customRules), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	policy, err := LoadRulesFile(path, FractureOnlyPolicy())
	if err != nil {
		t.Fatalf("LoadRulesFile: %v", err)
	}
	if len(policy.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(policy.Rules))
	}

	if _, err := LoadRulesFile(filepath.Join(t.TempDir(), "missing.yaml"), FractureOnlyPolicy()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
