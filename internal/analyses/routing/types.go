package routing

import (
	"strings"

	"bonescan-backend/scan/model"
)

// Rule maps keywords found in a record to a specialist.
type Rule struct {
	Name              string   `yaml:"name" json:"name"`
	ConditionKeywords []string `yaml:"conditionKeywords" json:"conditionKeywords"`
	RegionKeywords    []string `yaml:"regionKeywords,omitempty" json:"regionKeywords,omitempty"`
	Specialist        string   `yaml:"specialist" json:"specialist"`
}

// Matches reports whether any condition keyword, and any region keyword when
// the rule has some, occur in the lowercase haystack.
func (r Rule) Matches(haystack string) bool {
	if !containsAny(haystack, r.ConditionKeywords) {
		return false
	}
	if len(r.RegionKeywords) == 0 {
		return true
	}
	return containsAny(haystack, r.RegionKeywords)
}

// ScopeFilter suppresses detections outside the deployment's domain.
type ScopeFilter struct {
	OutOfScopeTerms []string
	InScopeTerms    []string
	Replacement     ScopeReplacement
}

// ScopeReplacement holds the texts written into a filtered record.
type ScopeReplacement struct {
	Condition  string
	DoctorType string
	Medication string
	Notes      string
}

// Policy is the read-only routing configuration of a deployment.
type Policy struct {
	Name              string
	Scope             *ScopeFilter
	Rules             []Rule
	DefaultSpecialist string
}

// Outcome describes what the engine did to a record.
type Outcome struct {
	Record         model.AnalysisRecord
	ScopeFiltered  bool
	MatchedRule    string
	PreviousDoctor string
}

// Corrected reports whether the specialist was replaced.
func (o Outcome) Corrected() bool {
	return o.MatchedRule != "" && o.PreviousDoctor != o.Record.DoctorType
}

// Haystack is the lowercase text searched by scope terms and routing rules.
func Haystack(rec model.AnalysisRecord) string {
	return strings.ToLower(rec.Condition + " " + rec.AffectedRegion + " " + rec.Findings)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
