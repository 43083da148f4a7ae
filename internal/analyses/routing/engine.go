package routing

import (
	"strings"

	"bonescan-backend/scan/model"
)

// Engine applies a Policy to validated records. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	policy Policy
}

// NewEngine constructs an Engine for the given policy.
func NewEngine(policy Policy) *Engine {
	if strings.TrimSpace(policy.DefaultSpecialist) == "" {
		policy.DefaultSpecialist = defaultSpecialist
	}
	return &Engine{policy: policy}
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Apply runs the scope filter, the specialist correction and the
// non-detection normalization. Running it again on its output is a no-op.
func (e *Engine) Apply(rec model.AnalysisRecord) Outcome {
	out := Outcome{Record: rec, PreviousDoctor: rec.DoctorType}

	if rec.Detected {
		haystack := Haystack(rec)
		if e.outOfScope(haystack) {
			out.Record = e.filter(rec)
			out.ScopeFiltered = true
		} else if rule, ok := e.Route(haystack); ok {
			out.Record.DoctorType = rule.Specialist
			out.MatchedRule = rule.Name
		} else if strings.TrimSpace(out.Record.DoctorType) == "" {
			out.Record.DoctorType = e.policy.DefaultSpecialist
		}
	}

	if !out.Record.Detected && strings.TrimSpace(out.Record.DoctorType) == "" {
		out.Record.DoctorType = model.NoSpecialistNeeded
	}
	return out
}

// Route returns the first rule matching the haystack.
func (e *Engine) Route(haystack string) (Rule, bool) {
	for _, rule := range e.policy.Rules {
		if rule.Matches(haystack) {
			return rule, true
		}
	}
	return Rule{}, false
}

func (e *Engine) outOfScope(haystack string) bool {
	scope := e.policy.Scope
	if scope == nil {
		return false
	}
	return containsAny(haystack, scope.OutOfScopeTerms) && !containsAny(haystack, scope.InScopeTerms)
}

func (e *Engine) filter(rec model.AnalysisRecord) model.AnalysisRecord {
	repl := e.policy.Scope.Replacement
	rec.Detected = false
	rec.Severity = model.SeverityNone
	rec.Condition = repl.Condition
	rec.DoctorType = repl.DoctorType
	rec.Urgency = model.UrgencyRoutine
	rec.Medication = repl.Medication
	rec.AdditionalNotes = repl.Notes
	return rec
}
