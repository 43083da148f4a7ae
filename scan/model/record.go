package model

import (
	"errors"
	"strings"
)

// Sentinel texts used when no real clinical content applies.
const (
	NoSpecialistNeeded   = "No specialist needed — General Physician for routine follow-up"
	NoFractureDetected   = "No fracture detected"
	GeneralPhysicianEval = "General Physician for further evaluation"
	NoFractureMedication = "No fracture-specific medication needed"
	ScopeLimitationNote  = "The scan may show a non-fracture condition. This system detects fractures only. Please consult a General Physician for comprehensive evaluation."
)

// consultSeparator joins a primary specialist with a secondary one in doctorType.
const consultSeparator = "; also consult "

// AnalysisRecord represents the canonical validated scan result.
type AnalysisRecord struct {
	Detected        bool     `json:"detected"`
	Condition       string   `json:"condition"`
	Severity        Severity `json:"severity"`
	AffectedRegion  string   `json:"affectedRegion"`
	Findings        string   `json:"findings"`
	Medication      string   `json:"medication"`
	DoctorType      string   `json:"doctorType"`
	Urgency         Urgency  `json:"urgency"`
	AdditionalNotes string   `json:"additionalNotes"`
}

// CheckInvariants reports the first broken record invariant, if any.
func (r AnalysisRecord) CheckInvariants() error {
	if !r.Severity.Valid() {
		return errors.New("severity is not a known level")
	}
	if !r.Urgency.Valid() {
		return errors.New("urgency is not a known level")
	}
	if r.Detected == (r.Severity == SeverityNone) {
		return errors.New("severity must be None exactly when detected is false")
	}
	if strings.TrimSpace(r.DoctorType) == "" {
		return errors.New("doctorType is required")
	}
	return nil
}

// PrimarySpecialist returns the first specialist named in DoctorType.
func (r AnalysisRecord) PrimarySpecialist() string {
	primary, _, _ := strings.Cut(r.DoctorType, consultSeparator)
	return strings.TrimSpace(primary)
}

// ConsultSpecialists returns the secondary specialists, if DoctorType uses the
// "Primary; also consult Secondary" form.
func (r AnalysisRecord) ConsultSpecialists() []string {
	_, rest, ok := strings.Cut(r.DoctorType, consultSeparator)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(rest, ",") {
		for _, name := range strings.Split(part, " and ") {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

// WithConsult formats a "Primary; also consult Secondary" specialist string.
func WithConsult(primary, secondary string) string {
	if strings.TrimSpace(secondary) == "" {
		return primary
	}
	return primary + consultSeparator + secondary
}
