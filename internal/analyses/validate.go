package analyses

import (
	"fmt"

	"bonescan-backend/scan/model"
)

// ValidateRecord converts a decoded model reply into a typed record. Fields are
// checked in a fixed order and the first failure is returned.
func ValidateRecord(raw map[string]any) (model.AnalysisRecord, error) {
	var rec model.AnalysisRecord

	detected, err := requireBool(raw, "detected")
	if err != nil {
		return model.AnalysisRecord{}, err
	}
	rec.Detected = detected

	if rec.Condition, err = requireString(raw, "condition"); err != nil {
		return model.AnalysisRecord{}, err
	}

	sevText, err := requireString(raw, "severity")
	if err != nil {
		return model.AnalysisRecord{}, err
	}
	severity, ok := model.ParseSeverity(sevText)
	if !ok {
		return model.AnalysisRecord{}, &ValidationError{Field: "severity", Reason: fmt.Sprintf("unknown level %q", sevText)}
	}
	switch {
	case !rec.Detected:
		severity = model.SeverityNone
	case severity == model.SeverityNone:
		return model.AnalysisRecord{}, &ValidationError{Field: "severity", Reason: "must not be None when detected is true"}
	}
	rec.Severity = severity

	if rec.AffectedRegion, err = requireString(raw, "affectedRegion"); err != nil {
		return model.AnalysisRecord{}, err
	}
	if rec.Findings, err = requireString(raw, "findings"); err != nil {
		return model.AnalysisRecord{}, err
	}
	if rec.Medication, err = requireString(raw, "medication"); err != nil {
		return model.AnalysisRecord{}, err
	}
	if rec.DoctorType, err = requireString(raw, "doctorType"); err != nil {
		return model.AnalysisRecord{}, err
	}

	urgText, err := requireString(raw, "urgency")
	if err != nil {
		return model.AnalysisRecord{}, err
	}
	urgency, ok := model.ParseUrgency(urgText)
	if !ok {
		return model.AnalysisRecord{}, &ValidationError{Field: "urgency", Reason: fmt.Sprintf("unknown level %q", urgText)}
	}
	rec.Urgency = urgency

	switch notes := raw["additionalNotes"].(type) {
	case nil:
	case string:
		rec.AdditionalNotes = notes
	default:
		return model.AnalysisRecord{}, &ValidationError{Field: "additionalNotes", Reason: fmt.Sprintf("expected string, got %s", jsonKind(notes))}
	}

	return rec, nil
}

func requireBool(raw map[string]any, field string) (bool, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return false, &ValidationError{Field: field, Reason: "missing"}
	}
	b, ok := v.(bool)
	if !ok {
		return false, &ValidationError{Field: field, Reason: fmt.Sprintf("expected boolean, got %s", jsonKind(v))}
	}
	return b, nil
}

func requireString(raw map[string]any, field string) (string, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return "", &ValidationError{Field: field, Reason: "missing"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ValidationError{Field: field, Reason: fmt.Sprintf("expected string, got %s", jsonKind(v))}
	}
	return s, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case bool:
		return "boolean"
	case string:
		return "string"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case nil:
		return "null"
	default:
		return "number"
	}
}
