package model

// Severity is the ordered severity scale of a finding.
type Severity string

const (
	SeverityNone     Severity = "None"
	SeverityMild     Severity = "Mild"
	SeverityModerate Severity = "Moderate"
	SeveritySevere   Severity = "Severe"
	SeverityCritical Severity = "Critical"
)

var severityRanks = map[Severity]int{
	SeverityNone:     0,
	SeverityMild:     1,
	SeverityModerate: 2,
	SeveritySevere:   3,
	SeverityCritical: 4,
}

// ParseSeverity matches the exact wire literal.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(s)
	_, ok := severityRanks[sev]
	return sev, ok
}

// Valid reports whether s is one of the known levels.
func (s Severity) Valid() bool {
	_, ok := severityRanks[s]
	return ok
}

// Rank orders severities from None (0) to Critical (4). Unknown values rank -1.
func (s Severity) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return -1
}

// Urgency is the ordered time pressure of a follow-up.
type Urgency string

const (
	UrgencyImmediate  Urgency = "Immediate"
	UrgencyWithinDay  Urgency = "Within 24 hours"
	UrgencyWithinWeek Urgency = "Within a week"
	UrgencyRoutine    Urgency = "Routine"
)

var urgencyRanks = map[Urgency]int{
	UrgencyImmediate:  0,
	UrgencyWithinDay:  1,
	UrgencyWithinWeek: 2,
	UrgencyRoutine:    3,
}

// ParseUrgency matches the exact wire literal.
func ParseUrgency(s string) (Urgency, bool) {
	u := Urgency(s)
	_, ok := urgencyRanks[u]
	return u, ok
}

// Valid reports whether u is one of the known levels.
func (u Urgency) Valid() bool {
	_, ok := urgencyRanks[u]
	return ok
}

// Rank orders urgencies by decreasing time pressure: Immediate is 0.
func (u Urgency) Rank() int {
	if r, ok := urgencyRanks[u]; ok {
		return r
	}
	return -1
}

// Severities lists every severity in ascending order.
func Severities() []Severity {
	return []Severity{SeverityNone, SeverityMild, SeverityModerate, SeveritySevere, SeverityCritical}
}

// Urgencies lists every urgency from most to least pressing.
func Urgencies() []Urgency {
	return []Urgency{UrgencyImmediate, UrgencyWithinDay, UrgencyWithinWeek, UrgencyRoutine}
}
