package routing

import (
	"fmt"
	"strings"

	"bonescan-backend/scan/model"
)

const (
	PolicyFractureOnly = "fracture-only"
	PolicyGeneral      = "general"

	defaultSpecialist = "General Physician"
)

// Rule order is clinical priority. Spinal and cranial trauma must stay ahead of
// the generic fracture catch-all.
func fractureRules() []Rule {
	return []Rule{
		{
			Name:              "spine",
			ConditionKeywords: []string{"spinal", "spine", "vertebr", "lumbar", "thoracic", "cervical"},
			Specialist:        model.WithConsult("Orthopedic Spine Surgeon", "Neurosurgeon"),
		},
		{
			Name:              "skull",
			ConditionKeywords: []string{"skull", "cranial"},
			Specialist:        "Neurosurgeon",
		},
		{
			Name:              "maxillofacial",
			ConditionKeywords: []string{"jaw", "mandib", "maxill", "facial", "zygomatic", "orbital", "nasal bone"},
			Specialist:        "Oral and Maxillofacial Surgeon",
		},
		{
			Name:              "rib_lung",
			ConditionKeywords: []string{"rib"},
			RegionKeywords:    []string{"lung", "pneumothorax", "pulmonary"},
			Specialist:        "Cardiothoracic Surgeon",
		},
		{
			Name:              "growth_plate",
			ConditionKeywords: []string{"growth plate", "epiphyseal", "salter-harris", "physis"},
			Specialist:        "Pediatric Orthopedic Surgeon",
		},
		{
			Name:              "stress",
			ConditionKeywords: []string{"stress fracture", "fatigue fracture", "hairline"},
			Specialist:        "Sports Medicine Specialist",
		},
		{
			Name:              "dislocation",
			ConditionKeywords: []string{"dislocation", "subluxation"},
			Specialist:        "Orthopedic Surgeon",
		},
		{
			Name:              "pelvic",
			ConditionKeywords: []string{"pelvic", "pelvis", "acetabul"},
			Specialist:        "Orthopedic Trauma Surgeon",
		},
		{
			Name:              "compound",
			ConditionKeywords: []string{"compound", "open fracture", "comminuted"},
			Specialist:        "Orthopedic Trauma Surgeon",
		},
		fractureCatchAll(),
	}
}

func fractureCatchAll() Rule {
	return Rule{
		Name:              "fracture",
		ConditionKeywords: []string{"fracture", "broken", "crack"},
		Specialist:        "Orthopedic Surgeon",
	}
}

func diseaseRules() []Rule {
	return []Rule{
		{
			Name:              "oncology",
			ConditionKeywords: []string{"tumor", "tumour", "cancer", "sarcoma", "neoplasm", "malignant", "metasta"},
			Specialist:        model.WithConsult("Oncologist", "Orthopedic Oncologist"),
		},
		{
			Name:              "infection",
			ConditionKeywords: []string{"osteomyelitis", "septic", "infection", "tuberculosis"},
			Specialist:        "Infectious Disease Specialist",
		},
		{
			Name:              "rheumatology",
			ConditionKeywords: []string{"arthritis", "osteoarthr", "rheumatoid", "gout", "synovitis", "spondylosis", "degenerative"},
			Specialist:        "Rheumatologist",
		},
		{
			Name:              "metabolic_bone",
			ConditionKeywords: []string{"osteoporosis", "osteopenia", "paget", "rickets"},
			Specialist:        "Endocrinologist",
		},
		{
			Name:              "soft_tissue",
			ConditionKeywords: []string{"bursitis", "tendinitis", "carpal tunnel", "plantar fasciitis"},
			Specialist:        "Sports Medicine Specialist",
		},
		{
			Name:              "pulmonary",
			ConditionKeywords: []string{"pneumonia", "pneumothorax", "pleural", "lung", "pulmonary"},
			Specialist:        "Pulmonologist",
		},
		{
			Name:              "cardiac",
			ConditionKeywords: []string{"cardiomegaly", "cardiac", "heart"},
			Specialist:        "Cardiologist",
		},
	}
}

func outOfScopeTerms() []string {
	return []string{
		"arthritis", "osteoarthr", "rheumatoid", "osteoporosis", "osteopenia",
		"tumor", "tumour", "cancer", "sarcoma", "neoplasm", "malignant", "metasta",
		"osteomyelitis", "infection", "septic", "gout", "paget", "rickets",
		"spondylosis", "degenerative", "inflammation", "synovitis", "bursitis",
		"tendinitis", "carpal tunnel", "plantar fasciitis",
	}
}

func inScopeTerms() []string {
	return []string{"fracture", "broken", "crack", "dislocation"}
}

// FractureOnlyPolicy suppresses non-fracture findings and routes fractures.
func FractureOnlyPolicy() Policy {
	return Policy{
		Name: PolicyFractureOnly,
		Scope: &ScopeFilter{
			OutOfScopeTerms: outOfScopeTerms(),
			InScopeTerms:    inScopeTerms(),
			Replacement: ScopeReplacement{
				Condition:  model.NoFractureDetected,
				DoctorType: model.GeneralPhysicianEval,
				Medication: model.NoFractureMedication,
				Notes:      model.ScopeLimitationNote,
			},
		},
		Rules:             fractureRules(),
		DefaultSpecialist: defaultSpecialist,
	}
}

// GeneralPolicy reports any finding. Fracture-specific rules keep priority and
// the fracture catch-all stays last so disease rules can claim pathological
// fractures first.
func GeneralPolicy() Policy {
	specific := fractureRules()
	specific = specific[:len(specific)-1]
	rules := make([]Rule, 0, len(specific)+8)
	rules = append(rules, specific...)
	rules = append(rules, diseaseRules()...)
	rules = append(rules, fractureCatchAll())
	return Policy{
		Name:              PolicyGeneral,
		Rules:             rules,
		DefaultSpecialist: defaultSpecialist,
	}
}

// PolicyByName resolves a built-in policy.
func PolicyByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyFractureOnly, "fracture":
		return FractureOnlyPolicy(), nil
	case PolicyGeneral:
		return GeneralPolicy(), nil
	default:
		return Policy{}, fmt.Errorf("unknown scan policy %q", name)
	}
}
