package llm

import (
	_ "embed"
	"strings"
)

var (
	//go:embed prompts/fracture_only_system.txt
	fractureOnlySystem string
	//go:embed prompts/fracture_only_user.txt
	fractureOnlyUser string
	//go:embed prompts/general_system.txt
	generalSystem string
	//go:embed prompts/general_user.txt
	generalUser string
)

// Prompts is the fixed instruction pair sent with every scan.
type Prompts struct {
	System string
	User   string
}

// PromptsFor returns the prompts of a scan policy and whether the policy was
// recognized. Unknown policies fall back to fracture-only.
func PromptsFor(policy string) (Prompts, bool) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "general":
		return Prompts{System: strings.TrimSpace(generalSystem), User: strings.TrimSpace(generalUser)}, true
	case "fracture-only", "fracture":
		return Prompts{System: strings.TrimSpace(fractureOnlySystem), User: strings.TrimSpace(fractureOnlyUser)}, true
	default:
		return Prompts{System: strings.TrimSpace(fractureOnlySystem), User: strings.TrimSpace(fractureOnlyUser)}, false
	}
}
