package health

// Service reports liveness along with the active pipeline settings.
type Service struct {
	policy   string
	provider string
}

// Status is the payload served on the health route.
type Status struct {
	OK       bool   `json:"ok"`
	Policy   string `json:"policy"`
	Provider string `json:"provider"`
}

// NewService constructs a new health service.
func NewService(policy, provider string) *Service {
	return &Service{policy: policy, provider: provider}
}

// Status returns the health payload.
func (s *Service) Status() Status {
	return Status{OK: true, Policy: s.policy, Provider: s.provider}
}
