package bootstrap

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"bonescan-backend/internal/analyses"
	"bonescan-backend/internal/analyses/routing"
	"bonescan-backend/internal/llm"
	"bonescan-backend/internal/llm/gemini"
	openai "bonescan-backend/internal/llm/openai"
	"bonescan-backend/internal/reports"
	"bonescan-backend/internal/services/health"
	"bonescan-backend/internal/shared/config"
	"bonescan-backend/internal/shared/server"
	"bonescan-backend/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	Policy          routing.Policy
	LLM             llm.VisionClient
	AnalysesService *analyses.Service
	AnalysisHandler *analyses.Handler
	ReportHandler   *reports.Handler
}

// Build prepares dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	policy, err := BuildPolicy(cfg)
	if err != nil {
		return nil, err
	}
	client, err := BuildVisionClient(cfg)
	if err != nil {
		return nil, err
	}

	svc := analyses.NewService(client, policy, cfg.MaxImageBytes)
	app := &App{
		Config:          cfg,
		Policy:          policy,
		LLM:             client,
		AnalysesService: svc,
		AnalysisHandler: analyses.NewHandler(svc),
		ReportHandler:   reports.NewHandler(svc),
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		AnalysisHandler: app.AnalysisHandler,
		ReportHandler:   app.ReportHandler,
		Health:          health.NewService(policy.Name, cfg.LLMProvider),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":      cfg.Env,
		"policy":   policy.Name,
		"provider": cfg.LLMProvider,
		"rules":    len(policy.Rules),
	})
	return app, nil
}

// BuildPolicy resolves the scan policy and overlays the optional rules file.
func BuildPolicy(cfg config.Config) (routing.Policy, error) {
	policy, err := routing.PolicyByName(cfg.ScanPolicy)
	if err != nil {
		return routing.Policy{}, err
	}
	if path := strings.TrimSpace(cfg.RoutingRulesFile); path != "" {
		policy, err = routing.LoadRulesFile(path, policy)
		if err != nil {
			return routing.Policy{}, err
		}
	}
	return policy, nil
}

// BuildVisionClient selects the provider named in the config. Without an API
// key outside production the placeholder client is used, so the server still
// starts and reports the model as unconfigured.
func BuildVisionClient(cfg config.Config) (llm.VisionClient, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if provider == config.ProviderPlaceholder {
		return llm.PlaceholderClient{}, nil
	}
	if strings.TrimSpace(cfg.LLMAPIKey) == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("LLM_API_KEY is required for provider %q", provider)
		}
		telemetry.Warn("bootstrap.llm_unconfigured", map[string]any{"provider": provider})
		return llm.PlaceholderClient{}, nil
	}

	switch provider {
	case config.ProviderGemini:
		client, err := gemini.NewClient(cfg.LLMAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderGateway, "":
		client, err := openai.NewClient(cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMBaseURL, cfg.LLMTimeout())
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", provider)
	}
}
