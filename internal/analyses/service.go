package analyses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bonescan-backend/internal/analyses/routing"
	"bonescan-backend/internal/llm"
	"bonescan-backend/internal/shared/metrics"
	"bonescan-backend/internal/shared/telemetry"
	"bonescan-backend/internal/shared/util"
	"bonescan-backend/scan/model"
	"bonescan-backend/scan/render"
)

// DefaultMaxImageBytes bounds uploads when the service is not configured.
const DefaultMaxImageBytes = 10 << 20

// ImageUpload is a single scan submitted for analysis.
type ImageUpload struct {
	Data     []byte
	MIMEType string
}

// Result is a corrected record plus what the rule engine did to it.
type Result struct {
	Record        model.AnalysisRecord
	ScopeFiltered bool
	MatchedRule   string
	Corrected     bool
}

// Service runs the scan pipeline: vision call, parse, validate, correct.
type Service struct {
	LLM           llm.VisionClient
	Engine        *routing.Engine
	Prompts       llm.Prompts
	Renderer      *render.Renderer
	MaxImageBytes int64
	RetryDelay    time.Duration
}

// NewService wires a Service for the given policy.
func NewService(client llm.VisionClient, policy routing.Policy, maxImageBytes int64) *Service {
	prompts, _ := llm.PromptsFor(policy.Name)
	return &Service{
		LLM:           client,
		Engine:        routing.NewEngine(policy),
		Prompts:       prompts,
		Renderer:      render.NewRenderer(),
		MaxImageBytes: maxImageBytes,
		RetryDelay:    llmRetryBaseDelay,
	}
}

// Analyze sends the scan to the vision model and returns the corrected record.
// Parse and validation failures are returned as errors; no record is guessed.
func (s *Service) Analyze(ctx context.Context, upload ImageUpload) (Result, error) {
	if err := s.checkUpload(upload); err != nil {
		return Result{}, err
	}
	if s.LLM == nil {
		return Result{}, llm.ErrNotImplemented
	}
	engine := s.Engine
	if engine == nil {
		engine = routing.NewEngine(routing.FractureOnlyPolicy())
	}

	requestID := telemetry.RequestID(ctx)
	start := time.Now()
	fields := map[string]any{
		"request_id":   requestID,
		"policy":       engine.Policy().Name,
		"mime_type":    upload.MIMEType,
		"image_bytes":  len(upload.Data),
		"image_digest": util.ShortDigest(upload.Data),
	}
	telemetry.Info("analysis.start", fields)

	res, err := s.run(ctx, engine, upload, requestID)
	fields["duration_ms"] = time.Since(start).Milliseconds()
	if err != nil {
		metrics.ObserveAnalysis(metrics.OutcomeFailure, time.Since(start))
		fields["error"] = sanitizeError(err)
		var perr *ParseError
		if errors.As(err, &perr) {
			fields["raw_snippet"] = rawSnippet(perr.Raw)
		}
		telemetry.Error("analysis.failed", fields)
		return Result{}, err
	}
	metrics.ObserveAnalysis(metrics.OutcomeSuccess, time.Since(start))

	fields["detected"] = res.Record.Detected
	fields["severity"] = string(res.Record.Severity)
	fields["scope_filtered"] = res.ScopeFiltered
	fields["matched_rule"] = res.MatchedRule
	telemetry.Info("analysis.complete", fields)
	return res, nil
}

func (s *Service) run(ctx context.Context, engine *routing.Engine, upload ImageUpload, requestID string) (Result, error) {
	client := newRetryingLLM(s.LLM, requestID, s.RetryDelay)
	text, err := client.AnalyzeImage(ctx, llm.ImageInput{
		Data:         upload.Data,
		MIMEType:     upload.MIMEType,
		SystemPrompt: s.Prompts.System,
		UserPrompt:   s.Prompts.User,
	})
	if err != nil {
		if errors.Is(err, llm.ErrEmptyContent) || errors.Is(err, llm.ErrMalformedResponse) {
			return Result{}, &ParseError{Raw: text, Err: err}
		}
		return Result{}, fmt.Errorf("vision call: %w", err)
	}

	raw, err := ParseModelOutput(text)
	if err != nil {
		return Result{}, err
	}
	rec, err := ValidateRecord(raw)
	if err != nil {
		return Result{}, err
	}

	out := engine.Apply(rec)
	if out.ScopeFiltered {
		metrics.IncScopeFiltered()
		telemetry.Info("analysis.scope_filtered", map[string]any{
			"request_id":         requestID,
			"original_condition": rec.Condition,
		})
	}
	if out.Corrected() {
		metrics.IncSpecialistCorrection(out.MatchedRule)
		telemetry.Info("analysis.specialist_corrected", map[string]any{
			"request_id": requestID,
			"rule":       out.MatchedRule,
			"from":       out.PreviousDoctor,
			"to":         out.Record.DoctorType,
		})
	}

	return Result{
		Record:        out.Record,
		ScopeFiltered: out.ScopeFiltered,
		MatchedRule:   out.MatchedRule,
		Corrected:     out.Corrected(),
	}, nil
}

func (s *Service) checkUpload(upload ImageUpload) error {
	if len(upload.Data) == 0 {
		return &InputError{Reason: "no image provided", Err: ErrNoImage}
	}
	if !util.IsImageMIME(upload.MIMEType) {
		return &InputError{Reason: fmt.Sprintf("unsupported file type %q, upload an image", upload.MIMEType)}
	}
	limit := s.MaxImageBytes
	if limit <= 0 {
		limit = DefaultMaxImageBytes
	}
	if int64(len(upload.Data)) > limit {
		return &InputError{Reason: fmt.Sprintf("image exceeds %d bytes", limit)}
	}
	return nil
}

// RenderReport checks the record invariants and renders it as a PDF. A record
// that breaks them is an InputError: it did not come from Analyze unchanged.
func (s *Service) RenderReport(rec model.AnalysisRecord, img *render.Image) ([]byte, error) {
	if err := rec.CheckInvariants(); err != nil {
		return nil, &InputError{Reason: "result is not a valid analysis", Err: err}
	}
	renderer := s.Renderer
	if renderer == nil {
		renderer = render.NewRenderer()
	}
	out, err := renderer.Render(rec, img)
	if err != nil {
		return nil, err
	}
	metrics.IncReportRendered(img != nil)
	return out, nil
}
