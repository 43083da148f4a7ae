package analyses

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"bonescan-backend/internal/analyses/routing"
	"bonescan-backend/internal/llm"
	"bonescan-backend/internal/shared/telemetry"
	"bonescan-backend/scan/model"
	"bonescan-backend/scan/render"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newTestService(client llm.VisionClient, policy routing.Policy) *Service {
	svc := NewService(client, policy, 1024)
	svc.RetryDelay = 0
	svc.Renderer = &render.Renderer{}
	return svc
}

func upload() ImageUpload {
	return ImageUpload{Data: pngHeader, MIMEType: "image/png"}
}

func TestAnalyzeDistalRadiusExample(t *testing.T) {
	base := &scriptedLLM{replies: []string{"```json\n" + distalRadiusJSON + "\n```"}}
	svc := newTestService(base, routing.FractureOnlyPolicy())

	res, err := svc.Analyze(telemetry.WithRequestID(context.Background(), "req-1"), upload())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	want := model.AnalysisRecord{
		Detected:       true,
		Condition:      "Distal Radius Fracture",
		Severity:       model.SeverityModerate,
		AffectedRegion: "Left Distal Radius",
		Findings:       "...",
		Medication:     "Ibuprofen",
		DoctorType:     "Orthopedic Surgeon",
		Urgency:        model.UrgencyWithinDay,
	}
	if diff := cmp.Diff(want, res.Record); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
	if !res.Corrected || res.MatchedRule != "fracture" || res.ScopeFiltered {
		t.Fatalf("unexpected result metadata %+v", res)
	}

	if base.calls != 1 {
		t.Fatalf("expected one vision call, got %d", base.calls)
	}
	in := base.inputs[0]
	if !bytes.Equal(in.Data, pngHeader) || in.MIMEType != "image/png" {
		t.Fatalf("image not forwarded: %+v", in)
	}
	if in.SystemPrompt != svc.Prompts.System || !strings.Contains(in.SystemPrompt, "FRACTURES ONLY") {
		t.Fatalf("fracture-only system prompt not sent")
	}
}

func TestAnalyzeOsteoarthritisIsScopeFiltered(t *testing.T) {
	reply := `{"detected":true,"condition":"Osteoarthritis of Knee","severity":"Mild","affectedRegion":"Right Knee","findings":"Joint space narrowing.","medication":"Paracetamol","doctorType":"Rheumatologist","urgency":"Within a week"}`
	svc := newTestService(&scriptedLLM{replies: []string{reply}}, routing.FractureOnlyPolicy())

	res, err := svc.Analyze(context.Background(), upload())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !res.ScopeFiltered {
		t.Fatalf("expected scope filter to fire")
	}
	rec := res.Record
	if rec.Detected || rec.Condition != model.NoFractureDetected || rec.Severity != model.SeverityNone {
		t.Fatalf("unexpected record %+v", rec)
	}
	if err := rec.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestAnalyzeGeneralPolicyKeepsDisease(t *testing.T) {
	reply := `{"detected":true,"condition":"Osteoarthritis of Knee","severity":"Mild","affectedRegion":"Right Knee","findings":"","medication":"","doctorType":"Orthopedic Surgeon","urgency":"Routine"}`
	base := &scriptedLLM{replies: []string{reply}}
	svc := newTestService(base, routing.GeneralPolicy())

	res, err := svc.Analyze(context.Background(), upload())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.ScopeFiltered || res.Record.DoctorType != "Rheumatologist" {
		t.Fatalf("unexpected result %+v", res)
	}
	if strings.Contains(base.inputs[0].SystemPrompt, "FRACTURES ONLY") {
		t.Fatalf("general policy should send the general prompt")
	}
}

func TestAnalyzeNonDetectionGetsSentinel(t *testing.T) {
	reply := `{"detected":false,"condition":"No fracture detected","severity":"None","affectedRegion":"Left Wrist","findings":"Normal alignment.","medication":"None","doctorType":"","urgency":"Routine","additionalNotes":null}`
	svc := newTestService(&scriptedLLM{replies: []string{reply}}, routing.FractureOnlyPolicy())

	res, err := svc.Analyze(context.Background(), upload())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Record.DoctorType != model.NoSpecialistNeeded {
		t.Fatalf("doctorType = %q", res.Record.DoctorType)
	}
}

func TestAnalyzeInputErrors(t *testing.T) {
	cases := map[string]ImageUpload{
		"empty":     {MIMEType: "image/png"},
		"not_image": {Data: []byte("%PDF-1.4"), MIMEType: "application/pdf"},
		"too_large": {Data: bytes.Repeat([]byte{1}, 2048), MIMEType: "image/jpeg"},
	}
	for name, up := range cases {
		t.Run(name, func(t *testing.T) {
			base := &scriptedLLM{}
			svc := newTestService(base, routing.FractureOnlyPolicy())
			_, err := svc.Analyze(context.Background(), up)
			var inputErr *InputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("expected *InputError, got %v", err)
			}
			if base.calls != 0 {
				t.Fatalf("vision model must not be called for bad input")
			}
		})
	}
	_, err := newTestService(&scriptedLLM{}, routing.FractureOnlyPolicy()).Analyze(context.Background(), ImageUpload{})
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("missing image should unwrap to ErrNoImage, got %v", err)
	}
}

func TestAnalyzePropagatesPipelineFailures(t *testing.T) {
	cases := []struct {
		name  string
		base  *scriptedLLM
		check func(t *testing.T, err error)
	}{
		{
			name: "unparseable",
			base: &scriptedLLM{replies: []string{"Sorry, I cannot help with that."}},
			check: func(t *testing.T, err error) {
				var perr *ParseError
				if !errors.As(err, &perr) || perr.Raw != "Sorry, I cannot help with that." {
					t.Fatalf("expected ParseError with raw text, got %v", err)
				}
			},
		},
		{
			name: "empty_content",
			base: &scriptedLLM{errs: []error{llm.ErrEmptyContent}},
			check: func(t *testing.T, err error) {
				var perr *ParseError
				if !errors.As(err, &perr) || !errors.Is(err, llm.ErrEmptyContent) {
					t.Fatalf("expected ParseError wrapping ErrEmptyContent, got %v", err)
				}
			},
		},
		{
			name: "malformed_envelope",
			base: &scriptedLLM{errs: []error{llm.ErrMalformedResponse}},
			check: func(t *testing.T, err error) {
				var perr *ParseError
				if !errors.As(err, &perr) || !errors.Is(err, llm.ErrMalformedResponse) {
					t.Fatalf("expected ParseError wrapping ErrMalformedResponse, got %v", err)
				}
			},
		},
		{
			name: "schema_mismatch",
			base: &scriptedLLM{replies: []string{`{"detected":"yes"}`}},
			check: func(t *testing.T, err error) {
				var verr *ValidationError
				if !errors.As(err, &verr) || verr.Field != "detected" {
					t.Fatalf("expected ValidationError on detected, got %v", err)
				}
			},
		},
		{
			name: "quota",
			base: &scriptedLLM{errs: []error{llm.NewUpstreamError("gateway", 402, "no credits")}},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, llm.ErrQuotaExhausted) {
					t.Fatalf("expected ErrQuotaExhausted, got %v", err)
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(tc.base, routing.FractureOnlyPolicy())
			res, err := svc.Analyze(context.Background(), upload())
			if err == nil {
				t.Fatalf("expected error, got %+v", res)
			}
			tc.check(t, err)
		})
	}
}

func TestAnalyzeRetriesTransientFailure(t *testing.T) {
	base := &scriptedLLM{
		replies: []string{"", distalRadiusJSON},
		errs:    []error{llm.NewUpstreamError("gateway", 503, "busy"), nil},
	}
	svc := newTestService(base, routing.FractureOnlyPolicy())
	if _, err := svc.Analyze(context.Background(), upload()); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if base.calls != 2 {
		t.Fatalf("expected one retry, got %d calls", base.calls)
	}
}

func TestAnalyzeWithoutClient(t *testing.T) {
	svc := newTestService(nil, routing.FractureOnlyPolicy())
	if _, err := svc.Analyze(context.Background(), upload()); !errors.Is(err, llm.ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
}

func TestRenderReport(t *testing.T) {
	svc := newTestService(&scriptedLLM{}, routing.FractureOnlyPolicy())
	rec := model.AnalysisRecord{
		Detected:   true,
		Condition:  "Skull fracture",
		Severity:   model.SeveritySevere,
		DoctorType: "Neurosurgeon",
		Urgency:    model.UrgencyImmediate,
	}
	pdf, err := svc.RenderReport(rec, nil)
	if err != nil {
		t.Fatalf("RenderReport: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Fatalf("expected PDF output")
	}

	rec.Severity = model.SeverityNone
	_, err = svc.RenderReport(rec, nil)
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected InputError for inconsistent record, got %v", err)
	}
}
