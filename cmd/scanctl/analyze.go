package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"bonescan-backend/internal/analyses"
	"bonescan-backend/internal/bootstrap"
	"bonescan-backend/internal/shared/config"
	"bonescan-backend/internal/shared/util"
	"bonescan-backend/scan/render"
)

type analyzeOptions struct {
	policy   string
	provider string
	mimeType string
	pdfOut   string
}

func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Analyze one X-ray image and print the record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.policy, "policy", "", "scan policy (fracture-only|general); defaults to SCAN_POLICY")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "vision provider (gateway|gemini); defaults to LLM_PROVIDER")
	cmd.Flags().StringVar(&opts.mimeType, "mime", "", "image MIME type; sniffed when empty")
	cmd.Flags().StringVar(&opts.pdfOut, "pdf", "", "also write the PDF report to this path")
	return cmd
}

func runAnalyze(cmd *cobra.Command, path string, opts analyzeOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.policy != "" {
		cfg.ScanPolicy = opts.policy
	}
	if opts.provider != "" {
		cfg.LLMProvider = opts.provider
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	policy, err := bootstrap.BuildPolicy(cfg)
	if err != nil {
		return err
	}
	client, err := bootstrap.BuildVisionClient(cfg)
	if err != nil {
		return err
	}
	svc := analyses.NewService(client, policy, cfg.MaxImageBytes)

	upload := analyses.ImageUpload{Data: data, MIMEType: util.PickMIME(opts.mimeType, "", data)}
	res, err := svc.Analyze(cmd.Context(), upload)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Record); err != nil {
		return err
	}

	if opts.pdfOut == "" {
		return nil
	}
	pdf, err := svc.RenderReport(res.Record, &render.Image{Data: upload.Data, MIMEType: upload.MIMEType})
	if err != nil {
		return err
	}
	return os.WriteFile(opts.pdfOut, pdf, 0o644)
}
