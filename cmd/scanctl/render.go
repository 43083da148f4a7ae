package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"bonescan-backend/internal/analyses"
	"bonescan-backend/internal/analyses/routing"
	"bonescan-backend/internal/shared/util"
	"bonescan-backend/scan/render"
)

type renderOptions struct {
	image    string
	mimeType string
	out      string
}

func newRenderCmd() *cobra.Command {
	var opts renderOptions
	cmd := &cobra.Command{
		Use:   "render <result.json>",
		Short: "Render a PDF report from a saved analysis record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.image, "image", "", "optional X-ray image to embed")
	cmd.Flags().StringVar(&opts.mimeType, "mime", "", "image MIME type; sniffed when empty")
	cmd.Flags().StringVarP(&opts.out, "out", "o", render.FileName, "output path")
	return cmd
}

func runRender(cmd *cobra.Command, path string, opts renderOptions) error {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read result: %w", err)
	}
	var obj map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	rec, err := analyses.ValidateRecord(obj)
	if err != nil {
		return err
	}

	var img *render.Image
	if opts.image != "" {
		data, err := os.ReadFile(filepath.Clean(opts.image))
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		img = &render.Image{Data: data, MIMEType: util.PickMIME(opts.mimeType, "", data)}
	}

	// Rendering does not touch the policy or the model.
	svc := analyses.NewService(nil, routing.FractureOnlyPolicy(), 0)
	pdf, err := svc.RenderReport(rec, img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.out, pdf, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", opts.out, len(pdf))
	return nil
}
