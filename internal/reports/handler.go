package reports

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bonescan-backend/internal/analyses"
	"bonescan-backend/internal/shared/server/respond"
	"bonescan-backend/internal/shared/telemetry"
	"bonescan-backend/internal/shared/util"
	"bonescan-backend/scan/render"
)

const maxReportBody = 32 << 20

// Handler renders analysis results as downloadable PDF reports.
type Handler struct {
	Svc *analyses.Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *analyses.Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches report routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reports", h.createReport)
}

type reportRequest struct {
	Result      map[string]any `json:"result"`
	ImageBase64 string         `json:"imageBase64"`
	MIMEType    string         `json:"mimeType"`
}

func (h *Handler) createReport(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxReportBody)

	var req reportRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, analyses.ErrorCodeInvalidInput, "Request body must be JSON with a result object")
		return
	}
	if req.Result == nil {
		respond.Error(c, http.StatusBadRequest, analyses.ErrorCodeInvalidInput, "Result is required")
		return
	}

	rec, err := analyses.ValidateRecord(req.Result)
	if err != nil {
		var verr *analyses.ValidationError
		if errors.As(err, &verr) {
			respond.Error(c, http.StatusBadRequest, analyses.ErrorCodeInvalidInput, "Result has a missing or invalid "+verr.Field)
			return
		}
		respond.Error(c, http.StatusBadRequest, analyses.ErrorCodeInvalidInput, "Result is not a valid analysis")
		return
	}

	img := decodeImage(req.ImageBase64, req.MIMEType)
	pdf, err := h.Svc.RenderReport(rec, img)
	if err != nil {
		status, code, msg := analyses.HTTPError(err)
		if status == http.StatusInternalServerError {
			msg = "Report generation failed"
		}
		respond.Error(c, status, code, msg)
		return
	}

	respond.Attachment(c, render.FileName, "application/pdf", pdf)
}

// decodeImage is lenient: an unreadable image only drops the picture from the
// report.
func decodeImage(b64, mime string) *render.Image {
	if strings.TrimSpace(b64) == "" {
		return nil
	}
	data, hint, err := util.DecodeBase64MaybeDataURL(b64)
	if err != nil {
		telemetry.Info("report.image_skipped", map[string]any{"reason": "invalid base64"})
		return nil
	}
	return &render.Image{Data: data, MIMEType: util.PickMIME(mime, hint, data)}
}
