package analyses

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bonescan-backend/internal/shared/server/middleware"
	"bonescan-backend/internal/shared/server/respond"
	"bonescan-backend/internal/shared/util"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze-scan", h.analyzeScan)
}

type analyzeRequest struct {
	ImageBase64 string `json:"imageBase64"`
	MIMEType    string `json:"mimeType"`
}

func (h *Handler) analyzeScan(c *gin.Context) {
	upload, err := h.readUpload(c)
	if err != nil {
		status, code, msg := HTTPError(err)
		respond.Error(c, status, code, msg)
		return
	}

	res, err := h.Svc.Analyze(c.Request.Context(), upload)
	if err != nil {
		status, code, msg := HTTPError(err)
		respond.Error(c, status, code, msg)
		return
	}

	c.Set(middleware.ScopeFilteredKey, res.ScopeFiltered)
	if res.MatchedRule != "" {
		c.Set(middleware.MatchedRuleKey, res.MatchedRule)
	}
	respond.OK(c, res.Record)
}

// readUpload accepts either a JSON body with base64 image data or a multipart
// form with an "image" file field.
func (h *Handler) readUpload(c *gin.Context) (ImageUpload, error) {
	limit := h.Svc.MaxImageBytes
	if limit <= 0 {
		limit = DefaultMaxImageBytes
	}
	// base64 inflates by 4/3; leave room for the JSON envelope too.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit*4/3+64<<10)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		return readMultipart(c, limit)
	}

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ImageUpload{}, &InputError{Reason: "image is too large", Err: err}
		}
		if errors.Is(err, io.EOF) {
			return ImageUpload{}, &InputError{Reason: "no image provided", Err: ErrNoImage}
		}
		return ImageUpload{}, &InputError{Reason: "request body must be JSON", Err: err}
	}
	if strings.TrimSpace(req.ImageBase64) == "" {
		return ImageUpload{}, &InputError{Reason: "no image provided", Err: ErrNoImage}
	}
	data, hint, err := util.DecodeBase64MaybeDataURL(req.ImageBase64)
	if err != nil {
		return ImageUpload{}, &InputError{Reason: "imageBase64 is not valid base64", Err: err}
	}
	return ImageUpload{Data: data, MIMEType: util.PickMIME(req.MIMEType, hint, data)}, nil
}

func readMultipart(c *gin.Context, limit int64) (ImageUpload, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ImageUpload{}, &InputError{Reason: "image is too large", Err: err}
		}
		return ImageUpload{}, &InputError{Reason: "no image provided", Err: ErrNoImage}
	}
	if fh.Size > limit {
		return ImageUpload{}, &InputError{Reason: "image is too large"}
	}
	f, err := fh.Open()
	if err != nil {
		return ImageUpload{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return ImageUpload{}, err
	}
	explicit := c.PostForm("mimeType")
	if explicit == "" {
		explicit = fh.Header.Get("Content-Type")
	}
	if explicit == "application/octet-stream" {
		explicit = ""
	}
	return ImageUpload{Data: data, MIMEType: util.PickMIME(explicit, "", data)}, nil
}
