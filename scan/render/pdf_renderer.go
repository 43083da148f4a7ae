package render

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"

	"bonescan-backend/scan/model"
)

// FileName is the download name offered for every report.
const FileName = "BoneScan-AI-Report.pdf"

const (
	title      = "BoneScan AI — Diagnostic Report"
	disclaimer = "DISCLAIMER: This report is AI-generated and for informational purposes only. It does not constitute medical advice, diagnosis, or treatment. Always consult a qualified healthcare provider for medical decisions."

	margin        = 16.0
	headerHeight  = 36.0
	bodyTop       = 48.0
	imageSize     = 55.0
	summaryOffset = 62.0
	topMargin     = 20.0

	sectionBreakY    = 260.0
	disclaimerFloorY = 250.0
	disclaimerBreakY = 270.0
	pageBottom       = 285.0

	titleLineHeight      = 6.0
	maxTitleLines        = 2
	bodyLineHeight       = 5.0
	disclaimerLineHeight = 3.5
)

type rgb struct{ r, g, b int }

var (
	brandBlue  = rgb{23, 92, 211}
	white      = rgb{255, 255, 255}
	darkText   = rgb{30, 30, 30}
	mutedText  = rgb{80, 80, 80}
	bodyText   = rgb{50, 50, 50}
	ruleGrey   = rgb{220, 220, 220}
	footerGrey = rgb{150, 150, 150}
)

// Image is an optional scan embedded in the report.
type Image struct {
	Data     []byte
	MIMEType string
}

// Renderer lays out an analysis record as an A4 PDF. The zero value uses the
// wall clock and random report IDs.
type Renderer struct {
	Now      func() time.Time
	NewID    func() string
	Compress bool
}

// NewRenderer returns a Renderer with compressed output.
func NewRenderer() *Renderer {
	return &Renderer{Compress: true}
}

// Render produces the report. A missing or unusable image falls back to the
// text-only summary; it never causes Render to fail.
func (r *Renderer) Render(rec model.AnalysisRecord, img *Image) ([]byte, error) {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.Compress)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(margin, topMargin, margin)
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetTitle(title, true)
	pdf.SetCreator("BoneScan AI", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*margin

	pdf.AddPage()
	r.header(pdf, tr, pageW, now)

	y := bodyTop
	if name, ok := embedImage(pdf, img); ok {
		pdf.ImageOptions(name, margin, y, imageSize, imageSize, false, fpdf.ImageOptions{}, 0, "")
		x := margin + summaryOffset
		w := pageW - margin - x
		setText(pdf, darkText, "B", 14)
		titleLines := fitLines(pdf, tr(rec.Condition), w, maxTitleLines)
		for i, line := range titleLines {
			pdf.Text(x, y+8+float64(i)*titleLineHeight, line)
		}
		ty := y + 18 + float64(max(len(titleLines)-1, 0))*titleLineHeight
		setText(pdf, mutedText, "", 10)
		for _, row := range []string{
			"Severity: " + string(rec.Severity),
			"Urgency: " + string(rec.Urgency),
			"Region: " + rec.AffectedRegion,
		} {
			for _, line := range fitLines(pdf, tr(row), w, 1) {
				pdf.Text(x, ty, line)
			}
			ty += 8
		}
		y = math.Max(y+imageSize, ty) + 10
	} else {
		setText(pdf, darkText, "B", 14)
		titleLines := fitLines(pdf, tr(rec.Condition), contentW, maxTitleLines)
		for i, line := range titleLines {
			pdf.Text(margin, y+float64(i)*titleLineHeight, line)
		}
		y += 10 + float64(max(len(titleLines)-1, 0))*titleLineHeight
		setText(pdf, mutedText, "", 10)
		summary := fmt.Sprintf("Severity: %s  |  Urgency: %s  |  Region: %s", rec.Severity, rec.Urgency, rec.AffectedRegion)
		summaryLines := fitLines(pdf, tr(summary), contentW, 2)
		for i, line := range summaryLines {
			pdf.Text(margin, y+float64(i)*bodyLineHeight, line)
		}
		y += 14 + float64(max(len(summaryLines)-1, 0))*bodyLineHeight
	}

	separator(pdf, pageW, y)
	y += 10

	for _, s := range sections(rec) {
		if y > sectionBreakY {
			pdf.AddPage()
			y = topMargin
		}
		setText(pdf, brandBlue, "B", 10)
		pdf.Text(margin, y, tr(strings.ToUpper(s.title)))
		y += 6

		setText(pdf, bodyText, "", 10)
		for _, line := range wrapLines(pdf, tr(s.body), contentW) {
			if y > pageBottom {
				pdf.AddPage()
				y = topMargin
			}
			pdf.Text(margin, y, line)
			y += bodyLineHeight
		}
		y += 8
	}

	y = math.Max(y+8, disclaimerFloorY)
	if y > disclaimerBreakY {
		pdf.AddPage()
		y = topMargin
	}
	separator(pdf, pageW, y)
	y += 6
	setText(pdf, footerGrey, "", 7)
	for _, line := range wrapLines(pdf, tr(disclaimer), contentW) {
		pdf.Text(margin, y, line)
		y += disclaimerLineHeight
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) header(pdf *fpdf.Fpdf, tr func(string) string, pageW float64, now time.Time) {
	pdf.SetFillColor(brandBlue.r, brandBlue.g, brandBlue.b)
	pdf.Rect(0, 0, pageW, headerHeight, "F")
	setText(pdf, white, "B", 18)
	pdf.Text(margin, 16, tr(title))
	setText(pdf, white, "", 9)
	pdf.Text(margin, 28, tr(fmt.Sprintf("Report ID: %s  |  Date: %s", r.reportID(), now.Format("January 2, 2006"))))
}

func (r *Renderer) reportID() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return ShortID(uuid.NewString())
}

// ShortID returns the first eight hex digits of an identifier, upper-cased.
func ShortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

type section struct {
	title string
	body  string
}

func sections(rec model.AnalysisRecord) []section {
	all := []section{
		{title: "Clinical Findings", body: rec.Findings},
		{title: "Suggested Medication", body: rec.Medication},
		{title: "Recommended Specialist", body: rec.DoctorType},
		{title: "Additional Notes", body: rec.AdditionalNotes},
	}
	out := all[:0]
	for _, s := range all {
		if strings.TrimSpace(s.body) != "" {
			out = append(out, s)
		}
	}
	return out
}

// wrapLines splits cp1252 text to width w. It works on bytes because the
// translated text is no longer valid UTF-8.
func wrapLines(pdf *fpdf.Fpdf, text string, w float64) []string {
	var out []string
	for _, line := range pdf.SplitLines([]byte(text), w) {
		out = append(out, string(line))
	}
	return out
}

// fitLines wraps like wrapLines but keeps at most maxLines, ending the last
// one with "..." when text was cut.
func fitLines(pdf *fpdf.Fpdf, text string, w float64, maxLines int) []string {
	lines := wrapLines(pdf, text, w)
	if len(lines) <= maxLines {
		return lines
	}
	lines = lines[:maxLines]
	last := strings.TrimRight(lines[maxLines-1], " ")
	for last != "" && pdf.GetStringWidth(last+"...") > w {
		last = last[:len(last)-1]
	}
	lines[maxLines-1] = last + "..."
	return lines
}

func setText(pdf *fpdf.Fpdf, c rgb, style string, size float64) {
	pdf.SetFont("Helvetica", style, size)
	pdf.SetTextColor(c.r, c.g, c.b)
}

func separator(pdf *fpdf.Fpdf, pageW, y float64) {
	pdf.SetDrawColor(ruleGrey.r, ruleGrey.g, ruleGrey.b)
	pdf.Line(margin, y, pageW-margin, y)
}

const imageName = "scan"

// embedImage registers img on pdf. Decoding is tried on a scratch document
// first because fpdf errors are sticky and would fail the whole report.
func embedImage(pdf *fpdf.Fpdf, img *Image) (string, bool) {
	if img == nil || len(img.Data) == 0 {
		return "", false
	}
	imageType, ok := fpdfImageType(img.MIMEType)
	if !ok {
		return "", false
	}
	opts := fpdf.ImageOptions{ImageType: imageType}

	if !imageDecodes(opts, img.Data) {
		return "", false
	}

	pdf.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(img.Data))
	return imageName, pdf.Ok()
}

func fpdfImageType(mime string) (string, bool) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch mime {
	case "image/png":
		return "PNG", true
	case "image/jpeg", "image/jpg":
		return "JPG", true
	case "image/gif":
		return "GIF", true
	default:
		return "", false
	}
}

func imageDecodes(opts fpdf.ImageOptions, data []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	scratch := fpdf.New("P", "mm", "A4", "")
	scratch.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(data))
	return scratch.Ok()
}
