// Package transcript exports a conversation as a PDF or Markdown document.
package transcript

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"vacciassist/internal/domain"
)

const (
	DefaultTitle     = "Vacci-Assist Summary"
	UserLabel        = "Patient/User"
	AssistantLabel   = "Vacci-Assist"
	defaultFontSize  = 12
	defaultLineSpace = 8
)

// Options tune the PDF output. Zero values use the defaults.
type Options struct {
	Title    string
	Author   string
	FontSize float64
	// CreatedAt pins the document creation date, for reproducible output.
	CreatedAt time.Time
}

// Label returns the speaker label used for role.
func Label(role domain.Role) string {
	if role == domain.RoleUser {
		return UserLabel
	}
	return AssistantLabel
}

// WritePDF renders messages in order, one labelled paragraph per message.
// Text is translated to cp1252; characters outside it are replaced.
func WritePDF(w io.Writer, messages []domain.Message, opts Options) error {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.FontSize <= 0 {
		opts.FontSize = defaultFontSize
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(opts.Title, true)
	pdf.SetCreator("vacciassist", true)
	if opts.Author != "" {
		pdf.SetAuthor(opts.Author, true)
	}
	if !opts.CreatedAt.IsZero() {
		pdf.SetCreationDate(opts.CreatedAt)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", opts.FontSize+2)
	pdf.CellFormat(0, 10, tr(opts.Title), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	for _, m := range messages {
		pdf.SetFont("Helvetica", "B", opts.FontSize)
		pdf.CellFormat(0, defaultLineSpace, tr(Label(m.Role)+":"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", opts.FontSize)
		pdf.MultiCell(0, defaultLineSpace, tr(m.Content), "", "L", false)
		pdf.Ln(2)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write transcript pdf: %w", err)
	}
	return nil
}

// WriteMarkdown renders messages as a Markdown document.
func WriteMarkdown(w io.Writer, messages []domain.Message) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", DefaultTitle)
	for _, m := range messages {
		fmt.Fprintf(&b, "\n**%s:**\n\n%s\n", Label(m.Role), strings.TrimSpace(m.Content))
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write transcript markdown: %w", err)
	}
	return nil
}
