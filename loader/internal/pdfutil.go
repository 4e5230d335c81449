package internal

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var ErrNoText = errors.New("pdf contains no extractable text")

// ExtractPDFText validates a PDF held in memory with pdfcpu and returns the
// text of all pages, one page per paragraph, plus the page count. Text is
// decoded through each font's encoding and ToUnicode map.
func ExtractPDFText(data []byte) (string, int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return "", 0, fmt.Errorf("failed to validate PDF: %w", err)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", ctx.PageCount, fmt.Errorf("failed to open PDF for text: %w", err)
	}

	var sb strings.Builder
	var pageErr error
	for page := 1; page <= ctx.PageCount; page++ {
		raw, err := pageText(r.Page(page))
		if err != nil && pageErr == nil {
			pageErr = fmt.Errorf("failed to read text of page %d: %w", page, err)
		}

		text := NormalizeText(raw)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}

	if sb.Len() == 0 {
		if pageErr != nil {
			return "", ctx.PageCount, pageErr
		}
		return "", ctx.PageCount, ErrNoText
	}
	return sb.String(), ctx.PageCount, nil
}
