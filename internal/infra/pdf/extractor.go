package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	ledong "github.com/ledongthuc/pdf"
)

// Extractor implements the TextExtractor port with ledongthuc/pdf. The
// document is processed entirely in memory; nothing is written to disk.
type Extractor struct{}

func NewExtractor() *Extractor { return &Extractor{} }

// Extract returns the concatenated plain text of every page, page order
// preserved, pages joined with a newline.
func (e *Extractor) Extract(ctx context.Context, data []byte) (string, error) {
	doc, err := ledong.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var builder strings.Builder
	total := doc.NumPage()
	for page := 1; page <= total; page++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}
