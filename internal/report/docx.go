package report

import (
	"bytes"
	"fmt"
	"strings"

	docx "github.com/fumiama/go-docx"
)

// RenderDOCX rebuilds the revised contract as a Word document from its
// markdown headings and paragraphs. Sizes are half-points.
func RenderDOCX(markdown string) ([]byte, error) {
	doc := docx.New().WithDefaultTheme()

	for _, block := range strings.Split(markdown, "\n") {
		line := strings.TrimRight(block, " \t")
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			doc.AddParagraph()
		case strings.HasPrefix(trimmed, "### "):
			doc.AddParagraph().AddText(cleanCell(trimmed[4:])).Size("24").Bold()
		case strings.HasPrefix(trimmed, "## "):
			doc.AddParagraph().AddText(cleanCell(trimmed[3:])).Size("28").Bold()
		case strings.HasPrefix(trimmed, "# "):
			doc.AddParagraph().AddText(cleanCell(trimmed[2:])).Size("32").Bold()
		default:
			doc.AddParagraph().AddText(strings.ReplaceAll(trimmed, "**", "")).Size("22")
		}
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render docx: %w", err)
	}
	return buf.Bytes(), nil
}

// ReportFilename is the deterministic export name for the PDF report.
func ReportFilename(date string) string {
	return fmt.Sprintf("Rapport_Expert_Lexpacte_%s.pdf", date)
}

// ContractFilename is the deterministic export name for the revised contract.
func ContractFilename(mode, date string) string {
	return fmt.Sprintf("Contrat_Revise_%s_%s.docx", mode, date)
}
