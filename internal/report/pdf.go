package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

const disclaimer = "LIMITATION DE RESPONSABILITÉ : Ce document est une synthèse produite par un " +
	"système d'intelligence artificielle spécialisé. Il ne constitue pas un conseil juridique " +
	"au sens de la loi n° 71-1130 du 31 décembre 1971. L'analyse est délivrée à titre purement " +
	"indicatif et doit impérativement faire l'objet d'une revue par un avocat inscrit au barreau " +
	"avant toute mise en œuvre ou signature contractuelle."

// RenderPDF produces the paginated export: cover page, synthesis page and a
// landscape risk matrix, one row per draft row.
func RenderPDF(d Draft) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetAutoPageBreak(true, 20)

	coverPage(pdf, tr, d)
	synthesisPage(pdf, tr, d)
	matrixPage(pdf, tr, d)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func coverPage(pdf *fpdf.Fpdf, tr func(string) string, d Draft) {
	pdf.AddPage()
	// dark cover background
	pdf.SetFillColor(15, 23, 42)
	pdf.Rect(0, 0, 210, 297, "F")

	pdf.SetTextColor(239, 68, 68)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetXY(140, 15)
	pdf.CellFormat(55, 5, tr("STRICTEMENT CONFIDENTIEL"), "", 0, "R", false, 0, "")

	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 26)
	pdf.SetXY(20, 110)
	pdf.MultiCell(170, 12, tr(d.Title), "", "C", false)

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(148, 163, 184)
	pdf.SetX(20)
	pdf.MultiCell(170, 6, tr(d.Subtitle), "", "C", false)

	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(20, 170)
	pdf.MultiCell(170, 6, tr("Client : "+d.ClientName), "", "L", false)
	pdf.SetX(20)
	pdf.MultiCell(170, 6, tr("Date : "+d.Date.Format("02/01/2006")), "", "L", false)
	pdf.SetX(20)
	pdf.MultiCell(170, 6, tr("Objet : "+d.Subject), "", "L", false)

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetTextColor(148, 163, 184)
	pdf.SetXY(25, 255)
	pdf.MultiCell(160, 3.5, tr(disclaimer), "", "C", false)
}

func synthesisPage(pdf *fpdf.Fpdf, tr func(string) string, d Draft) {
	pdf.AddPage()
	sectionTitle(pdf, tr, "1. Synthèse de l'Exposition")

	// score box
	pdf.SetDrawColor(239, 68, 68)
	pdf.SetFillColor(254, 242, 242)
	pdf.SetLineWidth(0.4)
	y := pdf.GetY() + 2
	pdf.Rect(15, y, 180, 14, "FD")
	pdf.SetXY(20, y+4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(90, 6, tr("NIVEAU D'EXPOSITION GLOBAL :"), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(239, 68, 68)
	pdf.CellFormat(85, 6, tr(d.Score), "", 1, "R", false, 0, "")

	// alert list
	pdf.SetY(y + 22)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 6, tr("POINTS DE VIGILANCE PRIORITAIRES :"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(51, 65, 85)
	if len(d.Alerts) == 0 {
		pdf.CellFormat(0, 6, tr("Aucune alerte majeure identifiée."), "", 1, "L", false, 0, "")
	}
	for _, a := range d.Alerts {
		pdf.SetX(18)
		pdf.MultiCell(175, 5, tr("- "+a), "", "L", false)
		pdf.Ln(1)
	}

	pdf.Ln(8)
	sectionTitle(pdf, tr, "2. Méthodologie & Référentiel")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(51, 65, 85)
	for _, line := range []string{
		"Analyse effectuée sur la base du Code civil (Réforme 2016) et du Code de commerce.",
		"Évaluation de la conformité jurisprudentielle (Cour de cassation).",
		"Identification des clauses créant un déséquilibre significatif (Art. 1171 C. civ).",
	} {
		pdf.SetX(18)
		pdf.MultiCell(175, 5, tr("- "+line), "", "L", false)
		pdf.Ln(1)
	}
	pageFooter(pdf, tr)
}

var matrixHeaders = []string{"DOMAINE", "CLAUSE VISÉE", "ANALYSE JURIDIQUE & FONDEMENT", "NIVEAU", "RECOMMANDATION"}
var matrixWidths = []float64{34, 42, 100, 28, 70}

func matrixPage(pdf *fpdf.Fpdf, tr func(string) string, d Draft) {
	pdf.AddPageFormat("L", fpdf.SizeType{Wd: 210, Ht: 297})
	sectionTitle(pdf, tr, "3. Matrice de Risques & Préconisations Rédactionnelles")

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range matrixHeaders {
		pdf.CellFormat(matrixWidths[i], 8, tr(h), "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 7.5)
	for _, row := range d.Rows {
		cells := []string{row.Category, row.Clause, row.Finding, row.Risk, row.Recommendation}
		for i := range cells {
			cells[i] = tr(cells[i])
		}
		h := rowHeight(pdf, cells)
		if pdf.GetY()+h > 190 {
			pdf.AddPageFormat("L", fpdf.SizeType{Wd: 210, Ht: 297})
		}
		x, y := pdf.GetX(), pdf.GetY()
		for i, c := range cells {
			if i == 3 {
				setRiskColor(pdf, row.Risk)
			} else {
				pdf.SetTextColor(51, 65, 85)
			}
			pdf.Rect(x, y, matrixWidths[i], h, "D")
			pdf.SetXY(x+1, y+1)
			pdf.MultiCell(matrixWidths[i]-2, 4, c, "", "L", false)
			x += matrixWidths[i]
			pdf.SetXY(x, y)
		}
		pdf.SetXY(pdf.GetX()-sum(matrixWidths), y+h)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 7)
	pdf.SetTextColor(148, 163, 184)
	pdf.MultiCell(0, 4, tr("Note : Les recommandations sont des propositions de rédaction contractuelle conformes à l'intérêt du client."), "", "L", false)
	pageFooter(pdf, tr)
}

// severity keyword match drives the level cell color
func setRiskColor(pdf *fpdf.Fpdf, risk string) {
	if strings.Contains(risk, "CRITIQUE") || strings.Contains(risk, "ÉLEVÉ") {
		pdf.SetTextColor(239, 68, 68)
		return
	}
	pdf.SetTextColor(100, 116, 139)
}

func rowHeight(pdf *fpdf.Fpdf, cells []string) float64 {
	h := 6.0
	for i, c := range cells {
		n := len(pdf.SplitText(c, matrixWidths[i]-2))
		if n == 0 {
			n = 1
		}
		if lh := float64(n)*4 + 2; lh > h {
			h = lh
		}
	}
	return h
}

func sectionTitle(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(15, 23, 42)
	pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func pageFooter(pdf *fpdf.Fpdf, tr func(string) string) {
	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "", 7)
	pdf.SetTextColor(148, 163, 184)
	pdf.CellFormat(120, 4, tr("LEXPACTE.AI - Direction Juridique Augmentée"), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 4, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
}

func sum(ws []float64) float64 {
	t := 0.0
	for _, w := range ws {
		t += w
	}
	return t
}
