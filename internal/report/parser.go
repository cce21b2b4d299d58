package report

import (
	"regexp"
	"strings"
)

// ScoreUndetermined is returned when no score-labeled line is present.
const ScoreUndetermined = "NON DÉTERMINÉ"

// maxAlerts bounds the alert list so the synthesis page stays readable.
const maxAlerts = 6

// Row is the normalized projection of one table line of the analysis
// markdown. Risk carries whatever uppercase token the model produced.
type Row struct {
	Category       string `json:"category"`
	Clause         string `json:"clause"`
	Finding        string `json:"finding"`
	Risk           string `json:"risk"`
	Recommendation string `json:"recommendation"`
}

// Parsed is the structured projection of an analysis report.
type Parsed struct {
	Score  string   `json:"score"`
	Alerts []string `json:"alerts"`
	Rows   []Row    `json:"rows"`
}

// The model is asked for "Score de Risque Global : X" (buyer) or
// "Indice de fragilité prix : N/100" (seller) but output is not
// schema-constrained, so the value capture accepts any uppercase token
// or a numeric indicator.
var scoreRe = regexp.MustCompile(`(?:(?i:score(?: de risque global)?|indice(?: de fragilité(?: prix)?)?|niveau))[\s:*]*([0-9]{1,3}(?:\s*/\s*100)?|\p{Lu}[\p{Lu}0-9]*)`)

var (
	alertBlockRe = regexp.MustCompile(`(?is)(?:priorités de négociation|alertes majeures|points de vigilance)(.*?)(?:\n\n|###|\||$)`)
	ordinalRe    = regexp.MustCompile(`^\d+\.`)
	leadMarkerRe = regexp.MustCompile(`^[- \d.]*`)
	brRe         = regexp.MustCompile(`(?i)<br\s*/?>`)
)

// cleanCell strips the markup the prompts forbid but the model sometimes
// emits anyway.
func cleanCell(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "|", "")
	text = strings.ReplaceAll(text, "###", "")
	text = brRe.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// Parse extracts score, alerts and table rows from the analysis markdown.
// Parsing is defensive throughout: malformed input degrades to defaults and
// never produces an error.
func Parse(markdown string) Parsed {
	p := Parsed{Score: ScoreUndetermined}

	if m := scoreRe.FindStringSubmatch(markdown); m != nil {
		p.Score = strings.ToUpper(strings.ReplaceAll(m[1], " ", ""))
	}

	if m := alertBlockRe.FindStringSubmatch(markdown); m != nil {
		for _, line := range strings.Split(m[1], "\n") {
			t := strings.TrimSpace(line)
			if !strings.HasPrefix(t, "-") && !ordinalRe.MatchString(t) {
				continue
			}
			alert := cleanCell(leadMarkerRe.ReplaceAllString(t, ""))
			if alert == "" {
				continue
			}
			p.Alerts = append(p.Alerts, alert)
			if len(p.Alerts) == maxAlerts {
				break
			}
		}
	}

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "|") {
			continue
		}
		// skip the separator row and the header row
		if strings.Contains(trimmed, "---") || strings.Contains(strings.ToLower(trimmed), "catégorie") {
			continue
		}
		cells := splitCells(trimmed)
		if countNonEmpty(cells) < 4 {
			continue
		}
		p.Rows = append(p.Rows, Row{
			Category:       cleanCell(cellOr(cells, 0, "Général")),
			Clause:         cleanCell(cellOr(cells, 1, "Clause")),
			Finding:        cleanCell(cellOr(cells, 2, "-")),
			Risk:           cleanCell(cellOr(cells, 3, "MODÉRÉ")),
			Recommendation: cleanCell(cellOr(cells, 4, "")),
		})
	}

	return p
}

// splitCells drops the empty fragments produced by the leading and trailing
// pipe, keeping interior cells even when blank.
func splitCells(line string) []string {
	parts := strings.Split(line, "|")
	if len(parts) < 3 {
		return nil
	}
	cells := parts[1 : len(parts)-1]
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

func countNonEmpty(cells []string) int {
	n := 0
	for _, c := range cells {
		if c != "" {
			n++
		}
	}
	return n
}

func cellOr(cells []string, idx int, def string) string {
	if idx < len(cells) && cells[idx] != "" {
		return cells[idx]
	}
	return def
}
