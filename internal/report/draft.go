package report

import "time"

// Draft is the editable export model. Parsed data seeds a draft; every field
// may be edited by the user before export, and the draft — not the original
// parse — is the source of truth for rendering.
type Draft struct {
	Title      string    `json:"title"`
	Subtitle   string    `json:"subtitle"`
	ClientName string    `json:"client_name"`
	Subject    string    `json:"subject"`
	Score      string    `json:"score"`
	Alerts     []string  `json:"alerts"`
	Rows       []Row     `json:"rows"`
	Date       time.Time `json:"date"`
}

// NewDraft seeds an editable draft from a parsed report.
func NewDraft(p Parsed, now time.Time) Draft {
	return Draft{
		Title:      "RAPPORT D'AUDIT JURIDIQUE",
		Subtitle:   "ANALYSE DES RISQUES CONTRACTUELS & RECOMMANDATIONS",
		ClientName: "Direction Générale / Département M&A",
		Subject:    "Revue stratégique de conformité et sécurisation des actifs",
		Score:      p.Score,
		Alerts:     p.Alerts,
		Rows:       p.Rows,
		Date:       now,
	}
}

// Merge overlays the edited values onto the seeded draft. Zero values keep
// the seed so partial edits round-trip cleanly.
func (d Draft) Merge(edit Draft) Draft {
	out := d
	if edit.Title != "" {
		out.Title = edit.Title
	}
	if edit.Subtitle != "" {
		out.Subtitle = edit.Subtitle
	}
	if edit.ClientName != "" {
		out.ClientName = edit.ClientName
	}
	if edit.Subject != "" {
		out.Subject = edit.Subject
	}
	if edit.Score != "" {
		out.Score = edit.Score
	}
	if edit.Alerts != nil {
		out.Alerts = edit.Alerts
	}
	if edit.Rows != nil {
		out.Rows = edit.Rows
	}
	if !edit.Date.IsZero() {
		out.Date = edit.Date
	}
	return out
}
