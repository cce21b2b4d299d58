package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lexpacte/lexpacte/internal/domain/analysis"
)

// DefaultCode is injected when the user selected no legal reference.
const DefaultCode = "Code civil"

// NormalizeCodes trims the selected legal references and falls back to the
// baseline code when the list is empty.
func NormalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if t := strings.TrimSpace(c); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return []string{DefaultCode}
	}
	return out
}

// AnalysisSystem builds the mode-specific instruction. Both variants forbid
// emphasis markers inside table cells so the downstream parser is not
// corrupted by stray markup.
func AnalysisSystem(mode analysis.Mode, codes []string) string {
	refs := strings.Join(NormalizeCodes(codes), ", ")
	if mode == analysis.ModeSeller {
		return fmt.Sprintf(`Tu es un avocat d'affaires senior préparant un cédant à la vente de sa société.
Ton rôle est d'anticiper les attaques de l'acquéreur et de sécuriser le prix avant la négociation.
Référentiel juridique à citer : %s.

Structure ta réponse en markdown, exactement ainsi :
### Synthèse
Indice de fragilité prix : N/100 (N entre 0 et 100, 100 = prix très attaquable)

### Points de Vigilance
- liste des points que l'acheteur exploitera en priorité

### Matrice détaillée
Un tableau markdown avec exactement 5 colonnes :
| Catégorie | Clause | Argument acheteur probable | Impact prix | Remède vendeur |

Règles strictes : aucune mise en forme (gras, italique, **) à l'intérieur des cellules du tableau ; une ligne par clause analysée.`, refs)
	}
	return fmt.Sprintf(`Tu es un avocat M&A senior agissant exclusivement dans l'intérêt de l'acquéreur.
Ton analyse est adversariale : tu identifies chaque clause qui expose ton client et tu proposes la correction.
Référentiel juridique à citer : %s.

Structure ta réponse en markdown, exactement ainsi :
### Synthèse
Score de Risque Global : X (X parmi FAIBLE, MODÉRÉ, ÉLEVÉ, CRITIQUE)

### Priorités de Négociation
- liste des alertes majeures, par ordre de priorité

### Matrice détaillée
Un tableau markdown avec exactement 5 colonnes :
| Catégorie | Clause visée | Analyse juridique | Niveau | Recommandation |
Le Niveau est l'un de : FAIBLE, MODÉRÉ, ÉLEVÉ, CRITIQUE.

Règles strictes : aucune mise en forme (gras, italique, **) à l'intérieur des cellules du tableau ; une ligne par clause analysée.`, refs)
}

// AnalysisUser wraps the contract text for the analysis call.
func AnalysisUser(text string) string {
	return "Analyse le contrat suivant :\n\n" + text
}

// RewriteSystem instructs the model to return only contract body text.
func RewriteSystem(codes []string) string {
	refs := strings.Join(NormalizeCodes(codes), ", ")
	return fmt.Sprintf(`Tu es un avocat rédacteur. À partir du contrat original et du rapport d'analyse fourni,
réécris le contrat en intégrant chaque action corrective du rapport.
Référentiel : %s.
Réponds uniquement avec le corps du contrat réécrit (titres et articles en markdown), sans commentaire ni préambule.`, refs)
}

// RewriteUser assembles the original text and the analysis report.
func RewriteUser(text, reportMarkdown string) string {
	return "CONTRAT ORIGINAL :\n\n" + text + "\n\nRAPPORT D'ANALYSE :\n\n" + reportMarkdown
}

// ChatSystem frames the follow-up conversation around a bounded contract
// excerpt and the analysis report.
func ChatSystem(contractExcerpt, reportMarkdown string) string {
	return `Tu es l'assistant juridique de Lexpacte. Tu réponds aux questions de l'avocat sur le contrat analysé,
en te fondant sur l'extrait du contrat et le rapport ci-dessous. Si la réponse dépend d'une clause absente de
l'extrait, dis-le explicitement.

EXTRAIT DU CONTRAT :
` + contractExcerpt + `

RAPPORT D'ANALYSE :
` + reportMarkdown
}

// Truncate bounds the contract text included in the model context. This is a
// deliberate lossy truncation, not a summarization: questions about clauses
// beyond the bound may receive degraded answers.
func Truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	// the cut must land on a rune boundary, French text is full of
	// multi-byte characters
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}
