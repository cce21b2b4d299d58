package prompt

import "github.com/lexpacte/lexpacte/internal/domain/analysis"

// Fallback strings returned when a remote model call fails. Callers treat
// them as soft failures: the pipeline still reaches a terminal, inspectable
// state and the user may retry.

// FallbackReport is a degraded analysis report. It carries no score token so
// the parser resolves to its undetermined sentinel.
func FallbackReport(mode analysis.Mode) string {
	if mode == analysis.ModeSeller {
		return `### Synthèse

L'analyse automatique n'a pas pu être réalisée (service momentanément indisponible).
Aucun indice de fragilité n'a pu être calculé. Veuillez relancer l'analyse.`
	}
	return `### Synthèse

L'analyse automatique n'a pas pu être réalisée (service momentanément indisponible).
Aucune clause n'a pu être évaluée. Veuillez relancer l'analyse.`
}

// FallbackContract replaces the rewritten contract when the rewrite call
// fails; the analysis already produced remains usable.
func FallbackContract() string {
	return "La réécriture automatique du contrat n'a pas pu être réalisée. " +
		"Le rapport d'analyse reste disponible ; vous pouvez relancer la génération."
}

// FallbackChatReply is the single apologetic message returned when a chat
// call fails; the user's turn is preserved in the history regardless.
func FallbackChatReply() string {
	return "Je suis désolé, je ne parviens pas à répondre pour le moment. Veuillez réessayer dans quelques instants."
}
