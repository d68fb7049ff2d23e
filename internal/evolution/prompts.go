package evolution

import (
	"fmt"
	"strings"

	"github.com/sitelore/evolvd/pkg/models"
)

// mutationSystemPrompt steers the generation model toward small,
// targeted instruction rewrites rather than full redrafts.
const mutationSystemPrompt = `You are an expert prompt engineer. You improve assistant instruction prompts based on real user feedback.

Rules:
- Make targeted adjustments that address the observed feedback patterns.
- Preserve the prompt's overall structure and intent.
- Never remove or alter the immutable sections listed by the user.
- Respond only with the revised prompt text, no commentary.`

// buildMutationPrompt assembles the user message for one mutation
// attempt: current text, recent metrics, mined edit patterns, and the
// boundary sections the rewrite must keep verbatim.
func buildMutationPrompt(prompt *models.EvolvingPrompt, analysis *PerformanceAnalysis) string {
	var b strings.Builder

	b.WriteString("Current instruction prompt:\n---\n")
	b.WriteString(prompt.CurrentPrompt)
	b.WriteString("\n---\n\n")

	fmt.Fprintf(&b, "Recent performance over the analysis window:\n")
	fmt.Fprintf(&b, "- success rate: %.2f\n", analysis.SuccessRate)
	fmt.Fprintf(&b, "- edit rate: %.2f\n", analysis.EditRate)
	fmt.Fprintf(&b, "- total interactions: %d\n", analysis.TotalInteractions)

	if len(analysis.TopPatterns) > 0 {
		b.WriteString("\nMost frequent user edit patterns:\n")
		for _, p := range analysis.TopPatterns {
			fmt.Fprintf(&b, "- %s (%d times)\n", p.Label, p.Frequency)
		}
	}

	if len(prompt.Evolution.Boundaries) > 0 {
		b.WriteString("\nImmutable sections that must appear unchanged in the revision:\n")
		for _, boundary := range prompt.Evolution.Boundaries {
			fmt.Fprintf(&b, "- %q\n", boundary)
		}
	}

	b.WriteString("\nRewrite the prompt to address the edit patterns while keeping every immutable section intact. Respond only with the revised prompt text.")
	return b.String()
}
