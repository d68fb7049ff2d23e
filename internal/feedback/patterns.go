package feedback

import (
	"sort"
	"strings"
	"unicode"

	"github.com/sitelore/evolvd/pkg/models"
)

// Length ratio thresholds for the shortened/expanded labels.
const (
	shortenedRatio = 0.7
	expandedRatio  = 1.3
)

// Miner labels how users rewrite AI suggestions using keyword-list
// heuristics. Each edit event contributes frequency 1 to every label it
// matches; frequencies accumulate across events within one window.
type Miner struct {
	lexicon Lexicon
}

// NewMiner creates a miner over the given lexicon.
func NewMiner(lexicon Lexicon) *Miner {
	return &Miner{lexicon: lexicon}
}

// Mine extracts edit patterns from the edit-type events in the batch,
// sorted by descending frequency and capped at MaxAggregationPatterns.
// Each pattern keeps only its most recent example edits.
func (m *Miner) Mine(events []*models.FeedbackEvent) []models.EditPattern {
	byLabel := make(map[string]*models.EditPattern)
	var order []string

	for _, event := range events {
		if event.Type != models.FeedbackEdit || event.Suggestion == "" || event.EditedText == "" {
			continue
		}
		for _, label := range m.labelEdit(event.Suggestion, event.EditedText) {
			pattern, ok := byLabel[label]
			if !ok {
				pattern = &models.EditPattern{Label: label}
				byLabel[label] = pattern
				order = append(order, label)
			}
			pattern.Frequency++
			pattern.AddExample(event.EditedText)
		}
	}

	// Stable sort keeps first-seen order among equal frequencies so
	// mining output is deterministic.
	sort.SliceStable(order, func(i, j int) bool {
		return byLabel[order[i]].Frequency > byLabel[order[j]].Frequency
	})
	if len(order) > models.MaxAggregationPatterns {
		order = order[:models.MaxAggregationPatterns]
	}

	patterns := make([]models.EditPattern, 0, len(order))
	for _, label := range order {
		patterns = append(patterns, *byLabel[label])
	}
	return patterns
}

// labelEdit returns every pattern label one original/edit pair matches.
func (m *Miner) labelEdit(original, edited string) []string {
	var labels []string

	ratio := float64(len(edited)) / float64(len(original))
	if ratio < shortenedRatio {
		labels = append(labels, PatternShortened)
	} else if ratio > expandedRatio {
		labels = append(labels, PatternExpanded)
	}

	lowerOriginal := strings.ToLower(original)
	lowerEdited := strings.ToLower(edited)
	originalWords := tokenize(lowerOriginal)
	editedWords := tokenize(lowerEdited)

	for _, term := range m.lexicon.TechnicalTerms {
		if originalWords[term] && !editedWords[term] {
			labels = append(labels, PatternRemovedJargon)
			break
		}
	}

	for _, phrase := range m.lexicon.ContextPhrases {
		if strings.Contains(lowerEdited, phrase) && !strings.Contains(lowerOriginal, phrase) {
			labels = append(labels, PatternAddedExamples)
			break
		}
	}

	casual := countNewWords(m.lexicon.CasualWords, originalWords, editedWords)
	formal := countNewWords(m.lexicon.FormalWords, originalWords, editedWords)
	if casual > formal {
		labels = append(labels, PatternMoreConversational)
	} else if formal > casual {
		labels = append(labels, PatternMoreFormal)
	}

	return labels
}

// countNewWords counts list words present in the edit but not the
// original.
func countNewWords(list []string, original, edited map[string]bool) int {
	count := 0
	for _, word := range list {
		if edited[word] && !original[word] {
			count++
		}
	}
	return count
}

// tokenize splits lower-cased text into a word set.
func tokenize(text string) map[string]bool {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]bool, len(words))
	for _, word := range words {
		set[word] = true
	}
	return set
}
