package feedback

// Pattern labels produced by the miner. Preference nudging keys off
// these same labels, so they are part of the stored-data vocabulary.
const (
	PatternShortened          = "shortened response"
	PatternExpanded           = "expanded response"
	PatternRemovedJargon      = "removed technical jargon"
	PatternAddedExamples      = "added specific examples"
	PatternMoreConversational = "made more conversational"
	PatternMoreFormal         = "made more formal"
)

// Lexicon holds the keyword lists that drive edit-pattern mining. The
// lists are configuration data: extending them changes what the miner
// labels without touching the algorithm.
type Lexicon struct {
	// TechnicalTerms flag jargon removal when present in the original
	// suggestion but absent from the user's edit.
	TechnicalTerms []string `yaml:"technical_terms" json:"technicalTerms"`
	// ContextPhrases flag example-adding edits when newly introduced.
	ContextPhrases []string `yaml:"context_phrases" json:"contextPhrases"`
	// CasualWords and FormalWords vote on tone shifts; the larger count
	// of newly introduced words wins, ties produce no tone label.
	CasualWords []string `yaml:"casual_words" json:"casualWords"`
	FormalWords []string `yaml:"formal_words" json:"formalWords"`
}

// DefaultLexicon returns the stock keyword lists.
func DefaultLexicon() Lexicon {
	return Lexicon{
		TechnicalTerms: []string{
			"api", "endpoint", "implementation", "function", "method", "interface",
		},
		ContextPhrases: []string{
			"for example", "for instance", "such as", "specifically", "in particular",
		},
		CasualWords: []string{
			"hey", "thanks", "sure", "just", "really", "great", "folks", "stuff",
		},
		FormalWords: []string{
			"therefore", "furthermore", "consequently", "regarding", "accordingly", "pursuant",
		},
	}
}
