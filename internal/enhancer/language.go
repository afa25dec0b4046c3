package enhancer

import (
	"strings"
	"unicode"
)

// languageThreshold is the share of stop words a text must exceed before a
// language is reported.
const languageThreshold = 0.08

type stopWordList struct {
	code  string
	words map[string]struct{}
}

func newStopWordList(code string, words ...string) stopWordList {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return stopWordList{code: code, words: set}
}

// candidates are scored in this order; the first wins a tie.
var candidates = []stopWordList{
	newStopWordList("en",
		"the", "and", "of", "to", "is", "in", "that", "it", "with", "for",
		"was", "on", "are", "this", "be", "have", "from", "by", "not", "which"),
	newStopWordList("es",
		"el", "los", "las", "que", "y", "del", "se", "por", "una", "para",
		"es", "al", "lo", "como", "más", "pero", "sus", "está", "muy", "también"),
	newStopWordList("fr",
		"le", "les", "des", "et", "est", "une", "dans", "qui", "pour", "pas",
		"sur", "au", "avec", "ce", "sont", "du", "ne", "plus", "nous", "vous"),
	newStopWordList("de",
		"der", "die", "das", "und", "ist", "nicht", "mit", "ein", "eine", "zu",
		"den", "von", "auf", "sich", "dem", "auch", "für", "wird", "werden", "oder"),
	newStopWordList("pt",
		"o", "os", "do", "da", "dos", "das", "em", "um", "uma", "com",
		"não", "mais", "ao", "são", "pelo", "pela", "foi", "também", "isso", "seu"),
	newStopWordList("it",
		"il", "gli", "che", "di", "della", "un", "per", "non", "sono", "è",
		"nel", "alla", "anche", "più", "come", "questo", "delle", "degli", "ha", "essere"),
}

// DetectLanguage scores text against the stop-word list of every candidate
// and returns the best ISO 639-1 code, or LanguageUnknown when no score
// exceeds the threshold.
func DetectLanguage(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) == 0 {
		return LanguageUnknown
	}

	best := LanguageUnknown
	bestScore := 0.0
	for _, candidate := range candidates {
		matches := 0
		for _, w := range words {
			if _, ok := candidate.words[w]; ok {
				matches++
			}
		}
		score := float64(matches) / float64(len(words))
		if score > bestScore {
			best, bestScore = candidate.code, score
		}
	}
	if bestScore <= languageThreshold {
		return LanguageUnknown
	}
	return best
}
