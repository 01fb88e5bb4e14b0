// ═══════════════════════════════════════════════════════════════════════════════
// TEXT ANALYSIS
// ═══════════════════════════════════════════════════════════════════════════════
// The term index stores POSITIONED tokens, so the analyzer does two jobs at
// once: normalize the text and pin every surviving token to the word slot it
// occupied in the raw document.
//
//	1. Tokenization     → split on non-letters/digits, numbering every word
//	2. Lowercasing      → "Cascade" and "cascade" are the same term
//	3. Stopword removal → drop glue words, KEEP their word slots
//	4. Length filter    → drop one-character fragments, keep slots
//	5. Stemming         → "searching", "searched" → "search"
//
// EXAMPLE:
// --------
// Input:  "Searching the sorted lists, quickly!"
// Output: [search@0, sort@2, list@3, quick@4]
//
// WHY OFFSETS ARE ASSIGNED BEFORE FILTERING:
// ------------------------------------------
// Dropped words leave HOLES instead of shifting their neighbors left.
// Positions feed straight into the cascade's keys, and the distances between
// them are what phrase adjacency and proximity scoring measure:
//
//	"fox of dog"    → fox@0, dog@2    not a phrase: one word apart
//	"fox dog"       → fox@0, dog@1    a phrase: adjacent slots
//
// Compacting the offsets instead would make "fox of dog" indistinguishable
// from "fox dog", and would score scattered terms as if they touched.
//
// Both sides MUST agree: a query term stemmed differently from the indexed
// term would never find its posting list.
// ═══════════════════════════════════════════════════════════════════════════════

package cascade

import (
	"strings"
	"unicode"

	snowballeng "github.com/kljensen/snowball/english"
)

// Token is one analyzed word: the normalized term plus the word slot it
// occupied in the raw text. Offsets count every raw word, including the
// ones later filters discard.
type Token struct {
	Term   string
	Offset int
}

// AnalyzerConfig controls the normalization pipeline.
type AnalyzerConfig struct {
	MinTokenLength  int  // Shortest token kept after filtering
	EnableStemming  bool // Apply the snowball stemmer
	EnableStopwords bool // Drop common English glue words
}

// DefaultConfig returns the configuration used by the index unless told
// otherwise.
func DefaultConfig() AnalyzerConfig {
	return AnalyzerConfig{
		MinTokenLength:  2,
		EnableStemming:  true,
		EnableStopwords: true,
	}
}

// Analyze normalizes text with the default pipeline.
//
// Example:
//
//	Analyze("The quick brown fox jumps")
//	// → [quick@1, brown@2, fox@3, jump@4]
func Analyze(text string) []Token {
	return AnalyzeWithConfig(text, DefaultConfig())
}

// AnalyzeWithConfig normalizes text with an explicit configuration.
func AnalyzeWithConfig(text string, config AnalyzerConfig) []Token {
	tokens := tokenize(text)
	lowercaseTokens(tokens)

	if config.EnableStopwords {
		tokens = dropStopwords(tokens)
	}

	tokens = dropShort(tokens, config.MinTokenLength)

	if config.EnableStemming {
		stemTokens(tokens)
	}

	return tokens
}

// tokenize scans the text once, cutting a token at every maximal run of
// letters and digits and numbering the runs left to right. The numbering,
// not the byte location, becomes the token's offset: word slots are what
// positional search measures distances in.
//
//	"hello-world"    → [hello@0, world@1]
//	"price: $9.99"   → [price@0, 9@1, 99@2]
//	"café"           → [café@0]
func tokenize(text string) []Token {
	var tokens []Token

	start := -1
	ordinal := 0
	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, Token{Term: text[start:i], Offset: ordinal})
			ordinal++
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, Token{Term: text[start:], Offset: ordinal})
	}

	return tokens
}

// lowercaseTokens normalizes casing in place so lookups are
// case-insensitive.
func lowercaseTokens(tokens []Token) {
	for i := range tokens {
		tokens[i].Term = strings.ToLower(tokens[i].Term)
	}
}

// dropStopwords removes common English words but leaves their word slots
// behind as holes. Stopwords occur in nearly every document, so their
// posting lists are huge and their positions tell a proximity query
// nothing; the holes they leave still keep the surviving distances honest.
func dropStopwords(tokens []Token) []Token {
	r := tokens[:0]
	for _, tok := range tokens {
		if _, stop := englishStopwords[tok.Term]; !stop {
			r = append(r, tok)
		}
	}
	return r
}

// dropShort removes tokens shorter than minLength bytes, holes again left
// in place. Single letters left over from contractions ("don't" → "don",
// "t") are the usual victims.
func dropShort(tokens []Token, minLength int) []Token {
	r := tokens[:0]
	for _, tok := range tokens {
		if len(tok.Term) >= minLength {
			r = append(r, tok)
		}
	}
	return r
}

// stemTokens reduces each term to its root form in place with the Snowball
// (Porter2) English stemmer.
//
//	[running@0, quickly@1, foxes@2] → [run@0, quick@1, fox@2]
func stemTokens(tokens []Token) {
	for i := range tokens {
		tokens[i].Term = snowballeng.Stem(tokens[i].Term, false)
	}
}

// englishStopwords is the exclusion list for dropStopwords.
// Values are empty structs: only membership matters.
var englishStopwords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "after": {}, "again": {},
	"against": {}, "all": {}, "am": {}, "an": {}, "and": {},
	"any": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"because": {}, "been": {}, "before": {}, "being": {}, "below": {},
	"between": {}, "both": {}, "but": {}, "by": {}, "can": {},
	"could": {}, "did": {}, "do": {}, "does": {}, "doing": {},
	"down": {}, "during": {}, "each": {}, "few": {}, "for": {},
	"from": {}, "further": {}, "had": {}, "has": {}, "have": {},
	"having": {}, "he": {}, "her": {}, "here": {}, "hers": {},
	"herself": {}, "him": {}, "himself": {}, "his": {}, "how": {},
	"i": {}, "if": {}, "in": {}, "into": {}, "is": {},
	"it": {}, "its": {}, "itself": {}, "just": {}, "me": {},
	"more": {}, "most": {}, "my": {}, "myself": {}, "no": {},
	"nor": {}, "not": {}, "now": {}, "of": {}, "off": {},
	"on": {}, "once": {}, "only": {}, "or": {}, "other": {},
	"our": {}, "ours": {}, "ourselves": {}, "out": {}, "over": {},
	"own": {}, "same": {}, "she": {}, "should": {}, "so": {},
	"some": {}, "such": {}, "than": {}, "that": {}, "the": {},
	"their": {}, "theirs": {}, "them": {}, "themselves": {}, "then": {},
	"there": {}, "these": {}, "they": {}, "this": {}, "those": {},
	"through": {}, "to": {}, "too": {}, "under": {}, "until": {},
	"up": {}, "very": {}, "was": {}, "we": {}, "were": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "while": {},
	"who": {}, "whom": {}, "why": {}, "will": {}, "with": {},
	"would": {}, "you": {}, "your": {}, "yours": {}, "yourself": {},
	"yourselves": {},
}
