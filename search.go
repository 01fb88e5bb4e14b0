// ═══════════════════════════════════════════════════════════════════════════════
// MULTI-TERM SEARCH: Phrases, Covers, Proximity
// ═══════════════════════════════════════════════════════════════════════════════
// Everything in this file reduces to the same primitive question, asked over
// and over: "where does every query term next occur?". That is exactly the
// multi-list lower-bound query the cascade accelerates.
//
// Two algorithms live here:
//
//	PHRASE SEARCH  "quick brown fox" as an exact consecutive sequence.
//	               Walks one term at a time, so it runs on the single-list
//	               Next/Previous primitives.
//
//	COVER SEARCH   The smallest window of a document containing ALL query
//	               terms, in any order. Each step needs the next occurrence
//	               of EVERY term at once: one cascaded Seek instead of one
//	               binary search per term.
//
// Covers feed proximity ranking: documents where the query terms huddle
// together score higher than documents where they are scattered.
// ═══════════════════════════════════════════════════════════════════════════════

package cascade

import (
	"log/slog"
	"slices"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PHRASE SEARCH
// ═══════════════════════════════════════════════════════════════════════════════
// To find "quick brown fox":
//
//	Step 1: Walk FORWARD through the terms to find a candidate END.
//	        next "quick" at/after from  → 2:3
//	        next "brown" after 2:3      → 2:4
//	        next "fox"   after 2:4      → 2:5   ← phrase end candidate
//
//	Step 2: Walk BACKWARD from the end, recording where each term landed.
//	        previous "brown" before 2:5 → 2:4
//	        previous "quick" before 2:4 → 2:3   ← phrase start candidate
//
//	Step 3: Validate: one document, and every term sitting at the same word
//	        slot relative to the start as it does in the QUERY.
//
//	Step 4: Not valid? The words exist but are scattered. Resume the hunt
//	        just after the candidate start.
//
// STOPWORD HOLES:
// ---------------
// The analyzer numbers raw words and filters leave holes, on the query side
// exactly as on the document side. So "state of the art" analyzes to
// [state@0, art@3], and matches documents where "art" sits three slots
// after "state" - which is precisely where "state of the art" put it when
// it was indexed. The filtered words themselves are never consulted; their
// spacing is.
// ═══════════════════════════════════════════════════════════════════════════════

// NextPhrase finds the first exact occurrence of a phrase at or after from.
// The phrase is analyzed with the index's configuration, so it matches the
// way documents were indexed. Returns ok=false when no occurrence remains.
func (idx *TermIndex) NextPhrase(phrase string, from Position) (start, end Position, ok bool) {
	tokens := AnalyzeWithConfig(phrase, idx.config)
	if len(tokens) == 0 {
		return EOF, EOF, false
	}
	return idx.nextPhraseTokens(tokens, from)
}

func (idx *TermIndex) nextPhraseTokens(tokens []Token, from Position) (Position, Position, bool) {
	positions := make([]Position, len(tokens))

	for {
		// STEP 1: candidate end.
		end, err := idx.Next(tokens[0].Term, from)
		if err != nil {
			return EOF, EOF, false
		}
		for _, tok := range tokens[1:] {
			end, err = idx.Next(tok.Term, end+1)
			if err != nil {
				return EOF, EOF, false
			}
		}

		// STEP 2: walk back from the end, recording every term's landing
		// position.
		positions[len(tokens)-1] = end
		for i := len(tokens) - 2; i >= 0; i-- {
			prev, err := idx.Previous(tokens[i].Term, positions[i+1])
			if err != nil {
				// Cannot happen for a well-formed walk: step 1 passed an
				// occurrence of tokens[i] on the way to end.
				return EOF, EOF, false
			}
			positions[i] = prev
		}
		start := positions[0]

		// STEP 3: one document, every term at its query-relative slot.
		valid := start.DocID() == end.DocID()
		for i := range tokens {
			if positions[i]-start != Position(tokens[i].Offset-tokens[0].Offset) {
				valid = false
				break
			}
		}
		if valid {
			return start, end, true
		}

		// STEP 4: resume past the candidate start.
		from = start + 1
	}
}

// FindAllPhrases returns every exact occurrence of a phrase at or after
// from, as [start, end] position pairs in document order.
func (idx *TermIndex) FindAllPhrases(phrase string, from Position) [][2]Position {
	tokens := AnalyzeWithConfig(phrase, idx.config)
	if len(tokens) == 0 {
		return nil
	}

	var matches [][2]Position
	for {
		start, end, ok := idx.nextPhraseTokens(tokens, from)
		if !ok {
			return matches
		}
		matches = append(matches, [2]Position{start, end})
		from = start + 1
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// COVER SEARCH
// ═══════════════════════════════════════════════════════════════════════════════
// A cover is a minimal window [start, end] within one document that contains
// every query term at least once, in any order.
//
// COVER EXAMPLE:
// --------------
// Document 2: "fast search needs a fast index"
// Positions:    0     1      2        4    5       ("a" leaves a hole at 3)
//
// Query {"fast", "index"}:
//
//	Cover 1: [2:4, 2:5]   "fast index"  ← tight!
//
// FINDING ONE COVER (two cascaded queries):
//
//	Phase 1: Seek(from) → first occurrence of each term at/after from.
//	         The LATEST of those is the earliest possible cover end.
//	Phase 2: seekBefore(end+1) → latest occurrence of each term at/before
//	         end. The EARLIEST of those is the cover start: pulling the
//	         window any tighter would evict that term.
//	Phase 3: start and end in the same document → cover. Otherwise the
//	         window straddles a document boundary; restart just after start.
//
// Both phases are "one lower bound per term", so both are single cascade
// queries: a cover costs two Seeks, not 2k binary searches.
// ═══════════════════════════════════════════════════════════════════════════════

// NextCover finds the next minimal window at or after from that contains
// every one of the searcher's terms. Returns ok=false when the terms never
// all appear again.
func (s *Searcher) NextCover(from Position) (start, end Position, ok bool) {
	for {
		// PHASE 1: the cover cannot end before the furthest "next
		// occurrence" among the terms.
		end = 0
		for _, pos := range s.Seek(from) {
			if pos.IsEnd() {
				return EOF, EOF, false
			}
			if pos > end {
				end = pos
			}
		}

		// PHASE 2: the latest occurrence of each term at or before end;
		// the earliest of them starts the cover. Every term has one (phase
		// 1 saw it), so seekBefore is safe.
		start = EOF
		for _, pos := range s.seekBefore(end + 1) {
			if pos < start {
				start = pos
			}
		}

		// PHASE 3: a cover must live inside one document.
		if start.DocID() == end.DocID() {
			return start, end, true
		}
		from = start + 1
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// PROXIMITY RANKING
// ═══════════════════════════════════════════════════════════════════════════════
// Documents whose covers are SHORT and NUMEROUS rank first:
//
//	score(doc) = Σ over covers in doc of 1 / (cover width + 1)
//
// EXAMPLE:
// --------
// Query {"quick", "brown"} (each "..." is one other word):
//
//	Doc A: "quick brown ... quick brown"  → covers of width 1, 2, 1 → ~1.33
//	Doc B: "quick ... ... ... brown"      → one cover of width 4    → 0.2
//
// Doc A's middle cover is "brown ... quick": covers may take the terms in
// any order.
//
// Doc A wins: its terms huddle, Doc B's are scattered.
// ═══════════════════════════════════════════════════════════════════════════════

// Match is one ranked search result.
type Match struct {
	DocID  uint32        // The matching document
	Covers [][2]Position // Every cover found in the document
	Score  float64       // Higher is more relevant
}

// RankProximity runs a cover scan over the whole index and returns up to
// maxResults matches, best first. Ties rank the smaller document ID first
// so results are deterministic.
func (idx *TermIndex) RankProximity(query string, maxResults int) ([]Match, error) {
	s, err := idx.Searcher(query)
	if err != nil {
		return nil, err
	}

	slog.Info("ranking by proximity",
		slog.String("query", query),
		slog.Int("terms", len(s.terms)))

	byDoc := make(map[uint32]*Match)
	var order []uint32

	from := Position(0)
	for {
		start, end, ok := s.NextCover(from)
		if !ok {
			break
		}

		docID := end.DocID()
		m := byDoc[docID]
		if m == nil {
			m = &Match{DocID: docID}
			byDoc[docID] = m
			order = append(order, docID)
		}
		m.Covers = append(m.Covers, [2]Position{start, end})
		m.Score += 1.0 / float64(end-start+1)

		from = start + 1
	}

	matches := make([]Match, 0, len(order))
	for _, docID := range order {
		matches = append(matches, *byDoc[docID])
	}
	sortMatchesByScore(matches)
	return limitResults(matches, maxResults), nil
}

// sortMatchesByScore orders matches best-first, breaking score ties by
// document ID.
func sortMatchesByScore(matches []Match) {
	slices.SortStableFunc(matches, func(a, b Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		case a.DocID < b.DocID:
			return -1
		case a.DocID > b.DocID:
			return 1
		}
		return 0
	})
}

// limitResults truncates to the requested result count. A non-positive
// maxResults means "no limit".
func limitResults(matches []Match, maxResults int) []Match {
	if maxResults <= 0 || len(matches) <= maxResults {
		return matches
	}
	return matches[:maxResults]
}
