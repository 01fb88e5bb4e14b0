// Package-level view: the term index is the collaborator that FEEDS the
// fractional cascade.
//
// ═══════════════════════════════════════════════════════════════════════════════
// WHY A TERM INDEX?
// ═══════════════════════════════════════════════════════════════════════════════
// The cascade answers "where does key q land in each of these sorted lists?".
// A positional search index is the textbook producer of exactly that shape of
// data: every term owns a sorted list of positions, and a multi-term query
// needs, for EVERY term, the first occurrence at or after some position.
//
// Architecture:
//
//	TermIndex
//	├── docBitmaps: map[term]*roaring.Bitmap   (DOCUMENT level)
//	│   "quick" → {1, 3, 5}     which documents mention the term at all
//	├── postings: map[term][]Position          (POSITION level)
//	│   "quick" → [1:0, 3:2, 5:7]   sorted, exact word positions
//	└── Searcher: a FractionalCascade over the query terms' posting lists
//
// The split mirrors the two kinds of questions:
// - Roaring bitmaps: set algebra over documents (AND/OR/NOT), compressed
// - Posting arrays + cascade: synchronized positional scans across terms
//
// MUTABILITY BOUNDARY:
// --------------------
// The index is mutable while documents are added (mutex-guarded). Posting
// lists are sorted lazily the first time a read needs them, and every
// Searcher snapshot is immutable from birth: the cascade never changes after
// construction, so searches run lock-free.
// ═══════════════════════════════════════════════════════════════════════════════

package cascade

import (
	"errors"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

var (
	ErrNoPostingList = errors.New("cascade: no posting list exists for term")
	ErrNoNextElement = errors.New("cascade: no next element found")
	ErrNoPrevElement = errors.New("cascade: no previous element found")
	ErrEmptyQuery    = errors.New("cascade: query has no searchable terms")
)

// ═══════════════════════════════════════════════════════════════════════════════
// POSITION: A Word Slot Packed Into One Integer
// ═══════════════════════════════════════════════════════════════════════════════
// A position identifies one word in one document:
//
//	Document 5: "the quick brown fox"
//	NewPosition(5, 2) → "brown"
//
// The document ID lives in the high 32 bits and the offset in the low 32:
//
//	bits 63........32 31.........0
//	     [ document ] [  offset  ]
//
// Packing buys total ordering for free: positions compare first by document,
// then by offset, with a single integer comparison. That single comparison is
// what the cascade's hot loop runs on, and a uint64 key is as cheap to copy
// into the augmented levels as keys get.
// ═══════════════════════════════════════════════════════════════════════════════
type Position uint64

// EOF is the "no more occurrences" result of Seek, Next and friends.
//
// KNOWN LIMITATION: EOF is an in-band sentinel. It packs identically to
// NewPosition(^uint32(0), ^uint32(0)), so that one position (the last word
// slot of the last representable document) is reserved and must not be
// indexed; IsEnd would report it as end-of-results. Every smaller position
// orders strictly before EOF.
const EOF Position = math.MaxUint64

// NewPosition packs a document ID and a word offset.
func NewPosition(docID, offset uint32) Position {
	return Position(uint64(docID)<<32 | uint64(offset))
}

// DocID returns the document half of the position.
func (p Position) DocID() uint32 {
	return uint32(p >> 32)
}

// Offset returns the word-offset half of the position.
func (p Position) Offset() uint32 {
	return uint32(p)
}

// IsEnd reports whether the position is the EOF sentinel.
func (p Position) IsEnd() bool {
	return p == EOF
}

// ═══════════════════════════════════════════════════════════════════════════════
// TERM INDEX
// ═══════════════════════════════════════════════════════════════════════════════

// TermIndex maps analyzed terms to the documents and positions they occur
// at. Concurrent indexing is safe; searches built from it (Searcher) are
// immutable snapshots and never need the lock again.
type TermIndex struct {
	mu sync.Mutex

	config AnalyzerConfig

	// DOCUMENT-LEVEL STORAGE: term → compressed set of document IDs.
	docBitmaps map[string]*roaring.Bitmap

	// POSITION-LEVEL STORAGE: term → sorted positions of every occurrence.
	postings map[string][]Position

	// Every document ID ever indexed. The universe for NOT queries.
	docs *roaring.Bitmap

	// Posting lists are append-only while indexing and sorted on demand.
	dirty bool
}

// NewTermIndex creates an empty index with the default analyzer.
func NewTermIndex() *TermIndex {
	return NewTermIndexWithConfig(DefaultConfig())
}

// NewTermIndexWithConfig creates an empty index with a custom analyzer
// configuration. The same configuration is applied to queries, so terms meet
// their posting lists under the same normalization.
func NewTermIndexWithConfig(config AnalyzerConfig) *TermIndex {
	return &TermIndex{
		config:     config,
		docBitmaps: make(map[string]*roaring.Bitmap),
		postings:   make(map[string][]Position),
		docs:       roaring.NewBitmap(),
	}
}

// Index adds a document to the index.
//
// WALKTHROUGH:
// ------------
// Index(1, "The quick brown fox"):
//
//	Analyze → [quick@1, brown@2, fox@3]   ("The" leaves a hole at slot 0)
//	postings["quick"] += 1:1    docBitmaps["quick"] += {1}
//	postings["brown"] += 1:2    docBitmaps["brown"] += {1}
//	postings["fox"]   += 1:3    docBitmaps["fox"]   += {1}
//
// The analyzer's offsets number the RAW words, so the stored positions keep
// real word distances even where filters dropped tokens.
//
// Indexing the same document twice replays its positions; duplicates are
// compacted away the next time the posting lists are sealed.
func (idx *TermIndex) Index(docID uint32, document string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	tokens := AnalyzeWithConfig(document, idx.config)

	slog.Info("indexing document",
		slog.Int("docID", int(docID)),
		slog.Int("tokens", len(tokens)))

	for _, tok := range tokens {
		bitmap := idx.docBitmaps[tok.Term]
		if bitmap == nil {
			bitmap = roaring.NewBitmap()
			idx.docBitmaps[tok.Term] = bitmap
		}
		bitmap.Add(docID)

		idx.postings[tok.Term] = append(idx.postings[tok.Term], NewPosition(docID, uint32(tok.Offset)))
	}

	idx.docs.Add(docID)
	idx.dirty = true
}

// postingList seals the index if needed and returns the posting list for a
// term. Sealing sorts and deduplicates every list: documents may be indexed
// in any docID order, so appends alone do not keep the lists sorted.
func (idx *TermIndex) postingList(term string) ([]Position, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dirty {
		for term, ps := range idx.postings {
			slices.Sort(ps)
			idx.postings[term] = slices.Compact(ps)
		}
		idx.dirty = false
	}

	ps, ok := idx.postings[term]
	return ps, ok && len(ps) > 0
}

// ═══════════════════════════════════════════════════════════════════════════════
// SINGLE-TERM NAVIGATION
// ═══════════════════════════════════════════════════════════════════════════════
// First, Last, Next and Previous walk ONE posting list. They are the
// building blocks of phrase search, and the slow path the cascade is
// measured against: each call is an independent binary search.
// ═══════════════════════════════════════════════════════════════════════════════

// First returns the earliest occurrence of a term.
func (idx *TermIndex) First(term string) (Position, error) {
	ps, ok := idx.postingList(term)
	if !ok {
		return EOF, ErrNoPostingList
	}
	return ps[0], nil
}

// Last returns the latest occurrence of a term.
func (idx *TermIndex) Last(term string) (Position, error) {
	ps, ok := idx.postingList(term)
	if !ok {
		return EOF, ErrNoPostingList
	}
	return ps[len(ps)-1], nil
}

// Next returns the first occurrence of term AT OR AFTER from.
//
// Example, "brown" at [1:2, 3:1, 3:5]:
//
//	Next("brown", 0)           → 1:2
//	Next("brown", pos(3,1))    → 3:1     (inclusive!)
//	Next("brown", pos(3,2))    → 3:5
//	Next("brown", pos(4,0))    → EOF, ErrNoNextElement
func (idx *TermIndex) Next(term string, from Position) (Position, error) {
	ps, ok := idx.postingList(term)
	if !ok {
		return EOF, ErrNoPostingList
	}
	ix := bisectLeft(ps, from)
	if ix == len(ps) {
		return EOF, ErrNoNextElement
	}
	return ps[ix], nil
}

// Previous returns the last occurrence of term STRICTLY BEFORE before.
//
// Example, "brown" at [1:2, 3:1, 3:5]:
//
//	Previous("brown", pos(3,5))  → 3:1
//	Previous("brown", pos(1,2))  → EOF, ErrNoPrevElement
func (idx *TermIndex) Previous(term string, before Position) (Position, error) {
	ps, ok := idx.postingList(term)
	if !ok {
		return EOF, ErrNoPostingList
	}
	ix := bisectLeft(ps, before)
	if ix == 0 {
		return EOF, ErrNoPrevElement
	}
	return ps[ix-1], nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// SEARCHER: The Cascade Over a Query's Posting Lists
// ═══════════════════════════════════════════════════════════════════════════════
// A Searcher is an immutable snapshot built for one set of query terms. It
// owns a fractional cascade whose level i is term i's posting list, so a
// single Seek answers "first occurrence of EVERY term at or after q":
//
//	s, _ := idx.Searcher("quick brown fox")
//	s.Seek(0)  → [first "quick", first "brown", first "fox"]
//
// One binary search plus one comparison per term, instead of one binary
// search PER term. Multi-term algorithms (covers, proximity ranking) call
// Seek in a tight loop, which is where the saved log factors add up.
// ═══════════════════════════════════════════════════════════════════════════════
type Searcher struct {
	terms    []string
	postings [][]Position
	index    *FractionalCascade[Position]
}

// Searcher analyzes a query and builds a cascade over the posting lists of
// its distinct terms. Fails with ErrEmptyQuery if analysis leaves no terms,
// or ErrNoPostingList if any term has never been indexed.
func (idx *TermIndex) Searcher(query string) (*Searcher, error) {
	tokens := AnalyzeWithConfig(query, idx.config)

	terms := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if _, dup := seen[tok.Term]; dup {
			continue
		}
		seen[tok.Term] = struct{}{}
		terms = append(terms, tok.Term)
	}
	if len(terms) == 0 {
		return nil, ErrEmptyQuery
	}

	// Snapshot the posting lists: documents indexed after this point must
	// not reach through a live Searcher.
	lists := make([][]Position, len(terms))
	for i, term := range terms {
		ps, ok := idx.postingList(term)
		if !ok {
			return nil, ErrNoPostingList
		}
		lists[i] = slices.Clone(ps)
	}

	fc, err := NewFractionalCascade(lists)
	if err != nil {
		return nil, err
	}

	slog.Info("built searcher",
		slog.Int("terms", len(terms)),
		slog.Int("levels", fc.Len()))

	return &Searcher{terms: terms, postings: lists, index: fc}, nil
}

// Terms returns the analyzed, deduplicated query terms, in query order.
func (s *Searcher) Terms() []string {
	return slices.Clone(s.terms)
}

// Seek returns, for every term, its first occurrence at or after q, or EOF
// if the term does not occur again. result[i] corresponds to Terms()[i].
func (s *Searcher) Seek(q Position) []Position {
	ixs := s.index.LowerBoundAll(q)

	out := make([]Position, len(ixs))
	for i, ix := range ixs {
		if ix < len(s.postings[i]) {
			out[i] = s.postings[i][ix]
		} else {
			out[i] = EOF
		}
	}
	return out
}

// seekBefore returns, for every term, its last occurrence strictly before
// q. Callers must know an occurrence exists (covers do, see search.go).
func (s *Searcher) seekBefore(q Position) []Position {
	ixs := s.index.LowerBoundAll(q)

	out := make([]Position, len(ixs))
	for i, ix := range ixs {
		out[i] = s.postings[i][ix-1]
	}
	return out
}
