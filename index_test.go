package cascade

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"testing"
)

// ═══════════════════════════════════════════════════════════════════════════════
// POSITION TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestPosition_Packing(t *testing.T) {
	tests := []struct {
		docID  uint32
		offset uint32
	}{
		{0, 0},
		{1, 0},
		{0, 1},
		{42, 10},
		{^uint32(0), ^uint32(0) - 1},
	}

	for _, tt := range tests {
		p := NewPosition(tt.docID, tt.offset)
		if p.DocID() != tt.docID || p.Offset() != tt.offset {
			t.Errorf("NewPosition(%d, %d) round-trips to (%d, %d)",
				tt.docID, tt.offset, p.DocID(), p.Offset())
		}
	}
}

func TestPosition_Ordering(t *testing.T) {
	// Document first, offset second: the packed integers must order the
	// same way the pairs do.
	ordered := []Position{
		NewPosition(0, 0),
		NewPosition(0, 5),
		NewPosition(1, 0),
		NewPosition(1, 3),
		NewPosition(2, 0),
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1] >= ordered[i] {
			t.Errorf("position %d:%d not < %d:%d",
				ordered[i-1].DocID(), ordered[i-1].Offset(),
				ordered[i].DocID(), ordered[i].Offset())
		}
	}

	if !EOF.IsEnd() {
		t.Error("EOF.IsEnd() = false")
	}
	if EOF <= NewPosition(^uint32(0), ^uint32(0)-1) {
		t.Error("EOF does not order after the largest indexable position")
	}

	// The documented in-band sentinel reservation: the very last packable
	// position IS EOF and cannot be told apart from "no more results".
	if reserved := NewPosition(^uint32(0), ^uint32(0)); reserved != EOF || !reserved.IsEnd() {
		t.Errorf("NewPosition(max, max) = %x, want the reserved EOF sentinel", uint64(reserved))
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// TERM INDEX TESTS
// ═══════════════════════════════════════════════════════════════════════════════
// Fixed corpus used across the index, search and query tests. Offsets
// number the raw words; filtered words (marked ·) leave holes:
//
//	doc 1: "the quick brown fox"        → · quick@1 brown@2 fox@3
//	doc 2: "brown dog and a brown fox"  → brown@0 dog@1 · · brown@4 fox@5
//	doc 3: "a lazy dog sleeps"          → · lazi@1 dog@2 sleep@3
//	doc 4: "fox and quick fox again"    → fox@0 · quick@2 fox@3 ·
//
// Posting lists after analysis:
//
//	quick: 1:1 4:2
//	brown: 1:2 2:0 2:4
//	fox:   1:3 2:5 4:0 4:3
//	dog:   2:1 3:2
// ═══════════════════════════════════════════════════════════════════════════════

func buildTestIndex() *TermIndex {
	idx := NewTermIndex()
	idx.Index(1, "the quick brown fox")
	idx.Index(2, "brown dog and a brown fox")
	idx.Index(3, "a lazy dog sleeps")
	idx.Index(4, "fox and quick fox again")
	return idx
}

func TestTermIndex_FirstLast(t *testing.T) {
	idx := buildTestIndex()

	if got, err := idx.First("brown"); err != nil || got != NewPosition(1, 2) {
		t.Errorf("First(brown) = %d:%d, %v", got.DocID(), got.Offset(), err)
	}
	if got, err := idx.Last("brown"); err != nil || got != NewPosition(2, 4) {
		t.Errorf("Last(brown) = %d:%d, %v", got.DocID(), got.Offset(), err)
	}

	if _, err := idx.First("unicorn"); !errors.Is(err, ErrNoPostingList) {
		t.Errorf("First(unicorn) error = %v, want ErrNoPostingList", err)
	}
}

func TestTermIndex_Next(t *testing.T) {
	idx := buildTestIndex()

	tests := []struct {
		name    string
		from    Position
		want    Position
		wantErr error
	}{
		{"from the start", 0, NewPosition(1, 3), nil},
		{"inclusive at an occurrence", NewPosition(2, 5), NewPosition(2, 5), nil},
		{"between occurrences", NewPosition(2, 6), NewPosition(4, 0), nil},
		{"past the last", NewPosition(4, 4), EOF, ErrNoNextElement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.Next("fox", tt.from)
			if got != tt.want || !errors.Is(err, tt.wantErr) {
				t.Errorf("Next(fox, %v) = %v, %v; want %v, %v",
					tt.from, got, err, tt.want, tt.wantErr)
			}
		})
	}
}

func TestTermIndex_Previous(t *testing.T) {
	idx := buildTestIndex()

	tests := []struct {
		name    string
		before  Position
		want    Position
		wantErr error
	}{
		{"strictly before an occurrence", NewPosition(2, 5), NewPosition(1, 3), nil},
		{"after everything", EOF, NewPosition(4, 3), nil},
		{"before everything", NewPosition(1, 3), EOF, ErrNoPrevElement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.Previous("fox", tt.before)
			if got != tt.want || !errors.Is(err, tt.wantErr) {
				t.Errorf("Previous(fox, %v) = %v, %v; want %v, %v",
					tt.before, got, err, tt.want, tt.wantErr)
			}
		})
	}
}

func TestTermIndex_OutOfOrderDocIDs(t *testing.T) {
	// Posting lists must come out sorted even when documents arrive out of
	// docID order.
	idx := NewTermIndex()
	idx.Index(9, "fox")
	idx.Index(3, "fox fox")
	idx.Index(7, "fox")

	want := []Position{
		NewPosition(3, 0), NewPosition(3, 1),
		NewPosition(7, 0), NewPosition(9, 0),
	}
	ps, ok := idx.postingList("fox")
	if !ok || !slices.Equal(ps, want) {
		t.Errorf("postingList(fox) = %v, want %v", ps, want)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// SEARCHER TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestSearcher_Errors(t *testing.T) {
	idx := buildTestIndex()

	if _, err := idx.Searcher("the and of"); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Searcher(stopwords) error = %v, want ErrEmptyQuery", err)
	}
	if _, err := idx.Searcher("quick unicorn"); !errors.Is(err, ErrNoPostingList) {
		t.Errorf("Searcher(unknown term) error = %v, want ErrNoPostingList", err)
	}
}

func TestSearcher_Terms(t *testing.T) {
	idx := buildTestIndex()

	s, err := idx.Searcher("Quick FOX quick")
	if err != nil {
		t.Fatalf("Searcher: %v", err)
	}

	// Analyzed, deduplicated, query order preserved.
	if got := s.Terms(); !slices.Equal(got, []string{"quick", "fox"}) {
		t.Errorf("Terms() = %v, want [quick fox]", got)
	}
}

func TestSearcher_Seek(t *testing.T) {
	idx := buildTestIndex()

	s, err := idx.Searcher("quick fox")
	if err != nil {
		t.Fatalf("Searcher: %v", err)
	}

	tests := []struct {
		name string
		q    Position
		want []Position
	}{
		{"start", 0, []Position{NewPosition(1, 1), NewPosition(1, 3)}},
		{"mid corpus", NewPosition(2, 0), []Position{NewPosition(4, 2), NewPosition(2, 5)}},
		{"tail", NewPosition(4, 3), []Position{EOF, NewPosition(4, 3)}},
		{"exhausted", NewPosition(4, 4), []Position{EOF, EOF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Seek(tt.q); !slices.Equal(got, tt.want) {
				t.Errorf("Seek(%v) = %v, want %v", tt.q, got, tt.want)
			}
		})
	}
}

// TestSearcher_SeekAgreement drives Seek against the single-list Next
// primitive over a randomized corpus: one cascaded query must equal k
// independent binary searches.
func TestSearcher_SeekAgreement(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	vocab := []string{"fox", "dog", "cat", "owl", "bee", "elk", "ant", "ram"}

	idx := NewTermIndex()
	for doc := uint32(1); doc <= 40; doc++ {
		var words []string
		for n := 1 + rng.Intn(12); n > 0; n-- {
			words = append(words, vocab[rng.Intn(len(vocab))])
		}
		idx.Index(doc, strings.Join(words, " "))
	}

	s, err := idx.Searcher(strings.Join(vocab, " "))
	if err != nil {
		t.Fatalf("Searcher: %v", err)
	}

	for trial := 0; trial < 200; trial++ {
		q := NewPosition(rng.Uint32()%42, rng.Uint32()%12)

		got := s.Seek(q)
		for i, term := range s.Terms() {
			want, err := idx.Next(term, q)
			if err != nil {
				want = EOF
			}
			if got[i] != want {
				t.Fatalf("Seek(%v)[%s] = %v, want %v", q, term, got[i], want)
			}
		}
	}
}

func TestSearcher_SnapshotIsolation(t *testing.T) {
	idx := buildTestIndex()

	s, err := idx.Searcher("quick fox")
	if err != nil {
		t.Fatalf("Searcher: %v", err)
	}
	before := s.Seek(0)

	// New documents must not leak into an existing searcher.
	idx.Index(5, "quick fox")
	if after := s.Seek(0); !slices.Equal(before, after) {
		t.Errorf("Seek changed after Index: %v → %v", before, after)
	}

	// A fresh searcher sees them.
	s2, err := idx.Searcher("quick fox")
	if err != nil {
		t.Fatalf("Searcher: %v", err)
	}
	got := s2.Seek(NewPosition(5, 0))
	want := []Position{NewPosition(5, 0), NewPosition(5, 1)}
	if !slices.Equal(got, want) {
		t.Errorf("fresh Seek = %v, want %v", got, want)
	}
}

func ExampleSearcher_Seek() {
	idx := NewTermIndex()
	idx.Index(1, "sorted lists everywhere")
	idx.Index(2, "searching many sorted lists")

	s, _ := idx.Searcher("sorted lists")
	for i, pos := range s.Seek(NewPosition(2, 0)) {
		fmt.Printf("%s → doc %d, offset %d\n", s.Terms()[i], pos.DocID(), pos.Offset())
	}
	// Output:
	// sort → doc 2, offset 2
	// list → doc 2, offset 3
}
