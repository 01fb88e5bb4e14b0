// ═══════════════════════════════════════════════════════════════════════════════
// BOOLEAN DOCUMENT QUERIES
// ═══════════════════════════════════════════════════════════════════════════════
// Positions answer "WHERE in the document"; bitmaps answer "WHICH documents".
// This file is the bitmap side: set algebra over the per-term document
// bitmaps, with a fluent builder instead of a string query language.
//
// EXAMPLE USAGE:
// --------------
// Documents with "machine" AND "learning":
//
//	docs := NewQueryBuilder(index).
//	    Term("machine").
//	    And().
//	    Term("learning").
//	    Execute()
//
// Documents with ("cat" OR "dog") but NOT "snake":
//
//	docs := NewQueryBuilder(index).
//	    Group(func(q *QueryBuilder) {
//	        q.Term("cat").Or().Term("dog")
//	    }).
//	    And().Not().Term("snake").
//	    Execute()
//
// Every operation is a compressed-bitmap intersection, union or difference,
// so the cost scales with the number of set CHUNKS, not documents.
// ═══════════════════════════════════════════════════════════════════════════════

package cascade

import (
	"github.com/RoaringBitmap/roaring"
)

// QueryBuilder accumulates terms and boolean operators left to right.
type QueryBuilder struct {
	index  *TermIndex
	stack  []*roaring.Bitmap // Intermediate results, in query order
	ops    []QueryOp         // Operator between stack[i] and stack[i+1]
	negate bool              // Next term is negated
}

// QueryOp is a pending boolean operator.
type QueryOp int

const (
	OpNone QueryOp = iota
	OpAnd
	OpOr
)

// NewQueryBuilder starts an empty query against an index.
func NewQueryBuilder(index *TermIndex) *QueryBuilder {
	return &QueryBuilder{index: index}
}

// Term adds a single term. The term is analyzed the same way documents
// were, so "Running" finds documents indexed with "run".
func (qb *QueryBuilder) Term(term string) *QueryBuilder {
	tokens := AnalyzeWithConfig(term, qb.index.config)
	if len(tokens) == 0 {
		qb.pushBitmap(roaring.NewBitmap())
		return qb
	}

	bitmap := qb.getTermBitmap(tokens[0].Term)
	if qb.negate {
		bitmap = qb.negateBitmap(bitmap)
		qb.negate = false
	}

	qb.pushBitmap(bitmap)
	return qb
}

// Phrase adds an exact-sequence constraint: only documents containing the
// phrase as consecutive words match.
//
// Phrases need positions, so this runs the posting-list phrase search and
// collapses the hits down to a document bitmap.
func (qb *QueryBuilder) Phrase(phrase string) *QueryBuilder {
	matches := qb.index.FindAllPhrases(phrase, 0)

	bitmap := roaring.NewBitmap()
	for _, match := range matches {
		bitmap.Add(match[0].DocID())
	}

	if qb.negate {
		bitmap = qb.negateBitmap(bitmap)
		qb.negate = false
	}

	qb.pushBitmap(bitmap)
	return qb
}

// And intersects with whatever comes next.
func (qb *QueryBuilder) And() *QueryBuilder {
	qb.ops = append(qb.ops, OpAnd)
	return qb
}

// Or unions with whatever comes next.
func (qb *QueryBuilder) Or() *QueryBuilder {
	qb.ops = append(qb.ops, OpOr)
	return qb
}

// Not negates the next term, phrase or group.
func (qb *QueryBuilder) Not() *QueryBuilder {
	qb.negate = true
	return qb
}

// Group scopes a sub-query so it evaluates before the surrounding
// operators:
//
//	qb.Group(func(q *QueryBuilder) {
//	    q.Term("cat").Or().Term("dog")
//	}).And().Term("pet")
//	// → (cat OR dog) AND pet
func (qb *QueryBuilder) Group(fn func(*QueryBuilder)) *QueryBuilder {
	sub := NewQueryBuilder(qb.index)
	fn(sub)
	result := sub.Execute()

	if qb.negate {
		result = qb.negateBitmap(result)
		qb.negate = false
	}

	qb.pushBitmap(result)
	return qb
}

// Execute evaluates the accumulated query left to right and returns the
// matching document IDs.
func (qb *QueryBuilder) Execute() *roaring.Bitmap {
	if len(qb.stack) == 0 {
		return roaring.NewBitmap()
	}

	result := qb.stack[0]
	for i := 1; i < len(qb.stack); i++ {
		if i-1 >= len(qb.ops) {
			break
		}
		switch qb.ops[i-1] {
		case OpAnd:
			result = roaring.And(result, qb.stack[i])
		case OpOr:
			result = roaring.Or(result, qb.stack[i])
		}
	}

	return result
}

// getTermBitmap fetches a term's document bitmap. The clone keeps builder
// results detached from the live index.
func (qb *QueryBuilder) getTermBitmap(term string) *roaring.Bitmap {
	qb.index.mu.Lock()
	defer qb.index.mu.Unlock()

	if bitmap, exists := qb.index.docBitmaps[term]; exists {
		return bitmap.Clone()
	}
	return roaring.NewBitmap()
}

// negateBitmap complements a bitmap against the set of all indexed
// documents.
func (qb *QueryBuilder) negateBitmap(bitmap *roaring.Bitmap) *roaring.Bitmap {
	qb.index.mu.Lock()
	allDocs := qb.index.docs.Clone()
	qb.index.mu.Unlock()

	return roaring.AndNot(allDocs, bitmap)
}

// pushBitmap appends an operand to the evaluation stack.
func (qb *QueryBuilder) pushBitmap(bitmap *roaring.Bitmap) {
	qb.stack = append(qb.stack, bitmap)
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONVENIENCE COMBINATORS
// ═══════════════════════════════════════════════════════════════════════════════

// AllOf returns documents containing ALL of the given terms.
func AllOf(index *TermIndex, terms ...string) *roaring.Bitmap {
	if len(terms) == 0 {
		return roaring.NewBitmap()
	}

	qb := NewQueryBuilder(index).Term(terms[0])
	for _, term := range terms[1:] {
		qb.And().Term(term)
	}
	return qb.Execute()
}

// AnyOf returns documents containing ANY of the given terms.
func AnyOf(index *TermIndex, terms ...string) *roaring.Bitmap {
	if len(terms) == 0 {
		return roaring.NewBitmap()
	}

	qb := NewQueryBuilder(index).Term(terms[0])
	for _, term := range terms[1:] {
		qb.Or().Term(term)
	}
	return qb.Execute()
}

// TermExcluding returns documents containing include but not exclude.
func TermExcluding(index *TermIndex, include, exclude string) *roaring.Bitmap {
	return NewQueryBuilder(index).
		Term(include).
		And().Not().Term(exclude).
		Execute()
}
