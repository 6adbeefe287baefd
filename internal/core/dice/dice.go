// Package dice implements the bot's roll grammar and its evaluation.
//
// A roll request is either a coin flip, a bare face count, a sum of
// `+`-joined terms (literals and count×D faces groups), or a free-text
// option pick. Evaluation is deterministic with respect to the supplied
// random source, which keeps every grammar branch testable with a seeded
// generator.
package dice

import (
	"errors"
	"math/rand"
)

// DefaultSides is the face count of a plain unqualified roll.
const DefaultSides = 6

// ListLimit is the largest dice count whose individual results are listed;
// larger groups are reported as a face histogram instead.
const ListLimit = 20

// ErrInvalidSpec reports a term that is not expressible in the grammar.
var ErrInvalidSpec = errors.New("invalid dice spec")

// TermKind discriminates the parsed term variants.
type TermKind int

const (
	// TermLiteral is a bare integer added to the total as-is.
	TermLiteral TermKind = iota
	// TermDice is a count×D(sides) group.
	TermDice
)

// Term is one `+`-joined element of a dice expression.
type Term struct {
	Kind  TermKind
	Value int // literal value when Kind == TermLiteral
	Count int // dice count when Kind == TermDice
	Sides int // face count when Kind == TermDice
}

// Roll is the outcome of evaluating one term.
type Roll struct {
	Term    Term
	Results []int // individual die values, in roll order; nil for literals
	Total   int
}

// Result is the outcome of evaluating a full expression.
type Result struct {
	Rolls []Roll
	Total int
}

// Evaluate rolls every term of the expression using rng. Terms are
// evaluated in slice order so a scripted source produces predictable
// values per position.
func Evaluate(rng *rand.Rand, terms []Term) (Result, error) {
	if len(terms) == 0 {
		return Result{}, ErrInvalidSpec
	}

	rolls := make([]Roll, 0, len(terms))
	total := 0

	for _, term := range terms {
		switch term.Kind {
		case TermLiteral:
			rolls = append(rolls, Roll{Term: term, Total: term.Value})
			total += term.Value
		case TermDice:
			if term.Sides <= 0 || term.Count <= 0 {
				return Result{}, ErrInvalidSpec
			}
			results := make([]int, term.Count)
			rollTotal := 0
			for i := 0; i < term.Count; i++ {
				value := rng.Intn(term.Sides) + 1
				results[i] = value
				rollTotal += value
			}
			rolls = append(rolls, Roll{Term: term, Results: results, Total: rollTotal})
			total += rollTotal
		default:
			return Result{}, ErrInvalidSpec
		}
	}

	return Result{Rolls: rolls, Total: total}, nil
}

// Histogram aggregates the results of one roll into face → occurrences.
// Faces that never came up are omitted.
func (r Roll) Histogram() map[int]int {
	if len(r.Results) == 0 {
		return nil
	}
	hist := make(map[int]int)
	for _, v := range r.Results {
		hist[v]++
	}
	return hist
}
