package dice

import (
	"regexp"
	"strconv"
	"strings"
)

// ExpressionKind discriminates the two accepted input families.
type ExpressionKind int

const (
	// KindDice is a numeric roll expression.
	KindDice ExpressionKind = iota
	// KindOptions is a comma-separated free-text option pick.
	KindOptions
)

// Expression is a parsed roll request.
type Expression struct {
	Kind    ExpressionKind
	Terms   []Term   // set when Kind == KindDice
	Options []string // set when Kind == KindOptions
}

var termPattern = regexp.MustCompile(`(?i)^(?:((?:\d+\s*(?:[×x*]\s*)?)?)[DW]\s*)?(\d+)$`)
var countPattern = regexp.MustCompile(`^(\d+)`)

// Parse turns raw input into a roll expression.
//
// An empty input or a non-positive bare integer falls back to a single
// six-sided die. A bare positive integer N rolls one N-sided die. Inputs
// matching the numeric grammar become `+`-joined terms: `3` inside an
// expression is a literal, `D8` one die, `2D6` (also `2W6`, `2x D6`,
// `2×D6`, `2*D6`) a dice group. Anything else is treated as a
// comma-separated
// option list; a single option is rejected as malformed.
func Parse(text string) (Expression, error) {
	text = strings.TrimSpace(text)

	if text == "" {
		return Expression{Kind: KindDice, Terms: []Term{{Kind: TermDice, Count: 1, Sides: DefaultSides}}}, nil
	}

	if n, err := strconv.Atoi(text); err == nil && n >= 0 {
		sides := n
		if sides == 0 {
			sides = DefaultSides
		}
		return Expression{Kind: KindDice, Terms: []Term{{Kind: TermDice, Count: 1, Sides: sides}}}, nil
	}

	if terms, ok := parseTerms(text); ok {
		return Expression{Kind: KindDice, Terms: terms}, nil
	}

	options := splitOptions(text)
	if len(options) < 2 {
		return Expression{}, ErrInvalidSpec
	}
	return Expression{Kind: KindOptions, Options: options}, nil
}

func parseTerms(text string) ([]Term, bool) {
	parts := strings.Split(text, "+")
	terms := make([]Term, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		match := termPattern.FindStringSubmatch(part)
		if match == nil {
			return nil, false
		}

		value, err := strconv.Atoi(match[2])
		if err != nil {
			return nil, false
		}

		if match[1] == "" && !strings.ContainsAny(strings.ToUpper(part), "DW") {
			terms = append(terms, Term{Kind: TermLiteral, Value: value})
			continue
		}

		count := 1
		if digits := countPattern.FindString(strings.TrimSpace(match[1])); digits != "" {
			count, err = strconv.Atoi(digits)
			if err != nil || count < 1 {
				count = 1
			}
		}
		if value < 1 {
			return nil, false
		}
		terms = append(terms, Term{Kind: TermDice, Count: count, Sides: value})
	}

	if len(terms) == 0 {
		return nil, false
	}
	return terms, true
}

func splitOptions(text string) []string {
	parts := strings.Split(text, ",")
	options := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			options = append(options, part)
		}
	}
	return options
}
