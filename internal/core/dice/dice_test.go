package dice

import (
	"errors"
	"math/rand"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Expression
		wantErr bool
	}{
		{
			name:  "empty defaults to one d6",
			input: "",
			want:  Expression{Kind: KindDice, Terms: []Term{{Kind: TermDice, Count: 1, Sides: 6}}},
		},
		{
			name:  "zero defaults to one d6",
			input: "0",
			want:  Expression{Kind: KindDice, Terms: []Term{{Kind: TermDice, Count: 1, Sides: 6}}},
		},
		{
			name:  "bare integer rolls one die",
			input: "8",
			want:  Expression{Kind: KindDice, Terms: []Term{{Kind: TermDice, Count: 1, Sides: 8}}},
		},
		{
			name:  "die without count",
			input: "D20",
			want:  Expression{Kind: KindDice, Terms: []Term{{Kind: TermDice, Count: 1, Sides: 20}}},
		},
		{
			name:  "dice group plus literal",
			input: "2D6+3",
			want: Expression{Kind: KindDice, Terms: []Term{
				{Kind: TermDice, Count: 2, Sides: 6},
				{Kind: TermLiteral, Value: 3},
			}},
		},
		{
			name:  "multiplier spellings",
			input: "2×D6 + 3x D4 + 4*D8",
			want: Expression{Kind: KindDice, Terms: []Term{
				{Kind: TermDice, Count: 2, Sides: 6},
				{Kind: TermDice, Count: 3, Sides: 4},
				{Kind: TermDice, Count: 4, Sides: 8},
			}},
		},
		{
			name:  "w marker",
			input: "3W6",
			want:  Expression{Kind: KindDice, Terms: []Term{{Kind: TermDice, Count: 3, Sides: 6}}},
		},
		{
			name:  "lower case d",
			input: "d6+d8",
			want: Expression{Kind: KindDice, Terms: []Term{
				{Kind: TermDice, Count: 1, Sides: 6},
				{Kind: TermDice, Count: 1, Sides: 8},
			}},
		},
		{
			name:  "option list",
			input: "Rot, Grün, Blau",
			want:  Expression{Kind: KindOptions, Options: []string{"Rot", "Grün", "Blau"}},
		},
		{
			name:    "single option is malformed",
			input:   "Rot",
			wantErr: true,
		},
		{
			name:    "negative integer is malformed",
			input:   "-3",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSpec) {
					t.Fatalf("expected ErrInvalidSpec, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse %q: %v", tt.input, err)
			}
			if got.Kind != tt.want.Kind {
				t.Fatalf("kind = %v, want %v", got.Kind, tt.want.Kind)
			}
			if len(got.Terms) != len(tt.want.Terms) {
				t.Fatalf("terms = %v, want %v", got.Terms, tt.want.Terms)
			}
			for i := range got.Terms {
				if got.Terms[i] != tt.want.Terms[i] {
					t.Fatalf("term[%d] = %+v, want %+v", i, got.Terms[i], tt.want.Terms[i])
				}
			}
			if len(got.Options) != len(tt.want.Options) {
				t.Fatalf("options = %v, want %v", got.Options, tt.want.Options)
			}
			for i := range got.Options {
				if got.Options[i] != tt.want.Options[i] {
					t.Fatalf("option[%d] = %q, want %q", i, got.Options[i], tt.want.Options[i])
				}
			}
		})
	}
}

func TestEvaluateBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	expr, err := Parse("2D6+3")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	result, err := Evaluate(rng, expr.Terms)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(result.Rolls) != 2 {
		t.Fatalf("expected 2 rolls, got %d", len(result.Rolls))
	}

	diceRoll := result.Rolls[0]
	if len(diceRoll.Results) != 2 {
		t.Fatalf("expected 2 die results, got %d", len(diceRoll.Results))
	}
	sum := 0
	for _, v := range diceRoll.Results {
		if v < 1 || v > 6 {
			t.Fatalf("die result %d out of [1,6]", v)
		}
		sum += v
	}
	if diceRoll.Total != sum {
		t.Fatalf("roll total %d != sum of results %d", diceRoll.Total, sum)
	}

	if result.Rolls[1].Total != 3 {
		t.Fatalf("expected literal total 3, got %d", result.Rolls[1].Total)
	}
	if result.Total != sum+3 {
		t.Fatalf("expression total %d != %d", result.Total, sum+3)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	expr, err := Parse("3D20")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	first, err := Evaluate(rand.New(rand.NewSource(7)), expr.Terms)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	second, err := Evaluate(rand.New(rand.NewSource(7)), expr.Terms)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	for i := range first.Rolls[0].Results {
		if first.Rolls[0].Results[i] != second.Rolls[0].Results[i] {
			t.Fatal("expected identical results for identical seeds")
		}
	}
}

func TestEvaluateRejectsEmptyAndInvalid(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	if _, err := Evaluate(rng, nil); !errors.Is(err, ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec for empty terms, got %v", err)
	}
	if _, err := Evaluate(rng, []Term{{Kind: TermDice, Count: 0, Sides: 6}}); !errors.Is(err, ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec for zero count, got %v", err)
	}
}

func TestHistogram(t *testing.T) {
	roll := Roll{Results: []int{1, 3, 3, 6, 3}}
	hist := roll.Histogram()
	if hist[3] != 3 || hist[1] != 1 || hist[6] != 1 {
		t.Fatalf("unexpected histogram: %v", hist)
	}
	if _, ok := hist[2]; ok {
		t.Fatal("expected unseen face to be omitted")
	}
}

func TestNewSeed(t *testing.T) {
	a, err := NewSeed()
	if err != nil {
		t.Fatalf("new seed: %v", err)
	}
	b, err := NewSeed()
	if err != nil {
		t.Fatalf("new seed: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct seeds")
	}
}
