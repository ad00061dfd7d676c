package engine

import (
	"errors"
	"testing"
)

func mustVariant(t *testing.T, name string) Variant {
	t.Helper()
	v, err := LookupVariant(name)
	if err != nil {
		t.Fatalf("LookupVariant(%q): %v", name, err)
	}
	return v
}

func TestLookupVariant_Unknown(t *testing.T) {
	_, err := LookupVariant("cricket")
	if !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("want ErrUnknownVariant, got %v", err)
	}
}

func TestValidateHit(t *testing.T) {
	cases := []struct {
		name    string
		hit     Hit
		wantErr bool
	}{
		{name: "triple 20", hit: Hit{Section: 20, Multiplier: 3}},
		{name: "single 1", hit: Hit{Section: 1, Multiplier: 1}},
		{name: "outer bull", hit: Hit{Section: 25, Multiplier: 1}},
		{name: "inner bull", hit: Hit{Section: 25, Multiplier: 2}},
		{name: "miss", hit: Hit{Section: 0, Multiplier: 1}},
		{name: "triple bull", hit: Hit{Section: 25, Multiplier: 3}, wantErr: true},
		{name: "section 21", hit: Hit{Section: 21, Multiplier: 1}, wantErr: true},
		{name: "negative section", hit: Hit{Section: -1, Multiplier: 1}, wantErr: true},
		{name: "multiplier 0", hit: Hit{Section: 20, Multiplier: 0}, wantErr: true},
		{name: "multiplier 4", hit: Hit{Section: 20, Multiplier: 4}, wantErr: true},
		{name: "doubled miss", hit: Hit{Section: 0, Multiplier: 2}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateHit(tc.hit)
			if tc.wantErr && !errors.Is(err, ErrInvalidHit) {
				t.Fatalf("want ErrInvalidHit, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
		})
	}
}

func TestHit_Points(t *testing.T) {
	cases := []struct {
		hit  Hit
		want int
	}{
		{Hit{Section: 20, Multiplier: 3}, 60},
		{Hit{Section: 25, Multiplier: 1}, 25},
		{Hit{Section: 25, Multiplier: 2}, 50},
		{Hit{Section: 0, Multiplier: 1}, 0},
	}
	for _, tc := range cases {
		if got := tc.hit.Points(); got != tc.want {
			t.Fatalf("Points(%+v): got %d, want %d", tc.hit, got, tc.want)
		}
	}
}

func TestScoreThrow(t *testing.T) {
	straight := mustVariant(t, "501")
	doubleOut := mustVariant(t, "501-double-out")

	cases := []struct {
		name        string
		variant     Variant
		score       int
		hit         Hit
		wantScore   int
		wantOutcome Outcome
	}{
		{
			name:    "deducts section times multiplier",
			variant: straight, score: 501, hit: Hit{Section: 20, Multiplier: 3},
			wantScore: 441, wantOutcome: OutcomeContinue,
		},
		{
			name:    "inner bull counts 50",
			variant: straight, score: 501, hit: Hit{Section: 25, Multiplier: 2},
			wantScore: 451, wantOutcome: OutcomeContinue,
		},
		{
			name:    "miss leaves score alone",
			variant: straight, score: 441, hit: Hit{Section: 0, Multiplier: 1},
			wantScore: 441, wantOutcome: OutcomeContinue,
		},
		{
			name:    "exact zero wins straight out",
			variant: straight, score: 60, hit: Hit{Section: 20, Multiplier: 3},
			wantScore: 0, wantOutcome: OutcomeWin,
		},
		{
			name:    "overshoot busts and keeps score",
			variant: straight, score: 40, hit: Hit{Section: 20, Multiplier: 3},
			wantScore: 40, wantOutcome: OutcomeBust,
		},
		{
			name:    "zero without a double busts under double-out",
			variant: doubleOut, score: 60, hit: Hit{Section: 20, Multiplier: 3},
			wantScore: 60, wantOutcome: OutcomeBust,
		},
		{
			name:    "double finish wins under double-out",
			variant: doubleOut, score: 40, hit: Hit{Section: 20, Multiplier: 2},
			wantScore: 0, wantOutcome: OutcomeWin,
		},
		{
			name:    "inner bull finish wins under double-out",
			variant: doubleOut, score: 50, hit: Hit{Section: 25, Multiplier: 2},
			wantScore: 0, wantOutcome: OutcomeWin,
		},
		{
			name:    "leaving one busts under double-out",
			variant: doubleOut, score: 21, hit: Hit{Section: 20, Multiplier: 1},
			wantScore: 21, wantOutcome: OutcomeBust,
		},
		{
			name:    "leaving one is fine straight out",
			variant: straight, score: 21, hit: Hit{Section: 20, Multiplier: 1},
			wantScore: 1, wantOutcome: OutcomeContinue,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotScore, gotOutcome := ScoreThrow(tc.variant, tc.score, tc.hit)
			if gotScore != tc.wantScore || gotOutcome != tc.wantOutcome {
				t.Fatalf("got (%d, %s), want (%d, %s)",
					gotScore, gotOutcome, tc.wantScore, tc.wantOutcome)
			}
		})
	}
}
