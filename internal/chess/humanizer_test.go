package chess

import (
	"math/rand"
	"testing"
)

func selectionPreset() DifficultyPreset {
	return DifficultyPreset{
		Name:             "selection",
		SkillLevel:       5,
		Threads:          1,
		HashMB:           16,
		MoveTimeMillis:   100,
		MultiPV:          3,
		PrimaryChoices:   2,
		CandidateWeights: []float64{1.0, 0.0},
	}
}

func TestSelectCandidateHonorsWeights(t *testing.T) {
	candidates := []Candidate{
		{Move: "e2e4", EvalCP: 30},
		{Move: "d2d4", EvalCP: 20},
		{Move: "c2c4", EvalCP: 10},
	}
	r := rand.New(rand.NewSource(1))

	// Weight zero on the second slot means the first always wins.
	for i := 0; i < 20; i++ {
		got, err := SelectCandidate(selectionPreset(), candidates, r)
		if err != nil {
			t.Fatalf("SelectCandidate: %v", err)
		}
		if got.Move != "e2e4" {
			t.Fatalf("iteration %d picked %q, want e2e4", i, got.Move)
		}
		if got.EvalCP != 30 {
			t.Fatalf("eval = %d, want unperturbed 30", got.EvalCP)
		}
	}
}

func TestSelectCandidateForcedWinsOutright(t *testing.T) {
	candidates := []Candidate{
		{Move: "e2e4", EvalCP: 30},
		{Move: "b1c3", Forced: true},
	}

	got, err := SelectCandidate(selectionPreset(), candidates, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("SelectCandidate: %v", err)
	}
	if got.Move != "b1c3" {
		t.Fatalf("picked %q, want forced b1c3", got.Move)
	}
}

func TestSelectCandidateNoiseStaysBounded(t *testing.T) {
	p := selectionPreset()
	p.EvalNoise = 50
	candidates := []Candidate{{Move: "e2e4", EvalCP: 100}}
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 50; i++ {
		got, err := SelectCandidate(p, candidates, r)
		if err != nil {
			t.Fatalf("SelectCandidate: %v", err)
		}
		if got.EvalCP < 50 || got.EvalCP > 150 {
			t.Fatalf("noised eval %d escaped [50, 150]", got.EvalCP)
		}
	}
}

func TestSelectCandidateErrors(t *testing.T) {
	if _, err := SelectCandidate(selectionPreset(), nil, rand.New(rand.NewSource(1))); err == nil {
		t.Fatal("empty candidate list accepted")
	}

	broken := selectionPreset()
	broken.PrimaryChoices = 5
	if _, err := SelectCandidate(broken, []Candidate{{Move: "e2e4"}}, rand.New(rand.NewSource(1))); err == nil {
		t.Fatal("invalid preset accepted")
	}
}
