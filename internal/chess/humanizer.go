package chess

import (
	"errors"
	"math"
	"math/rand"
)

// Candidate is one engine line: the move that starts it, its evaluation in
// centipawns from the side to move, and the principal variation.
type Candidate struct {
	Move      string   `json:"move"`
	EvalCP    int      `json:"eval_cp"`
	Principal []string `json:"principal,omitempty"`
	Forced    bool     `json:"forced,omitempty"`
}

// SelectCandidate picks the reply move from MultiPV candidates using the
// preset's weights. Forced candidates (book moves) win outright. EvalNoise
// perturbs the reported evaluation so weak presets do not leak exact scores.
func SelectCandidate(p DifficultyPreset, candidates []Candidate, r *rand.Rand) (Candidate, error) {
	if len(candidates) == 0 {
		return Candidate{}, errors.New("no candidates to choose from")
	}
	if err := ValidatePreset(p); err != nil {
		return Candidate{}, err
	}

	primaryLimit := p.PrimaryChoices
	if primaryLimit > len(candidates) {
		primaryLimit = len(candidates)
	}

	for i := 0; i < primaryLimit; i++ {
		if candidates[i].Forced {
			return withEvalNoise(candidates[i], p.EvalNoise, r), nil
		}
	}

	totalWeight := 0.0
	for i := 0; i < primaryLimit; i++ {
		totalWeight += p.CandidateWeights[i]
	}
	if totalWeight == 0 {
		return Candidate{}, errors.New("candidate weights sum to zero")
	}

	threshold := r.Float64() * totalWeight
	index := 0
	for i := 0; i < primaryLimit; i++ {
		threshold -= p.CandidateWeights[i]
		if threshold <= 0 {
			index = i
			break
		}
	}

	return withEvalNoise(candidates[index], p.EvalNoise, r), nil
}

func withEvalNoise(c Candidate, noise int, r *rand.Rand) Candidate {
	if noise <= 0 {
		return c
	}
	offset := r.Intn(2*noise+1) - noise
	c.EvalCP = saturatingAdd(c.EvalCP, offset)
	return c
}

func saturatingAdd(a, b int) int {
	sum := int64(a) + int64(b)
	if sum > math.MaxInt {
		return math.MaxInt
	}
	if sum < math.MinInt {
		return math.MinInt
	}
	return int(sum)
}
