package chess

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// DifficultyPreset bundles the engine options, search limits, and
// candidate-selection behavior for one playing strength.
type DifficultyPreset struct {
	Name             string
	SkillLevel       int
	Elo              int
	Threads          int
	HashMB           int
	MoveTimeMillis   int
	NodeCap          int
	DepthCap         int
	MultiPV          int
	PrimaryChoices   int
	CandidateWeights []float64
	EvalNoise        int
	BookMaxPly       int
}

var presetMu sync.RWMutex

const defaultThreads = 2
const maxThreads = 6

// DefaultPresetName is the strength new sessions get when the request names
// none.
const DefaultPresetName = "level3"

// HintPresetName is the full-strength preset hints analyze with: single PV,
// no eval noise, no opening book.
const HintPresetName = "level8"

var defaultPresets = map[string]DifficultyPreset{
	"level1": {
		Name:             "level1",
		SkillLevel:       0,
		Elo:              600,
		Threads:          defaultThreads,
		HashMB:           16,
		MoveTimeMillis:   20,
		DepthCap:         5,
		MultiPV:          5,
		PrimaryChoices:   3,
		CandidateWeights: []float64{0.5, 0.3, 0.2},
		EvalNoise:        80,
		BookMaxPly:       12,
	},
	"level2": {
		Name:             "level2",
		SkillLevel:       0,
		Elo:              700,
		Threads:          defaultThreads,
		HashMB:           16,
		MoveTimeMillis:   60,
		DepthCap:         6,
		MultiPV:          5,
		PrimaryChoices:   3,
		CandidateWeights: []float64{0.6, 0.3, 0.1},
		EvalNoise:        60,
		BookMaxPly:       12,
	},
	"level3": {
		Name:             "level3",
		SkillLevel:       1,
		Elo:              800,
		Threads:          defaultThreads,
		HashMB:           24,
		MoveTimeMillis:   80,
		DepthCap:         8,
		MultiPV:          5,
		PrimaryChoices:   3,
		CandidateWeights: []float64{0.7, 0.2, 0.1},
		EvalNoise:        45,
		BookMaxPly:       12,
	},
	"level4": {
		Name:             "level4",
		SkillLevel:       3,
		Elo:              1000,
		Threads:          defaultThreads,
		HashMB:           32,
		MoveTimeMillis:   140,
		DepthCap:         10,
		MultiPV:          5,
		PrimaryChoices:   3,
		CandidateWeights: []float64{0.65, 0.25, 0.1},
		EvalNoise:        30,
		BookMaxPly:       10,
	},
	"level5": {
		Name:             "level5",
		SkillLevel:       7,
		Elo:              1200,
		Threads:          defaultThreads,
		HashMB:           48,
		MoveTimeMillis:   200,
		DepthCap:         12,
		MultiPV:          5,
		PrimaryChoices:   3,
		CandidateWeights: []float64{0.7, 0.2, 0.1},
		EvalNoise:        25,
		BookMaxPly:       10,
	},
	"level6": {
		Name:             "level6",
		SkillLevel:       11,
		Elo:              1400,
		Threads:          defaultThreads,
		HashMB:           64,
		MoveTimeMillis:   300,
		DepthCap:         16,
		MultiPV:          2,
		PrimaryChoices:   2,
		CandidateWeights: []float64{0.8, 0.2},
		EvalNoise:        10,
		BookMaxPly:       8,
	},
	"level7": {
		Name:             "level7",
		SkillLevel:       16,
		Elo:              1650,
		Threads:          defaultThreads,
		HashMB:           96,
		MoveTimeMillis:   500,
		DepthCap:         20,
		MultiPV:          2,
		PrimaryChoices:   2,
		CandidateWeights: []float64{0.85, 0.15},
		EvalNoise:        5,
		BookMaxPly:       6,
	},
	"level8": {
		Name:             "level8",
		SkillLevel:       20,
		Elo:              0,
		Threads:          maxThreads,
		HashMB:           128,
		MoveTimeMillis:   1000,
		DepthCap:         30,
		MultiPV:          1,
		PrimaryChoices:   1,
		CandidateWeights: []float64{1.0},
		EvalNoise:        0,
		BookMaxPly:       0,
	},
}

var presetAliases = map[string]string{
	"beginner":     "level1",
	"easy":         "level2",
	"intermediate": "level5",
	"advanced":     "level7",
	"master":       "level8",
	"max":          "level8",
}

// ResolvePresetName normalizes a difficulty token: a preset name, an alias,
// or a numeric skill on the 1-20 scale (clamped, mapped onto the ladder).
// Empty input resolves to the given fallback.
func ResolvePresetName(token, fallback string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(token))
	if name == "" {
		name = strings.ToLower(strings.TrimSpace(fallback))
	}
	if name == "" {
		return "", fmt.Errorf("difficulty required")
	}
	if alias, ok := presetAliases[name]; ok {
		name = alias
	}
	if n, err := strconv.Atoi(name); err == nil {
		name = presetForNumericSkill(n)
	}
	presetMu.RLock()
	_, ok := defaultPresets[name]
	presetMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown chess preset: %s", name)
	}
	return name, nil
}

func presetForNumericSkill(n int) string {
	if n < 1 {
		n = 1
	}
	if n > 20 {
		n = 20
	}
	switch {
	case n <= 2:
		return "level1"
	case n <= 4:
		return "level2"
	case n <= 6:
		return "level3"
	case n <= 9:
		return "level4"
	case n <= 12:
		return "level5"
	case n <= 15:
		return "level6"
	case n <= 18:
		return "level7"
	default:
		return "level8"
	}
}

func GetPreset(name string) (DifficultyPreset, error) {
	resolved, err := ResolvePresetName(name, "")
	if err != nil {
		return DifficultyPreset{}, err
	}
	presetMu.RLock()
	p := defaultPresets[resolved]
	presetMu.RUnlock()
	p.CandidateWeights = append([]float64(nil), p.CandidateWeights...)
	return p, nil
}

// SetPreset installs or replaces a preset after validation. Used by the
// YAML override loader.
func SetPreset(p DifficultyPreset) error {
	p.Name = strings.ToLower(strings.TrimSpace(p.Name))
	if p.Name == "" {
		return fmt.Errorf("preset name required")
	}
	if err := ValidatePreset(p); err != nil {
		return fmt.Errorf("preset %s: %w", p.Name, err)
	}
	presetMu.Lock()
	defaultPresets[p.Name] = p
	presetMu.Unlock()
	return nil
}

// PresetNames returns the installed preset names, unsorted.
func PresetNames() []string {
	presetMu.RLock()
	defer presetMu.RUnlock()
	names := make([]string, 0, len(defaultPresets))
	for name := range defaultPresets {
		names = append(names, name)
	}
	return names
}

func ValidatePreset(p DifficultyPreset) error {
	switch {
	case p.SkillLevel < 0 || p.SkillLevel > 20:
		return fmt.Errorf("skill level %d out of range 0-20", p.SkillLevel)
	case p.Threads <= 0:
		return fmt.Errorf("threads must be > 0: %d", p.Threads)
	case p.HashMB <= 0:
		return fmt.Errorf("hash size must be > 0: %d", p.HashMB)
	case p.MultiPV <= 0:
		return fmt.Errorf("multipv must be > 0: %d", p.MultiPV)
	case p.PrimaryChoices <= 0:
		return fmt.Errorf("primary choices must be > 0: %d", p.PrimaryChoices)
	case p.PrimaryChoices > p.MultiPV:
		return fmt.Errorf("primary choices (%d) must not exceed multipv (%d)", p.PrimaryChoices, p.MultiPV)
	case len(p.CandidateWeights) == 0:
		return fmt.Errorf("candidate weights must not be empty")
	case len(p.CandidateWeights) < p.PrimaryChoices:
		return fmt.Errorf("candidate weights (%d) must cover primary choices (%d)", len(p.CandidateWeights), p.PrimaryChoices)
	}

	sum := 0.0
	for i := 0; i < p.PrimaryChoices; i++ {
		w := p.CandidateWeights[i]
		if w < 0 {
			return fmt.Errorf("candidate weight at index %d is negative: %f", i, w)
		}
		sum += w
	}
	if sum == 0 {
		return fmt.Errorf("candidate weights sum to zero")
	}
	if p.Elo < 0 {
		return fmt.Errorf("elo must be >= 0: %d", p.Elo)
	}
	if p.MoveTimeMillis < 0 {
		return fmt.Errorf("move time must be >= 0: %d", p.MoveTimeMillis)
	}
	if p.NodeCap < 0 {
		return fmt.Errorf("node cap must be >= 0: %d", p.NodeCap)
	}
	if p.DepthCap < 0 {
		return fmt.Errorf("depth cap must be >= 0: %d", p.DepthCap)
	}
	if p.MoveTimeMillis == 0 && p.DepthCap == 0 && p.NodeCap == 0 {
		return fmt.Errorf("at least one search limit required")
	}
	if p.EvalNoise < 0 {
		return fmt.Errorf("eval noise must be >= 0: %d", p.EvalNoise)
	}
	if p.BookMaxPly < 0 {
		return fmt.Errorf("book max ply must be >= 0: %d", p.BookMaxPly)
	}
	return nil
}
