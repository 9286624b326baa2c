package chess

import (
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// presetSpec mirrors one YAML entry. Pointer fields distinguish "not set"
// from zero so overrides can patch a built-in preset partially.
type presetSpec struct {
	Name             string    `yaml:"name"`
	SkillLevel       *int      `yaml:"skill_level"`
	Elo              *int      `yaml:"elo"`
	Threads          *int      `yaml:"threads"`
	HashMB           *int      `yaml:"hash_mb"`
	MoveTimeMillis   *int      `yaml:"move_time_ms"`
	NodeCap          *int      `yaml:"node_cap"`
	DepthCap         *int      `yaml:"depth_cap"`
	MultiPV          *int      `yaml:"multipv"`
	PrimaryChoices   *int      `yaml:"primary_choices"`
	CandidateWeights []float64 `yaml:"candidate_weights"`
	EvalNoise        *int      `yaml:"eval_noise"`
	BookMaxPly       *int      `yaml:"book_max_ply"`
}

type presetFile struct {
	Presets []presetSpec `yaml:"presets"`
}

// LoadPresetFile applies preset overrides from a YAML file. Entries naming
// an installed preset patch it; new names must be complete enough to pass
// validation.
func LoadPresetFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read preset file: %w", err)
	}

	var file presetFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse preset file %s: %w", path, err)
	}
	if len(file.Presets) == 0 {
		return fmt.Errorf("preset file %s defines no presets", path)
	}

	seen := make(map[string]struct{}, len(file.Presets))
	for i, spec := range file.Presets {
		name := strings.ToLower(strings.TrimSpace(spec.Name))
		if name == "" {
			return fmt.Errorf("preset file %s: entry %d has no name", path, i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("preset file %s: duplicate preset %q", path, name)
		}
		seen[name] = struct{}{}

		base, err := GetPreset(name)
		if err != nil {
			base = DifficultyPreset{Name: name}
		}
		merged := mergePresetSpec(base, spec)
		if err := SetPreset(merged); err != nil {
			return fmt.Errorf("preset file %s: %w", path, err)
		}
	}
	return nil
}

func mergePresetSpec(base DifficultyPreset, spec presetSpec) DifficultyPreset {
	out := base
	out.Name = strings.ToLower(strings.TrimSpace(spec.Name))
	if spec.SkillLevel != nil {
		out.SkillLevel = *spec.SkillLevel
	}
	if spec.Elo != nil {
		out.Elo = *spec.Elo
	}
	if spec.Threads != nil {
		out.Threads = *spec.Threads
	}
	if spec.HashMB != nil {
		out.HashMB = *spec.HashMB
	}
	if spec.MoveTimeMillis != nil {
		out.MoveTimeMillis = *spec.MoveTimeMillis
	}
	if spec.NodeCap != nil {
		out.NodeCap = *spec.NodeCap
	}
	if spec.DepthCap != nil {
		out.DepthCap = *spec.DepthCap
	}
	if spec.MultiPV != nil {
		out.MultiPV = *spec.MultiPV
	}
	if spec.PrimaryChoices != nil {
		out.PrimaryChoices = *spec.PrimaryChoices
	}
	if len(spec.CandidateWeights) > 0 {
		out.CandidateWeights = append([]float64(nil), spec.CandidateWeights...)
	}
	if spec.EvalNoise != nil {
		out.EvalNoise = *spec.EvalNoise
	}
	if spec.BookMaxPly != nil {
		out.BookMaxPly = *spec.BookMaxPly
	}
	return out
}
