package chess

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolvePresetName(t *testing.T) {
	tests := []struct {
		token    string
		fallback string
		want     string
		wantErr  bool
	}{
		{token: "", fallback: "level5", want: "level5"},
		{token: "level2", fallback: "level5", want: "level2"},
		{token: "beginner", want: "level1"},
		{token: "MAX", want: "level8"},
		{token: "  intermediate  ", want: "level5"},
		{token: "7", want: "level4"},
		{token: "20", want: "level8"},
		{token: "0", want: "level1"},
		{token: "nope", wantErr: true},
		{token: "", fallback: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ResolvePresetName(tt.token, tt.fallback)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ResolvePresetName(%q, %q) = %q, want error", tt.token, tt.fallback, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ResolvePresetName(%q, %q): %v", tt.token, tt.fallback, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolvePresetName(%q, %q) = %q, want %q", tt.token, tt.fallback, got, tt.want)
		}
	}
}

func TestGetPresetReturnsCopy(t *testing.T) {
	p, err := GetPreset("level3")
	if err != nil {
		t.Fatalf("GetPreset: %v", err)
	}
	p.CandidateWeights[0] = 99

	q, err := GetPreset("level3")
	if err != nil {
		t.Fatalf("GetPreset again: %v", err)
	}
	if q.CandidateWeights[0] == 99 {
		t.Fatal("mutating a returned preset corrupted the stored one")
	}
}

func TestValidatePresetRejections(t *testing.T) {
	valid := DifficultyPreset{
		Name:             "probe",
		SkillLevel:       5,
		Threads:          1,
		HashMB:           16,
		MoveTimeMillis:   100,
		MultiPV:          3,
		PrimaryChoices:   2,
		CandidateWeights: []float64{0.7, 0.3},
	}
	if err := ValidatePreset(valid); err != nil {
		t.Fatalf("valid preset rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*DifficultyPreset)
	}{
		{"skill out of range", func(p *DifficultyPreset) { p.SkillLevel = 21 }},
		{"choices exceed multipv", func(p *DifficultyPreset) { p.PrimaryChoices = 4 }},
		{"weights short of choices", func(p *DifficultyPreset) { p.CandidateWeights = []float64{1.0} }},
		{"negative weight", func(p *DifficultyPreset) { p.CandidateWeights = []float64{-0.5, 1.5} }},
		{"no search limit", func(p *DifficultyPreset) { p.MoveTimeMillis = 0 }},
	}
	for _, tt := range tests {
		p := valid
		p.CandidateWeights = append([]float64(nil), valid.CandidateWeights...)
		tt.mutate(&p)
		if err := ValidatePreset(p); err == nil {
			t.Errorf("%s: preset accepted", tt.name)
		}
	}
}

func TestBuildGoCommand(t *testing.T) {
	p, err := GetPreset("level8")
	if err != nil {
		t.Fatalf("GetPreset: %v", err)
	}
	got, err := FormatGoCommand(p)
	if err != nil {
		t.Fatalf("FormatGoCommand: %v", err)
	}
	if got != "go depth 30 movetime 1000" {
		t.Fatalf("go command = %q", got)
	}

	p.NodeCap = 50000
	got, err = FormatGoCommand(p)
	if err != nil {
		t.Fatalf("FormatGoCommand with node cap: %v", err)
	}
	if !strings.Contains(got, "nodes 50000") {
		t.Fatalf("go command missing node cap: %q", got)
	}
}

func writePresetFile(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write preset file: %v", err)
	}
	return path
}

func TestLoadPresetFileInstallsAndPatches(t *testing.T) {
	full := `presets:
  - name: testfast
    skill_level: 5
    elo: 900
    threads: 1
    hash_mb: 16
    move_time_ms: 40
    multipv: 2
    primary_choices: 2
    candidate_weights: [0.7, 0.3]
    eval_noise: 15
    book_max_ply: 4
`
	if err := LoadPresetFile(writePresetFile(t, full)); err != nil {
		t.Fatalf("LoadPresetFile: %v", err)
	}
	p, err := GetPreset("testfast")
	if err != nil {
		t.Fatalf("GetPreset testfast: %v", err)
	}
	if p.Elo != 900 || p.MoveTimeMillis != 40 || p.BookMaxPly != 4 {
		t.Fatalf("installed preset = %+v", p)
	}

	patch := `presets:
  - name: testfast
    move_time_ms: 120
`
	if err := LoadPresetFile(writePresetFile(t, patch)); err != nil {
		t.Fatalf("LoadPresetFile patch: %v", err)
	}
	p, err = GetPreset("testfast")
	if err != nil {
		t.Fatalf("GetPreset patched: %v", err)
	}
	if p.MoveTimeMillis != 120 {
		t.Fatalf("patched move time = %d, want 120", p.MoveTimeMillis)
	}
	if p.Elo != 900 || p.SkillLevel != 5 {
		t.Fatalf("patch clobbered unrelated fields: %+v", p)
	}
}

func TestLoadPresetFileErrors(t *testing.T) {
	if err := LoadPresetFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
	if err := LoadPresetFile(writePresetFile(t, "presets: []\n")); err == nil {
		t.Fatal("empty preset list accepted")
	}
	dup := `presets:
  - name: testdup
    threads: 1
    hash_mb: 16
    move_time_ms: 40
    multipv: 1
    primary_choices: 1
    candidate_weights: [1.0]
  - name: testdup
    move_time_ms: 50
`
	if err := LoadPresetFile(writePresetFile(t, dup)); err == nil {
		t.Fatal("duplicate preset names accepted")
	}
	incomplete := `presets:
  - name: testbroken
    move_time_ms: 50
`
	if err := LoadPresetFile(writePresetFile(t, incomplete)); err == nil {
		t.Fatal("incomplete new preset accepted")
	}
}
