package chess

import (
	"fmt"
	"strings"

	"github.com/park285/cheese-api/internal/chess/uci"
)

// BuildGoCommand renders the UCI "go" tokens for a preset's search limits.
func BuildGoCommand(p DifficultyPreset) ([]string, error) {
	if err := ValidatePreset(p); err != nil {
		return nil, err
	}

	args, err := uci.BuildGoTokens(limitsFromPreset(p))
	if err != nil {
		return nil, fmt.Errorf("preset %s: %w", p.Name, err)
	}
	return args, nil
}

func FormatGoCommand(p DifficultyPreset) (string, error) {
	args, err := BuildGoCommand(p)
	if err != nil {
		return "", err
	}
	return strings.Join(args, " "), nil
}
