package timeline

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFormation is the sixteen clone layout: two early waves fanning out to the
// sides, then a second wave filling in behind.
func DefaultFormation() []ActorConfig {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return []ActorConfig{
		{X: -100, Y: 100, Scale: 0.9, Delay: ms(1000)},
		{X: 120, Y: 100, Scale: 0.85, Delay: ms(1150)},
		{X: -180, Y: 140, Scale: 0.8, Delay: ms(1300)},
		{X: -140, Y: 140, Scale: 0.45, Delay: ms(1320)},
		{X: 180, Y: 160, Scale: 0.7, Delay: ms(1450)},
		{X: 140, Y: 160, Scale: 0.4, Delay: ms(1470)},
		{X: -250, Y: 140, Scale: 0.7, Delay: ms(1600)},
		{X: -220, Y: 140, Scale: 0.35, Delay: ms(1620)},
		{X: 260, Y: 160, Scale: 0.65, Delay: ms(1750)},
		{X: -100, Y: 150, Scale: 0.6, Delay: ms(2500)},
		{X: 100, Y: 150, Scale: 0.6, Delay: ms(2650)},
		{X: -120, Y: 70, Scale: 0.55, Delay: ms(2800)},
		{X: 100, Y: 70, Scale: 0.5, Delay: ms(2950)},
		{X: -200, Y: 85, Scale: 0.55, Delay: ms(3100)},
		{X: 230, Y: 85, Scale: 0.5, Delay: ms(3250)},
		{X: -280, Y: 100, Scale: 0.4, Delay: ms(3400)},
	}
}

// formationFile is the YAML layout of a formation override.
type formationFile struct {
	Actors []struct {
		X       float64 `yaml:"x"`
		Y       float64 `yaml:"y"`
		Scale   float64 `yaml:"scale"`
		DelayMs int     `yaml:"delay_ms"`
	} `yaml:"actors"`
}

// ParseFormation decodes a YAML formation.
func ParseFormation(data []byte) ([]ActorConfig, error) {
	var f formationFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse formation: %w", err)
	}

	out := make([]ActorConfig, 0, len(f.Actors))
	for _, a := range f.Actors {
		out = append(out, ActorConfig{
			X:     a.X,
			Y:     a.Y,
			Scale: a.Scale,
			Delay: time.Duration(a.DelayMs) * time.Millisecond,
		})
	}

	if err := ValidateFormation(out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadFormation reads a YAML formation file.
func LoadFormation(path string) ([]ActorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read formation: %w", err)
	}
	return ParseFormation(data)
}

// ValidateFormation rejects empty formations and non-positive scales or negative delays.
func ValidateFormation(actors []ActorConfig) error {
	if len(actors) == 0 {
		return fmt.Errorf("formation has no actors")
	}
	for i, a := range actors {
		if a.Scale <= 0 {
			return fmt.Errorf("actor %d: scale must be positive, got %v", i, a.Scale)
		}
		if a.Delay < 0 {
			return fmt.Errorf("actor %d: delay must not be negative, got %v", i, a.Delay)
		}
	}
	return nil
}
