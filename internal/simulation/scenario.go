package simulation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Direction selects which quote a scenario entry requests.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Quote is one scenario entry: a quote request repeated Repeat times.
type Quote struct {
	ID        int
	Name      string
	Direction Direction
	TokenIn   string
	TokenOut  string
	Amount    int64
	Fee       int64
	Repeat    int
	Interval  time.Duration
}

// scenarioFile represents the structure of a scenario YAML file.
type scenarioFile struct {
	Quotes []struct {
		Name       string `yaml:"name"`
		Direction  string `yaml:"direction"`
		TokenIn    string `yaml:"token_in"`
		TokenOut   string `yaml:"token_out"`
		Amount     int64  `yaml:"amount"`
		Fee        int64  `yaml:"fee"`
		Repeat     int    `yaml:"repeat"`
		IntervalMS int    `yaml:"interval_ms"`
	} `yaml:"quotes"`
}

func parseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DirectionInput, DirectionOutput:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported direction: %q", s)
	}
}

// LoadScenario reads quote entries from a YAML file. Invalid entries are skipped
// with a warning; an empty result is an error.
func LoadScenario(path string, logger *zap.Logger) ([]*Quote, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return ParseScenario(data, logger)
}

// ParseScenario is LoadScenario without the file read.
func ParseScenario(data []byte, logger *zap.Logger) ([]*Quote, error) {
	var file scenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}
	if len(file.Quotes) == 0 {
		return nil, fmt.Errorf("no quotes found in scenario")
	}

	quotes := make([]*Quote, 0, len(file.Quotes))
	for i, entry := range file.Quotes {
		dir, err := parseDirection(entry.Direction)
		if err != nil {
			logger.Warn("Skipping invalid quote", zap.String("name", entry.Name), zap.Error(err))
			continue
		}
		if entry.TokenIn == "" || entry.TokenOut == "" {
			logger.Warn("Skipping quote with missing tokens",
				zap.String("name", entry.Name),
				zap.String("token_in", entry.TokenIn),
				zap.String("token_out", entry.TokenOut))
			continue
		}
		if entry.Amount <= 0 {
			logger.Warn("Skipping quote with invalid amount",
				zap.String("name", entry.Name),
				zap.Int64("amount", entry.Amount))
			continue
		}

		repeat := entry.Repeat
		if repeat <= 0 {
			repeat = 1
		}
		name := entry.Name
		if name == "" {
			name = fmt.Sprintf("quote-%d", i+1)
		}

		quotes = append(quotes, &Quote{
			ID:        i,
			Name:      name,
			Direction: dir,
			TokenIn:   entry.TokenIn,
			TokenOut:  entry.TokenOut,
			Amount:    entry.Amount,
			Fee:       entry.Fee,
			Repeat:    repeat,
			Interval:  time.Duration(entry.IntervalMS) * time.Millisecond,
		})
	}

	if len(quotes) == 0 {
		return nil, fmt.Errorf("no valid quotes loaded")
	}
	logger.Info("Loaded scenario", zap.Int("count", len(quotes)))
	return quotes, nil
}
