package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Roster - описание турнира в YAML:
//
//	name: Spring Open
//	rounds: 5
//	elimination_rounds: 2
//	participants:
//	  - name: Alpha
//	    seed: 1
type Roster struct {
	Name              string          `yaml:"name"`
	Rounds            int             `yaml:"rounds"`
	EliminationRounds int             `yaml:"elimination_rounds"`
	TieBreak          *bool           `yaml:"tiebreak"`
	Participants      []RosterEntrant `yaml:"participants"`
}

type RosterEntrant struct {
	Name string `yaml:"name"`
	Seed int    `yaml:"seed"`
}

// LoadRoster читает и проверяет YAML-ростер.
func LoadRoster(path string) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()
	return DecodeRoster(f)
}

func DecodeRoster(r io.Reader) (*Roster, error) {
	var roster Roster
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&roster); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	if len(roster.Participants) < 2 {
		return nil, fmt.Errorf("roster must list at least 2 participants, got %d", len(roster.Participants))
	}
	for i, p := range roster.Participants {
		if p.Seed < 0 {
			return nil, fmt.Errorf("participant %d (%s): seed must not be negative", i, p.Name)
		}
	}
	return &roster, nil
}

func (r *Roster) Names() []string {
	names := make([]string, len(r.Participants))
	for i, p := range r.Participants {
		names[i] = p.Name
	}
	return names
}

// SeedRanks возвращает nil, если ни у кого не задан посев.
func (r *Roster) SeedRanks() []int {
	seeds := make([]int, len(r.Participants))
	seeded := false
	for i, p := range r.Participants {
		seeds[i] = p.Seed
		seeded = seeded || p.Seed > 0
	}
	if !seeded {
		return nil
	}
	return seeds
}

// ReadNames читает имена участников по одному на строку; пустые строки и '#'-комментарии пропускаются.
func ReadNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open names file: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read names file: %w", err)
	}
	return names, nil
}
