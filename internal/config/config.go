// Package config loads the roster of organizational units.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/erazemk/cautela/internal/model"
)

// Unit is one organizational unit: its own movements, operator and remote
// endpoint.
type Unit struct {
	ID        model.UnitID `yaml:"id" json:"id"`
	Name      string       `yaml:"name" json:"name"`
	ShortName string       `yaml:"short_name" json:"short_name"`
	Endpoint  string       `yaml:"endpoint" json:"-"`
	Theme     string       `yaml:"theme" json:"theme,omitempty"`
}

type roster struct {
	Units []Unit `yaml:"units"`
}

var unitID = regexp.MustCompile(`^[A-Z0-9_-]{2,16}$`)

// DefaultUnits is the roster used when no file is given. Endpoints are set
// at runtime.
func DefaultUnits() []Unit {
	return []Unit{
		{ID: model.UnitSede, Name: "Seção de Apoio Operacional - Sede", ShortName: "SEDE", Theme: "red"},
		{ID: model.UnitPemad, Name: "Pelotão de Emergências Ambientais e Desastres", ShortName: "PEMAD", Theme: "orange"},
	}
}

// LoadUnits reads a YAML roster:
//
//	units:
//	  - id: SEDE
//	    name: Seção de Apoio Operacional
//	    endpoint: https://script.google.com/macros/s/.../exec
//
// An empty path returns DefaultUnits.
func LoadUnits(path string) ([]Unit, error) {
	if path == "" {
		return DefaultUnits(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading unit roster: %w", err)
	}
	return ParseUnits(data)
}

// ParseUnits parses and validates a YAML roster.
func ParseUnits(data []byte) ([]Unit, error) {
	var r roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing unit roster: %w", err)
	}
	if len(r.Units) == 0 {
		return nil, fmt.Errorf("unit roster has no units")
	}

	seen := make(map[model.UnitID]bool, len(r.Units))
	for i, u := range r.Units {
		if !unitID.MatchString(string(u.ID)) {
			return nil, fmt.Errorf("unit %d: invalid id %q", i+1, u.ID)
		}
		if seen[u.ID] {
			return nil, fmt.Errorf("unit %d: duplicate id %s", i+1, u.ID)
		}
		seen[u.ID] = true
		if u.Name == "" {
			r.Units[i].Name = string(u.ID)
		}
		if u.ShortName == "" {
			r.Units[i].ShortName = string(u.ID)
		}
	}
	return r.Units, nil
}
