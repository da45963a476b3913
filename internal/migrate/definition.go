package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMigrationNotFound indicates no definition has the requested id.
	ErrMigrationNotFound = errors.New("migration not found")

	// ErrDuplicateMigration indicates two definition files declare the same id.
	ErrDuplicateMigration = errors.New("duplicate migration id")

	// ErrInvalidDefinition indicates a definition file that cannot be used.
	ErrInvalidDefinition = errors.New("invalid migration definition")
)

type definition struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Up    string `yaml:"up"`
	Down  string `yaml:"down"`
}

// Migration is a loaded migration definition.
type Migration struct {
	def  definition
	path string
}

func (m *Migration) ID() string { return m.def.ID }

// Label returns the human readable label, falling back to the id.
func (m *Migration) Label() string {
	if m.def.Label == "" {
		return m.def.ID
	}
	return m.def.Label
}

// Path is the definition file the migration was loaded from.
func (m *Migration) Path() string { return m.path }

func (m *Migration) Up() string   { return m.def.Up }
func (m *Migration) Down() string { return m.def.Down }

// loadDefinitions reads every scenarios/*/migrations/*.y*ml file under dir.
func loadDefinitions(dir string) (map[string]*Migration, error) {
	var files []string
	for _, pattern := range []string{"*.yml", "*.yaml"} {
		matches, err := filepath.Glob(filepath.Join(dir, "*", "migrations", pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	defs := make(map[string]*Migration, len(files))
	for _, path := range files {
		m, err := loadDefinition(path)
		if err != nil {
			return nil, err
		}
		if prev, ok := defs[m.ID()]; ok {
			return nil, fmt.Errorf("%w %q: %s and %s", ErrDuplicateMigration, m.ID(), prev.path, path)
		}
		defs[m.ID()] = m
	}
	return defs, nil
}

func loadDefinition(path string) (*Migration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var def definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDefinition, path, err)
	}

	def.ID = strings.TrimSpace(def.ID)
	if def.ID == "" {
		return nil, fmt.Errorf("%w: %s: id is required", ErrInvalidDefinition, path)
	}

	return &Migration{def: def, path: path}, nil
}
