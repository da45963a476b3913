// Package descriptor loads scenario descriptors from <name>/<name>.info.yml.
package descriptor

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/scenarioctl/scenarioctl/internal/scenario"
)

//go:embed descriptor.schema.json
var schemaJSON []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// ErrInvalid indicates a descriptor that does not match the schema.
var ErrInvalid = errors.New("invalid scenario descriptor")

// infoFile mirrors the keys of a scenario's info file.
type infoFile struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Type         string   `yaml:"type"`
	Dependencies []string `yaml:"dependencies"`
	Theme        string   `yaml:"scenarios_theme"`
	Migrations   []string `yaml:"scenarios_migrations"`
}

type themeInfo struct {
	Screenshot string `yaml:"screenshot"`
}

// Provider reads descriptors from a scenarios directory and caches them until
// ClearCache is called.
type Provider struct {
	dir       string
	themesDir string

	mu    sync.Mutex
	cache map[string]scenario.Descriptor
}

var _ scenario.DescriptorProvider = (*Provider)(nil)

// NewProvider creates a Provider. themesDir may be empty.
func NewProvider(dir, themesDir string) *Provider {
	return &Provider{dir: dir, themesDir: themesDir}
}

// Path returns the info file path for a scenario.
func (p *Provider) Path(name string) string {
	return filepath.Join(p.dir, name, name+".info.yml")
}

// Descriptor loads, validates and caches the named scenario's descriptor.
func (p *Provider) Descriptor(_ context.Context, name string) (scenario.Descriptor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if d, ok := p.cache[name]; ok {
		return d, nil
	}

	d, err := p.load(name)
	if err != nil {
		return scenario.Descriptor{}, err
	}

	if p.cache == nil {
		p.cache = make(map[string]scenario.Descriptor)
	}
	p.cache[name] = d
	return d, nil
}

// List returns the descriptors of every scenario directory, sorted by name.
// Invalid descriptors are returned as errors alongside the valid ones.
func (p *Provider) List(ctx context.Context) ([]scenario.Descriptor, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read scenarios directory %s: %w", p.dir, err)
	}

	var (
		out  []scenario.Descriptor
		errs []error
	)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, err := os.Stat(p.Path(name)); err != nil {
			continue
		}
		d, err := p.Descriptor(ctx, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, errors.Join(errs...)
}

// ClearCache drops every cached descriptor.
func (p *Provider) ClearCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = nil
}

func (p *Provider) load(name string) (scenario.Descriptor, error) {
	path := p.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return scenario.Descriptor{}, fmt.Errorf("%w: %s", scenario.ErrDescriptorNotFound, path)
		}
		return scenario.Descriptor{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := validate(data); err != nil {
		return scenario.Descriptor{}, fmt.Errorf("%s: %w", path, err)
	}

	var info infoFile
	if err := yaml.Unmarshal(data, &info); err != nil {
		return scenario.Descriptor{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	d := scenario.Descriptor{
		Name:        name,
		Label:       info.Name,
		Description: strings.TrimSpace(info.Description),
		Theme:       info.Theme,
		Migrations:  info.Migrations,
	}
	if d.Migrations == nil {
		d.Migrations = []string{}
	}
	d.Screenshot = p.screenshot(info.Theme)

	return d, nil
}

// screenshot returns the theme's screenshot if its info file names one that
// exists on disk.
func (p *Provider) screenshot(theme string) string {
	if theme == "" || p.themesDir == "" {
		return ""
	}

	themeDir := filepath.Join(p.themesDir, theme)
	data, err := os.ReadFile(filepath.Join(themeDir, theme+".info.yml"))
	if err != nil {
		return ""
	}

	var info themeInfo
	if err := yaml.Unmarshal(data, &info); err != nil || info.Screenshot == "" {
		return ""
	}

	path := info.Screenshot
	if !filepath.IsAbs(path) {
		path = filepath.Join(themeDir, path)
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func validate(data []byte) error {
	var doc any
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if doc == nil {
		return fmt.Errorf("%w: empty document", ErrInvalid)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}
	return nil
}
