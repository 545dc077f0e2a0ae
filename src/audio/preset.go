package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Params is a set of initial synth parameters, e.g. loaded from a preset.
type Params struct {
	p *params
}

// DefaultParams ...
func DefaultParams() *Params {
	return &Params{p: newParams()}
}

// LoadPreset reads a JSON preset file on top of the defaults.
func LoadPreset(path string) (*Params, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := newParams()
	if err := p.applyJSON(bytes); err != nil {
		return nil, fmt.Errorf("preset %s: %w", path, err)
	}
	return &Params{p: p}, nil
}

func (p *Params) String() string {
	return p.p.String()
}

// ----- Preset Manager ----- //

type presetManager struct {
	dir string
}

func newPresetManager(dir string) *presetManager {
	return &presetManager{
		dir: dir,
	}
}

func (pm *presetManager) getList() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(pm.dir, "*.json"))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(paths))
	for i, path := range paths {
		names[i] = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	sort.Strings(names)
	return names, nil
}

// applyToParams overlays the named preset on target. Gate and trigger
// count are left alone so a sounding note keeps sounding.
func (pm *presetManager) applyToParams(name string, target *params) error {
	if name != filepath.Base(name) {
		return fmt.Errorf("invalid preset name %q", name)
	}
	bytes, err := os.ReadFile(filepath.Join(pm.dir, name+".json"))
	if err != nil {
		return err
	}
	return target.applyJSON(bytes)
}
