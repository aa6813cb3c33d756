// Package presetcfg loads Preset and Lorebook definitions from YAML files on
// disk, grounded on the teacher's internal/config.Load (os.ReadFile +
// yaml.v3 Unmarshal, defaults applied after parse).
package presetcfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tavernkit"
)

// LoadPreset reads a Preset from a YAML file and applies the same defaults
// a hand-authored preset.yaml may omit.
func LoadPreset(path string) (*tavernkit.Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("presetcfg: read %s: %w", path, err)
	}
	var p tavernkit.Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("presetcfg: parse %s: %w", path, err)
	}
	applyPresetDefaults(&p)
	return &p, nil
}

// applyPresetDefaults fills in the handful of knobs that are awkward to
// express as YAML zero-values.
func applyPresetDefaults(p *tavernkit.Preset) {
	if p.WIFormat == "" {
		p.WIFormat = "{0}"
	}
	if p.ExamplesBehavior == "" {
		p.ExamplesBehavior = tavernkit.ExamplesGraduallyPushOut
	}
	if p.AuthorsNote.Position == "" {
		p.AuthorsNote.Position = tavernkit.ANInPrompt
	}
}

// LoadLorebook reads a single Lorebook from a YAML file.
func LoadLorebook(path string) (*tavernkit.Lorebook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("presetcfg: read %s: %w", path, err)
	}
	var lb tavernkit.Lorebook
	if err := yaml.Unmarshal(data, &lb); err != nil {
		return nil, fmt.Errorf("presetcfg: parse %s: %w", path, err)
	}
	return &lb, nil
}

// LoadLorebooks reads multiple lorebook files, stopping at the first error.
func LoadLorebooks(paths []string) ([]*tavernkit.Lorebook, error) {
	out := make([]*tavernkit.Lorebook, 0, len(paths))
	for _, p := range paths {
		lb, err := LoadLorebook(p)
		if err != nil {
			return nil, err
		}
		out = append(out, lb)
	}
	return out, nil
}
