// Package gamedb loads the manifest of games to back up and resolves each
// game's save patterns to concrete files.
package gamedb

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/0xRadioAc7iv/go-aletheia/internal/archive"
)

var validate = validator.New()

// Files holds glob patterns per platform. Patterns are logical paths and may
// use placeholders and ** wildcards.
type Files struct {
	Windows []string `yaml:"windows,omitempty" validate:"dive,required"`
	Linux   []string `yaml:"linux,omitempty" validate:"dive,required"`
	Mac     []string `yaml:"mac,omitempty" validate:"dive,required"`
}

// Game is one installed game with its save locations.
type Game struct {
	Name       string `yaml:"name" validate:"required,max=255"`
	InstallDir string `yaml:"install_dir,omitempty"`
	Prefix     string `yaml:"prefix,omitempty"`
	Source     string `yaml:"source,omitempty" validate:"omitempty,oneof=steam heroic custom"`
	Files      Files  `yaml:"files"`
}

// Manifest is the games file.
type Manifest struct {
	Games []Game `yaml:"games" validate:"dive"`
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read games file")
	}

	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "games file %s", path)
	}
	return m, nil
}

// Parse decodes and validates a manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "decode games file")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks field constraints and that game names are unique.
func (m *Manifest) Validate() error {
	if err := validate.Struct(m); err != nil {
		return formatValidationError(err)
	}

	seen := make(map[string]struct{}, len(m.Games))
	for _, g := range m.Games {
		// The container header stores the name with a one-byte length.
		if len(g.Name) > archive.MaxSubjectNameLength {
			return errors.Errorf("game %q: name must not exceed %d bytes", g.Name, archive.MaxSubjectNameLength)
		}
		if _, ok := seen[g.Name]; ok {
			return errors.Errorf("duplicate game %q", g.Name)
		}
		seen[g.Name] = struct{}{}
	}
	return nil
}

// Find returns the game with the given name.
func (m *Manifest) Find(name string) (Game, bool) {
	for _, g := range m.Games {
		if g.Name == name {
			return g, true
		}
	}
	return Game{}, false
}

// Patterns returns the patterns that apply on goos. Windows patterns also
// apply on unix when the game runs inside a Wine/Proton prefix.
func (g Game) Patterns(goos string) []string {
	var patterns []string

	switch goos {
	case "windows":
		patterns = append(patterns, g.Files.Windows...)
	case "darwin":
		if g.Prefix != "" {
			patterns = append(patterns, g.Files.Windows...)
		}
		patterns = append(patterns, g.Files.Mac...)
	default:
		if g.Prefix != "" {
			patterns = append(patterns, g.Files.Windows...)
		}
		patterns = append(patterns, g.Files.Linux...)
	}

	return patterns
}

func formatValidationError(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	for _, e := range validationErrs {
		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", e.Namespace())
		case "oneof":
			return fmt.Errorf("%s: must be one of %s", e.Namespace(), e.Param())
		case "max":
			return fmt.Errorf("%s: must not exceed %s", e.Namespace(), e.Param())
		default:
			return fmt.Errorf("%s: validation failed (%s)", e.Namespace(), e.Tag())
		}
	}
	return err
}
