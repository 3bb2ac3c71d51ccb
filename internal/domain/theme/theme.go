// Package theme manages system themes. Themes are TOML palette files
// loaded at startup; the active theme's identifier is handed to every
// client in the greet handshake.
package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Palette holds the named colors of a theme, as #rrggbb strings.
type Palette struct {
	Window            string `toml:"window"`
	WindowText        string `toml:"window_text"`
	Base              string `toml:"base"`
	BaseText          string `toml:"base_text"`
	Accent            string `toml:"accent"`
	TitleBar          string `toml:"title_bar"`
	TitleText         string `toml:"title_text"`
	MenuBase          string `toml:"menu_base"`
	MenuText          string `toml:"menu_text"`
	DesktopBackground string `toml:"desktop_background"`
}

// Theme is one named palette.
type Theme struct {
	Name    string  `toml:"name"`
	Palette Palette `toml:"palette"`
}

// Registry owns the loaded themes and the active selection.
type Registry struct {
	themes map[string]*Theme
	active string
}

// DefaultName is the theme every registry carries even with no theme
// directory configured.
const DefaultName = "Default"

// NewRegistry creates a registry holding the built-in default theme.
func NewRegistry() *Registry {
	r := &Registry{themes: make(map[string]*Theme), active: DefaultName}
	r.themes[DefaultName] = &Theme{
		Name: DefaultName,
		Palette: Palette{
			Window:            "#d4d0c8",
			WindowText:        "#000000",
			Base:              "#ffffff",
			BaseText:          "#000000",
			Accent:            "#16418c",
			TitleBar:          "#16418c",
			TitleText:         "#ffffff",
			MenuBase:          "#d4d0c8",
			MenuText:          "#000000",
			DesktopBackground: "#2a4a6a",
		},
	}
	return r
}

// LoadDir reads every *.toml theme file in dir. Files that fail to
// parse are skipped with an error returned for the caller to log; the
// registry stays usable.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read theme directory: %w", err)
	}
	var firstErr error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		if err := r.loadFile(filepath.Join(dir, entry.Name())); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Registry) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read theme %s: %w", path, err)
	}
	var t Theme
	if err := toml.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("parse theme %s: %w", path, err)
	}
	if t.Name == "" {
		t.Name = strings.TrimSuffix(filepath.Base(path), ".toml")
	}
	r.themes[t.Name] = &t
	return nil
}

// Get returns a theme by name.
func (r *Registry) Get(name string) (*Theme, bool) {
	t, ok := r.themes[name]
	return t, ok
}

// Names returns the loaded theme names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.themes))
	for name := range r.themes {
		names = append(names, name)
	}
	return names
}

// Active returns the active theme's name.
func (r *Registry) Active() string { return r.active }

// SetActive selects a loaded theme. Unknown names are rejected.
func (r *Registry) SetActive(name string) bool {
	if _, ok := r.themes[name]; !ok {
		return false
	}
	r.active = name
	return true
}
