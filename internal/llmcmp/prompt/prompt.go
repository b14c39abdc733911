// Package prompt loads TOML prompt templates and expands them into the
// text sent to every compared model.
package prompt

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Prompt represents the structure of a TOML prompt file
type Prompt struct {
	Description string   `toml:"description,omitempty"`
	System      string   `toml:"system"`
	User        string   `toml:"user"`
	Models      []string `toml:"models,omitempty"` // Format: "provider:label"
}

// LoadPrompt loads a prompt file and returns its contents
func LoadPrompt(filePath string) (*Prompt, error) {
	var prompt Prompt
	if _, err := toml.DecodeFile(filePath, &prompt); err != nil {
		return nil, fmt.Errorf("error decoding prompt file: %v", err)
	}
	return &prompt, nil
}

// Template is a prompt file found in one of the prompt directories.
type Template struct {
	Name string // relative path without .toml, always slash-separated
	Dir  string
	Path string
	// Shadowed lists earlier directories holding a template of the same name.
	Shadowed []string
}

// Find returns the path of the named template. Later directories take
// precedence over earlier ones.
func Find(name string, dirs []string) (string, error) {
	file := name
	if !strings.HasSuffix(file, ".toml") {
		file += ".toml"
	}

	found := ""
	for _, dir := range dirs {
		candidate := filepath.Join(dir, filepath.FromSlash(file))
		if _, err := os.Stat(candidate); err == nil {
			found = candidate
		}
	}
	if found == "" {
		return "", fmt.Errorf("prompt file '%s' not found in any of the prompt directories: %v", file, dirs)
	}
	return found, nil
}

// List walks dirs recursively and returns every template sorted by name.
// Missing directories are skipped.
func List(dirs []string) ([]Template, error) {
	byName := map[string]*Template{}
	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".toml") {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return nil
			}
			name := filepath.ToSlash(strings.TrimSuffix(rel, ".toml"))
			if prev, ok := byName[name]; ok {
				prev.Shadowed = append(prev.Shadowed, prev.Dir)
				prev.Dir, prev.Path = dir, path
				return nil
			}
			byName[name] = &Template{Name: name, Dir: dir, Path: path}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking prompt directory %s: %w", dir, err)
		}
	}

	templates := make([]Template, 0, len(byName))
	for _, t := range byName {
		templates = append(templates, *t)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].Name < templates[j].Name })
	return templates, nil
}
