package template

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sherifkozman/red-council/internal/types"
)

// packFile mirrors the wrapped YAML pack format:
//
//	templates:
//	  - id: ...
//	    prompt: ...
type packFile struct {
	Templates []Template `yaml:"templates"`
}

// LoadPackFile parses a YAML template pack. Three formats are accepted: a
// single template document, a bare array of templates, or a document with a
// top-level "templates:" key. Invalid templates fail the whole file; packs
// are small and curated, partial loads hide mistakes.
func LoadPackFile(path string) ([]Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.TEMPLATE_PARSE_FAILED,
			fmt.Sprintf("failed to read template pack %s", path), err)
	}
	return ParsePack(data)
}

// ParsePack parses template pack bytes in any of the accepted formats.
func ParsePack(data []byte) ([]Template, error) {
	var templates []Template

	var wrapped packFile
	if err := yaml.Unmarshal(data, &wrapped); err == nil && len(wrapped.Templates) > 0 {
		templates = wrapped.Templates
	} else if err := yaml.Unmarshal(data, &templates); err != nil || len(templates) == 0 {
		var single Template
		if err := yaml.Unmarshal(data, &single); err != nil {
			return nil, types.WrapError(types.TEMPLATE_PARSE_FAILED, "failed to parse template pack", err)
		}
		if single.ID == "" {
			return nil, types.NewError(types.TEMPLATE_PARSE_FAILED, "template pack contains no templates")
		}
		templates = []Template{single}
	}

	now := time.Now()
	for i := range templates {
		if templates[i].CreatedAt.IsZero() {
			templates[i].CreatedAt = now
		}
		templates[i].UpdatedAt = now
		templates[i].Enabled = true
		if err := templates[i].Validate(); err != nil {
			return nil, types.WrapError(types.TEMPLATE_INVALID, "invalid template in pack", err)
		}
	}

	return templates, nil
}

// LoadPackDir loads every .yaml/.yml file under dir, non-recursively.
// A missing directory yields an empty list.
func LoadPackDir(dir string) ([]Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, types.WrapError(types.TEMPLATE_PARSE_FAILED,
			fmt.Sprintf("failed to read template directory %s", dir), err)
	}

	var all []Template
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		templates, err := LoadPackFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		all = append(all, templates...)
	}
	return all, nil
}
