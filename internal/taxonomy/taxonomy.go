// Package taxonomy holds the static category/subcategory hierarchy used
// to tag archived articles and to scope retrieval. The hierarchy is
// compiled into the binary and loaded once at startup; it is read-only
// afterwards and safe to share between the scorer and the classifier.
package taxonomy

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var taxonomyYAML []byte

// Category is one taxonomy entry: a named category and its ordered set of
// subcategory matching terms.
type Category struct {
	Name          string   `yaml:"name"`
	Subcategories []string `yaml:"subcategories"`
}

// Taxonomy is the loaded hierarchy with a case-insensitive lookup index.
type Taxonomy struct {
	categories []Category
	index      map[string]map[string]bool
}

type taxonomyFile struct {
	Categories []Category `yaml:"categories"`
}

// Load parses the embedded taxonomy definition.
func Load() (*Taxonomy, error) {
	return Parse(taxonomyYAML)
}

// Parse builds a Taxonomy from a YAML document.
func Parse(data []byte) (*Taxonomy, error) {
	var file taxonomyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("taxonomy contains no categories")
	}

	index := make(map[string]map[string]bool, len(file.Categories))
	for _, category := range file.Categories {
		if strings.TrimSpace(category.Name) == "" {
			return nil, fmt.Errorf("taxonomy category with empty name")
		}
		key := strings.ToLower(category.Name)
		if _, exists := index[key]; exists {
			return nil, fmt.Errorf("duplicate taxonomy category %q", category.Name)
		}
		if len(category.Subcategories) == 0 {
			return nil, fmt.Errorf("taxonomy category %q has no subcategories", category.Name)
		}

		subs := make(map[string]bool, len(category.Subcategories))
		for _, sub := range category.Subcategories {
			if strings.TrimSpace(sub) == "" {
				return nil, fmt.Errorf("taxonomy category %q has an empty subcategory", category.Name)
			}
			subs[strings.ToLower(sub)] = true
		}
		index[key] = subs
	}

	return &Taxonomy{
		categories: file.Categories,
		index:      index,
	}, nil
}

// Categories returns the taxonomy entries in definition order.
func (t *Taxonomy) Categories() []Category {
	return t.categories
}

// Contains reports whether the category/subcategory pair exists,
// case-insensitively.
func (t *Taxonomy) Contains(category, subcategory string) bool {
	subs, ok := t.index[strings.ToLower(category)]
	if !ok {
		return false
	}
	return subs[strings.ToLower(subcategory)]
}

// ContainsCategory reports whether the named category exists.
func (t *Taxonomy) ContainsCategory(category string) bool {
	_, ok := t.index[strings.ToLower(category)]
	return ok
}

// PromptText renders the hierarchy for embedding into classifier prompts,
// one category per line.
func (t *Taxonomy) PromptText() string {
	var b strings.Builder
	for _, category := range t.categories {
		b.WriteString(category.Name)
		b.WriteString(": ")
		b.WriteString(strings.Join(category.Subcategories, ", "))
		b.WriteString("\n")
	}
	return b.String()
}
