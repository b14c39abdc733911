// Package llmcmp provides the core types shared by the comparison engine.
// A ModelIdentity names one model endpoint (provider + display label);
// the engine fans a single prompt out to several of them and keeps their
// answers side by side.
package llmcmp

import (
	"fmt"
	"strings"
)

// ModelIdentity identifies one model endpoint offered by the comparison service.
// Two identities are equal when both provider and label are equal.
type ModelIdentity struct {
	Provider string `json:"provider" toml:"provider" mapstructure:"provider"`
	Label    string `json:"label" toml:"label" mapstructure:"label"`
}

// Key returns the response-map key used by the service for this model.
//
// Example:
//
//	ModelIdentity{Provider: "openai", Label: "GPT-4o"}.Key()
//	// "openai-GPT-4o"
func (m ModelIdentity) Key() string {
	return m.Provider + "-" + m.Label
}

// String returns the identity in "provider:label" format.
func (m ModelIdentity) String() string {
	return FormatModelString(m.Provider, m.Label)
}

// IsZero reports whether the identity has neither provider nor label.
func (m ModelIdentity) IsZero() bool {
	return m.Provider == "" && m.Label == ""
}

// ParseKey splits a response-map key back into an identity.
// Provider names never contain a dash, so the first dash separates the two
// parts; labels may contain further dashes ("GPT-4.1 -mini").
func ParseKey(key string) (ModelIdentity, error) {
	idx := strings.Index(key, "-")
	if idx <= 0 || idx == len(key)-1 {
		return ModelIdentity{}, fmt.Errorf("invalid model key: %q (expected format: provider-label)", key)
	}
	return ModelIdentity{Provider: key[:idx], Label: key[idx+1:]}, nil
}

// ParseModelString parses a model string in "provider:label" format.
// Returns (provider, label, error).
//
// Example:
//
//	provider, label, err := ParseModelString("azure:GPT-4o")
//	// provider = "azure", label = "GPT-4o"
func ParseModelString(modelStr string) (string, string, error) {
	parts := strings.SplitN(modelStr, ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid model format: %s (expected format: provider:label, e.g., openai:GPT-4o)", modelStr)
	}

	provider := strings.TrimSpace(parts[0])
	label := strings.TrimSpace(parts[1])

	if provider == "" || label == "" {
		return "", "", fmt.Errorf("provider and label cannot be empty")
	}
	if strings.Contains(provider, "-") {
		return "", "", fmt.Errorf("provider cannot contain '-': %s", provider)
	}

	return provider, label, nil
}

// ParseModelIdentity is ParseModelString returning a ModelIdentity.
func ParseModelIdentity(modelStr string) (ModelIdentity, error) {
	provider, label, err := ParseModelString(modelStr)
	if err != nil {
		return ModelIdentity{}, err
	}
	return ModelIdentity{Provider: provider, Label: label}, nil
}

// FormatModelString formats provider and label into "provider:label" format.
func FormatModelString(provider, label string) string {
	return fmt.Sprintf("%s:%s", provider, label)
}

// CatalogEntry describes a model the service is known to offer.
type CatalogEntry struct {
	Provider    string `toml:"provider" mapstructure:"provider"`
	Label       string `toml:"label" mapstructure:"label"`
	Description string `toml:"description" mapstructure:"description"`
}

// Identity returns the entry's model identity.
func (e CatalogEntry) Identity() ModelIdentity {
	return ModelIdentity{Provider: e.Provider, Label: e.Label}
}

// DefaultCatalog returns the models offered by a stock comparison service.
func DefaultCatalog() []CatalogEntry {
	return []CatalogEntry{
		{Provider: "openai", Label: "GPT-4o", Description: "Fast, intelligent, flexible GPT model"},
		{Provider: "openai", Label: "o4 – mini", Description: "Faster, more affordable reasoning model"},
		{Provider: "openai", Label: "GPT-4.1 -mini", Description: "Balanced for intelligence, speed, and cost"},
		{Provider: "azure", Label: "GPT-4o", Description: "Fast, intelligent, flexible GPT model"},
		{Provider: "azure", Label: "o4 – mini", Description: "Faster, more affordable reasoning model"},
		{Provider: "azure", Label: "GPT-35-turbo", Description: "Faster, more affordable reasoning model"},
	}
}
