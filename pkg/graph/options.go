package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DisplayOptions controls which parts of a schema are shown and how.
// Callers should treat a *DisplayOptions as immutable once handed to a
// viewport: a changed configuration is a new value.
type DisplayOptions struct {
	// RootType is the type the graph grows from. Empty means the query type.
	RootType string `yaml:"rootType" json:"rootType,omitempty"`
	// SkipRelay collapses Relay connections into direct edges.
	SkipRelay bool `yaml:"skipRelay" json:"skipRelay"`
	// SkipDeprecated hides fields marked @deprecated.
	SkipDeprecated bool `yaml:"skipDeprecated" json:"skipDeprecated"`
	// SortByAlphabet orders types and fields by name instead of schema order.
	SortByAlphabet bool `yaml:"sortByAlphabet" json:"sortByAlphabet"`
	// ShowLeafFields lists scalar and enum fields inside type boxes.
	ShowLeafFields bool `yaml:"showLeafFields" json:"showLeafFields"`
	// HideRoot leaves the root type out of the rendered layout.
	HideRoot bool `yaml:"hideRoot" json:"hideRoot"`
}

// DefaultDisplayOptions returns the options used when none are configured
func DefaultDisplayOptions() *DisplayOptions {
	return &DisplayOptions{
		SkipRelay:      true,
		SkipDeprecated: true,
		ShowLeafFields: true,
	}
}

// Clone returns a copy that can be modified independently
func (o *DisplayOptions) Clone() *DisplayOptions {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

// fingerprint identifies the option values for cache keys
func (o *DisplayOptions) fingerprint() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%+v", *o)))
	return hex.EncodeToString(sum[:8])
}
