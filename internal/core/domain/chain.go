package domain

import (
	"slices"

	"go.trai.ch/zerr"
)

// Categories lists the plugin categories a chain may declare.
var Categories = []string{
	"(none)",
	"Delay",
	"Distortion",
	"Dynamics",
	"Filter",
	"Generator",
	"MIDI",
	"Modulator",
	"Reverb",
	"Simulator",
	"Spatial",
	"Spectral",
	"Utility",
}

// ChainMeta is the record persisted after every target of a chain succeeded.
type ChainMeta struct {
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	Category string `json:"category"`
}

// Validate checks the category against the known categories. An empty category means "(none)".
func (m *ChainMeta) Validate() error {
	if m.Category == "" {
		m.Category = Categories[0]
	}
	if !slices.Contains(Categories, m.Category) {
		return zerr.With(zerr.Wrap(ErrInvalidCategory, "rejected chain metadata"), "category", m.Category)
	}
	return nil
}

// ChainStatus is a progress marker reported to the caller of a chain.
type ChainStatus string

const (
	// StatusStarted is reported when a target begins.
	StatusStarted ChainStatus = "started"
	// StatusFinished is reported when a target completed.
	StatusFinished ChainStatus = "finished"
	// StatusError is reported when a target aborted.
	StatusError ChainStatus = "error"
)
