// Package scene reads and writes exported scene documents: the global
// settings plus every layer, as JSON.
package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pthm-cable/particles/config"
)

// Version is written into every exported document.
const Version = "1.0.0"

// ImportSuffix is appended to the name of imported layers.
const ImportSuffix = " (imported)"

// ErrUnsupportedVersion is returned for documents of another major version.
var ErrUnsupportedVersion = errors.New("unsupported scene version")

// Scene is an exported studio state.
type Scene struct {
	Version    string               `json:"version"`
	ExportedAt time.Time            `json:"exportedAt"`
	Global     config.GlobalConfig  `json:"global"`
	Layers     []config.LayerConfig `json:"layers"`
}

// Export snapshots global and layers. The layers are deep-copied.
func Export(global config.GlobalConfig, layers []config.LayerConfig, now time.Time) Scene {
	s := Scene{
		Version:    Version,
		ExportedAt: now.UTC(),
		Global:     global,
		Layers:     make([]config.LayerConfig, len(layers)),
	}
	for i, l := range layers {
		s.Layers[i] = l.Clone()
	}
	return s
}

// Marshal encodes s as indented JSON.
func Marshal(s Scene) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding scene: %w", err)
	}
	return data, nil
}

// document is the wire form decoded in two passes so every layer starts
// from the defaults of its particle type.
type document struct {
	Version    string            `json:"version"`
	ExportedAt time.Time         `json:"exportedAt"`
	Global     json.RawMessage   `json:"global"`
	Layers     []json.RawMessage `json:"layers"`
}

// Parse decodes a scene document. Missing fields take their defaults,
// unknown enum values are rejected and numbers are clamped. Layer ids are
// kept as persisted.
func Parse(data []byte) (Scene, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Scene{}, fmt.Errorf("decoding scene: %w", err)
	}
	if major, _, _ := strings.Cut(doc.Version, "."); major != strings.SplitN(Version, ".", 2)[0] {
		return Scene{}, fmt.Errorf("%w: %q", ErrUnsupportedVersion, doc.Version)
	}

	s := Scene{
		Version:    doc.Version,
		ExportedAt: doc.ExportedAt,
		Global:     config.DefaultGlobal(),
		Layers:     make([]config.LayerConfig, 0, len(doc.Layers)),
	}
	if len(doc.Global) > 0 {
		g, err := s.Global.Patch(doc.Global)
		if err != nil {
			return Scene{}, err
		}
		s.Global = g
	}
	for i, raw := range doc.Layers {
		l, err := parseLayer(raw)
		if err != nil {
			return Scene{}, fmt.Errorf("layer %d: %w", i, err)
		}
		s.Layers = append(s.Layers, l)
	}
	return s, nil
}

// parseLayer decodes one layer on top of the defaults for its type.
func parseLayer(raw []byte) (config.LayerConfig, error) {
	var head struct {
		Type config.ParticleType `json:"type"`
		Kind config.LayerKind    `json:"kind"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return config.LayerConfig{}, fmt.Errorf("decoding layer: %w", err)
	}
	l := config.NewLayer("", head.Type, 1, head.Kind)
	if err := json.Unmarshal(raw, &l); err != nil {
		return config.LayerConfig{}, fmt.Errorf("decoding layer: %w", err)
	}
	l.Sanitize()
	return l, nil
}

// ImportLayer returns l as a new layer: a fresh id and the name marked
// as imported.
func ImportLayer(l config.LayerConfig) config.LayerConfig {
	out := l.Clone()
	out.ID = config.NewID()
	out.Name = l.Name + ImportSuffix
	return out
}

// Import returns the scene's global settings and its layers as new layers.
func Import(s Scene) (config.GlobalConfig, []config.LayerConfig) {
	layers := make([]config.LayerConfig, len(s.Layers))
	for i, l := range s.Layers {
		layers[i] = ImportLayer(l)
	}
	return s.Global, layers
}

// MarshalLayer encodes a single layer for sharing. The id is dropped.
func MarshalLayer(l config.LayerConfig) ([]byte, error) {
	l = l.Clone()
	l.ID = ""
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding layer: %w", err)
	}
	return data, nil
}

// ParseLayer decodes a single shared layer and imports it.
func ParseLayer(data []byte) (config.LayerConfig, error) {
	l, err := parseLayer(data)
	if err != nil {
		return config.LayerConfig{}, err
	}
	return ImportLayer(l), nil
}

// ReadFile parses the scene stored at path.
func ReadFile(path string) (Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scene{}, fmt.Errorf("reading scene: %w", err)
	}
	return Parse(data)
}

// WriteFile stores s at path.
func WriteFile(path string, s Scene) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing scene: %w", err)
	}
	return nil
}
