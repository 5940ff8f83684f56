// Package catalog loads function manifests produced by the extraction and
// estimation stages and imports them into the store.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/TanveerShahriar/Thesis/internal/models"
	"github.com/TanveerShahriar/Thesis/internal/store"
)

// ErrInvalidManifest is returned for manifests that fail validation.
var ErrInvalidManifest = errors.New("invalid manifest")

// Manifest is the on-disk list of estimated functions.
type Manifest struct {
	Functions []models.FunctionInfo `yaml:"functions"`
}

// Signature builds the dispatch name for a function: the name, an underscore
// and the first letter of each parameter type. A function without
// parameters keeps its bare name.
func Signature(name string, paramTypes []string) string {
	if len(paramTypes) == 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('_')
	for _, t := range paramTypes {
		t = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "const "))
		if t == "" {
			continue
		}
		b.WriteByte(t[0])
	}
	return b.String()
}

// LoadManifest reads and validates a manifest file. Missing signatures are
// derived from name and parameter types.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return ParseManifest(data, path)
}

// ParseManifest decodes manifest YAML. source is recorded on every entry.
func ParseManifest(data []byte, source string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	seen := make(map[string]bool, len(m.Functions))
	for i := range m.Functions {
		fn := &m.Functions[i]
		if fn.Name == "" {
			return nil, fmt.Errorf("function %d: missing name: %w", i, ErrInvalidManifest)
		}
		if len(fn.ParamTypes) > 0 && len(fn.ParamTypes) != len(fn.Params) {
			return nil, fmt.Errorf("%s: %d params but %d types: %w",
				fn.Name, len(fn.Params), len(fn.ParamTypes), ErrInvalidManifest)
		}
		if fn.StatementCount < 0 {
			return nil, fmt.Errorf("%s: negative statement count: %w", fn.Name, ErrInvalidManifest)
		}
		if fn.Signature == "" {
			fn.Signature = Signature(fn.Name, fn.ParamTypes)
		}
		if seen[fn.Signature] {
			return nil, fmt.Errorf("duplicate signature %s: %w", fn.Signature, ErrInvalidManifest)
		}
		seen[fn.Signature] = true
		if fn.Source == "" {
			fn.Source = source
		}
	}
	return &m, nil
}

// Import upserts every manifest entry into the store and returns the stored rows.
func Import(s *store.Store, m *Manifest) ([]models.FunctionInfo, error) {
	out := make([]models.FunctionInfo, 0, len(m.Functions))
	for i := range m.Functions {
		info, err := s.UpsertFunction(&m.Functions[i])
		if err != nil {
			return out, fmt.Errorf("import %s: %w", m.Functions[i].Signature, err)
		}
		out = append(out, *info)
	}
	return out, nil
}
