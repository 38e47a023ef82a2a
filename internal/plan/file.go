// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/worksheet-engine/pkg/types"
)

// LoadPlanFile reads a plan from a .json or .yaml/.yml file and
// canonicalizes its ids and enums. Dangling placements are kept so the
// validator can report them.
func LoadPlanFile(path string) (*types.DocumentPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan %s: %w", path, err)
	}

	var p types.DocumentPlan
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parsing plan %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parsing plan %s: %w", path, err)
		}
	}

	Canonicalize(&p)
	return &p, nil
}

// WritePlanFile writes p as JSON or YAML depending on the extension,
// creating parent directories.
func WritePlanFile(path string, p *types.DocumentPlan) error {
	var (
		data []byte
		err  error
	)
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		data, err = json.MarshalIndent(p, "", "  ")
	} else {
		data, err = yaml.Marshal(p)
	}
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
