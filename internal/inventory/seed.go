package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"go-portwatch/internal/models"
)

type seedFile struct {
	Switches []models.Switch `json:"switches" yaml:"switches"`
}

// LoadFile reads a switch list from a .json, .yaml or .yml file.
func LoadFile(path string) ([]models.Switch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg seedFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		return nil, fmt.Errorf("%s: unsupported inventory format", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := Validate(cfg.Switches); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg.Switches, nil
}

// Seed loads path into an empty store. A store that already holds switches is
// left alone, so edits made through the API survive restarts.
func Seed(ctx context.Context, s *Store, path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	switches, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	if err := s.Replace(ctx, switches); err != nil {
		return 0, err
	}
	return len(switches), nil
}
