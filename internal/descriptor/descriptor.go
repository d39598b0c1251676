// Package descriptor materializes the feature_store.yaml repository
// descriptor that the feature store client is constructed from.
package descriptor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"featurepull/internal/faults"
)

const (
	FileName      = "feature_store.yaml"
	ProviderLocal = "local"

	RegistryFile    = "registry.db"
	OnlineStoreFile = "online_store.db"
)

type OnlineStore struct {
	Path string `yaml:"path"`
}

type Descriptor struct {
	Project     string       `yaml:"project"`
	Registry    string       `yaml:"registry"`
	Provider    string       `yaml:"provider"`
	OnlineStore *OnlineStore `yaml:"online_store,omitempty"`
}

// Params are the inputs the descriptor is derived from.
type Params struct {
	Project  string
	DataPath string
}

// Path returns the descriptor location inside repoPath.
func Path(repoPath string) string {
	return filepath.Join(repoPath, FileName)
}

// Build derives the descriptor from params without touching disk.
func Build(p Params) (Descriptor, error) {
	if strings.TrimSpace(p.Project) == "" {
		return Descriptor{}, fmt.Errorf("%w: project is required", faults.ErrConfiguration)
	}
	if strings.TrimSpace(p.DataPath) == "" {
		return Descriptor{}, fmt.Errorf("%w: data path is required", faults.ErrConfiguration)
	}
	return Descriptor{
		Project:     p.Project,
		Registry:    filepath.Join(p.DataPath, RegistryFile),
		Provider:    ProviderLocal,
		OnlineStore: &OnlineStore{Path: filepath.Join(p.DataPath, OnlineStoreFile)},
	}, nil
}

// Write overwrites <repoPath>/feature_store.yaml. The repo directory must
// already exist.
func Write(repoPath string, p Params) (Descriptor, error) {
	d, err := Build(p)
	if err != nil {
		return d, err
	}
	raw, err := yaml.Marshal(d)
	if err != nil {
		return d, fmt.Errorf("%w: encode descriptor: %v", faults.ErrConfiguration, err)
	}
	if err := os.WriteFile(Path(repoPath), raw, 0o644); err != nil {
		return d, fmt.Errorf("%w: write descriptor: %v", faults.ErrConfiguration, err)
	}
	return d, nil
}

// Read parses <repoPath>/feature_store.yaml.
func Read(repoPath string) (Descriptor, error) {
	var d Descriptor
	raw, err := os.ReadFile(Path(repoPath))
	if err != nil {
		return d, err
	}
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return d, fmt.Errorf("parse %s: %w", FileName, err)
	}
	if d.Project == "" {
		return d, fmt.Errorf("%w: %s has no project", faults.ErrConfiguration, FileName)
	}
	return d, nil
}
