package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store writes values to the global or local config file.
type Store struct {
	GlobalPath string
	LocalPath  string
}

// StoreFor returns a Store writing to the files r reads.
func StoreFor(r *Resolver) Store {
	return Store{GlobalPath: r.GlobalPath(), LocalPath: r.LocalPath()}
}

func (s Store) path(scope Source) (string, os.FileMode, error) {
	switch scope {
	case SourceGlobal:
		if s.GlobalPath == "" {
			return "", 0, fmt.Errorf("global config path not configured")
		}
		return s.GlobalPath, 0o600, nil
	case SourceLocal:
		if s.LocalPath == "" {
			return "", 0, fmt.Errorf("local config path not configured (not in a git repository?)")
		}
		// Local config is shared with the repository and should be readable.
		return s.LocalPath, 0o644, nil
	}
	return "", 0, fmt.Errorf("cannot write %s config", scope)
}

// Set validates and saves key=value in the scope's file, keeping other keys.
func (s Store) Set(scope Source, key, value string) error {
	if err := ValidateValue(key, value); err != nil {
		return fmt.Errorf("%w\n\nValid keys: %s", err, strings.Join(Keys, ", "))
	}

	path, mode, err := s.path(scope)
	if err != nil {
		return err
	}

	existing, err := readYAML(path)
	if err != nil {
		return err
	}
	existing[key] = parseValue(value)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return writeYAML(path, existing, mode)
}

// Unset removes key from the scope's file. A missing file is not an error.
func (s Store) Unset(scope Source, key string) error {
	path, mode, err := s.path(scope)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	existing, err := readYAML(path)
	if err != nil {
		return err
	}
	if _, ok := existing[key]; !ok {
		return nil
	}
	delete(existing, key)
	return writeYAML(path, existing, mode)
}

func readYAML(path string) (map[string]any, error) {
	existing := make(map[string]any)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return existing, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &existing); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if existing == nil {
		existing = make(map[string]any)
	}
	return existing, nil
}

func writeYAML(path string, values map[string]any, mode os.FileMode) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, mode)
}

// parseValue converts string values to appropriate types for YAML.
func parseValue(value string) any {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	return value
}
