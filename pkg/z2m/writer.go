package z2m

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/deconz2z2m/pkg/device"
	"github.com/urmzd/deconz2z2m/pkg/z2m/schema"
	"gopkg.in/yaml.v3"
)

// DefaultOutputPath is the file written when no path is given.
const DefaultOutputPath = "configuration.yaml"

// WriteError wraps any failure to serialize or persist a configuration.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to serialize configuration: %v", e.Err)
	}
	return fmt.Sprintf("failed to write configuration to %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool { return target == device.ErrWrite }

// Writer serializes configurations to YAML.
type Writer struct {
	validator *schema.Validator
	perm      os.FileMode
}

// NewWriter creates a Writer. A nil validator gets a fresh one.
func NewWriter(validator *schema.Validator) *Writer {
	if validator == nil {
		validator = schema.NewValidator()
	}
	return &Writer{validator: validator, perm: 0644}
}

// Marshal validates cfg and renders it as YAML with 2-space indentation.
func (w *Writer) Marshal(cfg Configuration) ([]byte, error) {
	if err := w.validator.ValidateDocument(cfg); err != nil {
		return nil, fmt.Errorf("configuration does not match schema: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Preview returns the serialized document without touching the filesystem.
func (w *Writer) Preview(cfg Configuration) (string, error) {
	data, err := w.Marshal(cfg)
	if err != nil {
		return "", &WriteError{Err: err}
	}
	return string(data), nil
}

// Write serializes cfg to path, replacing any existing file. The file is
// written next to its destination and renamed into place.
func (w *Writer) Write(cfg Configuration, path string) error {
	if path == "" {
		path = DefaultOutputPath
	}

	data, err := w.Marshal(cfg)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}

	if err := writeFileAtomic(path, data, w.perm); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	log.Info().Str("path", abs).Int("bytes", len(data)).Msg("Configuration saved")
	return nil
}

// Load parses a configuration file previously produced by Write.
func Load(path string) (Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Configuration{}, fmt.Errorf("read configuration: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML configuration document.
func Parse(data []byte) (Configuration, error) {
	var cfg Configuration
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Configuration{}, fmt.Errorf("parse configuration: %w", err)
	}
	return cfg, nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output directory %s is not a directory", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}
