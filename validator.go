package salesql

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// validator handles validation logic for Pipeline
type validator struct{}

// newValidator creates a new validator instance
func newValidator() *validator {
	return &validator{}
}

// validateInputPath checks that path names an existing regular file.
func (v *validator) validateInputPath(path string) error {
	ec := NewErrorContext("validate input", path)
	if strings.TrimSpace(path) == "" {
		return ec.WithDetails("input path must be provided").Wrap(ErrInputNotFound, nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ec.Wrap(ErrInputNotFound, err)
		}
		return ec.Wrap(ErrInputParse, err)
	}
	if info.IsDir() {
		return ec.WithDetails("path is a directory").Wrap(ErrInputParse, nil)
	}
	return nil
}

// validateOutputPath checks that path is not an existing directory.
// Empty means the output is skipped.
func (v *validator) validateOutputPath(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return fmt.Errorf("output path %s is a directory", path)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat output path %s: %w", path, err)
	}
	return nil
}

// validateOutputDir checks that dir is a directory or can be created.
func (v *validator) validateOutputDir(dir string) error {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err == nil && !info.IsDir() {
		return fmt.Errorf("output directory %s is a file", dir)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat output directory %s: %w", dir, err)
	}
	return nil
}

// InputReport describes an input file that parsed and cleaned successfully.
type InputReport struct {
	Path         string
	Columns      []string
	ExtraColumns []string
	Rows         int
	Stats        CleanStats
}

// ValidateInput loads and cleans the file at path without touching any
// output. It fails exactly where a pipeline run with the same options
// would fail fatally.
func ValidateInput(ctx context.Context, path string, loadOpts []LoadOption, cleanOpts ...CleanOption) (*InputReport, error) {
	if err := newValidator().validateInputPath(path); err != nil {
		return nil, err
	}
	store, err := Load(ctx, path, loadOpts...)
	if err != nil {
		return nil, err
	}
	_, stats, err := Clean(store.Records(), cleanOpts...)
	if err != nil {
		return nil, err
	}
	return &InputReport{
		Path:         filepath.Clean(path),
		Columns:      store.Header(),
		ExtraColumns: store.ExtraColumns(),
		Rows:         store.Len(),
		Stats:        stats,
	}, nil
}
