// Package storage maps models to on-disk artifact files.
//
// Artifact paths are a pure function of the model identifier and the
// variant kind, never of the owner set. Co-owners therefore share bytes
// through the same path, which is what makes sharing and unsharing
// artifact-transparent.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Variant identifies one of the two artifact kinds a model can carry.
type Variant string

const (
	// VariantPrimary is the main asset file.
	VariantPrimary Variant = "primary"
	// VariantPlatform is the platform-specific rendition of the asset.
	VariantPlatform Variant = "variant"
)

// Fixed per-variant file extensions.
const (
	primaryExt  = ".glb"
	platformExt = ".usdz"
)

// ModelsDir is the directory under the storage root holding artifacts.
const ModelsDir = "models"

// Storage errors. ErrArtifactNotFound is a normal outcome for probes and
// cascading deletes; anything else wrapping an OS error is unexpected.
var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrUnknownVariant   = errors.New("unknown artifact variant")
)

// ArtifactStore performs filesystem operations for model artifacts under
// a fixed root injected at construction.
type ArtifactStore struct {
	root string
}

// NewArtifactStore creates a store rooted at root and ensures the models
// directory exists.
func NewArtifactStore(root string) (*ArtifactStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, ModelsDir), 0o750); err != nil {
		return nil, fmt.Errorf("create models directory: %w", err)
	}
	return &ArtifactStore{root: abs}, nil
}

// Root returns the absolute storage root.
func (s *ArtifactStore) Root() string {
	return s.root
}

// Ping reports whether the models directory is still reachable. Used by
// the readiness probe; a mount that disappeared after startup should
// take the instance out of rotation.
func (s *ArtifactStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(filepath.Join(s.root, ModelsDir))
	if err != nil {
		return fmt.Errorf("stat models directory: %w", err)
	}
	if !info.IsDir() {
		return errors.New("models path is not a directory")
	}
	return nil
}

// ext maps a variant to its fixed file extension.
func ext(variant Variant) (string, error) {
	switch variant {
	case VariantPrimary:
		return primaryExt, nil
	case VariantPlatform:
		return platformExt, nil
	default:
		return "", ErrUnknownVariant
	}
}

// ResolvePath returns the deterministic path for a (model, variant) pair.
// Pure: same inputs always yield the same path regardless of caller.
func (s *ArtifactStore) ResolvePath(modelID string, variant Variant) (string, error) {
	suffix, err := ext(variant)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, ModelsDir, modelID+suffix), nil
}

// Exists probes whether the artifact is on disk. A missing file is false,
// never an error.
func (s *ArtifactStore) Exists(modelID string, variant Variant) bool {
	path, err := s.ResolvePath(modelID, variant)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Write streams content to the artifact path, creating parent directories
// as needed. An existing artifact is overwritten unconditionally: a first
// upload and a re-upload are indistinguishable to the caller.
func (s *ArtifactStore) Write(modelID string, variant Variant, content io.Reader) error {
	path, err := s.ResolvePath(modelID, variant)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	// Write to a temp file in the same directory, then rename over the
	// target so a failed upload never leaves a truncated artifact.
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

// Open returns a reader over the artifact. Returns ErrArtifactNotFound
// if it is not on disk. The caller owns the returned file.
func (s *ArtifactStore) Open(modelID string, variant Variant) (*os.File, error) {
	path, err := s.ResolvePath(modelID, variant)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	return f, nil
}

// Delete removes the artifact. Returns ErrArtifactNotFound if it was not
// on disk; callers decide whether that is a hard error (explicit artifact
// delete) or a tolerated no-op (cascading model deletion).
func (s *ArtifactStore) Delete(modelID string, variant Variant) error {
	path, err := s.ResolvePath(modelID, variant)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrArtifactNotFound
		}
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}
