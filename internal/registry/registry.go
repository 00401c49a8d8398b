// Retrainer - Continuous Model Retraining Controller
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retrainer

package registry

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/retrainer/internal/fsutil"
	"github.com/tomtom215/retrainer/internal/regression"
)

var (
	// ErrVersionExists means SaveArtifact found an artifact for the version.
	ErrVersionExists = errors.New("registry: artifact version already exists")

	// ErrChecksumMismatch means the artifact bytes do not match their checksum.
	ErrChecksumMismatch = errors.New("registry: artifact checksum mismatch")

	// ErrInvalidVersion means a version below 1.
	ErrInvalidVersion = errors.New("registry: version must be at least 1")
)

const artifactSuffix = ".gob.gz"

// ArtifactMetadata describes a stored artifact.
type ArtifactMetadata struct {
	Version    int       `json:"version"`
	TrainedAt  time.Time `json:"trained_at"`
	SavedAt    time.Time `json:"saved_at"`
	DataPoints int       `json:"data_points"`
	Checksum   string    `json:"checksum"`
	SizeBytes  int64     `json:"size_bytes"`
}

// Artifact is a loaded model version.
type Artifact struct {
	Metadata ArtifactMetadata
	Model    *regression.Model
	Path     string
}

// storedFile is the on-disk format of an artifact.
type storedFile struct {
	Metadata       ArtifactMetadata
	CompressedData []byte
}

// Registry manages the artifact directory and metadata log.
type Registry struct {
	dir    string
	logger zerolog.Logger

	// mu serializes writers within the process. Cross-process writers are
	// serialized by the ledger lock held for the whole run.
	mu sync.Mutex
}

// New opens the registry at dir, creating the directory if needed.
func New(dir string, logger zerolog.Logger) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return nil, fmt.Errorf("create registry directory: %w", err)
	}
	return &Registry{
		dir:    dir,
		logger: logger.With().Str("component", "registry").Logger(),
	}, nil
}

// Dir returns the registry directory.
func (r *Registry) Dir() string {
	return r.dir
}

// FileName returns the artifact file name for version, e.g. "v3.gob.gz".
func FileName(version int) string {
	return "v" + strconv.Itoa(version) + artifactSuffix
}

func (r *Registry) artifactPath(version int) string {
	return filepath.Join(r.dir, FileName(version))
}

// parseArtifactName returns the version of a "v{n}.gob.gz" file name.
func parseArtifactName(name string) (int, bool) {
	if !strings.HasPrefix(name, "v") || !strings.HasSuffix(name, artifactSuffix) {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSuffix(name[1:], artifactSuffix))
	if err != nil || v < 1 {
		return 0, false
	}
	return v, true
}

// Versions returns the stored artifact versions in ascending order. The
// directory is scanned on every call so artifacts written by another
// process are visible.
func (r *Registry) Versions(ctx context.Context) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read registry directory: %w", err)
	}
	var versions []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if v, ok := parseArtifactName(e.Name()); ok {
			versions = append(versions, v)
		}
	}
	sort.Ints(versions)
	return versions, nil
}

// LatestVersion returns the highest stored version.
func (r *Registry) LatestVersion(ctx context.Context) (int, bool, error) {
	versions, err := r.Versions(ctx)
	if err != nil {
		return 0, false, err
	}
	if len(versions) == 0 {
		return 0, false, nil
	}
	return versions[len(versions)-1], true, nil
}

// EncodeModel returns the canonical gob encoding of m.
func EncodeModel(m *regression.Model) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveArtifact stores m as version. It fails with ErrVersionExists when the
// version is already stored and never modifies an existing file.
func (r *Registry) SaveArtifact(ctx context.Context, version int, m *regression.Model) (*Artifact, error) {
	return r.write(ctx, version, m, false)
}

// OverwriteArtifact replaces version unconditionally. It is an
// administrative operation and is not used when promoting.
func (r *Registry) OverwriteArtifact(ctx context.Context, version int, m *regression.Model) (*Artifact, error) {
	return r.write(ctx, version, m, true)
}

func (r *Registry) write(ctx context.Context, version int, m *regression.Model, overwrite bool) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if version < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, version)
	}
	if m == nil {
		return nil, errors.New("registry: nil model")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rawData, err := EncodeModel(m)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(rawData)

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(rawData); err != nil {
		return nil, fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression: %w", err)
	}

	meta := ArtifactMetadata{
		Version:    version,
		TrainedAt:  m.TrainedAt,
		SavedAt:    time.Now().UTC(),
		DataPoints: m.TrainingSamples,
		Checksum:   hex.EncodeToString(hash[:]),
		SizeBytes:  int64(compressed.Len()),
	}

	var file bytes.Buffer
	if err := gob.NewEncoder(&file).Encode(storedFile{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		return nil, fmt.Errorf("write model file: %w", err)
	}

	path := r.artifactPath(version)
	if overwrite {
		err = fsutil.WriteFileAtomic(path, file.Bytes(), 0o644) //nolint:gosec // model files are not secret
	} else {
		err = fsutil.WriteFileExclusive(path, file.Bytes(), 0o644) //nolint:gosec // model files are not secret
		if errors.Is(err, fsutil.ErrExists) {
			return nil, fmt.Errorf("%w: v%d", ErrVersionExists, version)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("save artifact v%d: %w", version, err)
	}

	r.logger.Info().
		Int("version", version).
		Str("checksum", meta.Checksum[:12]).
		Int64("size_bytes", meta.SizeBytes).
		Bool("overwrite", overwrite).
		Msg("Model artifact saved")

	return &Artifact{Metadata: meta, Model: m, Path: path}, nil
}

// LoadArtifact reads version. found is false when no artifact exists;
// a damaged artifact is an error.
func (r *Registry) LoadArtifact(ctx context.Context, version int) (*Artifact, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if version < 1 {
		return nil, false, nil
	}

	path := r.artifactPath(version)
	f, err := os.Open(path) //nolint:gosec // path is built from the registry dir and an integer
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("open model file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, true, fmt.Errorf("read model file v%d: %w", version, err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, true, fmt.Errorf("decompress model v%d: %w", version, err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	rawData, err := io.ReadAll(gzr)
	if err != nil {
		return nil, true, fmt.Errorf("read decompressed data v%d: %w", version, err)
	}

	hash := sha256.Sum256(rawData)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		return nil, true, fmt.Errorf("%w: v%d expected %s, got %s", ErrChecksumMismatch, version, sf.Metadata.Checksum, checksum)
	}

	var m regression.Model
	if err := gob.NewDecoder(bytes.NewReader(rawData)).Decode(&m); err != nil {
		return nil, true, fmt.Errorf("decode model v%d: %w", version, err)
	}

	return &Artifact{Metadata: sf.Metadata, Model: &m, Path: path}, true, nil
}

// RemoveArtifact deletes the artifact for version. A missing artifact is not
// an error.
func (r *Registry) RemoveArtifact(ctx context.Context, version int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if version < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidVersion, version)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.artifactPath(version)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete model v%d: %w", version, err)
	}
	r.logger.Info().Int("version", version).Msg("Model artifact removed")
	return nil
}

// Prune deletes the oldest artifacts so that at most keep remain. Protected
// versions are never deleted, so more than keep may survive. It returns the
// removed versions.
func (r *Registry) Prune(ctx context.Context, keep int, protect ...int) ([]int, error) {
	if keep < 1 {
		keep = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	versions, err := r.Versions(ctx)
	if err != nil {
		return nil, err
	}
	excess := len(versions) - keep
	var removed []int
	for _, v := range versions {
		if excess <= 0 {
			break
		}
		if slices.Contains(protect, v) {
			continue
		}
		if err := os.Remove(r.artifactPath(v)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("delete model v%d: %w", v, err)
		}
		removed = append(removed, v)
		excess--
	}
	if len(removed) > 0 {
		r.logger.Info().Ints("versions", removed).Msg("Pruned model artifacts")
	}
	return removed, nil
}
