package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FSSink stores episodes as content-addressed files under a base directory,
// the single-node default.
type FSSink struct {
	baseDir string
	mu      sync.Mutex
}

// NewFSSink creates the directory if needed.
func NewFSSink(baseDir string) (*FSSink, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: ensure dir: %w", err)
	}
	return &FSSink{baseDir: baseDir}, nil
}

func (s *FSSink) Store(ctx context.Context, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := sha256.Sum256(data)
	hexSum := hex.EncodeToString(sum[:])
	ref := "sha256:" + hexSum
	path := filepath.Join(s.baseDir, hexSum+".json")

	// Same bytes, same file: nothing to do.
	if _, err := os.Stat(path); err == nil {
		return ref, nil
	}

	// Write to temp, then rename, so readers never see a partial episode.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("archive: write episode: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("archive: commit episode: %w", err)
	}
	return ref, nil
}

// Load reads an episode back by its ref. The simulate and describe tooling
// uses this to inspect past games.
func (s *FSSink) Load(ctx context.Context, ref string) ([]byte, error) {
	hexSum, err := parseRef(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, hexSum+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("archive: episode not found: %s", ref)
		}
		return nil, fmt.Errorf("archive: read episode: %w", err)
	}
	return data, nil
}

func parseRef(ref string) (string, error) {
	const prefix = "sha256:"
	if len(ref) <= len(prefix) || ref[:len(prefix)] != prefix {
		return "", fmt.Errorf("archive: invalid ref format: %s", ref)
	}
	hexSum := ref[len(prefix):]
	if _, err := hex.DecodeString(hexSum); err != nil {
		return "", fmt.Errorf("archive: invalid ref hex: %w", err)
	}
	return hexSum, nil
}
