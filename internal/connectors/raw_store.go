package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// RawStore keeps raw messages on disk under their sha256, so a message that
// arrives twice is written once.
type RawStore struct {
	dir string
}

func NewRawStore(dir string) *RawStore {
	return &RawStore{dir: dir}
}

// Save returns the content hash and the path of the stored copy. The file is
// written under a temporary name and renamed, so a crash never leaves a
// truncated .eml behind.
func (s *RawStore) Save(raw []byte) (hash, path string, err error) {
	sum := sha256.Sum256(raw)
	hash = hex.EncodeToString(sum[:])
	path = filepath.Join(s.dir, hash+".eml")

	if _, err := os.Stat(path); err == nil {
		return hash, path, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", "", err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", "", err
	}
	tmp, err := os.CreateTemp(s.dir, hash+".*.tmp")
	if err != nil {
		return "", "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return "", "", err
	}
	if err := tmp.Close(); err != nil {
		return "", "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", "", err
	}
	return hash, path, nil
}
