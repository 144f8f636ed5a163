package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
)

type Algorithm string

const SHA256 Algorithm = "sha256"

// Hasher считает контрольные суммы загружаемых файлов.
type Hasher interface {
	Sum(data []byte) (string, error)
}

type FileHasher struct {
	algorithm Algorithm
}

func NewFileHasher(algorithm Algorithm) *FileHasher {
	return &FileHasher{algorithm: algorithm}
}

func (h *FileHasher) Sum(data []byte) (string, error) {
	hasher, err := h.newHash()
	if err != nil {
		return "", err
	}

	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (h *FileHasher) newHash() (hash.Hash, error) {
	switch h.algorithm {
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", h.algorithm)
	}
}
