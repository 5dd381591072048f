package publish

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// HashFile streams r through SHA-256 in fixed-size blocks so the
// whole file is never buffered in memory (spec.md §4.5 step 1). Returns the
// lowercase hex digest and the byte length.
func HashFile(r io.Reader) (hashHex string, size int64, err error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
