package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Checksum returns the sha256 hex digest of the canonical form of a parameter
// document. The document is decoded and re-encoded so key order and
// insignificant whitespace never change the hash.
func Checksum(raw []byte) (string, error) {
	var parsed interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse params: %w", err)
	}
	canonical, err := json.Marshal(parsed)
	if err != nil {
		return "", fmt.Errorf("canonicalize params: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
