// Package idgen generates the 21-character URL-safe identifiers Momo uses
// for documents, chunks, and memories. No nanoid implementation appears
// anywhere in the reference pack, so this follows the upstream nanoid
// algorithm directly against crypto/rand (documented in DESIGN.md).
package idgen

import (
	"crypto/rand"
)

const (
	// 64 symbols so a single random byte masks evenly with no modulo bias.
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_"
	length   = 21
)

// New returns a new 21-character nanoid-style identifier.
func New() string {
	return NewWithPrefix("")
}

// NewWithPrefix returns a nanoid-style identifier prefixed with prefix
// (e.g. "doc_", "chunk_", "mem_"), matching Momo's per-entity ID
// conventions.
func NewWithPrefix(prefix string) string {
	buf := make([]byte, length)
	randBytes := make([]byte, length)
	if _, err := rand.Read(randBytes); err != nil {
		panic("idgen: crypto/rand unavailable: " + err.Error())
	}
	mask := byte(len(alphabet) - 1)
	// alphabet has 64 entries so a single byte & mask maps uniformly.
	for i, b := range randBytes {
		buf[i] = alphabet[b&mask]
	}
	if prefix == "" {
		return string(buf)
	}
	return prefix + string(buf)
}
