// Package auth provides API authentication for the Sentinel API.
//
// Sentinel is deployed behind the marketplace's service mesh, so the
// model is a static shared keyring: operators configure one key per
// calling service and rotate by listing old and new keys together.
// An empty keyring disables authentication (local development).
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"
)

// Keyring holds the accepted API keys, stored as SHA-256 digests so raw
// keys never sit in memory longer than a comparison.
type Keyring struct {
	hashes [][sha256.Size]byte
}

// NewKeyring builds a keyring from raw keys. Blank entries are ignored.
func NewKeyring(keys []string) *Keyring {
	k := &Keyring{}
	for _, raw := range keys {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		k.hashes = append(k.hashes, sha256.Sum256([]byte(raw)))
	}
	return k
}

// Empty reports whether no keys are configured.
func (k *Keyring) Empty() bool {
	return k == nil || len(k.hashes) == 0
}

// Verify reports whether raw matches a configured key. Comparison is
// constant-time per key.
func (k *Keyring) Verify(raw string) bool {
	if k.Empty() {
		return false
	}
	h := sha256.Sum256([]byte(raw))
	for _, want := range k.hashes {
		if subtle.ConstantTimeCompare(h[:], want[:]) == 1 {
			return true
		}
	}
	return false
}
