package matrix

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
)

// KeyID is the identifier under which this server publishes its single
// signing key.
const KeyID = "ed25519:auto"

type Keypair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// PublicBase64 returns the raw 32-byte public key as unpadded base64, the
// format verify_keys entries use.
func (k *Keypair) PublicBase64() string {
	return base64.RawStdEncoding.EncodeToString(k.Public)
}

// KeyStore holds one Ed25519 keypair per server name, generated on first use
// and kept for the life of the process. Keys are not persisted: a restart
// produces a fresh key, which is spec-legal (peers refetch) but means
// published keys are not durable across deploys.
type KeyStore struct {
	mu   sync.Mutex
	keys map[string]*Keypair
}

func NewKeyStore() *KeyStore {
	return &KeyStore{keys: make(map[string]*Keypair)}
}

// Get returns the keypair for serverName, generating it on the first call.
// The lock covers generation so concurrent first calls cannot cache two
// different keys.
func (s *KeyStore) Get(serverName string) (*Keypair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kp, ok := s.keys[serverName]; ok {
		return kp, nil
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate signing key for %s: %w", serverName, err)
	}

	kp := &Keypair{Public: pub, Private: priv}
	s.keys[serverName] = kp
	return kp, nil
}
