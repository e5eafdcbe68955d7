package matrix

import (
	"crypto/ed25519"
	"encoding/base64"
)

// Signer signs canonical JSON with per-server keys from a KeyStore.
type Signer struct {
	keys *KeyStore
}

func NewSigner(keys *KeyStore) *Signer {
	return &Signer{keys: keys}
}

// Sign computes an Ed25519 signature over canonical JSON bytes and returns it
// as unpadded base64.
func (s *Signer) Sign(serverName string, canonical []byte) (string, error) {
	kp, err := s.keys.Get(serverName)
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(kp.Private, canonical)
	return base64.RawStdEncoding.EncodeToString(sig), nil
}

// SignServerKeys signs the canonical form of response and returns a copy with
// a signatures block shaped {serverName: {"ed25519:auto": sig}}.
func (s *Signer) SignServerKeys(serverName string, response map[string]interface{}) (map[string]interface{}, error) {
	canonical, err := CanonicalJSON(response)
	if err != nil {
		return nil, err
	}

	sig, err := s.Sign(serverName, canonical)
	if err != nil {
		return nil, err
	}

	signed := make(map[string]interface{}, len(response)+1)
	for k, v := range response {
		signed[k] = v
	}
	signed["signatures"] = map[string]interface{}{
		serverName: map[string]interface{}{
			KeyID: sig,
		},
	}
	return signed, nil
}

// PublicKey returns the server's published verify key in unpadded base64.
func (s *Signer) PublicKey(serverName string) (string, error) {
	kp, err := s.keys.Get(serverName)
	if err != nil {
		return "", err
	}
	return kp.PublicBase64(), nil
}
