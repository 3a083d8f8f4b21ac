package crypto

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"filippo.io/age"

	"github.com/frankenlab/frankend/pkg/types"
)

// PayloadVersion is the current encrypted payload format version.
const PayloadVersion = 1

// PayloadService seals and opens provider API keys. Keys are stored only as
// age ciphertext; plaintext exists in memory at chat time and is never
// written to the database or returned over the API.
type PayloadService struct {
	keyManager *KeyManager
}

// NewPayloadService creates a PayloadService over the server identity.
func NewPayloadService(keyManager *KeyManager) *PayloadService {
	return &PayloadService{keyManager: keyManager}
}

// SealString encrypts a secret string into an EncryptedPayload.
func (ps *PayloadService) SealString(secret string) (*types.EncryptedPayload, error) {
	recipient, err := age.ParseX25519Recipient(ps.keyManager.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("failed to parse recipient: %w", err)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}
	if _, err := io.WriteString(w, secret); err != nil {
		return nil, fmt.Errorf("failed to write plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close encryptor: %w", err)
	}

	return &types.EncryptedPayload{
		Version:    PayloadVersion,
		Recipient:  ps.keyManager.PublicKeyHint(),
		Ciphertext: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// OpenString decrypts an EncryptedPayload back into the secret string.
func (ps *PayloadService) OpenString(payload *types.EncryptedPayload) (string, error) {
	if payload == nil {
		return "", fmt.Errorf("payload is nil")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), ps.keyManager.Identity())
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read decrypted data: %w", err)
	}

	return string(plaintext), nil
}
