package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// HS256 needs a key at least as long as the hash output.
const minSigningKeyBytes = 32

var ErrKeyConfig = errors.New("signing key configuration is invalid")

// SigningKeyFromBase64 decodes the shared HMAC secret from its base64 form.
// A secret that decodes to fewer than 32 bytes is rejected outright rather
// than silently weakening every signature issued with it.
func SigningKeyFromBase64(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("%w: secret is empty", ErrKeyConfig)
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64: %v", ErrKeyConfig, err)
	}
	if len(key) < minSigningKeyBytes {
		return nil, fmt.Errorf("%w: decoded key is %d bytes, need at least %d", ErrKeyConfig, len(key), minSigningKeyBytes)
	}

	return key, nil
}
