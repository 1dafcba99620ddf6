package auth

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestSigningKeyFromBase64(t *testing.T) {
	t.Parallel()

	valid := base64.StdEncoding.EncodeToString(make([]byte, 32))

	tests := []struct {
		name    string
		encoded string
		wantErr bool
	}{
		{name: "valid 32 byte key", encoded: valid},
		{name: "valid with surrounding space", encoded: "  " + valid + "\n"},
		{name: "empty", encoded: "", wantErr: true},
		{name: "not base64", encoded: "!!!not-base64!!!", wantErr: true},
		{name: "too short", encoded: base64.StdEncoding.EncodeToString(make([]byte, 16)), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := SigningKeyFromBase64(tt.encoded)
			if tt.wantErr {
				if !errors.Is(err, ErrKeyConfig) {
					t.Fatalf("got %v, want ErrKeyConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(key) != 32 {
				t.Fatalf("key length = %d, want 32", len(key))
			}
		})
	}
}
