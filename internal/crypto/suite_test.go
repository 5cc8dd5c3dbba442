package crypto

import "testing"

func TestNegotiateSuite(t *testing.T) {
	tests := []struct {
		name       string
		preference []CipherSuite
		supported  []CipherSuite
		want       CipherSuite
		wantErr    bool
	}{
		{
			name:       "first preference mutual",
			preference: []CipherSuite{SuiteECDHE_RSA_AES256_GCM_SHA384, SuiteECDHE_RSA_AES128_GCM_SHA256},
			supported:  []CipherSuite{SuiteECDHE_RSA_AES256_GCM_SHA384},
			want:       SuiteECDHE_RSA_AES256_GCM_SHA384,
		},
		{
			name:       "falls back to second preference",
			preference: []CipherSuite{SuiteECDHE_RSA_AES256_GCM_SHA384, SuiteECDHE_RSA_AES128_GCM_SHA256},
			supported:  []CipherSuite{SuiteECDHE_RSA_AES128_GCM_SHA256},
			want:       SuiteECDHE_RSA_AES128_GCM_SHA256,
		},
		{
			name:       "no mutual suite",
			preference: []CipherSuite{SuiteECDHE_RSA_AES256_GCM_SHA384},
			supported:  []CipherSuite{SuiteECDHE_RSA_AES128_GCM_SHA256},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NegotiateSuite(tt.preference, tt.supported)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NegotiateSuite() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NegotiateSuite() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NegotiateSuite() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCipherSuiteAEADRoundTrip(t *testing.T) {
	for _, suite := range DefaultSuitePreference {
		suite := suite
		t.Run(suite.String(), func(t *testing.T) {
			keyLen, err := suite.KeyLen()
			if err != nil {
				t.Fatalf("KeyLen() error: %v", err)
			}
			key := make([]byte, keyLen)
			for i := range key {
				key[i] = byte(i)
			}
			aead, err := suite.NewAEAD(key)
			if err != nil {
				t.Fatalf("NewAEAD() error: %v", err)
			}

			nonce := make([]byte, aead.NonceSize())
			aad := []byte{0x03, 0x80, 0x00, 0x03}
			plaintext := []byte("hello fscp")

			ciphertext := aead.Seal(nil, nonce, plaintext, aad)
			got, err := aead.Open(nil, nonce, ciphertext, aad)
			if err != nil {
				t.Fatalf("Open() error: %v", err)
			}
			if string(got) != string(plaintext) {
				t.Errorf("round-trip = %q, want %q", got, plaintext)
			}
		})
	}
}

func TestNewAEADWrongKeyLength(t *testing.T) {
	_, err := SuiteECDHE_RSA_AES256_GCM_SHA384.NewAEAD(make([]byte, 16))
	if err == nil {
		t.Fatal("expected error for wrong key length")
	}
}
