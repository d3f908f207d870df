package jwt

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderExtractor(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{"valid bearer", "Bearer abc.def.ghi", "abc.def.ghi", nil},
		{"lowercase scheme", "bearer abc", "abc", nil},
		{"missing header", "", "", ErrNoToken},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "", ErrMalformedHeader},
		{"scheme only", "Bearer", "", ErrMalformedHeader},
		{"empty token", "Bearer   ", "", ErrMalformedHeader},
	}

	extractor := DefaultExtractor()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/auth/me", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			token, err := extractor.Extract(r)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

func TestHeaderExtractorCustomHeader(t *testing.T) {
	extractor := &HeaderExtractor{Header: "X-Access-Token", Scheme: "Token"}

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Access-Token", "Token secret")

	token, err := extractor.Extract(r)
	require.NoError(t, err)
	assert.Equal(t, "secret", token)
}
