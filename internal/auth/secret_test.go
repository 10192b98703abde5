package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Cost 4 is the bcrypt minimum; it keeps these tests fast.
const testCost = 4

func TestHashSecret_LooksBcrypt(t *testing.T) {
	hash, err := HashSecret("s3cret", testCost)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2"), "hash = %q", hash)
}

func TestHashSecret_Rejects(t *testing.T) {
	_, err := HashSecret("", testCost)
	assert.Error(t, err)

	_, err = HashSecret(strings.Repeat("a", 73), testCost)
	assert.Error(t, err)
}

func TestSecret_Matches(t *testing.T) {
	hash, err := HashSecret("hashed-one", testCost)
	require.NoError(t, err)

	tests := []struct {
		name       string
		secret     Secret
		credential string
		want       bool
	}{
		{"plain match", ParseSecret("plain"), "plain", true},
		{"plain mismatch", ParseSecret("plain"), "plain2", false},
		{"plain trimmed", ParseSecret("  plain\n"), "plain", true},
		{"hashed match", ParseSecret(hash), "hashed-one", true},
		{"hashed mismatch", ParseSecret(hash), "wrong", false},
		{"empty secret", ParseSecret(""), "", false},
		{"empty credential", ParseSecret("plain"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.secret.Matches(tt.credential))
		})
	}
}
