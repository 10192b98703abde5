package idgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlphabet(t *testing.T) {
	require.Len(t, Alphabet, 32)
	for _, ambiguous := range "01lo" {
		assert.NotContains(t, Alphabet, string(ambiguous))
	}

	seen := make(map[rune]bool)
	for _, c := range Alphabet {
		assert.False(t, seen[c], "duplicate symbol %q", c)
		seen[c] = true
	}
}

func TestNew_Format(t *testing.T) {
	for i := 0; i < 10000; i++ {
		id := New()
		require.Len(t, id, Length)
		require.True(t, strings.HasPrefix(id, Prefix), "id %q missing prefix", id)
		for _, c := range id[len(Prefix):] {
			require.Contains(t, Alphabet, string(c), "id %q has symbol outside the alphabet", id)
		}
	}
}

func TestNew_Distinct(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		id := New()
		assert.False(t, seen[id], "duplicate id %q", id)
		seen[id] = true
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"pxabc2345", true},
		{"px2222222", true},
		{"pxabc234", false},   // too short
		{"pxabc23456", false}, // too long
		{"qxabc2345", false},  // wrong prefix
		{"pxabc0345", false},  // 0 is excluded
		{"pxabl2345", false},  // l is excluded
		{"pxABC2345", false},  // upper case
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.id))
		})
	}
}

func TestSequence(t *testing.T) {
	gen := Sequence("pxaaaaaaa", "pxbbbbbbb")
	assert.Equal(t, "pxaaaaaaa", gen())
	assert.Equal(t, "pxbbbbbbb", gen())
	assert.True(t, Valid(gen()), "exhausted sequence should fall back to random ids")
}
