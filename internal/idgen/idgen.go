// Package idgen produces the short, grep-able identifiers handed out to tags.
//
// ID FORMAT:
// Every id is the fixed prefix "px" followed by 7 symbols drawn uniformly,
// with replacement, from a 32-symbol alphabet:
//
//	abcdefghijkmnpqrstuvwxyz23456789
//
// The alphabet leaves out 0, 1, l and o so an id read off a screen or a
// sticky note can be typed back without guessing. 32^7 is about 34 billion
// ids, so a random draw almost never collides. The generator makes no
// attempt to detect collisions; the record store re-checks every id before
// it is used.
package idgen

import (
	"crypto/rand"
	"strings"
)

const (
	// Prefix starts every id so ids stand out in grep output and file names.
	Prefix = "px"

	// Alphabet is the 32-symbol set the random part is drawn from.
	Alphabet = "abcdefghijkmnpqrstuvwxyz23456789"

	// RandomLength is the number of random symbols after the prefix.
	RandomLength = 7

	// Length is the full id length.
	Length = len(Prefix) + RandomLength
)

// Generator returns a fresh candidate id on every call.
// The record store takes one of these so tests can force collisions.
type Generator func() string

// New returns a new random id.
//
// 256 is a multiple of 32, so masking each random byte with 31 picks every
// alphabet symbol with exactly equal probability.
func New() string {
	var buf [RandomLength]byte
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(buf[:])

	var b strings.Builder
	b.Grow(Length)
	b.WriteString(Prefix)
	for _, c := range buf {
		b.WriteByte(Alphabet[c&31])
	}
	return b.String()
}

// Valid reports whether s has the shape of a generated id.
func Valid(s string) bool {
	if len(s) != Length || !strings.HasPrefix(s, Prefix) {
		return false
	}
	for i := len(Prefix); i < len(s); i++ {
		if strings.IndexByte(Alphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}

// Sequence returns a Generator that yields ids in order and then falls back
// to New once they run out. Useful for deterministic tests.
func Sequence(ids ...string) Generator {
	next := 0
	return func() string {
		if next < len(ids) {
			id := ids[next]
			next++
			return id
		}
		return New()
	}
}
