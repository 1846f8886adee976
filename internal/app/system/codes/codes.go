// Package codes draws short shareable invitation codes from a fixed
// alphanumeric alphabet using crypto/rand.
package codes

import (
	"crypto/rand"
	"io"
)

// Alphabet is the 36-character draw set: uppercase letters and digits.
// 36^6 codes make accidental collision astronomically unlikely, which is
// what lets group creation get away with a bounded retry loop instead of a
// distributed lock.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the standard group code length.
const Length = 6

// Generator draws codes. The zero value is not usable; use Default or set
// every field.
type Generator struct {
	Length   int
	Alphabet string
	Rand     io.Reader
}

// Default returns a generator for standard 6-character codes backed by
// crypto/rand.
func Default() *Generator {
	return &Generator{Length: Length, Alphabet: Alphabet, Rand: rand.Reader}
}

// Draw returns one random code. Bytes outside the largest multiple of the
// alphabet size are rejected and redrawn so every character is uniform.
func (g *Generator) Draw() (string, error) {
	out := make([]byte, 0, g.Length)
	// Largest byte value usable without modulo bias.
	max := byte(255 - (256 % len(g.Alphabet)))
	buf := make([]byte, g.Length*2)
	for len(out) < g.Length {
		if _, err := io.ReadFull(g.Rand, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b > max {
				continue
			}
			out = append(out, g.Alphabet[int(b)%len(g.Alphabet)])
			if len(out) == g.Length {
				break
			}
		}
	}
	return string(out), nil
}
