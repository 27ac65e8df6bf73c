// Package lobbycode generates the short numeric codes players type to
// join a lobby.
package lobbycode

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// MaxAttempts bounds how many candidate codes an allocator should try
// before giving up on a crowded code space.
const MaxAttempts = 10

// RandSource interface for dependency injection of randomness
type RandSource interface {
	Intn(n int) int
}

// Generator produces lobby codes with configurable randomness.
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a new generator. A nil RandSource falls back to
// crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate returns one candidate code: four digits, "1000" to "9999".
func (g *Generator) Generate() string {
	return fmt.Sprintf("%04d", 1000+g.intn(9000))
}

func (g *Generator) intn(n int) int {
	if g.randSource != nil {
		return g.randSource.Intn(n)
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("failed to generate random bytes: " + err.Error())
	}
	return int(binary.BigEndian.Uint64(buf[:]) % uint64(n))
}

// Validate checks that a code is four digits in the accepted range.
func Validate(code string) error {
	if len(code) != 4 {
		return fmt.Errorf("lobby code must be exactly 4 digits, got %d characters", len(code))
	}
	for i, ch := range code {
		if ch < '0' || ch > '9' {
			return fmt.Errorf("invalid character %c at position %d", ch, i)
		}
	}
	if code[0] == '0' {
		return fmt.Errorf("lobby code must not start with 0")
	}
	return nil
}
