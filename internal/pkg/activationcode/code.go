// Package activationcode generates and checks the CARD-XXXXXX codes printed
// on physical NFC cards.
package activationcode

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"strings"
)

const (
	Prefix   = "CARD-"
	Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Length   = 6
)

var pattern = regexp.MustCompile(`^CARD-[0-9A-Z]{6}$`)

// Generator draws codes from an entropy source. It never consults existing
// records; uniqueness is enforced by the store on insert.
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a Generator reading from r, or crypto/rand when r is nil.
func NewGenerator(r io.Reader) *Generator {
	if r == nil {
		r = rand.Reader
	}
	return &Generator{rand: r}
}

// Generate returns a fresh code. Each position is drawn uniformly from Alphabet.
func (g *Generator) Generate() (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	b := make([]byte, Length)
	for i := range b {
		n, err := rand.Int(g.rand, max)
		if err != nil {
			return "", fmt.Errorf("generate activation code: %w", err)
		}
		b[i] = Alphabet[n.Int64()]
	}
	return Prefix + string(b), nil
}

// Normalize trims surrounding whitespace and uppercases raw user input.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Valid reports whether code is already in canonical CARD-XXXXXX form.
func Valid(code string) bool {
	return pattern.MatchString(code)
}
