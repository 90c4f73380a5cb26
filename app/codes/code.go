package codes

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const (
	codeBase = 36
	codeBits = 128
)

// ErrMalformed is returned by ParseCode for text that cannot be a deletion code.
var ErrMalformed = errors.New("codes: malformed code")

// Code is an opaque deletion code in canonical form: lowercase base-36 without leading zeros.
type Code string

// String returns the code as shown to users.
func (c Code) String() string { return string(c) }

// NewCode draws a fresh code from codeBits bits of crypto/rand output.
func NewCode() (Code, error) {
	return newCode(rand.Reader)
}

func newCode(src io.Reader) (Code, error) {
	var b [codeBits / 8]byte
	if _, err := io.ReadFull(src, b[:]); err != nil {
		return "", fmt.Errorf("codes: generate: %w", err)
	}
	return Code(new(big.Int).SetBytes(b[:]).Text(codeBase)), nil
}

// ParseCode validates user input and returns the canonical code.
func ParseCode(s string) (Code, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", ErrMalformed
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'z') {
			return "", ErrMalformed
		}
	}
	n, ok := new(big.Int).SetString(s, codeBase)
	if !ok || n.BitLen() > codeBits {
		return "", ErrMalformed
	}
	return Code(n.Text(codeBase)), nil
}
