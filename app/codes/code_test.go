package codes

import (
	"bytes"
	"io"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCodeIsCanonicalAndUnique(t *testing.T) {
	seen := make(map[Code]struct{})
	for i := 0; i < 1000; i++ {
		c, err := NewCode()
		require.NoError(t, err)
		parsed, err := ParseCode(c.String())
		require.NoError(t, err)
		require.Equal(t, c, parsed)
		_, dup := seen[c]
		require.False(t, dup)
		seen[c] = struct{}{}
	}
}

func TestNewCodeUsesEveryBit(t *testing.T) {
	allOnes, err := newCode(bytes.NewReader(bytes.Repeat([]byte{0xff}, codeBits/8)))
	require.NoError(t, err)
	maxCode := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), codeBits), big.NewInt(1))
	require.Equal(t, Code(maxCode.Text(codeBase)), allOnes)

	// Version and variant positions of a v4 UUID must not be fixed.
	versions := make(map[uint]struct{})
	for range 200 {
		c, err := NewCode()
		require.NoError(t, err)
		n, ok := new(big.Int).SetString(c.String(), codeBase)
		require.True(t, ok)
		versions[n.Bit(76)<<3|n.Bit(77)<<2|n.Bit(78)<<1|n.Bit(79)] = struct{}{}
	}
	require.Greater(t, len(versions), 1)
}

func TestNewCodeShortRead(t *testing.T) {
	_, err := newCode(bytes.NewReader([]byte{1, 2, 3}))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestParseCode(t *testing.T) {
	cases := map[string]Code{
		"12345":                    "12345",
		"  AbC9 ":                  "abc9",
		"000z":                     "z",
		"0":                        "0",
		"f5lxx1zz5pnorynqglhzmsp3": "f5lxx1zz5pnorynqglhzmsp3",
	}
	for in, want := range cases {
		got, err := ParseCode(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
}

func TestParseCodeRejectsMalformed(t *testing.T) {
	maxCode := new(big.Int).Lsh(big.NewInt(1), codeBits)
	tooBig := maxCode.Text(codeBase)

	for _, in := range []string{"", "   ", "-12", "+12", "12 34", "abc_def", "код", "0x1f", tooBig, strings.Repeat("z", 40)} {
		_, err := ParseCode(in)
		require.ErrorIs(t, err, ErrMalformed, in)
	}

	largest := new(big.Int).Sub(maxCode, big.NewInt(1)).Text(codeBase)
	got, err := ParseCode(largest)
	require.NoError(t, err)
	require.Equal(t, Code(largest), got)
}
