package challenge

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/url"
	"strings"
)

// Alphabet excludes ambiguous characters: 0, O, 1, I, L
const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeLength = 6

// QueryParam carries the code on a challenge link.
const QueryParam = "challenge"

func GenerateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		code[i] = alphabet[n.Int64()]
	}
	return string(code), nil
}

// ValidCode reports whether code could have come from GenerateCode.
func ValidCode(code string) bool {
	if len(code) != codeLength {
		return false
	}
	for _, ch := range code {
		if !strings.ContainsRune(alphabet, ch) {
			return false
		}
	}
	return true
}

// Link returns base with the challenge code added to its query.
func Link(base, code string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing challenge base url: %w", err)
	}
	q := u.Query()
	q.Set(QueryParam, code)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FromLink extracts a valid challenge code from a link's query.
func FromLink(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	code := strings.ToUpper(u.Query().Get(QueryParam))
	return code, ValidCode(code)
}
