package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
)

const (
	codeLength = 6
	codeMin    = 100000
	codeSpan   = 900000
)

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// GenerateCode returns a uniformly random code in [100000, 999999].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}

func IsWellFormedCode(code string) bool {
	return len(code) == codeLength && codePattern.MatchString(code)
}
