package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
)

const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var charsetSize = big.NewInt(int64(len(charset)))

// CodeGenerator produces candidate short codes. Candidates are not
// guaranteed to be unique.
type CodeGenerator interface {
	NewCode(ctx context.Context) (string, error)
}

// RandomCodeGenerator draws fixed-length codes from the 62-symbol alphabet
// using crypto/rand.
type RandomCodeGenerator struct {
	length int
}

func NewRandomCodeGenerator(length int) (*RandomCodeGenerator, error) {
	if length <= 0 {
		return nil, fmt.Errorf("short code length must be positive, got %d", length)
	}
	return &RandomCodeGenerator{length: length}, nil
}

func (g *RandomCodeGenerator) NewCode(_ context.Context) (string, error) {
	b := make([]byte, g.length)
	for i := range b {
		num, err := rand.Int(rand.Reader, charsetSize)
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}

var _ CodeGenerator = (*RandomCodeGenerator)(nil)
