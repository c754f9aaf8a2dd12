package shortener

import (
	"errors"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// URLAlphabet is the URL-safe alphabet codes are drawn from.
const URLAlphabet = "_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// CodeGenerator produces candidate short codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// Generator creates cryptographically random codes of a fixed length.
// It does not check for collisions; that is the Allocator's job.
type Generator struct {
	length int
}

// NewGenerator returns a Generator for codes of the given length.
func NewGenerator(length int) (*Generator, error) {
	if length <= 0 {
		return nil, errors.New("short code length must be positive")
	}
	return &Generator{length: length}, nil
}

// Length is the number of characters in each generated code.
func (g *Generator) Length() int {
	return g.length
}

func (g *Generator) Generate() (string, error) {
	return gonanoid.Generate(URLAlphabet, g.length)
}
