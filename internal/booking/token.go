package booking

import gonanoid "github.com/matoous/go-nanoid/v2"

const (
	tokenAlphabet = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	tokenLength   = 20
)

// NewToken returns a random booking token customers use to look up their booking.
func NewToken() (string, error) {
	return gonanoid.Generate(tokenAlphabet, tokenLength)
}
