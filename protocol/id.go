package protocol

import (
	"github.com/google/uuid"
)

const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// uuid bytes 6 and 8 hold version and variant bits.
var idBytes = [10]int{0, 1, 2, 3, 4, 5, 7, 9, 10, 11}

// NewID returns a random 10-character alphanumeric message id.
func NewID() string {
	u := uuid.New()
	id := make([]byte, len(idBytes))
	for i, b := range idBytes {
		id[i] = idAlphabet[int(u[b])%len(idAlphabet)]
	}
	return string(id)
}
