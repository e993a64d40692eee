package utils

import "math/rand"

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// BookingTokenPrefix starts every booking token.
const BookingTokenPrefix = "BK-"

// NewBookingToken returns a short code of the form BK-XXXXX that guests
// quote when contacting the resort.  It is a reference, not a secret, so a
// non-cryptographic source is fine.
func NewBookingToken() string {
	b := make([]byte, 5)
	for i := range b {
		b[i] = tokenAlphabet[rand.Intn(len(tokenAlphabet))]
	}
	return BookingTokenPrefix + string(b)
}
