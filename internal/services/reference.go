package services

import (
	"fmt"
	"math/rand"
	"strings"

	"railbook/internal/repositories"
)

// Reference alphabet skips 0/O/1/I to keep codes readable over the phone.
const refAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const refLength = 8

// GenerateReference produces a unique human-readable booking code
// ("RB" + 8 chars), collision-checked against the ledger. The unique index
// on bookings.reference is the final arbiter.
func GenerateReference(repo repositories.BookingRepo) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		ref := randomReference()
		exists, err := repo.ReferenceExists(ref)
		if err != nil {
			return "", err
		}
		if !exists {
			return ref, nil
		}
	}
	return "", fmt.Errorf("could not generate unique booking reference")
}

func randomReference() string {
	var sb strings.Builder
	sb.WriteString("RB")
	for i := 0; i < refLength; i++ {
		sb.WriteByte(refAlphabet[rand.Intn(len(refAlphabet))])
	}
	return sb.String()
}
