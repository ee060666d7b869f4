package person

import "time"

// Person is a wallet owner. Each person has exactly one wallet, created in the
// same transaction as this record.
type Person struct {
	ID        string
	Phone     string
	PINHash   []byte
	CreatedAt time.Time
}
