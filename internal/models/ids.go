package models

import "github.com/google/uuid"

// NewID returns a time-ordered (UUIDv7) identifier. Time-ordering keeps the
// (created_at, id) keyset pagination stable even when two rows share a
// millisecond timestamp.
func NewID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the random source is broken; nothing sensible
		// can run after that.
		panic(err)
	}
	return id
}
