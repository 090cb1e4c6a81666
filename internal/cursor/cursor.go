// Package cursor encodes and decodes opaque keyset-pagination tokens.
//
// Both layouts are 24 bytes, base64url without padding:
//
//	time cursor: 8-byte big-endian epoch milliseconds | 16-byte id
//	rank cursor: 8-byte big-endian signed rank        | 16-byte id
//
// Callers never interpret a token; they only hand it back. Decoding anything
// malformed reports !ok rather than an error, so a garbage cursor degrades to
// "no cursor" or a bad request, never a crash.
package cursor

import (
	"encoding/base64"
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

const tokenSize = 24

// EncodeTime builds a chronological pagination token from a row's
// (createdAt, id) sort key.
func EncodeTime(createdAt time.Time, id uuid.UUID) string {
	var buf [tokenSize]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(createdAt.UnixMilli()))
	copy(buf[8:], id[:])
	return base64.RawURLEncoding.EncodeToString(buf[:])
}

// DecodeTime parses a chronological pagination token.
func DecodeTime(token string) (createdAt time.Time, id uuid.UUID, ok bool) {
	buf, ok := decode(token)
	if !ok {
		return time.Time{}, uuid.Nil, false
	}
	millis := int64(binary.BigEndian.Uint64(buf[:8]))
	copy(id[:], buf[8:])
	return time.UnixMilli(millis).UTC(), id, true
}

// EncodeRank builds a ranking pagination token from a row's (rank, id) key.
func EncodeRank(rank int64, id uuid.UUID) string {
	var buf [tokenSize]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(rank))
	copy(buf[8:], id[:])
	return base64.RawURLEncoding.EncodeToString(buf[:])
}

// DecodeRank parses a ranking pagination token.
func DecodeRank(token string) (rank int64, id uuid.UUID, ok bool) {
	buf, ok := decode(token)
	if !ok {
		return 0, uuid.Nil, false
	}
	rank = int64(binary.BigEndian.Uint64(buf[:8]))
	copy(id[:], buf[8:])
	return rank, id, true
}

func decode(token string) ([]byte, bool) {
	buf, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(buf) != tokenSize {
		return nil, false
	}
	return buf, true
}
