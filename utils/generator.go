package utils

import "math/rand"

const maxId = 1 << 53

// GenerateId returns a random positive id that survives a round trip
// through a JSON number.
func GenerateId() int64 {
	return rand.Int63n(maxId-1) + 1
}
