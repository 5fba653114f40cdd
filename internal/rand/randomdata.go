// Package rand produces random payloads, for tests and temporary names.
package rand

import (
	"math/rand"
	"sync"
	"time"
)

// letters maps every byte value to a sign in [a-z0-9]: the first signs are slightly more frequent
var letters = func() [256]byte {
	const signs = "abcdefghijklmnopqrstuvwxyz0123456789"
	var table [256]byte
	for i := range table {
		table[i] = signs[i%len(signs)]
	}
	return table
}()

// lockedSource is a pseudo-random generator safe for concurrent use
type lockedSource struct {
	mu  sync.Mutex
	gen *rand.Rand
}

var source = &lockedSource{
	gen: rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec
}

func (s *lockedSource) fill(buf []byte) {
	s.mu.Lock()
	_, _ = s.gen.Read(buf)
	s.mu.Unlock()
}

// Bytes returns n random bytes
func Bytes(n int) []byte {
	buf := make([]byte, n)
	source.fill(buf)
	return buf
}

// String returns a string of n random bytes
func String(n int) string {
	return string(Bytes(n))
}

// LetterBytes returns n random bytes picked in [a-z0-9]
func LetterBytes(n int) []byte {
	buf := Bytes(n)
	for i, b := range buf {
		buf[i] = letters[b]
	}
	return buf
}

// LetterString returns a random string of n signs picked in [a-z0-9]
func LetterString(n int) string {
	return string(LetterBytes(n))
}
