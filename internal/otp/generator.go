package otp

import (
	mathrand "math/rand"
	"sync"
	"time"
)

// DefaultCodeLength is the width of generated codes.
const DefaultCodeLength = 6

var (
	genMu  sync.Mutex
	genRnd = mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
)

// GenerateCode returns a string of length decimal digits.
func GenerateCode(length int) string {
	if length <= 0 {
		length = DefaultCodeLength
	}
	genMu.Lock()
	defer genMu.Unlock()
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = byte('0' + genRnd.Intn(10))
	}
	return string(buf)
}
