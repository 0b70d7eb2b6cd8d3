// Package uniuri generates random strings from a fixed alphabet using crypto/rand.
package uniuri

import (
	"crypto/rand"
	"errors"
)

// StdLen gives ~95 bits of entropy with StdChars.
const StdLen = 16

const byteRange = 256

// StdChars is the default alphabet.
var StdChars = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789") //nolint:gochecknoglobals

// ErrCharset is returned for alphabets with less than 2 or more than 256 characters.
var ErrCharset = errors.New("uniuri: charset must hold 2 to 256 characters")

// New returns a random string of StdLen characters from StdChars.
func New() (string, error) {
	return NewLenChars(StdLen, StdChars)
}

// NewLen returns a random string of length characters from StdChars.
func NewLen(length int) (string, error) {
	return NewLenChars(length, StdChars)
}

// NewLenChars returns a random string of length characters from chars.
// Bytes that would bias the distribution are rejected and redrawn.
func NewLenChars(length int, chars []byte) (string, error) {
	n := len(chars)
	if n < 2 || n > byteRange {
		return "", ErrCharset
	}

	if length <= 0 {
		return "", nil
	}

	limit := byteRange - byteRange%n
	out := make([]byte, 0, length)
	buf := make([]byte, length+length/2)

	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err //nolint:wrapcheck
		}

		for _, b := range buf {
			if int(b) >= limit {
				continue
			}

			out = append(out, chars[int(b)%n])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}
