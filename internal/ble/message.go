package ble

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// GreetingOrigin names the sender in the automatic post-connect greeting.
const GreetingOrigin = "iPhone"

// TimestampLayout formats the greeting timestamp as yyyy-MM-dd HH:mm:ss.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	errNotUTF8  = errors.New("ble: text is not valid UTF-8")
	errNotASCII = errors.New("ble: text is not ASCII")
)

// Greeting returns the message written automatically once the e-paper
// characteristic is resolved.
func Greeting(origin string, now time.Time) string {
	return fmt.Sprintf("connected from %s [%s]", origin, now.Format(TimestampLayout))
}

// EncodeUTF8 returns the UTF-8 bytes of text.
func EncodeUTF8(text string) ([]byte, error) {
	if !utf8.ValidString(text) {
		return nil, errNotUTF8
	}
	return []byte(text), nil
}

// EncodeASCII returns the ASCII bytes of text. It fails if any rune is
// outside the 7-bit range.
func EncodeASCII(text string) ([]byte, error) {
	for i := 0; i < len(text); i++ {
		if text[i] >= utf8.RuneSelf {
			return nil, fmt.Errorf("%w: byte 0x%02x at offset %d", errNotASCII, text[i], i)
		}
	}
	return []byte(text), nil
}
