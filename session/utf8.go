package session

import "unicode/utf8"

// utf8Carry reassembles multi-byte characters split across read boundaries.
// A rune whose bytes straddle two chunks must surface intact, never as
// replacement characters.
type utf8Carry struct {
	pending []byte
}

// decode appends p to any pending bytes and returns the longest prefix
// that ends on a rune boundary, holding the rest for the next read.
func (c *utf8Carry) decode(p []byte) string {
	buf := make([]byte, 0, len(c.pending)+len(p))
	buf = append(buf, c.pending...)
	buf = append(buf, p...)
	c.pending = nil

	cut := len(buf)
	for i := len(buf) - 1; i >= 0 && i >= len(buf)-utf8.UTFMax; i-- {
		b := buf[i]
		if b < utf8.RuneSelf {
			break
		}
		if utf8.RuneStart(b) {
			if !utf8.FullRune(buf[i:]) {
				cut = i
			}
			break
		}
	}

	if cut < len(buf) {
		c.pending = append(c.pending, buf[cut:]...)
	}
	return string(buf[:cut])
}

// flush returns any bytes still pending at stream end. An incomplete
// trailing sequence is emitted as-is, best effort.
func (c *utf8Carry) flush() string {
	out := string(c.pending)
	c.pending = nil
	return out
}
