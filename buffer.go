package edhoc

import "encoding/hex"

// MaxMessageLen is the fixed capacity of a MessageBuffer: large enough for
// any EDHOC message this engine frames, including a full-size X.509 EAD
// item, without ever growing the heap.
const MaxMessageLen = 192

// MessageBuffer is a fixed-capacity, stack-friendly byte buffer: a backing
// array plus a length, mirroring how the protocol's reference
// implementations avoid heap allocation for wire messages. The zero value
// is an empty buffer.
type MessageBuffer struct {
	data [MaxMessageLen]byte
	len  int
}

// NewEmpty returns an empty MessageBuffer.
func NewEmpty() MessageBuffer {
	return MessageBuffer{}
}

// FromSlice copies b into a new MessageBuffer. It fails if b does not fit.
func FromSlice(b []byte) (MessageBuffer, *Error) {
	var m MessageBuffer
	if err := m.Extend(b); err != nil {
		return MessageBuffer{}, err
	}
	return m, nil
}

// FromHex decodes a hex string into a MessageBuffer. Intended for test
// vectors; panics on malformed hex since it is never called with
// attacker-controlled input.
func FromHex(s string) MessageBuffer {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("edhoc: invalid hex test vector: " + err.Error())
	}
	m, derr := FromSlice(b)
	if derr != nil {
		panic("edhoc: test vector exceeds MessageBuffer capacity: " + derr.Error())
	}
	return m
}

// Len reports the number of valid bytes currently held.
func (m *MessageBuffer) Len() int { return m.len }

// AsSlice returns the valid portion of the buffer. The returned slice
// aliases m's backing array and is invalidated by the next mutating call.
func (m *MessageBuffer) AsSlice() []byte { return m.data[:m.len] }

// Push appends a single byte, failing if the buffer is already full.
func (m *MessageBuffer) Push(b byte) *Error {
	if m.len >= MaxMessageLen {
		return newError(KindParsingError, errBufferFull)
	}
	m.data[m.len] = b
	m.len++
	return nil
}

// Extend appends b, failing without modifying m if it would overflow.
func (m *MessageBuffer) Extend(b []byte) *Error {
	if m.len+len(b) > MaxMessageLen {
		return newError(KindParsingError, errBufferFull)
	}
	copy(m.data[m.len:], b)
	m.len += len(b)
	return nil
}

// Reset empties the buffer without reallocating.
func (m *MessageBuffer) Reset() { m.len = 0 }

var errBufferFull = bufferFullError{}

type bufferFullError struct{}

func (bufferFullError) Error() string { return "edhoc: message buffer capacity exceeded" }
