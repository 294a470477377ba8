package cbor

// Encoder appends CBOR items to an owned byte slice, using only the short
// forms the Decoder in this package accepts: inline 0x00-0x17 for small
// integers, the 0x18+byte extra form for 24..=255, and 0x40|n / 0x58+n for
// byte-string heads. No indefinite-length or multi-byte-length forms are
// ever produced.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder that appends to dst (may be nil).
func NewEncoder(dst []byte) *Encoder {
	return &Encoder{buf: dst}
}

// Out returns the accumulated output.
func (e *Encoder) Out() []byte { return e.buf }

// Raw appends already-encoded CBOR bytes verbatim, for building a
// transcript out of a previously-framed message without re-decoding it.
func (e *Encoder) Raw(b []byte) { e.buf = append(e.buf, b...) }

// Uint appends an unsigned integer head (major type 0).
func (e *Encoder) Uint(v uint8) {
	if v <= 0x17 {
		e.buf = append(e.buf, v)
		return
	}
	e.buf = append(e.buf, uint1ByteForm, v)
}

// NegInt appends a negative integer in -1..=-24 as a single-byte head
// (major type 1). Values outside that range are not representable by this
// narrow encoder and are not used anywhere in this protocol.
func (e *Encoder) NegInt(v int8) {
	n := -1 - int(v)
	e.buf = append(e.buf, majorNeg|byte(n))
}

// BytesHeader appends a byte-string head (major type 2) for a value of the
// given length, without the payload.
func (e *Encoder) BytesHeader(n int) {
	if n < 24 {
		e.buf = append(e.buf, majorBytes|byte(n))
		return
	}
	e.buf = append(e.buf, 0x58, byte(n))
}

// Bytes appends a complete byte string (head + payload).
func (e *Encoder) Bytes(v []byte) {
	e.BytesHeader(len(v))
	e.buf = append(e.buf, v...)
}

// ArrayHeader appends an array head (major type 4) for n elements.
func (e *Encoder) ArrayHeader(n int) {
	if n < 24 {
		e.buf = append(e.buf, majorArray|byte(n))
		return
	}
	e.buf = append(e.buf, majorArray|uint1ByteForm, byte(n))
}

// Text appends a complete UTF-8 text string (major type 3). Used only for
// the fixed "Encrypt0" context string in the Enc_structure this package's
// callers build; no wire message ever carries a text string.
func (e *Encoder) Text(s string) {
	n := len(s)
	if n < 24 {
		e.buf = append(e.buf, majorText|byte(n))
	} else {
		e.buf = append(e.buf, 0x78, byte(n))
	}
	e.buf = append(e.buf, s...)
}
