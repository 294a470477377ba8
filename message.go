package edhoc

import "github.com/go-edhoc/edhoc-go/cbor"

// supportedMethod is the only EDHOC method this engine implements:
// static-static authentication (method 3).
const supportedMethod = 3

// supportedSuite is the only cipher suite this engine implements: suite 2
// (AES-CCM-16-64-128 / SHA-256 / P-256).
const supportedSuite = 2

// message1 is the parsed content of EDHOC message_1.
type message1 struct {
	Method  uint8
	SuitesI []uint8
	GX      [32]byte
	CI      int8
	EAD     *EADItem
}

// parseMessage1 decodes message_1 = method, suites_i, G_X, C_I, ?EAD.
func parseMessage1(buf []byte) (message1, *Error) {
	d := cbor.NewDecoder(buf)
	var m message1

	method, err := d.Uint8()
	if err != nil {
		return message1{}, newError(KindParsingError, err)
	}
	m.Method = method

	suites, serr := parseSuitesI(d)
	if serr != nil {
		return message1{}, serr
	}
	m.SuitesI = suites

	gx, derr := d.BytesSized(32)
	if derr != nil {
		return message1{}, newError(KindParsingError, derr)
	}
	copy(m.GX[:], gx)

	ci, cerr := parseConnectionIdentifier(d)
	if cerr != nil {
		return message1{}, cerr
	}
	m.CI = ci

	ead, has, eerr := parseEAD(d)
	if eerr != nil {
		return message1{}, eerr
	}
	if has {
		m.EAD = &ead
	}
	if !d.Finished() {
		return message1{}, newError(KindParsingError, cbor.ErrDecode)
	}
	return m, nil
}

// encodeMessage1 encodes m into a fresh byte slice.
func encodeMessage1(m message1) ([]byte, *Error) {
	e := cbor.NewEncoder(make([]byte, 0, 64))
	e.Uint(m.Method)
	encodeSuitesI(e, m.SuitesI)
	e.Bytes(m.GX[:])
	encodeConnectionIdentifier(e, m.CI)
	if err := encodeEAD(e, m.EAD); err != nil {
		return nil, err
	}
	return e.Out(), nil
}

// parseSuitesI decodes suites_i: a bare int when only one suite is
// offered, or an array of length >=2. An array of length exactly 1 is
// malformed (the bare-int form must be used instead).
func parseSuitesI(d *cbor.Decoder) ([]uint8, *Error) {
	b, berr := d.Current()
	if berr != nil {
		return nil, newError(KindParsingError, berr)
	}
	if cbor.IsArrayHead(b) {
		n, err := d.Array()
		if err != nil {
			return nil, newError(KindParsingError, err)
		}
		if n < 2 {
			return nil, newError(KindParsingError, cbor.ErrDecode)
		}
		out := make([]uint8, n)
		for i := 0; i < n; i++ {
			v, err := d.Uint8()
			if err != nil {
				return nil, newError(KindParsingError, err)
			}
			out[i] = v
		}
		return out, nil
	}
	v, err := d.Uint8()
	if err != nil {
		return nil, newError(KindParsingError, err)
	}
	return []uint8{v}, nil
}

func encodeSuitesI(e *cbor.Encoder, suites []uint8) {
	if len(suites) == 1 {
		e.Uint(suites[0])
		return
	}
	e.ArrayHeader(len(suites))
	for _, s := range suites {
		e.Uint(s)
	}
}

// checkSuitesI rejects any suites_i whose last element is not the
// supported suite, per the Responder's process_message_1 rule.
func checkSuitesI(suites []uint8) *Error {
	if len(suites) == 0 || suites[len(suites)-1] != supportedSuite {
		return newError(KindUnsupportedCipherSuite, errUnsupportedSuite)
	}
	return nil
}

var errUnsupportedSuite = unsupportedSuiteError{}

type unsupportedSuiteError struct{}

func (unsupportedSuiteError) Error() string { return "edhoc: unsupported cipher suite offered" }

// parseConnectionIdentifier decodes a bare int in [-24,23] as its raw
// CBOR single-byte form.
func parseConnectionIdentifier(d *cbor.Decoder) (int8, *Error) {
	raw, err := d.IntRaw()
	if err != nil {
		return 0, newError(KindParsingError, err)
	}
	if cbor.IsUint8(raw) {
		return int8(raw), nil
	}
	n := int(raw & 0x1F)
	return int8(-1 - n), nil
}

func encodeConnectionIdentifier(e *cbor.Encoder, id int8) {
	if id >= 0 {
		e.Uint(uint8(id))
		return
	}
	e.NegInt(id)
}

// parseIDCred decodes ID_CRED_R/ID_CRED_I: a bare int (compact kid) or a
// bstr of length >=2 (full credential).
func parseIDCred(d *cbor.Decoder) (IDCred, *Error) {
	b, err := d.Current()
	if err != nil {
		return IDCred{}, newError(KindParsingError, err)
	}
	if cbor.IsBytesHead(b) {
		val, derr := d.Bytes()
		if derr != nil {
			return IDCred{}, newError(KindParsingError, derr)
		}
		if len(val) < 2 {
			return IDCred{}, newError(KindParsingError, cbor.ErrDecode)
		}
		var buf MessageBuffer
		if xerr := buf.Extend(val); xerr != nil {
			return IDCred{}, xerr
		}
		return IDCred{Kind: ByValue, Value: buf}, nil
	}
	v, derr := d.Uint8()
	if derr != nil {
		return IDCred{}, newError(KindParsingError, derr)
	}
	return IDCred{Kind: ByReference, Kid: v}, nil
}

func encodeIDCred(e *cbor.Encoder, id IDCred) {
	if id.Kind == ByValue {
		e.Bytes(id.Value.AsSlice())
		return
	}
	e.Uint(id.Kid)
}

// plaintext2 is the decrypted content of CIPHERTEXT_2.
type plaintext2 struct {
	CR      int8
	IDCredR IDCred
	MAC2    [8]byte
	EAD     *EADItem
}

func parsePlaintext2(buf []byte) (plaintext2, *Error) {
	d := cbor.NewDecoder(buf)
	var p plaintext2

	cr, err := parseConnectionIdentifier(d)
	if err != nil {
		return plaintext2{}, err
	}
	p.CR = cr

	idCredR, err := parseIDCred(d)
	if err != nil {
		return plaintext2{}, err
	}
	p.IDCredR = idCredR

	mac, derr := d.BytesSized(8)
	if derr != nil {
		return plaintext2{}, newError(KindParsingError, derr)
	}
	copy(p.MAC2[:], mac)

	ead, has, eerr := parseEAD(d)
	if eerr != nil {
		return plaintext2{}, eerr
	}
	if has {
		p.EAD = &ead
	}
	if !d.Finished() {
		return plaintext2{}, newError(KindParsingError, cbor.ErrDecode)
	}
	return p, nil
}

func encodePlaintext2(p plaintext2) ([]byte, *Error) {
	e := cbor.NewEncoder(make([]byte, 0, 64))
	encodeConnectionIdentifier(e, p.CR)
	encodeIDCred(e, p.IDCredR)
	e.Bytes(p.MAC2[:])
	if err := encodeEAD(e, p.EAD); err != nil {
		return nil, err
	}
	return e.Out(), nil
}

// plaintext3 is the decrypted content of CIPHERTEXT_3.
type plaintext3 struct {
	IDCredI IDCred
	MAC3    [8]byte
	EAD     *EADItem
}

func parsePlaintext3(buf []byte) (plaintext3, *Error) {
	d := cbor.NewDecoder(buf)
	var p plaintext3

	idCredI, err := parseIDCred(d)
	if err != nil {
		return plaintext3{}, err
	}
	p.IDCredI = idCredI

	mac, derr := d.BytesSized(8)
	if derr != nil {
		return plaintext3{}, newError(KindParsingError, derr)
	}
	copy(p.MAC3[:], mac)

	ead, has, eerr := parseEAD(d)
	if eerr != nil {
		return plaintext3{}, eerr
	}
	if has {
		p.EAD = &ead
	}
	if !d.Finished() {
		return plaintext3{}, newError(KindParsingError, cbor.ErrDecode)
	}
	return p, nil
}

func encodePlaintext3(p plaintext3) ([]byte, *Error) {
	e := cbor.NewEncoder(make([]byte, 0, 64))
	encodeIDCred(e, p.IDCredI)
	e.Bytes(p.MAC3[:])
	if err := encodeEAD(e, p.EAD); err != nil {
		return nil, err
	}
	return e.Out(), nil
}

// splitMessage2 splits message_2's bstr payload into G_Y (32 bytes) and
// CIPHERTEXT_2.
func splitMessage2(payload []byte) (gY [32]byte, ct2 []byte, ok bool) {
	if len(payload) < 32 {
		return gY, nil, false
	}
	copy(gY[:], payload[:32])
	return gY, payload[32:], true
}

// message2Bstr decodes the single outer bstr that message_2 consists of.
func message2Bstr(buf []byte) ([]byte, *Error) {
	d := cbor.NewDecoder(buf)
	val, err := d.Bytes()
	if err != nil {
		return nil, newError(KindParsingError, err)
	}
	if !d.Finished() {
		return nil, newError(KindParsingError, cbor.ErrDecode)
	}
	return val, nil
}

// encodeMessage2 frames G_Y||CIPHERTEXT_2 as message_2's outer bstr.
func encodeMessage2(gY [32]byte, ct2 []byte) []byte {
	e := cbor.NewEncoder(make([]byte, 0, 2+32+len(ct2)))
	e.BytesHeader(32 + len(ct2))
	e.Raw(gY[:])
	e.Raw(ct2)
	return e.Out()
}

// message3Bstr decodes the single outer bstr that message_3 consists of.
func message3Bstr(buf []byte) ([]byte, *Error) {
	d := cbor.NewDecoder(buf)
	val, err := d.Bytes()
	if err != nil {
		return nil, newError(KindParsingError, err)
	}
	if !d.Finished() {
		return nil, newError(KindParsingError, cbor.ErrDecode)
	}
	return val, nil
}

// encodeMessage3 frames CIPHERTEXT_3 as message_3's outer bstr.
func encodeMessage3(ct3 []byte) []byte {
	e := cbor.NewEncoder(make([]byte, 0, 2+len(ct3)))
	e.Bytes(ct3)
	return e.Out()
}
