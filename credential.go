package edhoc

import "github.com/go-edhoc/edhoc-go/cbor"

// CredentialRPK is a raw public key credential: the CBOR-encoded CCS
// (COSE Key-set) it was parsed from, plus the two fields the protocol
// actually consumes. The wire shape, reconstructed from the test vectors
// in this engine's conformance tests since no wire grammar for it appears
// elsewhere, is:
//
//	{ 2: subject(tstr), 8: { 1: COSE_Key } }
//	COSE_Key = { 1: 2 (kty=EC2), 2: kid(bstr[1]), -1: 1 (crv=P-256),
//	             -2: x(bstr[32]), -3: y(bstr[32]) }
type CredentialRPK struct {
	Value     MessageBuffer
	Kid       uint8
	PublicKey [32]byte
}

// map key labels used by the CCS/COSE_Key structure above.
const (
	ccsLabelSubject = 2
	ccsLabelCnf     = 8
	coseLabelCnf    = 1 // inside the cnf map: COSE_Key
	coseLabelKty    = 1
	coseLabelKid    = 2
	coseLabelCrvNeg = 0 // raw negint n for label -1 (crv)
	coseLabelXNeg   = 1 // raw negint n for label -2 (x-coordinate)
	coseLabelYNeg   = 2 // raw negint n for label -3 (y-coordinate)
	coseKtyEC2      = 2
	coseCrvP256     = 1
)

// NewCredentialRPK parses value as a CCS credential and extracts kid and
// the P-256 x-coordinate public key. It rejects anything that doesn't
// match the shape above: wrong map sizes, a kid that isn't exactly one
// byte, or an x-coordinate that isn't exactly 32 bytes.
func NewCredentialRPK(value []byte) (CredentialRPK, *Error) {
	buf, berr := FromSlice(value)
	if berr != nil {
		return CredentialRPK{}, berr
	}

	d := cbor.NewDecoder(value)

	n, err := d.Map()
	if err != nil || n != 2 {
		return CredentialRPK{}, newError(KindParsingError, cbor.ErrDecode)
	}

	// entry 1: subject (tstr), key label 2 — value unused by the core.
	if k, err := decodeMapKeyInt(d); err != nil {
		return CredentialRPK{}, err
	} else if k != ccsLabelSubject {
		return CredentialRPK{}, newError(KindParsingError, cbor.ErrDecode)
	}
	if _, err := d.Str(); err != nil {
		return CredentialRPK{}, newError(KindParsingError, err)
	}

	// entry 2: cnf (map), key label 8.
	if k, err := decodeMapKeyInt(d); err != nil {
		return CredentialRPK{}, err
	} else if k != ccsLabelCnf {
		return CredentialRPK{}, newError(KindParsingError, cbor.ErrDecode)
	}
	cnfN, err := d.Map()
	if err != nil || cnfN != 1 {
		return CredentialRPK{}, newError(KindParsingError, cbor.ErrDecode)
	}
	if k, err := decodeMapKeyInt(d); err != nil {
		return CredentialRPK{}, err
	} else if k != coseLabelCnf {
		return CredentialRPK{}, newError(KindParsingError, cbor.ErrDecode)
	}

	keyN, err := d.Map()
	if err != nil || keyN != 5 {
		return CredentialRPK{}, newError(KindParsingError, cbor.ErrDecode)
	}

	var kid uint8
	var pub [32]byte
	var sawKty, sawKid, sawCrv, sawX bool

	for i := 0; i < keyN; i++ {
		raw, err := d.IntRaw()
		if err != nil {
			return CredentialRPK{}, newError(KindParsingError, err)
		}
		if cbor.IsUint8(raw) {
			switch raw {
			case coseLabelKty:
				v, err := d.Uint8()
				if err != nil || v != coseKtyEC2 {
					return CredentialRPK{}, newError(KindParsingError, cbor.ErrDecode)
				}
				sawKty = true
			case coseLabelKid:
				b, err := d.BytesSized(1)
				if err != nil {
					return CredentialRPK{}, newError(KindParsingError, err)
				}
				kid = b[0]
				sawKid = true
			default:
				return CredentialRPK{}, newError(KindParsingError, cbor.ErrDecode)
			}
			continue
		}
		// negative key label: n = raw & 0x1F means label = -1-n.
		n := int(raw & 0x1F)
		switch n {
		case coseLabelCrvNeg: // label -1: curve
			v, err := d.Uint8()
			if err != nil || v != coseCrvP256 {
				return CredentialRPK{}, newError(KindParsingError, cbor.ErrDecode)
			}
			sawCrv = true
		case coseLabelXNeg: // label -2: x-coordinate
			b, err := d.BytesSized(32)
			if err != nil {
				return CredentialRPK{}, newError(KindParsingError, err)
			}
			copy(pub[:], b)
			sawX = true
		case coseLabelYNeg: // label -3: y-coordinate, unused by the core
			if _, err := d.BytesSized(32); err != nil {
				return CredentialRPK{}, newError(KindParsingError, err)
			}
		default:
			return CredentialRPK{}, newError(KindParsingError, cbor.ErrDecode)
		}
	}

	if !sawKty || !sawKid || !sawCrv || !sawX {
		return CredentialRPK{}, newError(KindParsingError, cbor.ErrDecode)
	}

	return CredentialRPK{Value: buf, Kid: kid, PublicKey: pub}, nil
}

// decodeMapKeyInt reads a non-negative integer map key.
func decodeMapKeyInt(d *cbor.Decoder) (int, *Error) {
	v, err := d.Uint8()
	if err != nil {
		return 0, newError(KindParsingError, err)
	}
	return int(v), nil
}
