package edhoc

import (
	"github.com/go-edhoc/edhoc-go/cbor"
	"github.com/go-edhoc/edhoc-go/edhoccrypto"
)

// maxKDFContextLen bounds the context passed to edhocKDF. Transcript
// hashes and MAC contexts that identify the credential by kid fit inside
// it; a MAC context that carries the full credential by value alongside
// the credential itself can exceed it, and edhocKDF then returns
// UnknownError.
const maxKDFContextLen = 150

// edhocKDF implements EDHOC-KDF: HKDF-Expand(prk, info, length) where info
// is the CBOR sequence label, bstr(context), length. label and length are
// encoded as a bare uint (inline for <24, single extra byte otherwise);
// context is encoded as a bstr with the same short-form rule.
func edhocKDF(crypto edhoccrypto.Suite, prk []byte, label uint8, context []byte, length int) ([]byte, *Error) {
	if len(context) > maxKDFContextLen {
		return nil, newError(KindUnknownError, errContextTooLong)
	}
	if length < 0 || length > 255 {
		return nil, newError(KindUnknownError, errLengthTooLarge)
	}

	e := cbor.NewEncoder(make([]byte, 0, 4+len(context)+2))
	e.Uint(label)
	e.Bytes(context)
	e.Uint(uint8(length))

	out, err := crypto.HKDFExpand(prk, e.Out(), length)
	if err != nil {
		return nil, wrapCrypto(err)
	}
	return out, nil
}

var (
	errContextTooLong = kdfContextTooLongError{}
	errLengthTooLarge = kdfLengthTooLargeError{}
)

type kdfContextTooLongError struct{}

func (kdfContextTooLongError) Error() string { return "edhoc: kdf context exceeds maximum length" }

type kdfLengthTooLargeError struct{}

func (kdfLengthTooLargeError) Error() string {
	return "edhoc: kdf output length does not fit a single-byte CBOR length"
}

// th2 computes TH_2 = SHA256( bstr(G_Y) || bstr(H(message_1)) ).
func th2(crypto edhoccrypto.Suite, gY [32]byte, hMessage1 [32]byte) [32]byte {
	e := cbor.NewEncoder(make([]byte, 0, 70))
	e.Bytes(gY[:])
	e.Bytes(hMessage1[:])
	return crypto.SHA256(e.Out())
}

// th3 computes TH_3 = SHA256( bstr(TH_2) || PLAINTEXT_2 || CRED_R ), where
// CRED_R is embedded as a bstr per the protocol's transcript framing.
func th3(crypto edhoccrypto.Suite, th2 [32]byte, plaintext2 []byte, credR []byte) [32]byte {
	e := cbor.NewEncoder(make([]byte, 0, 40+len(plaintext2)+len(credR)))
	e.Bytes(th2[:])
	e.Raw(plaintext2)
	e.Bytes(credR)
	return crypto.SHA256(e.Out())
}

// th4 computes TH_4 = SHA256( bstr(TH_3) || PLAINTEXT_3 || CRED_I ).
func th4(crypto edhoccrypto.Suite, th3 [32]byte, plaintext3 []byte, credI []byte) [32]byte {
	e := cbor.NewEncoder(make([]byte, 0, 40+len(plaintext3)+len(credI)))
	e.Bytes(th3[:])
	e.Raw(plaintext3)
	e.Bytes(credI)
	return crypto.SHA256(e.Out())
}

// enc0AAD builds the COSE_Encrypt0 Enc_structure ["Encrypt0", h'', bstr(th)]
// used as AAD when sealing/opening CIPHERTEXT_3.
func enc0AAD(th [32]byte) []byte {
	e := cbor.NewEncoder(make([]byte, 0, 48))
	e.ArrayHeader(3)
	e.Text("Encrypt0")
	e.Bytes(nil)
	e.Bytes(th[:])
	return e.Out()
}

// keystream2 derives KEYSTREAM_2 = edhoc_kdf(PRK_2e, 0, TH_2, n).
func keystream2(crypto edhoccrypto.Suite, prk2e []byte, th2 [32]byte, n int) ([]byte, *Error) {
	return edhocKDF(crypto, prk2e, 0, th2[:], n)
}

// xorInto XORs ks into dst in place; dst and ks must be equal length.
func xorInto(dst, ks []byte) {
	for i := range dst {
		dst[i] ^= ks[i]
	}
}
