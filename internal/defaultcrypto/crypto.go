// Package defaultcrypto provides a ready-to-use edhoccrypto.Suite backed by
// real cryptography, so the engine can be exercised and tested without the
// caller supplying its own primitive implementation. Production embedders
// are expected to swap this for a backend tied to their own hardware or
// software crypto stack; this one favors clarity over the no-heap
// constraints the protocol engine itself must honor.
package defaultcrypto

import (
	"crypto/aes"
	"crypto/ecdh"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/pschlump/AesCCM"
	"golang.org/x/crypto/hkdf"

	"github.com/go-edhoc/edhoc-go/edhoccrypto"
)

// Suite is the default edhoccrypto.Suite implementation.
type Suite struct{}

// New returns a Suite using crypto/ecdh, golang.org/x/crypto/hkdf, and
// AES-CCM per RFC 3610.
func New() Suite { return Suite{} }

var _ edhoccrypto.Suite = Suite{}

// SHA256 implements edhoccrypto.Suite.
func (Suite) SHA256(data []byte) [edhoccrypto.SHA256DigestLen]byte {
	return sha256.Sum256(data)
}

// HKDFExtract implements edhoccrypto.Suite.
func (Suite) HKDFExtract(salt, ikm []byte) [edhoccrypto.SHA256DigestLen]byte {
	var out [edhoccrypto.SHA256DigestLen]byte
	copy(out[:], hkdf.Extract(sha256.New, ikm, salt))
	return out
}

// HKDFExpand implements edhoccrypto.Suite.
func (Suite) HKDFExpand(prk []byte, info []byte, length int) ([]byte, error) {
	out := make([]byte, length)
	r := hkdf.Expand(sha256.New, prk, info)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("defaultcrypto: hkdf expand: %w", err)
	}
	return out, nil
}

// AESCCMEncrypt implements edhoccrypto.Suite.
func (Suite) AESCCMEncrypt(key [edhoccrypto.AESCCMKeyLen]byte, iv [edhoccrypto.AESCCMIVLen]byte, aad, plaintext []byte) ([]byte, error) {
	ccm, err := newCCM(key)
	if err != nil {
		return nil, err
	}
	return ccm.Seal(nil, iv[:], plaintext, aad), nil
}

// AESCCMDecrypt implements edhoccrypto.Suite.
func (Suite) AESCCMDecrypt(key [edhoccrypto.AESCCMKeyLen]byte, iv [edhoccrypto.AESCCMIVLen]byte, aad, ciphertext []byte) ([]byte, error) {
	ccm, err := newCCM(key)
	if err != nil {
		return nil, err
	}
	pt, err := ccm.Open(nil, iv[:], ciphertext, aad)
	if err != nil {
		return nil, edhoccrypto.ErrAeadFailed
	}
	return pt, nil
}

func newCCM(key [edhoccrypto.AESCCMKeyLen]byte) (aesccm.CCM, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("defaultcrypto: aes cipher: %w", err)
	}
	ccm, err := aesccm.NewCCM(block, edhoccrypto.AESCCMTagLen, edhoccrypto.AESCCMIVLen)
	if err != nil {
		return nil, fmt.Errorf("defaultcrypto: ccm init: %w", err)
	}
	return ccm, nil
}

// P256ECDH implements edhoccrypto.Suite. Since only the x-coordinate of a
// P-256 point crosses the EDHOC wire, the peer's point is reconstructed
// from pkX by decompressing it with the even-y sign convention (0x02
// prefix), matching how the protocol's reference crypto backends recover
// the full point before scalar multiplication.
func (Suite) P256ECDH(sk [edhoccrypto.P256ElemLen]byte, pkX [edhoccrypto.P256ElemLen]byte) ([edhoccrypto.P256ElemLen]byte, error) {
	var out [edhoccrypto.P256ElemLen]byte

	curve := elliptic.P256()
	x, y := elliptic.UnmarshalCompressed(curve, append([]byte{0x02}, pkX[:]...))
	if x == nil {
		return out, fmt.Errorf("defaultcrypto: invalid peer public key")
	}
	uncompressed := elliptic.Marshal(curve, x, y)

	ecdhCurve := ecdh.P256()
	peerKey, err := ecdhCurve.NewPublicKey(uncompressed)
	if err != nil {
		return out, fmt.Errorf("defaultcrypto: peer public key: %w", err)
	}
	privKey, err := ecdhCurve.NewPrivateKey(sk[:])
	if err != nil {
		return out, fmt.Errorf("defaultcrypto: private key: %w", err)
	}
	shared, err := privKey.ECDH(peerKey)
	if err != nil {
		return out, fmt.Errorf("defaultcrypto: ecdh: %w", err)
	}
	copy(out[:], shared)
	return out, nil
}

// P256GenerateKeyPair implements edhoccrypto.Suite.
func (Suite) P256GenerateKeyPair() (sk [edhoccrypto.P256ElemLen]byte, pkX [edhoccrypto.P256ElemLen]byte, err error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return sk, pkX, fmt.Errorf("defaultcrypto: generate key pair: %w", err)
	}
	copy(sk[:], priv.Bytes())

	pub := priv.PublicKey().Bytes() // uncompressed: 0x04 || X || Y
	if len(pub) != 1+2*edhoccrypto.P256ElemLen {
		return sk, pkX, fmt.Errorf("defaultcrypto: unexpected public key encoding")
	}
	copy(pkX[:], pub[1:1+edhoccrypto.P256ElemLen])
	return sk, pkX, nil
}

// GetRandomByte implements edhoccrypto.Suite.
func (Suite) GetRandomByte() (byte, error) {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("defaultcrypto: random byte: %w", err)
	}
	return b[0], nil
}
