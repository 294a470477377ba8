package defaultcrypto

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/go-edhoc/edhoc-go/edhoccrypto"
)

func TestP256ECDHAgreement(t *testing.T) {
	s := New()

	aSk, aPk, err := s.P256GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate a: %v", err)
	}
	bSk, bPk, err := s.P256GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate b: %v", err)
	}

	sharedA, err := s.P256ECDH(aSk, bPk)
	if err != nil {
		t.Fatalf("ecdh a: %v", err)
	}
	sharedB, err := s.P256ECDH(bSk, aPk)
	if err != nil {
		t.Fatalf("ecdh b: %v", err)
	}

	if sharedA != sharedB {
		t.Fatalf("shared secrets disagree:\na: %x\nb: %x", sharedA, sharedB)
	}
}

func TestP256GenerateKeyPairDistinct(t *testing.T) {
	s := New()
	sk1, pk1, err := s.P256GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate 1: %v", err)
	}
	sk2, pk2, err := s.P256GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate 2: %v", err)
	}
	if sk1 == sk2 || pk1 == pk2 {
		t.Fatalf("two key pairs produced identical output")
	}
}

func TestAESCCMSealOpenRoundTrip(t *testing.T) {
	s := New()
	var key [edhoccrypto.AESCCMKeyLen]byte
	var iv [edhoccrypto.AESCCMIVLen]byte
	for i := range key {
		key[i] = byte(i)
	}
	for i := range iv {
		iv[i] = byte(0x40 + i)
	}
	aad := []byte("Encrypt0 aad")
	plaintext := []byte("hello EDHOC")

	ct, err := s.AESCCMEncrypt(key, iv, aad, plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if len(ct) != len(plaintext)+edhoccrypto.AESCCMTagLen {
		t.Fatalf("ciphertext length = %d, want %d", len(ct), len(plaintext)+edhoccrypto.AESCCMTagLen)
	}

	pt, err := s.AESCCMDecrypt(key, iv, aad, ct)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(pt, plaintext) {
		t.Fatalf("decrypt = %q, want %q", pt, plaintext)
	}
}

func TestAESCCMDecryptRejectsTamperedTag(t *testing.T) {
	s := New()
	var key [edhoccrypto.AESCCMKeyLen]byte
	var iv [edhoccrypto.AESCCMIVLen]byte
	aad := []byte("aad")
	ct, err := s.AESCCMEncrypt(key, iv, aad, []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	tampered := bytes.Clone(ct)
	tampered[len(tampered)-1] ^= 0x01

	if _, err := s.AESCCMDecrypt(key, iv, aad, tampered); err == nil {
		t.Fatalf("expected decrypt to fail on tampered tag")
	} else if err != edhoccrypto.ErrAeadFailed {
		t.Fatalf("expected ErrAeadFailed, got %v", err)
	}
}

func TestAESCCMDecryptRejectsTamperedAAD(t *testing.T) {
	s := New()
	var key [edhoccrypto.AESCCMKeyLen]byte
	var iv [edhoccrypto.AESCCMIVLen]byte
	ct, err := s.AESCCMEncrypt(key, iv, []byte("real aad"), []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := s.AESCCMDecrypt(key, iv, []byte("wrong aad"), ct); err != edhoccrypto.ErrAeadFailed {
		t.Fatalf("expected ErrAeadFailed for mismatched aad, got %v", err)
	}
}

// RFC 5869 appendix A.1 test vector.
func TestHKDFExtractExpandRFC5869CaseOne(t *testing.T) {
	ikm, _ := hex.DecodeString("0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b")
	salt, _ := hex.DecodeString("000102030405060708090a0b0c")
	info, _ := hex.DecodeString("f0f1f2f3f4f5f6f7f8f9")
	wantPRK, _ := hex.DecodeString("077709362c2e32df0ddc3f0dc47bba6390b6c73bb50f9c3122ec844ad7c2b3e5")
	wantOKM, _ := hex.DecodeString("3cb25f25faacd57a90434f64d0362f2a2d2d0a90cf1a5a4c5db02d56ecc4c5bf34007208d5b887185865")

	s := New()
	prk := s.HKDFExtract(salt, ikm)
	if !bytes.Equal(prk[:], wantPRK) {
		t.Fatalf("HKDFExtract = %x, want %x", prk, wantPRK)
	}

	okm, err := s.HKDFExpand(prk[:], info, 42)
	if err != nil {
		t.Fatalf("HKDFExpand: %v", err)
	}
	if !bytes.Equal(okm, wantOKM) {
		t.Fatalf("HKDFExpand = %x, want %x", okm, wantOKM)
	}
}

func TestSHA256EmptyInput(t *testing.T) {
	s := New()
	got := s.SHA256(nil)
	want, _ := hex.DecodeString("e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855")
	if !bytes.Equal(got[:], want) {
		t.Fatalf("SHA256(nil) = %x, want %x", got, want)
	}
}
