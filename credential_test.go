package edhoc

import "testing"

// Hex test vectors from the protocol's own conformance suite.
const (
	credIHex = "A2027734322D35302D33312D46462D45462D33372D33322D333908A101A5010202412B2001215820AC75E9ECE3E50BFC8ED60399889522405C47BF16DF96660A41298CB4307F7EB62258206E5DE611388A4B8A8211334AC7D37ECB52A387D257E6DB3C2A93DF21FF3AFFC8"
	credRHex = "A2026008A101A5010202410A2001215820BBC34960526EA4D32E940CAD2A234148DDC21791A12AFBCBAC93622046DD44F02258204519E257236B2A0CE2023F0931F1F386CA7AFDA64FCDE0108C224C51EABF6072"

	iHex = "fb13adeb6518cee5f88417660841142e830a81fe334380a953406a1305e8706b"
	rHex = "72cc4761dbd4c78f758931aa589d348d1ef874a7e303ede2f140dcf3e6aa4aac"
)

func TestNewCredentialRPK(t *testing.T) {
	credI := FromHex(credIHex)
	cred, err := NewCredentialRPK(credI.AsSlice())
	if err != nil {
		t.Fatalf("NewCredentialRPK(CRED_I): %v", err)
	}
	if cred.Kid != 0x2B {
		t.Errorf("CRED_I kid = %#x, want 0x2b", cred.Kid)
	}
	wantX := "AC75E9ECE3E50BFC8ED60399889522405C47BF16DF96660A41298CB4307F7EB6"
	if hexUpper(cred.PublicKey[:]) != wantX {
		t.Errorf("CRED_I public_key = %x, want %s", cred.PublicKey, wantX)
	}

	credR := FromHex(credRHex)
	cred2, err := NewCredentialRPK(credR.AsSlice())
	if err != nil {
		t.Fatalf("NewCredentialRPK(CRED_R): %v", err)
	}
	if cred2.Kid != 0x0A {
		t.Errorf("CRED_R kid = %#x, want 0x0a", cred2.Kid)
	}
}

func TestNewCredentialRPKRejectsGarbage(t *testing.T) {
	if _, err := NewCredentialRPK([]byte{0x01, 0x02}); err == nil {
		t.Fatalf("expected ParsingError for non-CCS input")
	}
}

func hexUpper(b []byte) string {
	const digits = "0123456789ABCDEF"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0xF]
	}
	return string(out)
}
