package edhoc

import (
	"errors"
	"fmt"

	"github.com/go-edhoc/edhoc-go/edhoccrypto"
)

// Kind classifies an Error per the protocol's error taxonomy. Every public
// transition returns an *Error (or nil); no other error type escapes this
// package.
type Kind int

const (
	// KindParsingError covers any CBOR malformation, unexpected item,
	// length mismatch, or trailing garbage.
	KindParsingError Kind = iota + 1
	// KindUnsupportedMethod is returned for message_1 with method != 3.
	KindUnsupportedMethod
	// KindUnsupportedCipherSuite is returned when the last element of
	// suites_i is not in the supported set ({2}).
	KindUnsupportedCipherSuite
	// KindMacVerificationFailed covers MAC_2/MAC_3 mismatches and AEAD
	// decryption failures.
	KindMacVerificationFailed
	// KindUnknownPeer is returned by credential_check_or_fetch on a
	// credential mismatch.
	KindUnknownPeer
	// KindEadLabelTooLong is returned for an EAD label that doesn't fit
	// the single-byte CBOR int encoding.
	KindEadLabelTooLong
	// KindEadTooLong is returned when an EAD value would overflow a
	// MessageBuffer.
	KindEadTooLong
	// KindEADError covers a critical EAD item with no registered
	// handler, or a handler that rejected its item.
	KindEADError
	// KindUnknownError covers an unclassified backend failure.
	KindUnknownError
)

func (k Kind) String() string {
	switch k {
	case KindParsingError:
		return "ParsingError"
	case KindUnsupportedMethod:
		return "UnsupportedMethod"
	case KindUnsupportedCipherSuite:
		return "UnsupportedCipherSuite"
	case KindMacVerificationFailed:
		return "MacVerificationFailed"
	case KindUnknownPeer:
		return "UnknownPeer"
	case KindEadLabelTooLong:
		return "EadLabelTooLongError"
	case KindEadTooLong:
		return "EadTooLongError"
	case KindEADError:
		return "EADError"
	case KindUnknownError:
		return "UnknownError"
	default:
		return "Unknown"
	}
}

// Error is the single error type returned across the engine's public API.
// A transition that fails consumes its input state; the caller must start
// a new handshake rather than retry.
type Error struct {
	Kind  Kind
	cause error
}

func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("edhoc: %s: %v", e.Kind, e.cause)
	}
	return fmt.Sprintf("edhoc: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// Is implements the errors.Is matching protocol against the sentinel
// Err* values below, so call sites can write errors.Is(err,
// edhoc.ErrMacVerificationFailed) instead of comparing Kind directly.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.cause == nil
}

// Sentinel errors, one per Kind, for use with errors.Is.
var (
	ErrParsingError           = &Error{Kind: KindParsingError}
	ErrUnsupportedMethod      = &Error{Kind: KindUnsupportedMethod}
	ErrUnsupportedCipherSuite = &Error{Kind: KindUnsupportedCipherSuite}
	ErrMacVerificationFailed  = &Error{Kind: KindMacVerificationFailed}
	ErrUnknownPeer            = &Error{Kind: KindUnknownPeer}
	ErrEadLabelTooLong        = &Error{Kind: KindEadLabelTooLong}
	ErrEadTooLong             = &Error{Kind: KindEadTooLong}
	ErrEADError               = &Error{Kind: KindEADError}
	ErrUnknownError           = &Error{Kind: KindUnknownError}
)

// wrapCrypto classifies a primitive-backend failure. AEAD failures are
// reported by the backend via edhoccrypto.ErrAeadFailed and map to
// MacVerificationFailed; anything else is UnknownError.
func wrapCrypto(err error) *Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, edhoccrypto.ErrAeadFailed) {
		return newError(KindMacVerificationFailed, err)
	}
	return newError(KindUnknownError, err)
}
