package edhoc

import "github.com/go-edhoc/edhoc-go/cbor"

// EADItem is the optional External Authorization Data tail carried by any
// of the three messages: one CBOR int label followed by an optional CBOR
// bstr value. A non-negative label is non-critical; a negative label is
// critical. The core never interprets the value itself — EAD processing
// is a caller-supplied collaborator via EADHandlerSet.
type EADItem struct {
	Label      uint8
	IsCritical bool
	Value      MessageBuffer
	HasValue   bool
}

// EADHandler processes one EAD item's value. It returns a non-nil error to
// fail the handshake with EADError.
type EADHandler func(item EADItem) error

// EADHandlerSet dispatches EAD items to caller-registered handlers, keyed
// by label. A critical item with no registered handler fails the
// handshake; a non-critical item with no handler is silently ignored.
type EADHandlerSet map[uint8]EADHandler

// Dispatch runs the registered handler for item's label, if any. It
// reports EADError both when a critical item has no handler and when the
// handler itself rejects the item.
func (s EADHandlerSet) Dispatch(item *EADItem) *Error {
	if item == nil {
		return nil
	}
	h, ok := s[item.Label]
	if !ok {
		if item.IsCritical {
			return newError(KindEADError, errUnhandledCriticalEAD)
		}
		return nil
	}
	if err := h(*item); err != nil {
		return newError(KindEADError, err)
	}
	return nil
}

var errUnhandledCriticalEAD = eadUnhandledError{}

type eadUnhandledError struct{}

func (eadUnhandledError) Error() string {
	return "edhoc: critical EAD item has no registered handler"
}

// parseEAD decodes an optional trailing EAD item from d. It reports
// hasItem=false (with no error) when d has no bytes left to consume,
// matching the "optional tail" framing used by every message.
func parseEAD(d *cbor.Decoder) (item EADItem, hasItem bool, err *Error) {
	if d.Finished() {
		return EADItem{}, false, nil
	}
	raw, derr := d.IntRaw()
	if derr != nil {
		return EADItem{}, false, newError(KindParsingError, derr)
	}
	if cbor.IsUint8(raw) {
		item.Label = raw
		item.IsCritical = false
	} else {
		// negint 0x20..=0x37 encodes -1..=-24; the critical label is
		// -(value)-1 per spec.md's EAD hook framing.
		n := int(raw & 0x1F)
		item.Label = uint8(n)
		item.IsCritical = true
	}
	if item.Label > 23 {
		return EADItem{}, false, newError(KindEadLabelTooLong, errEADLabelRange)
	}
	if !d.Finished() {
		val, derr := d.Bytes()
		if derr == nil {
			var buf MessageBuffer
			if xerr := buf.Extend(val); xerr != nil {
				return EADItem{}, false, newError(KindEadTooLong, errEADValueTooLong)
			}
			item.Value = buf
			item.HasValue = true
		}
	}
	return item, true, nil
}

// encodeEAD appends item's wire encoding to e, if item is present.
func encodeEAD(e *cbor.Encoder, item *EADItem) *Error {
	if item == nil {
		return nil
	}
	if item.Label > 23 {
		return newError(KindEadLabelTooLong, errEADLabelRange)
	}
	if item.IsCritical {
		e.NegInt(-1 - int8(item.Label))
	} else {
		e.Uint(item.Label)
	}
	if item.HasValue {
		e.Bytes(item.Value.AsSlice())
	}
	return nil
}

var (
	errEADLabelRange   = eadRangeError{}
	errEADValueTooLong = eadValueTooLongError{}
)

type eadRangeError struct{}

func (eadRangeError) Error() string { return "edhoc: EAD label out of range" }

type eadValueTooLongError struct{}

func (eadValueTooLongError) Error() string { return "edhoc: EAD value exceeds buffer capacity" }
