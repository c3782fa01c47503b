package entity

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	domainwf "github.com/garyjia/approval-ledger/internal/domain/workflow"
)

// The persisted layout is fixed so off-chain indexers can decode and replay
// records byte for byte:
//
//	U256      1 length byte + minimal little-endian magnitude
//	[32]byte  raw
//	u8        raw
//	u64       little-endian
//	bool      0x00 / 0x01
//	sequence  u32 little-endian count + items
//	string    u32 little-endian byte length + UTF-8

// ErrCorruptRecord is returned when stored bytes cannot be decoded
var ErrCorruptRecord = errors.New("corrupt record")

const transitionRecordSize = 1 + 1 + HashLength + 8 + 8 + HashLength

type encoder struct {
	buf []byte
}

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) u32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *encoder) u64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }
func (e *encoder) raw(b []byte) { e.buf = append(e.buf, b...) }

func (e *encoder) boolean(v bool) {
	if v {
		e.u8(1)
		return
	}
	e.u8(0)
}

func (e *encoder) u256(v *uint256.Int) {
	be := v.Bytes()
	e.u8(uint8(len(be)))
	for i := len(be) - 1; i >= 0; i-- {
		e.buf = append(e.buf, be[i])
	}
}

type decoder struct {
	buf []byte
	err error
}

func (d *decoder) fail(format string, args ...interface{}) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %s", ErrCorruptRecord, fmt.Sprintf(format, args...))
	}
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.buf) < n {
		d.fail("need %d bytes, have %d", n, len(d.buf))
		return nil
	}
	b := d.buf[:n]
	d.buf = d.buf[n:]
	return b
}

func (d *decoder) u8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) u32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) u64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *decoder) boolean() bool {
	switch v := d.u8(); v {
	case 0:
		return false
	case 1:
		return true
	default:
		d.fail("invalid bool byte 0x%02x", v)
		return false
	}
}

func (d *decoder) hash(dst []byte) {
	if b := d.take(HashLength); b != nil {
		copy(dst, b)
	}
}

func (d *decoder) u256() uint256.Int {
	n := int(d.u8())
	if n > 32 {
		d.fail("U256 length %d exceeds 32", n)
		return uint256.Int{}
	}
	le := d.take(n)
	if le == nil {
		return uint256.Int{}
	}
	if n > 0 && le[n-1] == 0 {
		d.fail("U256 has non-minimal encoding")
		return uint256.Int{}
	}
	be := make([]byte, n)
	for i := range le {
		be[n-1-i] = le[i]
	}
	var v uint256.Int
	v.SetBytes(be)
	return v
}

func (d *decoder) finish() error {
	if d.err == nil && len(d.buf) != 0 {
		d.fail("%d trailing bytes", len(d.buf))
	}
	return d.err
}

// EncodeU256 serialises a 256-bit integer
func EncodeU256(v *uint256.Int) []byte {
	e := &encoder{}
	e.u256(v)
	return e.buf
}

// DecodeU256 parses a value produced by EncodeU256
func DecodeU256(b []byte) (*uint256.Int, error) {
	d := &decoder{buf: b}
	v := d.u256()
	if err := d.finish(); err != nil {
		return nil, err
	}
	return &v, nil
}

// EncodeString serialises a length-prefixed UTF-8 string
func EncodeString(s string) []byte {
	e := &encoder{}
	e.u32(uint32(len(s)))
	e.raw([]byte(s))
	return e.buf
}

// DecodeString parses a value produced by EncodeString
func DecodeString(b []byte) (string, error) {
	d := &decoder{buf: b}
	n := d.u32()
	if d.err == nil && uint64(n) > uint64(len(d.buf)) {
		d.fail("string length %d exceeds remaining %d bytes", n, len(d.buf))
	}
	s := d.take(int(n))
	if err := d.finish(); err != nil {
		return "", err
	}
	return string(s), nil
}

// MarshalBinary implements encoding.BinaryMarshaler
func (w *WorkflowData) MarshalBinary() ([]byte, error) {
	e := &encoder{buf: make([]byte, 0, 1+32+HashLength*3+1+8+8+1)}
	e.u256(&w.ID)
	e.raw(w.TemplateHash[:])
	e.raw(w.DataHash[:])
	e.u8(uint8(w.CurrentState))
	e.raw(w.Creator[:])
	e.u64(w.CreatedAt)
	e.u64(w.UpdatedAt)
	e.boolean(w.IsCompleted)
	return e.buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler
func (w *WorkflowData) UnmarshalBinary(b []byte) error {
	d := &decoder{buf: b}
	var out WorkflowData
	out.ID = d.u256()
	d.hash(out.TemplateHash[:])
	d.hash(out.DataHash[:])
	out.CurrentState = domainwf.State(d.u8())
	d.hash(out.Creator[:])
	out.CreatedAt = d.u64()
	out.UpdatedAt = d.u64()
	out.IsCompleted = d.boolean()
	if err := d.finish(); err != nil {
		return err
	}
	*w = out
	return nil
}

func (r *TransitionRecord) encode(e *encoder) {
	e.u8(uint8(r.FromState))
	e.u8(uint8(r.ToState))
	e.raw(r.Actor[:])
	e.u64(uint64(r.ActorRole))
	e.u64(r.Timestamp)
	e.raw(r.CommentHash[:])
}

func (r *TransitionRecord) decode(d *decoder) {
	r.FromState = domainwf.State(d.u8())
	r.ToState = domainwf.State(d.u8())
	d.hash(r.Actor[:])
	r.ActorRole = Role(d.u64())
	r.Timestamp = d.u64()
	d.hash(r.CommentHash[:])
}

// MarshalBinary implements encoding.BinaryMarshaler
func (r *TransitionRecord) MarshalBinary() ([]byte, error) {
	e := &encoder{buf: make([]byte, 0, transitionRecordSize)}
	r.encode(e)
	return e.buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler
func (r *TransitionRecord) UnmarshalBinary(b []byte) error {
	d := &decoder{buf: b}
	var out TransitionRecord
	out.decode(d)
	if err := d.finish(); err != nil {
		return err
	}
	*r = out
	return nil
}

// EncodeTransitions serialises a workflow's whole audit trail
func EncodeTransitions(records []TransitionRecord) []byte {
	e := &encoder{buf: make([]byte, 0, 4+len(records)*transitionRecordSize)}
	e.u32(uint32(len(records)))
	for i := range records {
		records[i].encode(e)
	}
	return e.buf
}

// DecodeTransitions parses a value produced by EncodeTransitions.
// An empty sequence decodes to a non-nil empty slice.
func DecodeTransitions(b []byte) ([]TransitionRecord, error) {
	d := &decoder{buf: b}
	n := d.u32()
	if d.err == nil && uint64(n)*transitionRecordSize > uint64(len(d.buf)) {
		d.fail("sequence claims %d records, only %d bytes remain", n, len(d.buf))
	}
	if d.err != nil {
		return nil, d.err
	}
	records := make([]TransitionRecord, n)
	for i := range records {
		records[i].decode(d)
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return records, nil
}
