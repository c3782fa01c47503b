package entity

import (
	"bytes"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainwf "github.com/garyjia/approval-ledger/internal/domain/workflow"
)

func filled(b byte) [HashLength]byte {
	var h [HashLength]byte
	for i := range h {
		h[i] = b
	}
	return h
}

func TestEncodeU256_Layout(t *testing.T) {
	tests := []struct {
		name string
		v    *uint256.Int
		want []byte
	}{
		{"zero", uint256.NewInt(0), []byte{0x00}},
		{"one", uint256.NewInt(1), []byte{0x01, 0x01}},
		{"258", uint256.NewInt(258), []byte{0x02, 0x02, 0x01}},
		{"max", new(uint256.Int).SetAllOne(), append([]byte{0x20}, bytes.Repeat([]byte{0xff}, 32)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeU256(tt.v)
			assert.Equal(t, tt.want, got)

			back, err := DecodeU256(got)
			require.NoError(t, err)
			assert.True(t, back.Eq(tt.v))
		})
	}
}

func TestDecodeU256_Rejects(t *testing.T) {
	for name, b := range map[string][]byte{
		"empty":       {},
		"too long":    append([]byte{33}, make([]byte, 33)...),
		"truncated":   {0x02, 0x01},
		"non-minimal": {0x02, 0x01, 0x00},
		"trailing":    {0x01, 0x01, 0x07},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeU256(b)
			assert.ErrorIs(t, err, ErrCorruptRecord)
		})
	}
}

func TestTransitionRecord_Layout(t *testing.T) {
	rec := TransitionRecord{
		FromState:   domainwf.StatePendingReview,
		ToState:     domainwf.StateApproved,
		Actor:       AccountHash(filled(0xaa)),
		ActorRole:   RoleApprover,
		Timestamp:   1700000000000,
		CommentHash: Hash(filled(0x01)),
	}

	var want []byte
	want = append(want, 0x01, 0x0a)
	want = append(want, bytes.Repeat([]byte{0xaa}, 32)...)
	want = append(want, 0x02, 0, 0, 0, 0, 0, 0, 0)
	want = append(want, 0x00, 0x68, 0xe5, 0xcf, 0x8b, 0x01, 0x00, 0x00)
	want = append(want, bytes.Repeat([]byte{0x01}, 32)...)

	got, err := rec.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Len(t, got, transitionRecordSize)

	var back TransitionRecord
	require.NoError(t, back.UnmarshalBinary(got))
	assert.Equal(t, rec, back)
}

func TestWorkflowData_Layout(t *testing.T) {
	w := NewWorkflow(uint256.NewInt(7), Hash(filled(0x11)), Hash(filled(0x22)), AccountHash(filled(0x33)), 5)
	w.Apply(domainwf.StateCancelled, 9)

	got, err := w.MarshalBinary()
	require.NoError(t, err)

	var want []byte
	want = append(want, 0x01, 0x07)
	want = append(want, bytes.Repeat([]byte{0x11}, 32)...)
	want = append(want, bytes.Repeat([]byte{0x22}, 32)...)
	want = append(want, 30)
	want = append(want, bytes.Repeat([]byte{0x33}, 32)...)
	want = append(want, 5, 0, 0, 0, 0, 0, 0, 0)
	want = append(want, 9, 0, 0, 0, 0, 0, 0, 0)
	want = append(want, 0x01)
	assert.Equal(t, want, got)

	var back WorkflowData
	require.NoError(t, back.UnmarshalBinary(got))
	assert.Equal(t, *w, back)

	again, err := back.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, got, again, "re-encoding must be byte-identical")
}

func TestWorkflowData_RejectsBadBool(t *testing.T) {
	w := NewWorkflow(uint256.NewInt(1), Hash{}, Hash{}, AccountHash{}, 1)
	b, err := w.MarshalBinary()
	require.NoError(t, err)
	b[len(b)-1] = 0x02

	var back WorkflowData
	err = back.UnmarshalBinary(b)
	assert.True(t, errors.Is(err, ErrCorruptRecord))
}

func TestTransitions_Sequence(t *testing.T) {
	empty := EncodeTransitions(nil)
	assert.Equal(t, []byte{0, 0, 0, 0}, empty)

	records, err := DecodeTransitions(empty)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	seq := []TransitionRecord{
		{FromState: domainwf.StateDraft, ToState: domainwf.StatePendingReview, ActorRole: RoleRequester, Timestamp: 1},
		{FromState: domainwf.StatePendingReview, ToState: domainwf.StateEscalated, ActorRole: RoleApprover, Timestamp: 2},
	}
	b := EncodeTransitions(seq)
	assert.Len(t, b, 4+2*transitionRecordSize)

	back, err := DecodeTransitions(b)
	require.NoError(t, err)
	assert.Equal(t, seq, back)

	_, err = DecodeTransitions(b[:len(b)-1])
	assert.ErrorIs(t, err, ErrCorruptRecord)

	_, err = DecodeTransitions([]byte{0xff, 0xff, 0xff, 0xff})
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestString_RoundTrip(t *testing.T) {
	b := EncodeString("1.0.0")
	assert.Equal(t, []byte{5, 0, 0, 0, '1', '.', '0', '.', '0'}, b)

	s, err := DecodeString(b)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", s)
}

func TestDecodeString_RejectsOversizedLength(t *testing.T) {
	for _, b := range [][]byte{
		{0xff, 0xff, 0xff, 0xff, 'x'},
		{0x00, 0x00, 0x00, 0x80},
		{6, 0, 0, 0, '1', '.', '0', '.', '0'},
		{5, 0, 0},
	} {
		_, err := DecodeString(b)
		assert.ErrorIs(t, err, ErrCorruptRecord, "%x", b)
	}
}
