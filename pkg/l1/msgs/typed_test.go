package msgs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypedCommandErr(t *testing.T) {
	typed, err := TypedFrom(NewCommandErr(errors.New("bumper pressed")))
	require.NoError(t, err)
	typed.Sequence = 7
	require.True(t, typed.IsCommand())
	require.True(t, typed.IsReply())
	require.False(t, typed.IsEvent())

	data, err := typed.Encode()
	require.NoError(t, err)
	back, err := DecodeTyped(data)
	require.NoError(t, err)
	require.Equal(t, uint32(7), back.Sequence)
	msg, err := back.Decode()
	require.NoError(t, err)
	cmdErr, ok := msg.(*CommandErr)
	require.True(t, ok)
	require.Equal(t, "bumper pressed", cmdErr.Error())
}

func TestTypedErrors(t *testing.T) {
	_, err := TypedFrom(nil)
	require.Equal(t, ErrNotSerializable, err)

	_, err = (&Typed{TypeId: GroupCustom | 0x42}).Decode()
	var unknown *ErrUnknownType
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, GroupCustom|0x42, unknown.TypeID)

	require.Panics(t, func() { Register((*CommandOK)(nil)) })
}
