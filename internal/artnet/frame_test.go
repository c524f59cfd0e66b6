package artnet

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildOutput assembles an ArtDmx frame with the given declared length.
func buildOutput(universe uint16, length uint16, data []byte) []byte {
	b := make([]byte, dmxHeaderLen+len(data))
	copy(b[0:8], signature)
	binary.LittleEndian.PutUint16(b[8:10], uint16(OpOutput))
	binary.BigEndian.PutUint16(b[10:12], 14)
	binary.LittleEndian.PutUint16(b[14:16], universe)
	binary.BigEndian.PutUint16(b[16:18], length)
	copy(b[dmxHeaderLen:], data)
	return b
}

func header(op uint16) []byte {
	b := make([]byte, headerLength)
	copy(b, signature)
	binary.LittleEndian.PutUint16(b[8:10], op)
	binary.BigEndian.PutUint16(b[10:12], 14)
	return b
}

func TestDecodeOutput(t *testing.T) {
	b := []byte{
		'A', 'r', 't', '-', 'N', 'e', 't', 0x00,
		0x00, 0x50, // OpOutput, little-endian
		0x00, 0x0e, // version 14, big-endian
		0x07, 0x01, // sequence, physical
		0x00, 0x00, // universe 0, little-endian
		0x00, 0x02, // length 2, big-endian
		0xff, 0x7f,
	}

	f, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, OpOutput, f.OpCode)
	assert.Equal(t, uint16(14), f.Version)
	assert.Equal(t, uint8(7), f.Sequence)
	assert.Equal(t, uint8(1), f.Physical)
	assert.Equal(t, uint16(0), f.Universe)
	assert.Equal(t, []byte{0xff, 0x7f}, f.Data)
}

func TestDecodeFieldByteOrder(t *testing.T) {
	b := buildOutput(0x0123, 3, []byte{1, 2, 3})
	assert.Equal(t, []byte{0x23, 0x01}, b[14:16])
	assert.Equal(t, []byte{0x00, 0x03}, b[16:18])

	f, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0123), f.Universe)
	assert.Equal(t, []byte{1, 2, 3}, f.Data)
}

func TestDecodeRejects(t *testing.T) {
	badSig := buildOutput(0, 2, []byte{1, 2})
	badSig[7] = 'x'

	tests := []struct {
		name string
		b    []byte
		err  error
	}{
		{name: "empty", b: nil, err: ErrShortFrame},
		{name: "ten bytes", b: []byte("Art-Net\x00\x00\x50"), err: ErrShortFrame},
		{name: "signature", b: badSig, err: ErrBadSignature},
		{name: "lowercase signature", b: append([]byte("art-net\x00"), 0, 0x50, 0, 14), err: ErrBadSignature},
		{name: "poll", b: header(uint16(OpPoll)), err: ErrUnhandledOpCode},
		{name: "poll reply", b: header(uint16(OpPollReply)), err: ErrUnhandledOpCode},
		{name: "unknown", b: header(0x9900), err: ErrUnknownOpCode},
		{name: "output without body", b: header(uint16(OpOutput)), err: ErrShortFrame},
		{name: "length overflow", b: buildOutput(0, 513, make([]byte, 513)), err: ErrLengthOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.b)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestDecodeClampsToAvailable(t *testing.T) {
	f, err := Decode(buildOutput(1, 512, []byte{9, 8, 7}))
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7}, f.Data)
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	f, err := Decode(buildOutput(1, 2, []byte{9, 8, 7, 6}))
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8}, f.Data)
}

func TestDecodeFullUniverse(t *testing.T) {
	data := make([]byte, ChannelsPerUniverse)
	for i := range data {
		data[i] = byte(i)
	}
	f, err := Decode(buildOutput(5, ChannelsPerUniverse, data))
	require.NoError(t, err)
	assert.Equal(t, data, f.Data)
}

func TestOpCodeString(t *testing.T) {
	assert.Equal(t, "OpOutput", OpOutput.String())
	assert.Equal(t, "OpPoll", OpPoll.String())
	assert.Equal(t, "OpPollReply", OpPollReply.String())
	assert.Equal(t, "OpCode(0x9900)", OpCode(0x9900).String())
}
