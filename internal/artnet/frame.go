package artnet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// DefaultPort is the Art-Net UDP port.
	DefaultPort = 0x1936
	// ChannelsPerUniverse is the number of DMX512 slots in a universe.
	ChannelsPerUniverse = 512

	headerLength = 12
	dmxHeaderLen = 18
)

// OpCode identifies the purpose of an Art-Net frame.
type OpCode uint16

const (
	OpPoll      OpCode = 0x2000
	OpPollReply OpCode = 0x2100
	OpOutput    OpCode = 0x5000 // ArtDmx.
)

func (o OpCode) String() string {
	switch o {
	case OpPoll:
		return "OpPoll"
	case OpPollReply:
		return "OpPollReply"
	case OpOutput:
		return "OpOutput"
	default:
		return fmt.Sprintf("OpCode(0x%04x)", uint16(o))
	}
}

// signature opens every Art-Net frame.
var signature = []byte{'A', 'r', 't', '-', 'N', 'e', 't', 0x00}

var (
	ErrShortFrame      = errors.New("frame shorter than header")
	ErrBadSignature    = errors.New("not an Art-Net frame")
	ErrUnhandledOpCode = errors.New("opcode not handled")
	ErrUnknownOpCode   = errors.New("unknown opcode")
	ErrLengthOverflow  = errors.New("payload length exceeds 512")
)

// Frame is a decoded Art-Net frame. Data is only set for OpOutput and
// aliases the input buffer.
type Frame struct {
	OpCode   OpCode
	Version  uint16
	Sequence uint8
	Physical uint8
	Universe uint16
	Data     []byte
}

// Decode validates b and extracts the fields needed to update a universe.
// Any error means the frame is not applicable and should be dropped.
func Decode(b []byte) (Frame, error) {
	var f Frame
	if len(b) < headerLength {
		return f, ErrShortFrame
	}
	if !bytes.Equal(b[:8], signature) {
		return f, ErrBadSignature
	}

	// OpCode is little-endian on the wire, the version big-endian.
	f.OpCode = OpCode(binary.LittleEndian.Uint16(b[8:10]))
	f.Version = binary.BigEndian.Uint16(b[10:12])

	switch f.OpCode {
	case OpOutput:
	case OpPoll, OpPollReply:
		return f, fmt.Errorf("%w: %s", ErrUnhandledOpCode, f.OpCode)
	default:
		return f, fmt.Errorf("%w: %s", ErrUnknownOpCode, f.OpCode)
	}

	if len(b) < dmxHeaderLen {
		return f, fmt.Errorf("%w: %d bytes for %s", ErrShortFrame, len(b), f.OpCode)
	}
	f.Sequence = b[12]
	f.Physical = b[13]
	f.Universe = binary.LittleEndian.Uint16(b[14:16])

	length := int(binary.BigEndian.Uint16(b[16:18]))
	if length > ChannelsPerUniverse {
		return f, fmt.Errorf("%w: %d", ErrLengthOverflow, length)
	}
	if avail := len(b) - dmxHeaderLen; length > avail {
		length = avail
	}
	f.Data = b[dmxHeaderLen : dmxHeaderLen+length]

	return f, nil
}
