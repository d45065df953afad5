package lwrf

/*------------------------------------------------------------------
 *
 * Purpose:	Symbol codec and message layout shared by the transmit
 *		and receive paths.
 *
 * Description:	Each 4-bit symbol is sent as one of 16 byte values.
 *		Every line code has six 1 bits and never two 0 bits
 *		in a row, so a 0 is always preceded by a 1 (or by the
 *		byte start marker) and the receiver can tell a 0 by
 *		a longer space after a mark.
 *
 *		Message layout, one symbol per slot:
 *
 *			0	command
 *			1, 2	parameter, high and low nibble
 *			3	device
 *			4..8	sender address
 *			9	room
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"strings"
)

// MessageLen is the number of symbols in every message.
const MessageLen = 10

// AddressLen is the number of symbols in a sender address.
const AddressLen = 5

const (
	symCommand  = 0
	symParamHi  = 1
	symParamLo  = 2
	symDevice   = 3
	symAddress  = 4
	symRoom     = 9
	invalidCode = 0xff
)

// Well known command symbols.
const (
	CmdOff  byte = 0
	CmdOn   byte = 1
	CmdMood byte = 2
)

// ParamAllOff is the lowest parameter value of an Off command meaning
// "everything in the room".
const ParamAllOff byte = 0xC0

// DeviceAll is the device index a Mood command uses for the whole room.
const DeviceAll byte = 15

var lineCodes = [16]byte{0xF6, 0xEE, 0xED, 0xEB, 0xDE, 0xDD, 0xDB, 0xBE, 0xBD, 0xBB, 0xB7, 0x7E, 0x7D, 0x7B, 0x77, 0x6F}

var symbolOf = func() (t [256]byte) {
	for i := range t {
		t[i] = invalidCode
	}

	for v, code := range lineCodes {
		t[code] = byte(v)
	}

	return t
}()

// EncodeSymbol returns the line code for the low nibble of v.
func EncodeSymbol(v byte) byte {
	return lineCodes[v&0x0F]
}

// DecodeSymbol returns the symbol carried by line code b.
// ok is false when b is not one of the 16 line codes.
func DecodeSymbol(b byte) (v byte, ok bool) {
	v = symbolOf[b]
	return v, v != invalidCode
}

// Message is ten symbol values, each 0..15.
type Message [MessageLen]byte

// Frame is a message in line code form, as it appears on the air.
type Frame [MessageLen]byte

// NewMessage lays out a message from its fields.
func NewMessage(command, param, room, device byte, addr [AddressLen]byte) Message {
	var m Message
	m[symCommand] = command & 0x0F
	m[symParamHi] = param >> 4
	m[symParamLo] = param & 0x0F
	m[symDevice] = device & 0x0F
	for i, a := range addr {
		m[symAddress+i] = a & 0x0F
	}
	m[symRoom] = room & 0x0F

	return m
}

func (m Message) Command() byte { return m[symCommand] }

// Param reassembles the two parameter nibbles.
func (m Message) Param() byte { return m[symParamHi]<<4 | m[symParamLo]&0x0F }

func (m Message) Device() byte { return m[symDevice] }

func (m Message) Room() byte { return m[symRoom] }

func (m Message) Address() (a [AddressLen]byte) {
	copy(a[:], m[symAddress:symAddress+AddressLen])
	return a
}

// Frame encodes every symbol into its line code.
func (m Message) Frame() (f Frame) {
	for i, v := range m {
		f[i] = EncodeSymbol(v)
	}

	return f
}

// String renders the message as ten hex digits.
func (m Message) String() string {
	var sb strings.Builder
	for _, v := range m {
		fmt.Fprintf(&sb, "%X", v&0x0F)
	}

	return sb.String()
}

func (f Frame) String() string {
	return fmt.Sprintf("% X", f[:])
}

// DecodeFrame turns line codes back into symbols.
// Any byte that is not a line code fails the whole frame.
func DecodeFrame(f Frame) (Message, error) {
	var m Message
	for i, b := range f {
		var v, ok = DecodeSymbol(b)
		if !ok {
			return Message{}, fmt.Errorf("byte %d (0x%02X): %w", i, b, ErrInvalidSymbol)
		}
		m[i] = v
	}

	return m, nil
}

func parseHexSymbols(s string, out []byte) bool {
	if len(s) != len(out) {
		return false
	}

	for i := range len(s) {
		var c = s[i]
		switch {
		case c >= '0' && c <= '9':
			out[i] = c - '0'
		case c >= 'a' && c <= 'f':
			out[i] = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			out[i] = c - 'A' + 10
		default:
			return false
		}
	}

	return true
}

// ParseMessage parses ten hex digits, one per symbol.
func ParseMessage(s string) (Message, error) {
	var m Message
	if !parseHexSymbols(strings.TrimSpace(s), m[:]) {
		return Message{}, fmt.Errorf("message %q: want %d hex digits", s, MessageLen)
	}

	return m, nil
}

// ParseAddress parses a sender address given as five hex digits, e.g. "F2A11".
func ParseAddress(s string) ([AddressLen]byte, error) {
	var a [AddressLen]byte
	if !parseHexSymbols(strings.TrimSpace(s), a[:]) {
		return a, fmt.Errorf("%q: %w", s, ErrBadAddress)
	}

	return a, nil
}

// FormatAddress is the inverse of ParseAddress.
func FormatAddress(a [AddressLen]byte) string {
	return fmt.Sprintf("%X%X%X%X%X", a[0]&0x0F, a[1]&0x0F, a[2]&0x0F, a[3]&0x0F, a[4]&0x0F)
}
