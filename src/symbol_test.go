package lwrf

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_SymbolRoundTrip(t *testing.T) {
	for v := range byte(16) {
		var got, ok = DecodeSymbol(EncodeSymbol(v))
		require.True(t, ok, "symbol %d", v)
		assert.Equal(t, v, got)
	}
}

func Test_SymbolInvalid(t *testing.T) {
	var valid = make(map[byte]bool)
	for _, c := range lineCodes {
		valid[c] = true
	}

	for b := range 256 {
		var _, ok = DecodeSymbol(byte(b))
		assert.Equal(t, valid[byte(b)], ok, "byte 0x%02X", b)
	}
}

// Every line code has six 1 bits and no two 0 bits together, which the
// receiver relies on to frame bytes.
func Test_LineCodeShape(t *testing.T) {
	for _, c := range lineCodes {
		assert.Equal(t, 6, bits.OnesCount8(c), "0x%02X", c)
		for i := range 7 {
			assert.NotEqual(t, byte(0), c>>i&3, "0x%02X has 00 at bit %d", c, i)
		}
	}
}

func Test_EncodeSymbolUsesLowNibble(t *testing.T) {
	assert.Equal(t, EncodeSymbol(0x03), EncodeSymbol(0xA3))
}

func Test_MessageFields(t *testing.T) {
	var m = NewMessage(CmdOn, 0xBF, 1, 3, [AddressLen]byte{0xF, 2, 0xA, 1, 1})

	assert.Equal(t, "1BF3F2A111", m.String())
	assert.Equal(t, CmdOn, m.Command())
	assert.Equal(t, byte(0xBF), m.Param())
	assert.Equal(t, byte(1), m.Room())
	assert.Equal(t, byte(3), m.Device())
	assert.Equal(t, [AddressLen]byte{0xF, 2, 0xA, 1, 1}, m.Address())
}

func Test_MessageFrame(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var m Message
		for i := range m {
			m[i] = rapid.Uint8Range(0, 15).Draw(t, "symbol")
		}

		var back, err = DecodeFrame(m.Frame())
		require.NoError(t, err)
		assert.Equal(t, m, back)
	})
}

func Test_DecodeFrameBadByte(t *testing.T) {
	var f = NewMessage(CmdOff, 0, 1, 1, [AddressLen]byte{}).Frame()
	f[6] = 0x00

	var _, err = DecodeFrame(f)
	require.ErrorIs(t, err, ErrInvalidSymbol)
	assert.Contains(t, err.Error(), "byte 6")
}

func Test_ParseMessage(t *testing.T) {
	var m, err = ParseMessage(" 1003f2a111 ")
	require.NoError(t, err)
	assert.Equal(t, "1003F2A111", m.String())

	_, err = ParseMessage("1003F2A11")
	require.Error(t, err)

	_, err = ParseMessage("1003F2A11G")
	require.Error(t, err)
}

func Test_ParseAddress(t *testing.T) {
	var a, err = ParseAddress("F2A11")
	require.NoError(t, err)
	assert.Equal(t, [AddressLen]byte{0xF, 2, 0xA, 1, 1}, a)
	assert.Equal(t, "F2A11", FormatAddress(a))

	_, err = ParseAddress("F2A1")
	require.ErrorIs(t, err, ErrBadAddress)
}
