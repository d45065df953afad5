package lwrf

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_OpenStore(t *testing.T) {
	var c = DefaultConfig()

	var s, closer, err = OpenStore(c)
	require.NoError(t, err)
	assert.IsType(t, &MemStore{}, s)
	require.NoError(t, closer.Close())

	c.Store.Path = filepath.Join(t.TempDir(), "store")
	s, closer, err = OpenStore(c)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	var last = make([]byte, 1)
	require.NoError(t, s.Load(DefaultStoreSize-1, last))
	assert.Equal(t, []byte{erasedByte}, last)
	require.NoError(t, closer.Close())

	c.Store.Path = filepath.Join(t.TempDir(), "missing", "store")
	_, _, err = OpenStore(c)
	require.Error(t, err)
}

func Test_OpenTransmitterErrors(t *testing.T) {
	var c = DefaultConfig()
	c.Tx.Line = -1
	c.Tx.Serial = ""

	var _, _, err = OpenTransmitter(c, NewMemStore(DefaultStoreSize), quietLogger())
	require.ErrorContains(t, err, "no transmit line configured")

	c.Tx.Serial = filepath.Join(t.TempDir(), "ttyNone")
	_, _, err = OpenTransmitter(c, NewMemStore(DefaultStoreSize), quietLogger())
	require.ErrorContains(t, err, "open serial port")

	c.Tx.Serial = ""
	c.Tx.Chip = "lwrf-no-such-chip"
	c.Tx.Line = 17
	_, _, err = OpenTransmitter(c, NewMemStore(DefaultStoreSize), quietLogger())
	require.ErrorContains(t, err, "lwrf-no-such-chip line 17")
}

func Test_OpenReceiverErrors(t *testing.T) {
	var c = DefaultConfig()
	c.Rx.Line = -1

	var _, _, err = OpenReceiver(c, nil, quietLogger())
	require.ErrorContains(t, err, "no receive line configured")

	c.Rx.Chip = "lwrf-no-such-chip"
	c.Rx.Line = 27
	_, _, err = OpenReceiver(c, nil, quietLogger())
	require.ErrorContains(t, err, "receive line")
}

func Test_FormatMessageLine(t *testing.T) {
	assert.Equal(t, "RX 1003F2A111 command=1 param=0 room=1 device=3 address=F2A11",
		FormatMessageLine([MessageLen]byte(onMsg), false))
	assert.Equal(t, "RX EEF6F6EB6FEDB7EEEEEE", FormatMessageLine([MessageLen]byte(onMsg.Frame()), true))
}

func Test_PulsesMainDecode(t *testing.T) {
	var rendered, stderr bytes.Buffer
	require.Equal(t, 0, PulsesMain([]string{"--repeats", "3", "1003F2A111"}, nil, &rendered, &stderr), stderr.String())

	var lines = strings.Split(strings.TrimSpace(rendered.String()), "\n")
	assert.Len(t, lines, 433)
	assert.Equal(t, "1 280", lines[1])

	var decoded bytes.Buffer
	stderr.Reset()
	require.Equal(t, 0, PulsesMain([]string{"--decode", "--rx-repeats", "2"}, &rendered, &decoded, &stderr))
	assert.Equal(t, "1003F2A111\n", decoded.String())
	assert.Contains(t, stderr.String(), "3 frames, 1 confirmed")
}

func Test_PulsesMainDecodeRaw(t *testing.T) {
	var rendered, stderr bytes.Buffer
	require.Equal(t, 0, PulsesMain([]string{"-r", "1", "-C", "0", "-R", "2", "-D", "4"}, nil, &rendered, &stderr))

	var decoded bytes.Buffer
	require.Equal(t, 0, PulsesMain([]string{"--decode", "--rx-repeats", "0", "--raw"}, &rendered, &decoded, &stderr))
	assert.Equal(t, FormatReceived([MessageLen]byte(NewMessage(CmdOff, 0, 2, 4, testAddr).Frame()), true)+"\n", decoded.String())
}

func Test_PulsesMainSummary(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, PulsesMain([]string{"--summary", "-r", "2", "1003F2A111"}, nil, &stdout, &stderr))

	assert.Contains(t, stdout.String(), "message 1003F2A111\n")
	assert.Contains(t, stdout.String(), "decoded 2 of 2\n")
}

func Test_PulsesMainErrors(t *testing.T) {
	for _, args := range [][]string{
		{"12"},
		{"--address", "nope"},
		{"1003F2A111", "extra"},
		{"--help"},
	} {
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 1, PulsesMain(args, nil, &stdout, &stderr), args)
		assert.Empty(t, stdout.String(), args)
		assert.NotEmpty(t, stderr.String(), args)
	}

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, PulsesMain([]string{"--decode"}, strings.NewReader("1 x\n"), &stdout, &stderr))
	assert.Contains(t, stderr.String(), "line 1")

	assert.Equal(t, 2, PulsesMain([]string{"--frobnicate"}, nil, &stdout, &stderr))
}

func Test_VersionString(t *testing.T) {
	var v = VersionString("lwrfd")
	assert.True(t, strings.HasPrefix(v, "lwrfd - Version "), v)
	assert.Contains(t, v, "revision")
}

func Test_DefaultServiceName(t *testing.T) {
	var name = DefaultServiceName()
	assert.True(t, strings.HasPrefix(name, "LightwaveRF"), name)
	assert.NotContains(t, name, ".")
}
