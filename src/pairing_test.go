package lwrf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairN(i int) PairEntry {
	return PairEntry{Address: [AddressLen]byte{byte(i), 1, 2, 3, 4}, Room: 1, Device: byte(i), Command: CmdOn}
}

func Test_PairingAddAndGet(t *testing.T) {
	var p = NewPairingTable(nil, 0)

	var n, err = p.AddPair(pairN(0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = p.AddPair(pairN(0))
	require.NoError(t, err)
	assert.Equal(t, 1, n, "no duplicates")

	n, err = p.AddPair(pairN(1))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var e, count, getErr = p.GetPair(1)
	require.NoError(t, getErr)
	assert.Equal(t, pairN(1), e)
	assert.Equal(t, 2, count)

	_, count, getErr = p.GetPair(PairAll)
	require.NoError(t, getErr)
	assert.Equal(t, 2, count)

	_, _, getErr = p.GetPair(2)
	require.ErrorIs(t, getErr, ErrNotPaired)
	_, _, getErr = p.GetPair(-5)
	require.ErrorIs(t, getErr, ErrNotPaired)
}

func Test_PairingFull(t *testing.T) {
	var p = NewPairingTable(nil, 0)
	for i := range MaxPairs {
		var _, err = p.AddPair(pairN(i))
		require.NoError(t, err)
	}

	var n, err = p.AddPair(pairN(MaxPairs))
	require.ErrorIs(t, err, ErrPairingFull)
	assert.Equal(t, MaxPairs, n)
	assert.Equal(t, pairN(MaxPairs-1), p.Pairs()[MaxPairs-1], "nothing overwritten")

	// An existing entry is still accepted.
	_, err = p.AddPair(pairN(3))
	require.NoError(t, err)
}

func Test_PairingRemove(t *testing.T) {
	var p = NewPairingTable(nil, 0)
	for i := range 4 {
		var _, err = p.AddPair(pairN(i))
		require.NoError(t, err)
	}

	require.NoError(t, p.RemovePair(pairN(1)))
	assert.Equal(t, []PairEntry{pairN(0), pairN(2), pairN(3)}, p.Pairs())

	require.ErrorIs(t, p.RemovePair(pairN(1)), ErrNotPaired)

	require.NoError(t, p.Clear())
	assert.Zero(t, p.Count())
}

func Test_PairingRemoveBaseOnly(t *testing.T) {
	var p = NewPairingTable(nil, 0)
	var a = pairN(5)
	var b = a
	b.Room, b.Device = 9, 9

	for _, e := range []PairEntry{a, b, pairN(6)} {
		var _, err = p.AddPair(e)
		require.NoError(t, err)
	}

	p.SetMode(false, true)
	require.NoError(t, p.RemovePair(PairEntry{Address: a.Address}))
	assert.Equal(t, []PairEntry{pairN(6)}, p.Pairs(), "every entry for the address goes")
}

func Test_PairingAllow(t *testing.T) {
	var p = NewPairingTable(nil, 0)
	var m = NewMessage(CmdOn, 0, 2, 5, testAddr)
	var _, err = p.AddPair(PairFromMessage(m))
	require.NoError(t, err)

	var stranger = NewMessage(CmdOn, 0, 2, 5, [AddressLen]byte{1, 1, 1, 1, 1})
	var otherDevice = NewMessage(CmdOn, 0, 2, 6, testAddr)
	var otherRoom = NewMessage(CmdOn, 0, 3, 5, testAddr)
	var allOff = NewMessage(CmdOff, ParamAllOff, 2, 0, testAddr)
	var mood = NewMessage(CmdMood, 0x82, 2, DeviceAll, testAddr)

	for _, tc := range []struct {
		name              string
		enforce, baseOnly bool
		m                 Message
		want              bool
	}{
		{"not enforced", false, false, stranger, true},
		{"paired", true, false, m, true},
		{"stranger", true, false, stranger, false},
		{"other device", true, false, otherDevice, false},
		{"other room", true, false, otherRoom, false},
		{"room all off", true, false, allOff, true},
		{"room mood", true, false, mood, true},
		{"base only other room", true, true, otherRoom, true},
		{"base only stranger", true, true, stranger, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p.SetMode(tc.enforce, tc.baseOnly)
			assert.Equal(t, tc.want, p.Allow(tc.m))
		})
	}
}

func Test_PairingLearn(t *testing.T) {
	var p = NewPairingTable(nil, 0)
	var now = time.Unix(500, 0)
	var m = NewMessage(CmdOn, 0, 2, 5, testAddr)

	var used, err = p.learn(m, now)
	require.NoError(t, err)
	assert.False(t, used, "not armed")

	p.StartLearn(10, now)
	assert.True(t, p.Learning())

	used, err = p.learn(m, now.Add(900*time.Millisecond))
	require.NoError(t, err)
	assert.True(t, used)
	assert.False(t, p.Learning(), "one shot")
	assert.Equal(t, 1, p.Count())

	used, err = p.learn(m, now)
	require.NoError(t, err)
	assert.False(t, used)

	p.StartLearn(10, now)
	used, err = p.learn(NewMessage(CmdOff, 0, 2, 5, testAddr), now.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, used)
	assert.Zero(t, p.Count())

	p.StartLearn(10, now)
	used, err = p.learn(m, now.Add(1100*time.Millisecond))
	require.NoError(t, err)
	assert.False(t, used, "late")
	assert.False(t, p.Learning())
	assert.Zero(t, p.Count())
}

func Test_PairingLearnErrors(t *testing.T) {
	var p = NewPairingTable(nil, 0)
	var now = time.Unix(500, 0)

	p.StartLearn(10, now)
	var used, err = p.learn(NewMessage(CmdOff, 0, 2, 5, testAddr), now)
	assert.True(t, used)
	require.ErrorIs(t, err, ErrNotPaired)

	for i := range MaxPairs {
		var _, addErr = p.AddPair(pairN(i))
		require.NoError(t, addErr)
	}
	p.StartLearn(10, now)
	used, err = p.learn(NewMessage(CmdOn, 0, 2, 5, testAddr), now)
	assert.True(t, used)
	require.ErrorIs(t, err, ErrPairingFull)
}

func Test_PairingPersistence(t *testing.T) {
	var store = NewMemStore(DefaultStoreSize)
	var p = NewPairingTable(store, DefaultRxStoreOffset)
	require.NoError(t, p.Load())
	assert.Zero(t, p.Count(), "erased store is an empty table")

	for i := range 3 {
		var _, err = p.AddPair(pairN(i))
		require.NoError(t, err)
	}

	var raw = make([]byte, 1+pairRecordLen)
	require.NoError(t, store.Load(DefaultRxStoreOffset, raw))
	assert.Equal(t, []byte{3, 0, 1, 2, 3, 4, 1, 0, CmdOn}, raw)

	var q = NewPairingTable(store, DefaultRxStoreOffset)
	require.NoError(t, q.Load())
	assert.Equal(t, p.Pairs(), q.Pairs())

	require.NoError(t, p.RemovePair(pairN(0)))
	require.NoError(t, q.Load())
	assert.Equal(t, []PairEntry{pairN(1), pairN(2)}, q.Pairs())
}

func Test_PairingStoreTooSmall(t *testing.T) {
	var p = NewPairingTable(NewMemStore(40), 0)

	require.ErrorIs(t, p.Load(), ErrStoreRange)

	var n, err = p.AddPair(pairN(0))
	require.ErrorIs(t, err, ErrStoreRange)
	assert.Equal(t, 1, n, "kept in memory")
}
