package lwrf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MemStore(t *testing.T) {
	var s = NewMemStore(16)

	var buf = make([]byte, 4)
	require.NoError(t, s.Load(12, buf))
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, buf, "erased")

	require.NoError(t, s.Save(2, []byte{1, 2, 3}))
	require.NoError(t, s.Load(1, buf))
	assert.Equal(t, []byte{0xFF, 1, 2, 3}, buf)

	require.ErrorIs(t, s.Load(13, buf), ErrStoreRange)
	require.ErrorIs(t, s.Save(-1, buf), ErrStoreRange)
	require.ErrorIs(t, s.Save(15, []byte{1, 2}), ErrStoreRange)
}

func Test_FileStore(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "store")

	var s, err = OpenFileStore(path, 32)
	require.NoError(t, err)

	var info, statErr = os.Stat(path)
	require.NoError(t, statErr)
	assert.Equal(t, int64(32), info.Size())

	var buf = make([]byte, 3)
	require.NoError(t, s.Load(0, buf))
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF}, buf)

	require.NoError(t, s.Save(10, []byte{7, 8, 9}))
	require.ErrorIs(t, s.Save(30, []byte{7, 8, 9}), ErrStoreRange)
	require.NoError(t, s.Close())

	// Reopened, bigger: old contents kept, new space erased.
	s, err = OpenFileStore(path, 64)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Load(10, buf))
	assert.Equal(t, []byte{7, 8, 9}, buf)
	require.NoError(t, s.Load(60, buf))
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF}, buf)
}

func Test_FileStoreKeepsPairs(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "store")

	var s, err = OpenFileStore(path, DefaultStoreSize)
	require.NoError(t, err)

	var p = NewPairingTable(s, DefaultRxStoreOffset)
	var _, addErr = p.AddPair(pairN(4))
	require.NoError(t, addErr)
	require.NoError(t, s.Close())

	s, err = OpenFileStore(path, DefaultStoreSize)
	require.NoError(t, err)
	defer s.Close()

	var q = NewPairingTable(s, DefaultRxStoreOffset)
	require.NoError(t, q.Load())
	assert.Equal(t, []PairEntry{pairN(4)}, q.Pairs())
}

func Test_OpenFileStoreError(t *testing.T) {
	var _, err = OpenFileStore(filepath.Join(t.TempDir(), "missing", "store"), 16)
	require.Error(t, err)
}
