package lwrf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// Store is a small byte addressed persistent memory, like an EEPROM.
type Store interface {
	Load(offset int, buf []byte) error
	Save(offset int, data []byte) error
}

// erasedByte is what an unwritten location reads as.
const erasedByte = 0xFF

// DefaultStoreSize covers the address and a pairing table with room to spare.
const DefaultStoreSize = 256

// MemStore keeps everything in memory.
type MemStore struct {
	mu   sync.Mutex
	data []byte
}

func NewMemStore(size int) *MemStore {
	var s = &MemStore{data: make([]byte, size)}
	for i := range s.data {
		s.data[i] = erasedByte
	}

	return s
}

func checkRange(offset, n, size int) error {
	if offset < 0 || n < 0 || offset+n > size {
		return fmt.Errorf("%d bytes at %d of %d: %w", n, offset, size, ErrStoreRange)
	}

	return nil
}

func (s *MemStore) Load(offset int, buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkRange(offset, len(buf), len(s.data)); err != nil {
		return err
	}
	copy(buf, s.data[offset:])

	return nil
}

func (s *MemStore) Save(offset int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkRange(offset, len(data), len(s.data)); err != nil {
		return err
	}
	copy(s.data[offset:], data)

	return nil
}

/*------------------------------------------------------------------
 *
 * Name:	FileStore
 *
 * Purpose:	Store backed by a fixed size file.
 *
 * Description:	A new file is filled with erasedByte.  Every Save is
 *		synced before returning so that a pairing survives a
 *		power cut straight after it was made.
 *
 *------------------------------------------------------------------*/

type FileStore struct {
	mu   sync.Mutex
	f    *os.File
	size int
}

func OpenFileStore(path string, size int) (*FileStore, error) {
	var f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644) //nolint:gosec,mnd
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var info, statErr = f.Stat()
	if statErr != nil {
		f.Close()
		return nil, fmt.Errorf("stat store: %w", statErr)
	}

	if have := int(info.Size()); have < size {
		var fill = make([]byte, size-have)
		for i := range fill {
			fill[i] = erasedByte
		}
		if _, err := f.WriteAt(fill, int64(have)); err != nil {
			f.Close()
			return nil, fmt.Errorf("initialise store: %w", err)
		}
	}

	return &FileStore{f: f, size: size}, nil
}

func (s *FileStore) Load(offset int, buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkRange(offset, len(buf), s.size); err != nil {
		return err
	}

	var _, err = s.f.ReadAt(buf, int64(offset))
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read store: %w", err)
	}

	return nil
}

func (s *FileStore) Save(offset int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkRange(offset, len(data), s.size); err != nil {
		return err
	}

	if _, err := s.f.WriteAt(data, int64(offset)); err != nil {
		return fmt.Errorf("write store: %w", err)
	}

	return s.f.Sync()
}

func (s *FileStore) Close() error {
	return s.f.Close()
}
