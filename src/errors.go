package lwrf

import "errors"

var (
	// ErrBusy is returned when a transmission is already in progress.
	// The in-flight message is never touched.
	ErrBusy = errors.New("transmitter busy")
	// ErrNoMessage means no confirmed message is waiting to be read.
	ErrNoMessage = errors.New("no message available")
	// ErrBadLength is returned for a message view other than 2, 4 or 10 symbols.
	ErrBadLength = errors.New("message length must be 2, 4 or 10")
	// ErrInvalidSymbol means a byte is not one of the 16 line codes.
	ErrInvalidSymbol = errors.New("invalid line code")
	// ErrPairingFull is returned when adding to a table that already holds MaxPairs entries.
	ErrPairingFull = errors.New("pairing table full")
	// ErrNotPaired is returned when removing an entry that is not in the table.
	ErrNotPaired = errors.New("not paired")
	// ErrBadAddress is returned for an address that is not 5 hex digits.
	ErrBadAddress = errors.New("address must be 5 hex digits")
	// ErrStoreRange is returned when a store access falls outside the store.
	ErrStoreRange = errors.New("store offset out of range")
)
