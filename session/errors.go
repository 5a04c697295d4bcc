package session

import "github.com/pkg/errors"

// MaxTreeSize bounds a tree message's declared payload length.
const MaxTreeSize = 64 << 20

// MaxFileChunkSize bounds both a file message's header length and any
// single chunk's declared length.
const MaxFileChunkSize = 64 << 20

var (
	// ErrSessionClosed is returned by any operation invoked on a Session
	// after Close, including one closed by a prior operation's failure.
	ErrSessionClosed = errors.New("session closed")

	// ErrWireError is returned for malformed file framing: a zero chunk
	// length or a chunk that would overrun the header's declared size.
	// A malformed tree payload surfaces as treesync.ErrWireError instead.
	ErrWireError = errors.New("malformed wire data")

	// ErrSizeLimit is returned when a declared length exceeds MaxTreeSize
	// or MaxFileChunkSize.
	ErrSizeLimit = errors.New("declared size exceeds limit")
)
