package session

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bobg/flock"
	"github.com/pkg/errors"

	"github.com/t3nsor27/file-sync/treesync"
	"github.com/t3nsor27/file-sync/wire"
)

// maxHeaderLen bounds a file message's header block, which holds only a
// relative path and a size — nowhere near MaxFileChunkSize in practice,
// but the spec's grammar reuses that constant as the sanity bound.
const maxHeaderLen = MaxFileChunkSize

// Session wraps one reliable, ordered, bidirectional byte stream and
// serializes the four exchange operations on it: SendTree, ReceiveTree,
// SendFile, ReceiveFile. At most one of those may be in flight at a
// time; mu enforces that.
//
// A Session is Open until the first error on any operation, at which
// point it closes itself and every subsequent call fails with
// ErrSessionClosed. Close is idempotent and may be called from any
// goroutine, including concurrently with an in-flight operation (it
// unblocks the blocked operation's read/write by closing conn).
type Session struct {
	conn    net.Conn
	flocker flock.Locker

	mu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
	onClose   func(*Session)
}

// New wraps conn in a Session. onClose, if non-nil, is invoked exactly
// once, the first time the session closes, for any reason.
func New(conn net.Conn, onClose func(*Session)) *Session {
	return &Session{
		conn:    conn,
		closed:  make(chan struct{}),
		onClose: onClose,
	}
}

// Close closes the underlying connection and marks the session closed.
// Safe to call more than once and from multiple goroutines.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.conn.Close()
		if s.onClose != nil {
			s.onClose(s)
		}
	})
	return err
}

func (s *Session) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// runExclusive acquires s.mu, checks that the session isn't already
// closed, runs fn under ctx's deadline (applied to the connection and
// enforced even on cancellation, not just deadline expiry), and closes
// the session if fn returns an error.
func (s *Session) runExclusive(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isClosed() {
		return ErrSessionClosed
	}

	if deadline, ok := ctx.Deadline(); ok {
		s.conn.SetDeadline(deadline)
		defer s.conn.SetDeadline(time.Time{})
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			// Force any in-flight Read/Write to return immediately with a
			// timeout error, which fn below will surface and which causes
			// the session to close.
			s.conn.SetDeadline(time.Unix(0, 0))
		case <-done:
		}
	}()

	err := fn()
	if err != nil {
		s.Close()
	}
	return err
}

// SendTree serializes tree and writes it as one tree message: a
// big-endian u64 payload length followed by the payload.
func (s *Session) SendTree(ctx context.Context, tree *treesync.DirectoryTree) error {
	return s.runExclusive(ctx, func() error {
		var buf bytes.Buffer
		if err := treesync.SerializeTree(&buf, tree); err != nil {
			return errors.Wrap(err, "serializing tree")
		}
		if buf.Len() > MaxTreeSize {
			return errors.Wrapf(ErrSizeLimit, "tree payload %d bytes", buf.Len())
		}
		if err := wire.WriteBE64(s.conn, uint64(buf.Len())); err != nil {
			return errors.Wrap(err, "writing tree payload length")
		}
		if _, err := s.conn.Write(buf.Bytes()); err != nil {
			return errors.Wrap(err, "writing tree payload")
		}
		return nil
	})
}

// ReceiveTree reads one tree message and deserializes it into a
// DirectoryTree rooted at rootPath (which never travels on the wire).
func (s *Session) ReceiveTree(ctx context.Context, rootPath string) (*treesync.DirectoryTree, error) {
	var tree *treesync.DirectoryTree
	err := s.runExclusive(ctx, func() error {
		length, err := wire.ReadBE64(s.conn)
		if err != nil {
			return errors.Wrap(err, "reading tree payload length")
		}
		if length > MaxTreeSize {
			return errors.Wrapf(ErrSizeLimit, "declared tree payload %d bytes", length)
		}
		payload := io.LimitReader(s.conn, int64(length))
		t, err := treesync.DeserializeTree(payload, rootPath)
		if err != nil {
			return errors.Wrap(err, "deserializing tree")
		}
		tree = t
		return nil
	})
	return tree, err
}

// SendFile sends node's content (node must be a File belonging to tree)
// as one file message: a header naming node's relative path and size,
// followed by zero or more size-prefixed chunks of at most chunkSize
// bytes each. 0 < chunkSize <= MaxFileChunkSize.
func (s *Session) SendFile(ctx context.Context, tree *treesync.DirectoryTree, node *treesync.Node, chunkSize int) error {
	return s.runExclusive(ctx, func() error {
		if chunkSize <= 0 || chunkSize > MaxFileChunkSize {
			return errors.Errorf("chunk size %d out of range (0, %d]", chunkSize, MaxFileChunkSize)
		}

		var hdr bytes.Buffer
		if err := wire.WriteString(&hdr, node.Path); err != nil {
			return errors.Wrap(err, "writing header path")
		}
		if err := wire.WriteU64(&hdr, node.Meta.Size); err != nil {
			return errors.Wrap(err, "writing header size")
		}
		if err := wire.WriteBE64(s.conn, uint64(hdr.Len())); err != nil {
			return errors.Wrap(err, "writing header length")
		}
		if _, err := s.conn.Write(hdr.Bytes()); err != nil {
			return errors.Wrap(err, "writing header")
		}

		absPath := filepath.Join(tree.RootPath, filepath.FromSlash(node.Path))
		f, err := os.Open(absPath)
		if err != nil {
			return errors.Wrapf(err, "opening %s", absPath)
		}
		defer f.Close()

		buf := make([]byte, chunkSize)
		var sent uint64
		for sent < node.Meta.Size {
			n, err := f.Read(buf)
			if n == 0 && err != nil {
				if err == io.EOF {
					break
				}
				return errors.Wrapf(err, "reading %s", absPath)
			}
			if err := wire.WriteBE32(s.conn, uint32(n)); err != nil {
				return errors.Wrap(err, "writing chunk length")
			}
			if _, err := s.conn.Write(buf[:n]); err != nil {
				return errors.Wrap(err, "writing chunk")
			}
			sent += uint64(n)
		}
		if sent != node.Meta.Size {
			return errors.Errorf("sent %d bytes, header declared %d", sent, node.Meta.Size)
		}
		return nil
	})
}

// ReceiveFile reads one file message and writes it beneath
// tree.RootPath, creating any missing parent directories and holding an
// exclusive advisory lock on the destination for the duration of the
// write. It returns the number of bytes written. It does not re-scan
// tree; callers that need the tree to reflect the new file must re-scan
// (or use ReceiveTreeAndFiles, which does this once per batch).
func (s *Session) ReceiveFile(ctx context.Context, tree *treesync.DirectoryTree) (int64, error) {
	var written int64
	err := s.runExclusive(ctx, func() error {
		hdrLen, err := wire.ReadBE64(s.conn)
		if err != nil {
			return errors.Wrap(err, "reading header length")
		}
		if hdrLen > maxHeaderLen {
			return errors.Wrapf(ErrSizeLimit, "declared header length %d", hdrLen)
		}
		hdr := io.LimitReader(s.conn, int64(hdrLen))
		relPath, err := wire.ReadString(hdr)
		if err != nil {
			return errors.Wrap(err, "reading header path")
		}
		fileSize, err := wire.ReadU64(hdr)
		if err != nil {
			return errors.Wrap(err, "reading header size")
		}

		destPath := filepath.Join(tree.RootPath, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return errors.Wrapf(err, "making parent dirs for %s", destPath)
		}

		if err := s.flocker.Lock(destPath); err != nil {
			return errors.Wrapf(err, "locking %s", destPath)
		}
		defer s.flocker.Unlock(destPath)

		f, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return errors.Wrapf(err, "opening %s", destPath)
		}
		defer f.Close()

		var total uint64
		for total < fileSize {
			chunkLen, err := wire.ReadBE32(s.conn)
			if err != nil {
				return errors.Wrap(err, "reading chunk length")
			}
			if chunkLen == 0 {
				return errors.Wrap(ErrWireError, "zero chunk length")
			}
			if chunkLen > MaxFileChunkSize {
				return errors.Wrapf(ErrSizeLimit, "declared chunk length %d", chunkLen)
			}
			if total+uint64(chunkLen) > fileSize {
				return errors.Wrapf(ErrWireError, "chunk would overrun declared size %d", fileSize)
			}
			n, err := io.CopyN(f, s.conn, int64(chunkLen))
			if err != nil {
				return errors.Wrapf(err, "writing chunk to %s", destPath)
			}
			total += uint64(n)
		}

		written = int64(total)
		return nil
	})
	return written, err
}
