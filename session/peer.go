package session

import (
	"context"
	"net"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Peer owns a listening acceptor, outbound connect, and the set of
// sessions currently live on either side. The accept loop runs on its
// own goroutine, supervised by an errgroup.Group so a fatal accept
// error is observable via Stop; Go's scheduler is the "executor" spec
// talk elsewhere refers to — no separate cooperative scheduler is built
// on top of it.
type Peer struct {
	mu       sync.Mutex
	sessions map[*Session]struct{}

	listener net.Listener

	g      *errgroup.Group
	cancel context.CancelFunc
}

// NewPeer creates a Peer with no listener and no live sessions.
func NewPeer() *Peer {
	return &Peer{sessions: make(map[*Session]struct{})}
}

// Listen binds addr ("host:port"; an empty host binds all interfaces)
// as this Peer's acceptor. Must be called before Run.
func (p *Peer) Listen(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", addr)
	}
	p.listener = lis
	return nil
}

// Addr returns the acceptor's bound address, or nil if Listen hasn't
// been called.
func (p *Peer) Addr() net.Addr {
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Run starts the accept loop in the background: each accepted
// connection becomes a tracked Session passed to onAccept, after which
// the loop re-arms for the next accept. Run returns immediately; call
// Stop to shut the loop down and wait for it to exit.
func (p *Peer) Run(ctx context.Context, onAccept func(*Session)) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	g, gctx := errgroup.WithContext(ctx)
	p.g = g

	g.Go(func() error {
		return p.acceptLoop(gctx, onAccept)
	})
}

func (p *Peer) acceptLoop(ctx context.Context, onAccept func(*Session)) error {
	for {
		conn, err := p.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				// Stop cancelled ctx before closing the listener; not a
				// failure.
				return nil
			default:
				return errors.Wrap(err, "accepting connection")
			}
		}
		onAccept(p.track(conn))
	}
}

// Connect resolves host:port and dials it, returning a new Session
// tracked in this Peer's live-session set.
func (p *Peer) Connect(ctx context.Context, host string, port int) (*Session, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", addr)
	}
	return p.track(conn), nil
}

func (p *Peer) track(conn net.Conn) *Session {
	sess := New(conn, p.forget)
	p.mu.Lock()
	p.sessions[sess] = struct{}{}
	p.mu.Unlock()
	return sess
}

func (p *Peer) forget(sess *Session) {
	p.mu.Lock()
	delete(p.sessions, sess)
	p.mu.Unlock()
}

// CloseAcceptor stops accepting new connections; existing sessions are
// unaffected.
func (p *Peer) CloseAcceptor() error {
	if p.listener == nil {
		return nil
	}
	return errors.Wrap(p.listener.Close(), "closing acceptor")
}

// Stop cancels the accept loop, closes the acceptor, and waits for the
// loop to exit. It does not close existing sessions — call ClearSessions
// for that.
func (p *Peer) Stop() error {
	if p.cancel != nil {
		p.cancel()
	}
	err := p.CloseAcceptor()
	if p.g != nil {
		if werr := p.g.Wait(); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

// ClearSessions closes every session currently live on this Peer. It
// snapshots the session set under the lock before iterating, since
// closing a session mutates the set via its onClose callback.
func (p *Peer) ClearSessions() {
	p.mu.Lock()
	snapshot := make([]*Session, 0, len(p.sessions))
	for sess := range p.sessions {
		snapshot = append(snapshot, sess)
	}
	p.mu.Unlock()

	for _, sess := range snapshot {
		sess.Close()
	}
}
