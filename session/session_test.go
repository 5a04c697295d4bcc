package session

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/t3nsor27/file-sync/treesync"
)

func mustMkdirTemp(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "session-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func mustWriteFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

var timeByUnixNano = cmp.Comparer(func(a, b time.Time) bool {
	return a.UnixNano() == b.UnixNano()
})

func TestSendReceiveTree(t *testing.T) {
	root := mustMkdirTemp(t)
	mustWriteFile(t, filepath.Join(root, "a", "b.txt"), "hello")
	tree, err := treesync.Scan(root)
	if err != nil {
		t.Fatal(err)
	}

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	clientSession := New(client, nil)
	serverSession := New(server, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- clientSession.SendTree(context.Background(), tree) }()

	got, err := serverSession.ReceiveTree(context.Background(), "/elsewhere")
	if err != nil {
		t.Fatal(err)
	}
	if err := <-errCh; err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(tree.Root, got.Root, timeByUnixNano); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if got.RootPath != "/elsewhere" {
		t.Fatalf("RootPath = %q, want %q (receiver supplies it)", got.RootPath, "/elsewhere")
	}
}

func TestSendReceiveFile(t *testing.T) {
	srcRoot := mustMkdirTemp(t)
	mustWriteFile(t, filepath.Join(srcRoot, "f.txt"), "some file contents, long enough to span chunks!!")
	srcTree, err := treesync.Scan(srcRoot)
	if err != nil {
		t.Fatal(err)
	}
	node := srcTree.Get("f.txt")

	destRoot := mustMkdirTemp(t)
	destTree := &treesync.DirectoryTree{RootPath: destRoot}

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	clientSession := New(client, nil)
	serverSession := New(server, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- clientSession.SendFile(context.Background(), srcTree, node, 8) }()

	n, err := serverSession.ReceiveFile(context.Background(), destTree)
	if err != nil {
		t.Fatal(err)
	}
	if err := <-errCh; err != nil {
		t.Fatal(err)
	}
	if n != int64(node.Meta.Size) {
		t.Fatalf("wrote %d bytes, want %d", n, node.Meta.Size)
	}

	got, err := os.ReadFile(filepath.Join(destRoot, "f.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "some file contents, long enough to span chunks!!" {
		t.Fatalf("got %q", got)
	}
}

func TestSessionClosedAfterError(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	s := New(client, nil)
	server.Close() // force reads/writes on client to fail

	tree, err := treesync.Scan(mustMkdirTemp(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SendTree(context.Background(), tree); err == nil {
		t.Fatal("expected SendTree to fail against a closed peer")
	}

	if err := s.SendTree(context.Background(), tree); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("got %v, want ErrSessionClosed", err)
	}
}

func TestSessionExclusion(t *testing.T) {
	root := mustMkdirTemp(t)
	mustWriteFile(t, filepath.Join(root, "a"), "1")
	tree, err := treesync.Scan(root)
	if err != nil {
		t.Fatal(err)
	}

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	clientSession := New(client, nil)

	// Hold the mutex by starting one SendTree in flight, then try a
	// second concurrently. Both must eventually succeed, serialized, never
	// interleaved: this is exercised by having the server read exactly two
	// full tree payloads back to back without any corruption.
	done := make(chan error, 2)
	go func() { done <- clientSession.SendTree(context.Background(), tree) }()
	go func() { done <- clientSession.SendTree(context.Background(), tree) }()

	serverSession := New(server, nil)
	for i := 0; i < 2; i++ {
		if _, err := serverSession.ReceiveTree(context.Background(), root); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatal(err)
		}
	}
}

func TestReceiveTreeSizeLimit(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	s := New(server, nil)

	// Write an oversized declared length directly, bypassing SendTree.
	go func() {
		buf := make([]byte, 8)
		for i := range buf {
			buf[i] = 0xff
		}
		client.Write(buf) // declares a length near 2^64-1
	}()

	_, err := s.ReceiveTree(context.Background(), "/tmp")
	if !errors.Is(err, ErrSizeLimit) {
		t.Fatalf("got %v, want ErrSizeLimit", err)
	}
}
