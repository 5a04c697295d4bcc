package treesync

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var timeByUnixNano = cmp.Comparer(func(a, b time.Time) bool {
	return a.UnixNano() == b.UnixNano()
})

// TestWireRoundTrip covers testable property 5 and end-to-end scenario
// 6: serialize then deserialize reproduces the same tree, modulo
// root_path, which never travels on the wire.
func TestWireRoundTrip(t *testing.T) {
	root := mustMkdirTemp(t)
	for i := 0; i < 10; i++ {
		mustWriteFile(t, filepath.Join(root, "dir1", fmt.Sprintf("f%02d", i)), fmt.Sprintf("contents %d", i))
	}
	for i := 0; i < 10; i++ {
		mustWriteFile(t, filepath.Join(root, "dir2", "sub", fmt.Sprintf("g%02d", i)), fmt.Sprintf("more contents %d", i))
	}
	for i := 0; i < 30; i++ {
		mustWriteFile(t, filepath.Join(root, fmt.Sprintf("top%02d", i)), "x")
	}

	tree, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}
	// Populate some hashes so the has_hash=1 path is exercised too.
	if err := GenerateHash(tree, tree.Get("dir1/f00")); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := SerializeTree(&buf, tree); err != nil {
		t.Fatal(err)
	}

	got, err := DeserializeTree(&buf, tree.RootPath)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(tree.Root, got.Root, timeByUnixNano); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	if got.RootPath != tree.RootPath {
		t.Fatalf("RootPath = %q, want %q", got.RootPath, tree.RootPath)
	}
}

func TestWireRoundTripEmptyDirectory(t *testing.T) {
	root := mustMkdirTemp(t)
	tree, err := Scan(root)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := SerializeTree(&buf, tree); err != nil {
		t.Fatal(err)
	}
	got, err := DeserializeTree(&buf, root)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(tree.Root, got.Root, timeByUnixNano); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadNodeRejectsUnknownType(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(7) // invalid NodeType
	if _, err := ReadNode(&buf); err == nil {
		t.Fatal("expected error for unknown node type")
	}
}
