package treesync

import "github.com/pkg/errors"

// ErrInvalidPath is returned when Scan is asked to walk a root that does
// not exist or is not a directory.
var ErrInvalidPath = errors.New("invalid path")

// ErrNotAFile is returned by GenerateHash when called on a Directory
// node.
var ErrNotAFile = errors.New("not a file")
