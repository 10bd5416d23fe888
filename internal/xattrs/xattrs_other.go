//go:build !unix

package xattrs

import "errors"

// Supported is false on non-unix builds; callers must check it before
// issuing setxattr/getxattr/await-create operations (spec Non-goals do
// not require cross-platform xattr support, but the dispatch table should
// fail cleanly rather than panic).
const Supported = false

var errUnsupported = errors.New("xattrs: extended attributes not supported on this platform")

func Set(_ int, _ string, _ []byte) error        { return errUnsupported }
func Get(_ int, _ string, _ int) ([]byte, error) { return nil, errUnsupported }
func Fallocate(_ int, _ int64) error             { return errUnsupported }
func DropCache(_ int, _, _ int64) error          { return errUnsupported }
