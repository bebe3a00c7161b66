// Package buffer provides the read/write cursors used by the command and
// response codecs. All multi-byte values are little-endian.
package buffer

import "errors"

const (
	SizeOfByte  = 1
	SizeOfShort = 2
	SizeOfInt   = 4
	SizeOfLong  = 8
)

var ErrOutOfBounds = errors.New("buffer access out of bounds")
