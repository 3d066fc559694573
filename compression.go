package gwprep

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"io"

	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type Compression byte

const (
	CompressionInvalid Compression = iota
	CompressionNone
	CompressionGzip
	CompressionZip
	CompressionXZ
	CompressionZ
	CompressionBZip2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZip:
		return "zip"
	case CompressionXZ:
		return "xz"
	case CompressionZ:
		return "zlib"
	case CompressionBZip2:
		return "bzip2"
	}
	return "invalid"
}

// Checked in this order; no signature is a prefix of another.
var compressionSigs = []struct {
	Compression Compression
	Signature   []byte
}{
	{CompressionGzip, []byte{0x1f, 0x8b, 0x08}},
	{CompressionZip, []byte{0x50, 0x4b, 0x03, 0x04}},
	{CompressionXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{CompressionZ, []byte{0x78, 0x9c}},
	{CompressionBZip2, []byte{0x42, 0x5a, 0x68}},
}

// DetectCompression inspects the first bytes of br without consuming them.
// Byte code signatures from https://stackoverflow.com/a/19127748/199475
func DetectCompression(br *bufio.Reader) (Compression, error) {
	buff, err := br.Peek(6)
	if err != nil && !errors.Is(err, io.EOF) {
		return CompressionInvalid, err
	}

Outer:
	for _, v := range compressionSigs {
		if len(buff) < len(v.Signature) {
			continue
		}
		for position := range v.Signature {
			if buff[position] != v.Signature[position] {
				continue Outer
			}
		}
		return v.Compression, nil
	}

	return CompressionNone, nil
}

// MaybeDecompress wraps r in the decompressor its leading bytes call for. The
// returned ReadCloser closes the decompressor only; closing r remains the
// caller's job. Streams without a known signature are passed through.
func MaybeDecompress(r io.Reader) (io.ReadCloser, Compression, error) {
	br := bufio.NewReader(r)
	dt, err := DetectCompression(br)
	if err != nil {
		return nil, dt, err
	}

	switch dt {
	case CompressionGzip:
		rc, err := gzip.NewReader(br)
		return rc, dt, err
	case CompressionZip:
		zr := zipstream.NewReader(br)
		// The first entry of the archive is the payload.
		if _, err := zr.Next(); err != nil {
			return nil, dt, err
		}
		return &readCloserFaker{zr}, dt, nil
	case CompressionBZip2:
		return &readCloserFaker{bzip2.NewReader(br)}, dt, nil
	case CompressionXZ:
		reader, err := xz.NewReader(br, 0)
		if err != nil {
			return nil, dt, err
		}
		return &readCloserFaker{reader}, dt, nil
	case CompressionZ:
		rc, err := zlib.NewReader(br)
		return rc, dt, err
	}

	return &readCloserFaker{br}, dt, nil
}

// readCloserFaker "upgrades" readers that don't need to be closed
type readCloserFaker struct {
	io.Reader
}

func (c *readCloserFaker) Close() error {
	return nil
}
