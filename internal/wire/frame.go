// Package wire implements the collective dispatcher's framing and
// envelope format (spec.md §5, C5): every message — handshake or
// streamed result — travels as an 8-byte big-endian length-prefixed
// frame over the TLS connection, with a zero-length frame marking the
// end of a stream. No message-framing or self-describing serialization
// library appeared anywhere in the retrieval pack, so both the framing
// and the envelope format below are hand-written — see DESIGN.md.
package wire

import (
	"encoding/binary"
	"errors"
	"io"

	apperr "github.com/clusterhub/clustercore/internal/errors"
)

// ErrEndOfStream is returned by ReadFrame when it reads the
// zero-length frame that terminates a stream.
var ErrEndOfStream = errors.New("wire: end of stream")

const maxFrameSize = 16 << 20 // 16MiB guards against a corrupt length prefix

// WriteFrame writes payload as one length-prefixed frame. An empty
// payload is indistinguishable from EndOfStream on the reading side —
// callers that need to send a legitimately empty envelope must encode
// that in the envelope itself, not as a zero-length payload.
func WriteFrame(w io.Writer, payload []byte) error {
	var header [8]byte
	binary.BigEndian.PutUint64(header[:], uint64(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return apperr.Wrap(apperr.ErrCodeInternalServer, "failed to write frame header", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return apperr.Wrap(apperr.ErrCodeInternalServer, "failed to write frame payload", err)
	}
	return nil
}

// WriteEndOfStream writes the zero-length sentinel frame.
func WriteEndOfStream(w io.Writer) error {
	return WriteFrame(w, nil)
}

// ReadFrame reads one length-prefixed frame. It returns ErrEndOfStream
// for the zero-length sentinel instead of an empty, non-nil slice, so
// callers can tell "stream over" apart from "empty payload" with a
// single comparison.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeTargetResourceUnavailable, "failed to read frame header", err)
	}
	n := binary.BigEndian.Uint64(header[:])
	if n == 0 {
		return nil, ErrEndOfStream
	}
	if n > maxFrameSize {
		return nil, apperr.InvalidArgument("frame exceeds maximum size")
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeTargetResourceUnavailable, "failed to read frame payload", err)
	}
	return payload, nil
}
