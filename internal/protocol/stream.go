package protocol

import (
	"errors"
	"io"
)

// ReadPacket reads exactly one frame from r.
//
// A clean end of stream before the first header byte returns io.EOF. A stream
// that ends inside a header yields ErrMessageTooShort and one that ends inside
// a payload yields ErrInvalidPayloadLength, mirroring Deserialize on the
// truncated buffer. Other read errors are returned unchanged.
func ReadPacket(r io.Reader) (Packet, error) {
	var hdrBuf [HeaderSize]byte
	n, err := io.ReadFull(r, hdrBuf[:])
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Packet{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Packet{}, wrapf(ErrMessageTooShort, "stream ended after %d header bytes", n)
		}
		return Packet{}, err
	}

	hdr, err := ParseHeader(hdrBuf[:])
	if err != nil {
		return Packet{}, err
	}

	frame := make([]byte, HeaderSize+int(hdr.PayloadSize))
	copy(frame, hdrBuf[:])
	if n, err := io.ReadFull(r, frame[HeaderSize:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Packet{}, wrapf(ErrInvalidPayloadLength, "header declares %d payload bytes, stream carried %d",
				hdr.PayloadSize, n)
		}
		return Packet{}, err
	}

	return Deserialize(frame)
}

// WritePacket encodes p and writes it to w in a single Write call.
func WritePacket(w io.Writer, p Packet) error {
	b, err := Serialize(p)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
