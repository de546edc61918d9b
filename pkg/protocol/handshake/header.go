// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import "encoding/binary"

// HeaderLength is the encoded size of Header, RFC 5246 Section 7.4 plus
// the DTLS fragment fields from RFC 6347 Section 4.2.2.
const HeaderLength = 12

// Header is the boundary type the read sub-machine's HEADER state
// reads through GetMessageHeader, and the write sub-machine's SEND
// state writes as part of ConstructMessage's output. Length is what
// the read sub-machine checks against a vtable's MaxMessageSize.
type Header struct {
	Type            Type
	Length          uint32
	MessageSequence uint16
	FragmentOffset  uint32
	FragmentLength  uint32
}

// Marshal encodes the handshake header.
func (h *Header) Marshal() ([]byte, error) {
	out := make([]byte, HeaderLength)
	out[0] = byte(h.Type)
	putUint24(out[1:4], h.Length)
	binary.BigEndian.PutUint16(out[4:6], h.MessageSequence)
	putUint24(out[6:9], h.FragmentOffset)
	putUint24(out[9:12], h.FragmentLength)
	return out, nil
}

// Unmarshal decodes the handshake header.
func (h *Header) Unmarshal(data []byte) error {
	if len(data) < HeaderLength {
		return errBufferTooSmall
	}
	h.Type = Type(data[0])
	h.Length = getUint24(data[1:4])
	h.MessageSequence = binary.BigEndian.Uint16(data[4:6])
	h.FragmentOffset = getUint24(data[6:9])
	h.FragmentLength = getUint24(data[9:12])
	return nil
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

func getUint24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}
