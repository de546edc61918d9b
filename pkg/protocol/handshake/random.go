// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"encoding/binary"
	"time"
)

// RandomLength is the total wire length of the gmt_unix_time +
// random_bytes pair, RFC 5246 Section 7.4.1.2.
const RandomLength = 32

// randomBytesLength is the length of the random_bytes portion alone,
// i.e. RandomLength minus the 4-byte gmt_unix_time prefix.
const randomBytesLength = RandomLength - 4

// Random is the gmt_unix_time + random_bytes pair both ClientHello and
// ServerHello carry. It is mixed into the key schedule by the
// cryptographic collaborator; the driver only moves it around.
type Random struct {
	GMTUnixTime time.Time
	RandomBytes [randomBytesLength]byte
}

// MarshalFixed encodes Random into its RandomLength-byte wire form.
func (r Random) MarshalFixed() [RandomLength]byte {
	var out [RandomLength]byte
	binary.BigEndian.PutUint32(out[0:4], uint32(r.GMTUnixTime.Unix()))
	copy(out[4:], r.RandomBytes[:])
	return out
}

// UnmarshalFixed decodes Random from its RandomLength-byte wire form.
func (r *Random) UnmarshalFixed(data [RandomLength]byte) {
	r.GMTUnixTime = time.Unix(int64(binary.BigEndian.Uint32(data[0:4])), 0)
	copy(r.RandomBytes[:], data[4:])
}
