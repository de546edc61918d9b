// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package transcript defines the handshake transcript-hash
// collaborator the driver initializes once per handshake (Section
// 4.1 step 14) and otherwise never touches. Conn keeps the Hash in an
// unexported field with no accessor, so neither the driver nor a
// vtable writes messages into it. Hashing itself is explicitly out of
// scope for this module; this package exists only to give the setup
// block something concrete to construct.
package transcript

import (
	"crypto/sha256"
	"hash"

	"golang.org/x/crypto/cryptobyte"
)

// Hash accumulates the running hash of every handshake message sent or
// received, later fed into key derivation and the Finished message by
// the cryptographic collaborator (also out of scope here).
type Hash struct {
	h hash.Hash
}

// New constructs a Hash. Spec step 14 requires this to happen once per
// handshake, right after the write-buffering layer is pushed onto the
// transport (skipped for server-side renegotiation and SCTP DTLS).
func New() *Hash {
	return &Hash{h: sha256.New()}
}

// Write feeds one length-prefixed handshake message into the running
// hash, framed with cryptobyte.Builder the way the rest of the
// golang.org/x/crypto TLS-adjacent tooling frames handshake messages.
func (t *Hash) Write(messageType byte, body []byte) error {
	var b cryptobyte.Builder
	b.AddUint8(messageType)
	b.AddUint24LengthPrefixed(func(child *cryptobyte.Builder) {
		child.AddBytes(body)
	})
	framed, err := b.Bytes()
	if err != nil {
		return err
	}
	_, err = t.h.Write(framed)
	return err
}

// Sum returns the running digest without finalizing the hash, so
// further messages (e.g. a second Finished message across
// renegotiation) can still be written.
func (t *Hash) Sum() []byte {
	return t.h.Sum(nil)
}

// Reset clears the transcript so the Hash can be reused. Nothing in
// this module calls it: Conn.Clear leaves the Hash alone, and the setup
// block constructs a fresh Hash for each handshake instead.
func (t *Hash) Reset() {
	t.h.Reset()
}
