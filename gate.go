// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package statem

// ClientAppDataAllowed is the Section 4.5 gate: true exactly when
// the protocol state is BEFORE, OK, or CW_CLNT_HELLO — before any
// handshake has begun, between completed handshakes, or immediately
// after the client has queued its ClientHello but before further
// handshake messages are expected. Every other state denies
// application-data transmission, so the record layer can refuse
// early/false-start writes that would violate the handshake grammar.
func ClientAppDataAllowed(hs *HandshakeState) bool {
	switch hs.HandState {
	case HandStateBefore, HandStateOK, HandStateClientWriteClientHello:
		return true
	default:
		return false
	}
}
