// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package statem

// HeartbeatController is the cross-cutting heartbeat-cancellation
// concern Design Note "Heartbeat cancellation on entry" asks to keep
// isolated from the rest of the driver: a one-shot action taken during
// the UNINITED/RENEGOTIATE init block, Section 4.1 step 6.
type HeartbeatController interface {
	// CancelPending stops any in-flight heartbeat request/response.
	CancelPending()
	// BumpSequence advances the heartbeat sequence counter so a
	// straggling reply from before this handshake cannot be confused
	// with one from after it.
	BumpSequence()
}

// cancelHeartbeat runs the one-shot heartbeat-cancellation action, a
// no-op when the connection carries no HeartbeatController (TLS, or a
// DTLS connection that never enabled heartbeats).
func cancelHeartbeat(hb HeartbeatController) {
	if hb == nil {
		return
	}
	hb.CancelPending()
	hb.BumpSequence()
}
