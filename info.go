// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package statem

// InfoEvent identifies a well-defined handshake milestone, Section 6
// "Info-callback contract".
type InfoEvent uint8

// Info events Drive and the sub-machines fire.
const (
	// EventHandshakeStart fires once in Drive's one-time setup block,
	// after the role is stamped (step 9), value always 1.
	EventHandshakeStart InfoEvent = iota
	// EventAcceptLoop fires on each server-role sub-state transition
	// that moves handshake state forward.
	EventAcceptLoop
	// EventConnectLoop is EventAcceptLoop's client-role counterpart.
	EventConnectLoop
	// EventAcceptExit fires exactly once per Drive call, on every exit
	// path (success, NBIO, fatal), for a server-role handshake. value
	// carries the numeric Drive result. A call rejected by Drive's
	// precondition checks (already in ERROR, no vtable, nil record
	// layer) returns before this point and fires nothing.
	EventAcceptExit
	// EventConnectExit is EventAcceptExit's client-role counterpart.
	EventConnectExit
)

func (e InfoEvent) String() string {
	switch e {
	case EventHandshakeStart:
		return "HANDSHAKE_START"
	case EventAcceptLoop:
		return "ACCEPT_LOOP"
	case EventConnectLoop:
		return "CONNECT_LOOP"
	case EventAcceptExit:
		return "ACCEPT_EXIT"
	case EventConnectExit:
		return "CONNECT_EXIT"
	default:
		return "UNKNOWN"
	}
}

// InfoCallback observes handshake progress. Implementations must not
// re-enter Drive for the same connection (Section 5 "Ordering").
type InfoCallback func(hs *HandshakeState, event InfoEvent, value int)

// loopEvent picks EventAcceptLoop or EventConnectLoop for the current
// role, the one piece of role-dependent info-event selection that
// both sub-machines need.
func loopEvent(hs *HandshakeState) InfoEvent {
	if hs.Role == RoleServer {
		return EventAcceptLoop
	}
	return EventConnectLoop
}

// exitEvent picks EventAcceptExit or EventConnectExit for the current
// role.
func exitEvent(hs *HandshakeState) InfoEvent {
	if hs.Role == RoleServer {
		return EventAcceptExit
	}
	return EventConnectExit
}

func fireInfo(cb InfoCallback, hs *HandshakeState, event InfoEvent, value int) {
	if cb == nil {
		return
	}
	cb(hs, event, value)
}
