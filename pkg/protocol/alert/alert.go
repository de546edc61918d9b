// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package alert defines the TLS/DTLS alert wire vocabulary the
// handshake driver sends through its record-layer collaborator. The
// driver only ever constructs Alert values at three fixed call sites:
// unexpected_message for a rejected message type, illegal_parameter for
// an oversized message, and handshake_failure for an unsafe server-side
// renegotiation. The version-too-low and internal-error paths send no
// alert. Sending the bytes on the wire is the record layer's job.
package alert

import "fmt"

// Level is the alert severity.
type Level byte

// Alert levels, RFC 5246 Section 7.2.
const (
	Warning Level = 1
	Fatal   Level = 2
)

func (l Level) String() string {
	switch l {
	case Warning:
		return "Warning"
	case Fatal:
		return "Fatal"
	default:
		return fmt.Sprintf("Invalid(%d)", byte(l))
	}
}

// Description is the alert code, RFC 5246 Section 7.2 / RFC 6066.
type Description byte

// Alert descriptions this package defines. The driver itself raises
// only UnexpectedMessage, IllegalParameter and HandshakeFailure; a
// concrete handshake grammar plugged in through the vtable may send
// others, but those belong to the grammar, not the driver.
const (
	CloseNotify            Description = 0
	UnexpectedMessage      Description = 10
	DecodeError             Description = 50
	IllegalParameter        Description = 47
	HandshakeFailure        Description = 40
	InternalError           Description = 80
	ProtocolVersion         Description = 70
	InsufficientSecurity    Description = 71
	NoRenegotiation         Description = 100
)

func (d Description) String() string {
	switch d {
	case CloseNotify:
		return "close_notify"
	case UnexpectedMessage:
		return "unexpected_message"
	case DecodeError:
		return "decode_error"
	case IllegalParameter:
		return "illegal_parameter"
	case HandshakeFailure:
		return "handshake_failure"
	case InternalError:
		return "internal_error"
	case ProtocolVersion:
		return "protocol_version"
	case InsufficientSecurity:
		return "insufficient_security"
	case NoRenegotiation:
		return "no_renegotiation"
	default:
		return fmt.Sprintf("Alert(%d)", byte(d))
	}
}

// Alert is a single alert-protocol message.
type Alert struct {
	Level       Level
	Description Description
}

func (a *Alert) String() string {
	return fmt.Sprintf("%s: %s", a.Level, a.Description)
}

// IsFatal reports whether the alert's level requires the connection to
// be torn down. close_notify is a warning by construction but callers
// that want "fatal or close" (as the driver's sticky-error discipline
// does) should use IsFatalOrCloseNotify instead.
func (a *Alert) IsFatal() bool {
	return a.Level == Fatal
}

// IsFatalOrCloseNotify reports whether the alert should latch the
// connection's error state: any fatal alert, or a close_notify at any
// level.
func (a *Alert) IsFatalOrCloseNotify() bool {
	return a.IsFatal() || a.Description == CloseNotify
}
