// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package statem

import "github.com/censys-oss/statem/pkg/protocol/handshake"

// ProcessResult is process_message's outcome, Section 4.2 BODY.
type ProcessResult uint8

// Outcomes of RoleVTable.ProcessMessage.
const (
	ProcessFinishedReading ProcessResult = iota
	ProcessContinueProcessing
	ProcessContinueReading
)

// TransitionResult is the write sub-machine's transition() outcome,
// Section 4.3 TRANSITION. The read side's transition() instead
// returns a plain bool (Section 6), modeled directly as a method
// named ReadTransition below to keep the two transition shapes from
// being confused at a call site.
type TransitionResult uint8

// Outcomes of RoleVTable.WriteTransition.
const (
	TransitionContinue TransitionResult = iota
	TransitionFinished
)

// RoleVTable is the pair of five-ish callbacks Section 6 requires
// a concrete handshake grammar to supply, one instance per role. The
// core driver consumes this interface; it never defines one. Per Open
// Question 1, a RoleVTable handed to Drive must have every method
// meaningfully implemented — there is no partially-nil skeleton this
// module ships.
type RoleVTable interface {
	// ReadTransition validates that msgType is a message the current
	// HandState permits next, and if so advances HandState. A false
	// return triggers a fatal unexpected_message alert.
	ReadTransition(hs *HandshakeState, msgType handshake.Type) bool

	// ProcessMessage consumes the just-read message body of length
	// bodyLen (already staged by the record-layer collaborator) and
	// reports how the read sub-machine should continue.
	ProcessMessage(hs *HandshakeState, bodyLen int) (ProcessResult, error)

	// PostProcessMessage resumes interrupted post-processing work
	// seeded by ProcessMessage's ProcessContinueProcessing outcome.
	PostProcessMessage(hs *HandshakeState, work WorkToken) (WorkToken, error)

	// MaxMessageSize bounds the message the read sub-machine will
	// accept next, enforced against the header's declared Length.
	MaxMessageSize(hs *HandshakeState) uint32

	// WriteTransition advances HandState for the next outbound message
	// and reports whether the write phase continues or the handshake
	// is complete.
	WriteTransition(hs *HandshakeState) (TransitionResult, error)

	// ConstructMessage serializes the message the preceding
	// WriteTransition selected. A false return is a construction
	// failure (Section 4.3 PRE_WORK).
	ConstructMessage(hs *HandshakeState) bool

	// PreWork and PostWork bracket the physical write with
	// grammar-specific resumable work (e.g. computing a signature,
	// deriving keys) that might itself stall across NBIO.
	PreWork(hs *HandshakeState, work WorkToken) (WorkToken, error)
	PostWork(hs *HandshakeState, work WorkToken) (WorkToken, error)
}
