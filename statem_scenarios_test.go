// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package statem

import (
	"errors"
	"testing"

	"github.com/censys-oss/statem/pkg/protocol"
	"github.com/censys-oss/statem/pkg/protocol/alert"
	"github.com/censys-oss/statem/pkg/protocol/handshake"
)

// stubRecordLayer is a hand-rolled RecordLayer double, no mocking
// framework: a plain struct with enough knobs to drive each concrete
// scenario Section 8 names.
type stubRecordLayer struct {
	header           handshake.Header
	callsBeforeReady int
	calls            int
	body             []byte
	alerts           []alert.Alert
}

func (s *stubRecordLayer) GetMessageHeader() (handshake.Header, bool, error) {
	if s.calls < s.callsBeforeReady {
		s.calls++
		return handshake.Header{}, false, nil
	}
	return s.header, true, nil
}

func (s *stubRecordLayer) GetMessageBody() ([]byte, bool, error) {
	return s.body, true, nil
}

func (s *stubRecordLayer) DoWrite(protocol.ContentType) (int, error) {
	return 1, nil
}

func (s *stubRecordLayer) SendAlert(level alert.Level, desc alert.Description) error {
	s.alerts = append(s.alerts, alert.Alert{Level: level, Description: desc})
	return nil
}

// scenarioDone is the grammar state this file's stub vtable reaches
// once it has accepted a single ClientHello-shaped message; from
// there, one more PRE_WORK stop ends the handshake cleanly, the same
// trick internal/testflow's client grammar uses after its final read.
const scenarioDone = HandStateGrammarBase

// scenarioVTable accepts exactly one TypeClientHello message while
// HandState == HandStateBefore, then ends the handshake without ever
// constructing a reply. maxSize lets S4 inject an undersized cap.
type scenarioVTable struct {
	maxSize uint32
}

func (v *scenarioVTable) ReadTransition(hs *HandshakeState, msgType handshake.Type) bool {
	if hs.HandState != HandStateBefore || msgType != handshake.TypeClientHello {
		return false
	}
	hs.HandState = scenarioDone
	return true
}

func (v *scenarioVTable) ProcessMessage(hs *HandshakeState, _ int) (ProcessResult, error) {
	return ProcessFinishedReading, nil
}

func (v *scenarioVTable) PostProcessMessage(hs *HandshakeState, work WorkToken) (WorkToken, error) {
	return WorkFinishedStop, nil
}

func (v *scenarioVTable) MaxMessageSize(hs *HandshakeState) uint32 {
	if v.maxSize != 0 {
		return v.maxSize
	}
	return 4096
}

func (v *scenarioVTable) WriteTransition(hs *HandshakeState) (TransitionResult, error) {
	return TransitionContinue, nil
}

func (v *scenarioVTable) ConstructMessage(hs *HandshakeState) bool { return true }

func (v *scenarioVTable) PreWork(hs *HandshakeState, work WorkToken) (WorkToken, error) {
	hs.HandState = HandStateOK
	return WorkFinishedStop, nil
}

func (v *scenarioVTable) PostWork(hs *HandshakeState, work WorkToken) (WorkToken, error) {
	return WorkFinishedStop, nil
}

func newScenarioConn(rl RecordLayer, vt RoleVTable, version protocol.Version) *Conn {
	cfg := &Config{
		IsChangeCipherSpecState: func(HandState) bool { return false },
	}
	return NewConn(cfg, rl, vt, vt, version, false)
}

// TestNBIOOnHeaderPreservesSubState is Section 8 scenario S2.
func TestNBIOOnHeaderPreservesSubState(t *testing.T) {
	rl := &stubRecordLayer{
		header:           handshake.Header{Type: handshake.TypeClientHello, Length: 4},
		callsBeforeReady: 1,
	}
	vt := &scenarioVTable{}
	conn := newScenarioConn(rl, vt, protocol.Version1_2)

	err := Drive(conn, RoleServer)
	if !errors.Is(err, WouldBlock) {
		t.Fatalf("first Drive call: got %v, want WouldBlock", err)
	}
	if conn.State().FlowState != FlowReading {
		t.Errorf("FlowState = %v, want FlowReading", conn.State().FlowState)
	}
	if conn.State().ReadState != ReadHeader {
		t.Errorf("ReadState = %v, want ReadHeader", conn.State().ReadState)
	}

	if err := Drive(conn, RoleServer); err != nil {
		t.Fatalf("resumed Drive call: %v", err)
	}
	if conn.State().FlowState != FlowUninited {
		t.Errorf("FlowState after completion = %v, want FlowUninited", conn.State().FlowState)
	}
}

// TestUnexpectedMessageLatchesError is Section 8 scenario S3.
func TestUnexpectedMessageLatchesError(t *testing.T) {
	rl := &stubRecordLayer{
		header: handshake.Header{Type: handshake.TypeFinished, Length: 4},
	}
	vt := &scenarioVTable{}
	conn := newScenarioConn(rl, vt, protocol.Version1_2)

	if err := Drive(conn, RoleServer); err == nil {
		t.Fatal("expected a fatal error for an out-of-order message")
	}
	if conn.State().FlowState != FlowError {
		t.Errorf("FlowState = %v, want FlowError", conn.State().FlowState)
	}
	if len(rl.alerts) != 1 || rl.alerts[0].Description != alert.UnexpectedMessage {
		t.Errorf("alerts = %v, want exactly one unexpected_message alert", rl.alerts)
	}
}

// TestExcessiveMessageSizeLatchesError is Section 8 scenario S4.
func TestExcessiveMessageSizeLatchesError(t *testing.T) {
	rl := &stubRecordLayer{
		header: handshake.Header{Type: handshake.TypeClientHello, Length: 17},
	}
	vt := &scenarioVTable{maxSize: 16}
	conn := newScenarioConn(rl, vt, protocol.Version1_2)

	if err := Drive(conn, RoleServer); err == nil {
		t.Fatal("expected a fatal error for an oversized message")
	}
	if conn.State().FlowState != FlowError {
		t.Errorf("FlowState = %v, want FlowError", conn.State().FlowState)
	}
	if len(rl.alerts) != 1 || rl.alerts[0].Description != alert.IllegalParameter {
		t.Errorf("alerts = %v, want exactly one illegal_parameter alert", rl.alerts)
	}
}

// TestUnsafeRenegotiationRejected is Section 8 scenario S5.
func TestUnsafeRenegotiationRejected(t *testing.T) {
	rl := &stubRecordLayer{}
	vt := &scenarioVTable{}
	conn := newScenarioConn(rl, vt, protocol.Version1_2)

	// Drive once as a server to get past UNINITED into a completed
	// handshake, the precondition for a server-side renegotiation.
	rl.header = handshake.Header{Type: handshake.TypeClientHello, Length: 4}
	if err := Drive(conn, RoleServer); err != nil {
		t.Fatalf("initial handshake: %v", err)
	}

	conn.State().SendConnectionBinding = false
	conn.SetRenegotiate()

	err := Drive(conn, RoleServer)
	if err == nil {
		t.Fatal("expected unsafe renegotiation to be rejected")
	}
	if conn.State().FlowState != FlowError {
		t.Errorf("FlowState = %v, want FlowError", conn.State().FlowState)
	}
	if len(rl.alerts) == 0 || rl.alerts[len(rl.alerts)-1].Description != alert.HandshakeFailure {
		t.Errorf("alerts = %v, want a trailing handshake_failure alert", rl.alerts)
	}
}

// TestVersionTooLowRejectedWithoutAlert is Section 8 scenario S6.
func TestVersionTooLowRejectedWithoutAlert(t *testing.T) {
	rl := &stubRecordLayer{}
	vt := &scenarioVTable{}
	conn := newScenarioConn(rl, vt, protocol.Version1_0)
	conn.cfg.MinVersion = protocol.Version1_2

	err := Drive(conn, RoleClient)
	if err == nil {
		t.Fatal("expected a version-too-low rejection")
	}
	if conn.State().FlowState != FlowError {
		t.Errorf("FlowState = %v, want FlowError", conn.State().FlowState)
	}
	if len(rl.alerts) != 0 {
		t.Errorf("alerts = %v, want none sent for a local policy rejection", rl.alerts)
	}
}
