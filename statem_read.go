// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package statem

import (
	"github.com/pion/logging"

	"github.com/censys-oss/statem/pkg/protocol/alert"
)

// readMachine drives HEADER -> BODY -> [POST_PROCESS] -> ... until the
// inbound phase yields, Section 4.2. Initial state is always
// ReadHeader on entry (enforced by the outer machine when it
// transitions into FlowReading, not by readMachine itself).
type readMachine struct {
	hs    *HandshakeState
	vt    RoleVTable
	rl    RecordLayer
	timer RetransmitTimer
	cb    InfoCallback
	log   logging.LeveledLogger
}

func (m *readMachine) run() (subStateResult, error) {
	for {
		switch m.hs.ReadState {
		case ReadHeader:
			res, cont, err := m.runHeader()
			if !cont {
				return res, err
			}
		case ReadBody:
			res, cont, err := m.runBody()
			if !cont {
				return res, err
			}
		case ReadPostProcess:
			return m.runPostProcess()
		default:
			return subStateError, errUnreachableSubState
		}
	}
}

func (m *readMachine) runHeader() (subStateResult, bool, error) {
	if m.hs.ReadStateFirstInit {
		m.hs.ReadStateFirstInit = false
	}

	header, ok, err := m.rl.GetMessageHeader()
	if err != nil {
		return subStateError, false, err
	}
	if !ok {
		return subStateError, false, WouldBlock
	}

	fireInfo(m.cb, m.hs, loopEvent(m.hs), 1)

	m.log.Tracef("[handshake] <- %v (hand_state: %v)", header.Type, m.hs.HandState)

	if !m.vt.ReadTransition(m.hs, header.Type) {
		m.log.Errorf("[handshake] unexpected message %v in hand_state %v", header.Type, m.hs.HandState)
		_ = m.rl.SendAlert(alert.Fatal, alert.UnexpectedMessage)
		return subStateError, false, newAlertError(alert.Fatal, alert.UnexpectedMessage)
	}

	if header.Length > m.vt.MaxMessageSize(m.hs) {
		m.log.Errorf("[handshake] message length %d exceeds limit", header.Length)
		_ = m.rl.SendAlert(alert.Fatal, alert.IllegalParameter)
		return subStateError, false, newAlertError(alert.Fatal, alert.IllegalParameter)
	}

	m.hs.ReadState = ReadBody
	return 0, true, nil // fall through to BODY synchronously, no re-entry into the outer loop
}

func (m *readMachine) runBody() (subStateResult, bool, error) {
	// A DTLS collaborator already has the body buffered from the
	// combined datagram GetMessageHeader read (see netrecordlayer.Conn's
	// pendingBody); for it this call is non-blocking. A TLS collaborator
	// performs the second round-trip a split header/body stream needs.
	body, ok, err := m.rl.GetMessageBody()
	if err != nil {
		return subStateError, false, err
	}
	if !ok {
		return subStateError, false, WouldBlock
	}

	result, err := m.vt.ProcessMessage(m.hs, len(body))
	if err != nil {
		return subStateError, false, err
	}

	switch result {
	case ProcessFinishedReading:
		timerStop(m.hs, m.timer)
		return subStateFinished, false, nil
	case ProcessContinueProcessing:
		m.hs.ReadState = ReadPostProcess
		m.hs.ReadWork = WorkMoreA
		return 0, true, nil // loop back around so the switch dispatches to POST_PROCESS
	case ProcessContinueReading:
		m.hs.ReadState = ReadHeader
		return 0, true, nil
	default:
		return subStateError, false, errUnreachableSubState
	}
}

func (m *readMachine) runPostProcess() (subStateResult, error) {
	work, err := m.vt.PostProcessMessage(m.hs, m.hs.ReadWork)
	if err != nil {
		return subStateError, err
	}
	m.hs.ReadWork = work

	switch work {
	case WorkFinishedContinue:
		m.hs.ReadState = ReadHeader
		return m.run()
	case WorkFinishedStop:
		timerStop(m.hs, m.timer)
		return subStateFinished, nil
	default:
		// Any WORK_MORE_* here is an NBIO suspension: post_process_message
		// did not finish, so the caller must retry with the same state.
		return subStateError, WouldBlock
	}
}
