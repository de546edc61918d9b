// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package statem

import (
	"github.com/pion/logging"
)

// writeMachine drives TRANSITION -> PRE_WORK -> SEND -> POST_WORK ->
// ... until the outbound phase yields or the handshake completes,
// Section 4.3. Initial state is always WriteTransition on entry.
type writeMachine struct {
	hs    *HandshakeState
	vt    RoleVTable
	rl    RecordLayer
	timer RetransmitTimer
	cb    InfoCallback
	log   logging.LeveledLogger

	isCCSState func(HandState) bool
}

func (m *writeMachine) run() (subStateResult, error) {
	for {
		switch m.hs.WriteState {
		case WriteTransition:
			res, cont, err := m.runTransition()
			if !cont {
				return res, err
			}
		case WritePreWork:
			res, cont, err := m.runPreWork()
			if !cont {
				return res, err
			}
		case WriteSend:
			res, cont, err := m.runSend()
			if !cont {
				return res, err
			}
		case WritePostWork:
			return m.runPostWork()
		default:
			return subStateError, errUnreachableSubState
		}
	}
}

func (m *writeMachine) runTransition() (subStateResult, bool, error) {
	fireInfo(m.cb, m.hs, loopEvent(m.hs), 1)

	m.log.Tracef("[handshake] -> TRANSITION (hand_state: %v)", m.hs.HandState)

	result, err := m.vt.WriteTransition(m.hs)
	if err != nil {
		return subStateError, false, err
	}

	switch result {
	case TransitionContinue:
		m.hs.WriteState = WritePreWork
		m.hs.WriteWork = WorkMoreA
		return 0, true, nil
	case TransitionFinished:
		return subStateFinished, false, nil
	default:
		return subStateError, false, errUnreachableSubState
	}
}

func (m *writeMachine) runPreWork() (subStateResult, bool, error) {
	work, err := m.vt.PreWork(m.hs, m.hs.WriteWork)
	if err != nil {
		return subStateError, false, err
	}
	m.hs.WriteWork = work

	switch work {
	case WorkFinishedContinue:
		if !m.vt.ConstructMessage(m.hs) {
			m.log.Errorf("[handshake] message construction failed (hand_state: %v)", m.hs.HandState)
			return subStateError, false, errConstructMessage
		}
		m.hs.WriteState = WriteSend
		return 0, true, nil
	case WorkFinishedStop:
		return subStateEndHandshake, false, nil
	default:
		// WORK_MORE_*: pre_work did not finish, NBIO suspension.
		return subStateError, false, WouldBlock
	}
}

func (m *writeMachine) runSend() (subStateResult, bool, error) {
	timerStart(m.hs, m.timer)

	n, err := doWrite(m.rl, m.hs, m.isCCSState)
	if err != nil {
		return subStateError, false, err
	}
	if n <= 0 {
		return subStateError, false, WouldBlock
	}

	m.hs.WriteState = WritePostWork
	m.hs.WriteWork = WorkMoreA
	return 0, true, nil
}

func (m *writeMachine) runPostWork() (subStateResult, error) {
	work, err := m.vt.PostWork(m.hs, m.hs.WriteWork)
	if err != nil {
		return subStateError, err
	}
	m.hs.WriteWork = work

	switch work {
	case WorkFinishedContinue:
		m.hs.WriteState = WriteTransition
		return m.run()
	case WorkFinishedStop:
		return subStateEndHandshake, nil
	default:
		return subStateError, WouldBlock
	}
}
