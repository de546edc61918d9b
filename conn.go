// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package statem

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/pion/logging"
	"github.com/pion/transport/v3/deadline"

	"github.com/censys-oss/statem/pkg/protocol"
	"github.com/censys-oss/statem/pkg/transcript"
)

const (
	initialTickerInterval = time.Second
	// maxPlainLength is the handshake scratch buffer size, mirroring
	// SSL3_RT_MAX_PLAIN_LENGTH in the setup block's step 12.
	maxPlainLength = 16384
)

// Conn is the ambient connection object Section 3 describes as
// owning HandshakeState exclusively: Drive borrows it mutably for the
// duration of one call, never retains a reference across calls. Holds
// the fields the driver needs rather than full DTLS record/crypto
// handling.
type Conn struct {
	lock sync.Mutex

	hs HandshakeState

	cfg *Config

	clientVT RoleVTable
	serverVT RoleVTable

	rl        RecordLayer
	timer     RetransmitTimer
	heartbeat HeartbeatController

	transcriptHash *transcript.Hash
	scratchBuffer  []byte

	isDTLS bool

	// changeCipherSpec counts CCS records observed on the current
	// handshake, reset by the setup block's step 13. The record-layer
	// collaborator owns CCS framing; the driver only needs the reset
	// point, not the counting itself.
	changeCipherSpec int

	inHandshakeDepth int

	readDeadline  *deadline.Deadline
	writeDeadline *deadline.Deadline

	log logging.LeveledLogger

	version protocol.Version

	acceptStat, connectStat, renegConnectStat uint64
}

// NewConn constructs a Conn ready to drive a handshake. clientVT and
// serverVT need only supply the role that will actually be used; per
// Open Question 1 whichever one Drive dispatches into must be fully
// populated.
func NewConn(cfg *Config, rl RecordLayer, clientVT, serverVT RoleVTable, version protocol.Version, isDTLS bool) *Conn {
	if cfg == nil {
		cfg = &Config{}
	}
	c := &Conn{
		cfg:           cfg,
		clientVT:      clientVT,
		serverVT:      serverVT,
		rl:            rl,
		isDTLS:        isDTLS,
		version:       version,
		readDeadline:  deadline.New(),
		writeDeadline: deadline.New(),
		log:           cfg.loggerFactory().NewLogger("statem"),
	}
	c.hs.reset()
	if isDTLS {
		c.timer = newFlightTimer(cfg.flightInterval(), c.retransmitFlight)
	}
	return c
}

// retransmitFlight is the flightTimer's fire callback: DTLS
// retransmission resends the bytes already staged by the last
// ConstructMessage/DoWrite rather than reconstructing the flight, the
// same bytes-on-the-wire the write sub-machine last sent. Runs on the
// timer's own goroutine, so it takes the lock the rest of the driver
// leaves idle between Drive calls.
func (c *Conn) retransmitFlight() {
	c.lock.Lock()
	defer c.lock.Unlock()
	_, _ = doWrite(c.rl, &c.hs, c.cfg.IsChangeCipherSpecState)
}

// SetTimer overrides the retransmission timer collaborator NewConn
// already installed for a DTLS Conn (paced by Config.FlightInterval),
// e.g. to substitute a test double. A nil timer is valid for TLS
// connections, which never set UseTimer.
func (c *Conn) SetTimer(timer RetransmitTimer) { c.timer = timer }

// SetHeartbeatController installs the heartbeat-cancellation
// collaborator, Section 4.1 step 6.
func (c *Conn) SetHeartbeatController(hb HeartbeatController) { c.heartbeat = hb }

// State returns the live HandshakeState. Callers outside this package
// should treat it as read-mostly; Drive is the only code that should
// mutate FlowState.
func (c *Conn) State() *HandshakeState { return &c.hs }

// Clear resets the handshake back to UNINITED, Section 6
// statem_clear.
func (c *Conn) Clear() { c.hs.reset() }

// SetRenegotiate forces the next Drive call to enter via RENEGOTIATE,
// Section 6 statem_set_renegotiate.
func (c *Conn) SetRenegotiate() { c.hs.FlowState = FlowRenegotiate }

// SetError latches the sticky ERROR state permanently, Section 6
// statem_set_error.
func (c *Conn) SetError() { c.hs.FlowState = FlowError }

// ClientAppDataAllowed is the Section 6
// statem_client_app_data_allowed upward API, forwarding to the gate.
func (c *Conn) ClientAppDataAllowed() bool { return ClientAppDataAllowed(&c.hs) }

// vtableFor selects the role vtable Drive dispatches into.
func (c *Conn) vtableFor(role Role) RoleVTable {
	if role == RoleServer {
		return c.serverVT
	}
	return c.clientVT
}

// Handshake drives the handshake to completion, retrying across NBIO
// stalls. The retry loop is explicit and synchronous, because Section 5
// requires NBIO suspension to be visible to the caller rather than
// hidden inside the driver.
func (c *Conn) Handshake(ctx context.Context, role Role) error {
	for {
		err := Drive(c, role)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, WouldBlock):
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Millisecond):
				// The real suspension point is inside the RecordLayer
				// collaborator (GetMessageHeader/GetMessageBody/DoWrite);
				// this short poll just gives it a chance to become ready
				// again without a dedicated readiness channel, mirroring
				// how a caller with only a non-blocking socket would
				// retry Drive in a loop.
				continue
			}
		default:
			return &HandshakeError{Err: err}
		}
	}
}

// Renegotiate is the ambient entry point for Section 4.1 step 7:
// force RENEGOTIATE and drive the handshake again over the connection,
// re-entering through SetRenegotiate rather than a second code path.
func (c *Conn) Renegotiate(ctx context.Context, role Role) error {
	c.SetRenegotiate()
	return c.Handshake(ctx, role)
}

func stirRandomPool() {
	// Section 4.1 step 1: mix current wall-clock time into the
	// CSPRNG pool. crypto/rand is already continuously reseeded by the
	// OS, so this exists only to preserve the setup block's documented
	// side effect for callers that observe it (e.g. via a custom PRNG
	// plugged in at a lower layer); it performs no action of its own
	// beyond touching the pool once.
	var discard [1]byte
	_, _ = rand.Read(discard[:])
}
