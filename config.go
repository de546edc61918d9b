// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package statem

import (
	"net"
	"time"

	"github.com/pion/logging"
	"golang.org/x/net/idna"

	"github.com/censys-oss/statem/pkg/protocol"
)

// Config is the subset of a full TLS/DTLS Config this driver consumes,
// scoped to the ambient concerns this module leaves unspecified: logging,
// the info-callback resolution order, DTLS pacing, and version policy.
type Config struct {
	// LoggerFactory builds the logger Drive and the sub-machines use.
	// Defaults to logging.NewDefaultLoggerFactory().
	LoggerFactory logging.LoggerFactory

	// InfoCallback is the context-level (connection-factory-wide)
	// observer. ConnectionInfoCallback, when non-nil, overrides it for
	// one connection (Section 4.1 step 3: "connection-level
	// overrides context-level").
	InfoCallback           InfoCallback
	ConnectionInfoCallback InfoCallback

	// FlightInterval paces the DTLS retransmission timer. Zero selects
	// initialTickerInterval.
	FlightInterval time.Duration

	// MinVersion is the security-policy floor enforced in the setup
	// block (Section 4.1 step 11). protocol.AnyVersion disables
	// the check entirely.
	MinVersion protocol.Version

	// InsecureAllowLegacyRenegotiation permits a server-side
	// renegotiation from a peer that never advertised secure
	// renegotiation (Section 4.1 step 15, RFC 5746).
	InsecureAllowLegacyRenegotiation bool

	// IsChangeCipherSpecState classifies a HandState as one of the
	// client-write-CCS / server-write-CCS positions, for the do_write
	// demultiplex (Section 4.4). Required; a concrete grammar's
	// CCS positions are its own business, but the driver still needs
	// to ask the question at the one fixed call site.
	IsChangeCipherSpecState func(HandState) bool

	// ServerName is the client's SNI value, mixed into the handshake
	// transcript by a concrete ClientHello-constructing vtable. An IP
	// literal is never sent as SNI (RFC 6066 Section 3); a hostname is
	// punycode-normalized so the same name always produces the same
	// wire bytes regardless of how the caller capitalized or encoded it.
	ServerName string
}

// effectiveServerName excludes IP literals (RFC 6066 Section 3) and
// applies idna's ToASCII normalization to ServerName. A name idna
// rejects as malformed is dropped the same way an IP literal is:
// better to send no SNI than a garbled one.
func (c *Config) effectiveServerName() string {
	if c.ServerName == "" || net.ParseIP(c.ServerName) != nil {
		return ""
	}
	normalized, err := idna.Lookup.ToASCII(c.ServerName)
	if err != nil {
		return ""
	}
	return normalized
}

func (c *Config) effectiveInfoCallback() InfoCallback {
	if c.ConnectionInfoCallback != nil {
		return c.ConnectionInfoCallback
	}
	return c.InfoCallback
}

func (c *Config) flightInterval() time.Duration {
	if c.FlightInterval != 0 {
		return c.FlightInterval
	}
	return initialTickerInterval
}

func (c *Config) loggerFactory() logging.LoggerFactory {
	if c.LoggerFactory != nil {
		return c.LoggerFactory
	}
	return logging.NewDefaultLoggerFactory()
}
