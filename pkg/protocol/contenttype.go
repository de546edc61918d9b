// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package protocol

// ContentType is the record layer content type byte. The driver's
// do_write demultiplex (see the statem package) switches on this value
// to pick the CCS write path from the generic handshake-record path;
// everything else about framing belongs to the record layer, not here.
type ContentType byte

// Content types used at the do_write boundary. Values match RFC 5246
// Section 6.2.1 / RFC 6347.
const (
	ContentTypeChangeCipherSpec ContentType = 20
	ContentTypeAlert            ContentType = 21
	ContentTypeHandshake        ContentType = 22
	ContentTypeApplicationData  ContentType = 23
	ContentTypeConnectionID     ContentType = 25
)

func (c ContentType) String() string {
	switch c {
	case ContentTypeChangeCipherSpec:
		return "ChangeCipherSpec"
	case ContentTypeAlert:
		return "Alert"
	case ContentTypeHandshake:
		return "Handshake"
	case ContentTypeApplicationData:
		return "ApplicationData"
	case ContentTypeConnectionID:
		return "ConnectionID"
	default:
		return "Unknown"
	}
}
