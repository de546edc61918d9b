// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package statem

// subStateResult is the three-valued token Section 7
// "Propagation" describes sub-machines returning for the outer machine
// to interpret. The read sub-machine never produces subStateEndHandshake
// (Section 4.1 table, "(not produced by reader)").
type subStateResult uint8

const (
	subStateFinished subStateResult = iota
	subStateEndHandshake
	subStateError
)
