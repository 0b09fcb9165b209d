/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package chaterr is the error taxonomy for the chat core: a small numeric
// CodeError registry in the style of nabbar-golib/errors, trimmed to what a
// single CLI process needs: no stack traces, no HTTP status mapping.
package chaterr

import "strconv"

// CodeError is a small numeric tag, one per category in the error taxonomy.
type CodeError uint16

const (
	// UnknownError is the fallback for an unregistered code.
	UnknownError CodeError = 0

	// Framing: malformed packet: missing fields or non-integer sequence.
	Framing CodeError = 100

	// Integrity: checksum mismatch.
	Integrity CodeError = 101

	// Sequence: an out-of-order data packet, not dispatched.
	Sequence CodeError = 102

	// Protocol: unknown command in a valid, in-order packet.
	Protocol CodeError = 200

	// AdmissionServerFull: registry already at MAX_NUM_CLIENTS.
	AdmissionServerFull CodeError = 201

	// AdmissionUsernameTaken: requested username already registered.
	AdmissionUsernameTaken CodeError = 202

	// Liveness: MAX_RETRIES exhausted on the same outbound packet.
	Liveness CodeError = 300

	// Application: malformed user command typed at the client.
	Application CodeError = 400
)

const unknownMessage = "unknown error"

var registry = map[CodeError]string{
	Framing:                "malformed packet",
	Integrity:              "checksum mismatch",
	Sequence:               "out-of-order packet, not dispatched",
	Protocol:               "unknown command",
	AdmissionServerFull:    "server is full",
	AdmissionUsernameTaken: "username not available",
	Liveness:               "server not responding",
	Application:            "incorrect userinput format",
}

// String renders the numeric code as decimal text.
func (c CodeError) String() string {
	return strconv.Itoa(int(c))
}

// Message returns the registered human-readable text for c, or a generic
// fallback if c was never registered.
func (c CodeError) Message() string {
	if m, ok := registry[c]; ok {
		return m
	}
	return unknownMessage
}

// Error builds an Error value carrying this code, optionally wrapping
// parent errors for additional context (e.g. the underlying net.OpError).
func (c CodeError) Error(parents ...error) Error {
	return newError(c, parents...)
}
