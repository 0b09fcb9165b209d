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

package wire

import (
	"strconv"
	"strings"
)

// Message is the application payload nested inside a data Packet:
// "<cmd> <version> <rest>".
type Message struct {
	Cmd     string
	Version int
	Rest    string
}

// Application command vocabulary (client -> server).
const (
	CmdJoin             = "join"
	CmdDisconnect       = "disconnect"
	CmdRequestUsersList = "request_users_list"
	CmdSendMessage      = "send_message"
)

// Server -> client response/error codes.
const (
	RespUsersList          = "RESPONSE_USERS_LIST"
	RespForwardedMessage   = "msg"
	ErrServerFull          = "ERR_SERVER_FULL"
	ErrUsernameUnavailable = "ERR_USERNAME_UNAVAILABLE"
	ErrUnknownMessage      = "ERR_UNKNOWN_MESSAGE"
)

// EncodeMessage renders a Message as "<cmd> <version>[ <rest>]".
func EncodeMessage(m Message) string {
	s := m.Cmd + " " + strconv.Itoa(m.Version)
	if m.Rest != "" {
		s += " " + m.Rest
	}
	return s
}

// ParseMessage splits a data packet's payload into its Message parts.
// REST is optional and, when present, may itself contain spaces.
func ParseMessage(payload string) (Message, error) {
	parts := strings.SplitN(payload, " ", 3)
	if len(parts) < 2 {
		return Message{}, ErrMalformed
	}

	v, err := strconv.Atoi(parts[1])
	if err != nil {
		return Message{}, ErrMalformed
	}

	m := Message{Cmd: parts[0], Version: v}
	if len(parts) == 3 {
		m.Rest = parts[2]
	}
	return m, nil
}
