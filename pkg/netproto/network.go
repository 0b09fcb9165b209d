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

// Package netproto is a string-backed transport-protocol enum, shaped after
// nabbar-golib/network/protocol. This system only ever dials/listens on UDP,
// but the config layer is typed against the enum rather than a bare string
// so a future transport has somewhere to register.
package netproto

import "strings"

// Network identifies a network transport by name, as accepted by net.Dial /
// net.ListenPacket.
type Network uint8

const (
	Unknown Network = iota
	UDP
	UDP4
	UDP6
)

// String renders the canonical lowercase name net.Dial expects.
func (n Network) String() string {
	switch n {
	case UDP:
		return "udp"
	case UDP4:
		return "udp4"
	case UDP6:
		return "udp6"
	default:
		return "unknown"
	}
}

// Parse resolves a case-insensitive network name to a Network. An
// unrecognized name resolves to Unknown rather than erroring.
func Parse(s string) Network {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "udp":
		return UDP
	case "udp4":
		return UDP4
	case "udp6":
		return UDP6
	default:
		return Unknown
	}
}

// MarshalText implements encoding.TextMarshaler.
func (n Network) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Network) UnmarshalText(text []byte) error {
	*n = Parse(string(text))
	return nil
}
