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

// Package udpconn wraps a single net.UDPConn socket shared by many logical
// peers, shaped after nabbar-golib/socket's server/client split (RegisterFuncError,
// RegisterFuncInfo, IsRunning/IsGone, Listen(ctx)/Shutdown(ctx)) but collapsed
// into one type: chat's wire protocol is connectionless and addressed by
// source address, not one net.Conn per remote peer, so there is no per-peer
// libsck.Context to hand a handler: the handler gets the datagram and a
// reply closure bound to its source address instead.
package udpconn

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"

	"github.com/nabbar/chatnet/pkg/netproto"
)

// ConnState mirrors libsck.ConnState's role: a coarse lifecycle signal handed
// to FuncInfo callbacks.
type ConnState uint8

const (
	StateOpen ConnState = iota
	StateClosed
	StateError
)

func (s ConnState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Datagram is one received UDP packet and the address it arrived from.
type Datagram struct {
	Addr *net.UDPAddr
	Data []byte
}

type (
	FuncError func(errs ...error)
	FuncInfo  func(local, remote net.Addr, state ConnState)

	// HandlerFunc processes one inbound datagram. reply sends bytes back to
	// d.Addr over the same socket; it is valid for the lifetime of the call.
	HandlerFunc func(d Datagram, reply func([]byte) error)
)

// Conn is a bound UDP socket that can be listened on and written to
// concurrently. The zero value is not usable; construct with New.
type Conn struct {
	network netproto.Network
	address string

	mu   sync.RWMutex
	sock *net.UDPConn

	running atomic.Bool
	gone    atomic.Bool

	fnErr  FuncError
	fnInfo FuncInfo

	diag hclog.Logger
}

// New resolves address under network and binds a UDP socket immediately,
// so a bad address fails construction rather than the first Listen.
func New(network netproto.Network, address string) (*Conn, error) {
	if address == "" {
		return nil, fmt.Errorf("invalid listen address")
	}

	udpNet := network.String()
	if udpNet == "" || udpNet == netproto.Unknown.String() {
		udpNet = netproto.UDP.String()
	}

	addr, err := net.ResolveUDPAddr(udpNet, address)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", address, err)
	}

	sock, err := net.ListenUDP(udpNet, addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", address, err)
	}

	return &Conn{network: network, address: address, sock: sock}, nil
}

// SetDiagnostics wires an hclog.Logger for low-level socket trace lines (bind,
// read errors, shutdown) distinct from the FuncError/FuncInfo callbacks, which
// callers use for their own application-level logging decisions.
func (c *Conn) SetDiagnostics(l hclog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diag = l
}

func (c *Conn) trace(msg string, args ...interface{}) {
	c.mu.RLock()
	l := c.diag
	c.mu.RUnlock()
	if l != nil {
		l.Trace(msg, args...)
	}
}

// RegisterFuncError installs the callback invoked with any read/write error
// encountered off the caller's goroutine (inside Listen's loop).
func (c *Conn) RegisterFuncError(f FuncError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fnErr = f
}

// RegisterFuncInfo installs the callback invoked on socket lifecycle events.
func (c *Conn) RegisterFuncInfo(f FuncInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fnInfo = f
}

func (c *Conn) reportError(err error) {
	c.mu.RLock()
	fn := c.fnErr
	c.mu.RUnlock()
	if fn != nil && err != nil {
		fn(err)
	}
}

func (c *Conn) reportInfo(remote net.Addr, state ConnState) {
	c.mu.RLock()
	fn := c.fnInfo
	c.mu.RUnlock()
	if fn != nil {
		fn(c.LocalAddr(), remote, state)
	}
}

// IsRunning reports whether Listen is actively reading from the socket.
func (c *Conn) IsRunning() bool {
	return c.running.Load()
}

// IsGone reports whether the underlying socket has been closed.
func (c *Conn) IsGone() bool {
	return c.gone.Load()
}

// LocalAddr returns the bound local address, or nil once closed.
func (c *Conn) LocalAddr() net.Addr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sock == nil {
		return nil
	}
	return c.sock.LocalAddr()
}

// Listen reads datagrams until ctx is cancelled or the socket is shut down,
// handing each to handler on the calling goroutine: callers that need
// concurrent dispatch run their own worker pool from inside handler. A read
// error on a live socket is reported through FuncError and reading goes on.
func (c *Conn) Listen(ctx context.Context, handler HandlerFunc) error {
	c.running.Store(true)
	defer c.running.Store(false)

	go func() {
		<-ctx.Done()
		_ = c.Shutdown(context.Background())
	}()

	buf := make([]byte, 65507)
	for {
		c.mu.RLock()
		sock := c.sock
		c.mu.RUnlock()
		if sock == nil {
			return nil
		}

		n, addr, err := sock.ReadFromUDP(buf)
		if err != nil {
			if c.gone.Load() {
				return nil
			}
			c.reportError(err)
			c.reportInfo(addr, StateError)
			c.trace("udp read error", "error", err)
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		handler(Datagram{Addr: addr, Data: data}, func(payload []byte) error {
			return c.SendTo(addr, payload)
		})
	}
}

// SendTo writes payload to addr over the shared socket.
func (c *Conn) SendTo(addr *net.UDPAddr, payload []byte) error {
	c.mu.RLock()
	sock := c.sock
	c.mu.RUnlock()

	if sock == nil {
		return fmt.Errorf("invalid connection")
	}

	_, err := sock.WriteToUDP(payload, addr)
	if err != nil {
		c.reportError(err)
	}
	return err
}

// Shutdown closes the socket. It is safe to call more than once and safe to
// call concurrently with Listen.
func (c *Conn) Shutdown(_ context.Context) error {
	c.mu.Lock()
	sock := c.sock
	c.sock = nil
	c.mu.Unlock()

	if sock == nil {
		return nil
	}

	c.gone.Store(true)
	err := sock.Close()
	c.reportInfo(nil, StateClosed)
	c.trace("udp socket closed", "address", c.address)
	return err
}
