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

// Package client implements the chat client's command/event loop: reliable
// join/list/msg/disconnect sends, the ack/forwarded-message receive loop,
// and timeout-driven retransmission, built on pkg/reliability and pkg/wire.
package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nabbar/chatnet/internal/transport/udpconn"
	"github.com/nabbar/chatnet/pkg/chaterr"
	"github.com/nabbar/chatnet/pkg/chatlog"
	"github.com/nabbar/chatnet/pkg/netproto"
	"github.com/nabbar/chatnet/pkg/reliability"
	"github.com/nabbar/chatnet/pkg/wire"
)

// retransmitPollInterval is how often the retransmission loop checks the
// pending-send map for expired records; it is independent of
// reliability.RetryTimeout, the age threshold applied on each check.
const retransmitPollInterval = 100 * time.Millisecond

// disconnectGrace bounds how long a departing session waits for its final
// disconnect packet to be acked before the socket closes anyway.
const disconnectGrace = 250 * time.Millisecond

// MessageSink receives every line of output the client would otherwise
// print to stdout (forwarded messages, user lists, disconnect notices),
// letting this package be embedded behind a GUI or test harness.
type MessageSink func(line string)

// Config is the subset of chatconfig.ClientConfig the Client needs.
type Config struct {
	Network  netproto.Network
	Address  string // server "host:port"
	Username string
}

// Client is a single joined session against one chat server.
type Client struct {
	conn       *udpconn.Conn
	serverAddr *net.UDPAddr
	username   string

	sender *reliability.Sender
	active atomic.Bool

	sink MessageSink
	log  *chatlog.Logger
}

// New resolves cfg.Address, binds an ephemeral local UDP socket, and returns
// a Client ready to Run. It does not send the join packet yet.
func New(cfg Config, sink MessageSink, log *chatlog.Logger) (*Client, error) {
	network := cfg.Network
	if network == netproto.Unknown {
		network = netproto.UDP
	}

	udpNet := network.String()
	serverAddr, err := net.ResolveUDPAddr(udpNet, cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("resolve server address %s: %w", cfg.Address, err)
	}

	conn, err := udpconn.New(network, ":0")
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = chatlog.New(chatlog.InfoLevel, nil)
	}
	if sink == nil {
		sink = func(line string) { fmt.Println(line) }
	}
	conn.SetDiagnostics(log.HCLog())

	c := &Client{
		conn:       conn,
		serverAddr: serverAddr,
		username:   cfg.Username,
		sender:     reliability.NewSender(),
		sink:       sink,
		log:        log,
	}
	c.active.Store(true)

	return c, nil
}

// IsActive reports whether the session is still considered live: false
// once the server has evicted the client or MaxRetries has been exhausted.
func (c *Client) IsActive() bool {
	return c.active.Load()
}

// Run joins the server and drives the receive and retransmission loops
// until ctx is cancelled or the session is no longer active. It does not
// read command input: callers own their own input loop and call
// SendChatMessage/RequestUsersList/Disconnect as commands arrive.
//
// Cancelling ctx while the session is still active sends a disconnect and
// waits up to disconnectGrace for its ack before the socket closes, so the
// server frees the registry slot on Ctrl-C, not just on a typed quit.
func (c *Client) Run(ctx context.Context) error {
	if err := c.join(); err != nil {
		return err
	}

	// lctx outlives ctx by the disconnect grace period: the receive loop
	// must stay up long enough to clear the farewell packet's ack.
	lctx, stop := context.WithCancel(context.Background())
	defer stop()

	var grp errgroup.Group

	grp.Go(func() error {
		defer stop()
		return c.conn.Listen(lctx, c.handleDatagram)
	})

	grp.Go(func() error {
		defer stop()
		return c.retransmitLoop(lctx)
	})

	grp.Go(func() error {
		select {
		case <-ctx.Done():
			if c.active.Load() {
				_ = c.Disconnect()
			}
			<-lctx.Done()
		case <-lctx.Done():
		}
		return nil
	})

	return grp.Wait()
}

// Shutdown closes the underlying socket.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.conn.Shutdown(ctx)
}

func (c *Client) sendReliable(msg wire.Message) error {
	payload := wire.EncodeMessage(msg)

	var encodeErr error
	_, raw := c.sender.NextWith(func(seq uint32) string {
		pkt := wire.Packet{Kind: wire.KindData, Seq: seq, Payload: payload}
		s, err := pkt.Encode()
		if err != nil {
			encodeErr = err
			return ""
		}
		return s
	})
	if encodeErr != nil {
		return encodeErr
	}

	return c.conn.SendTo(c.serverAddr, []byte(raw))
}

func (c *Client) join() error {
	return c.sendReliable(wire.Message{Cmd: wire.CmdJoin, Version: 1, Rest: c.username})
}

// SendChatMessage sends `send_message N u1 ... uN TEXT`. The caller passes
// the already-split recipient list; "all" as the sole recipient broadcasts
// to every other registered user. An empty text is allowed: only a missing
// recipient list is a user error.
func (c *Client) SendChatMessage(recipients []string, text string) error {
	if len(recipients) == 0 {
		return chaterr.Application.Error()
	}

	rest := strconv.Itoa(len(recipients)) + " " + strings.Join(recipients, " ") + " " + text
	return c.sendReliable(wire.Message{Cmd: wire.CmdSendMessage, Version: 4, Rest: rest})
}

// RequestUsersList sends `request_users_list` (the client's "list" command).
func (c *Client) RequestUsersList() error {
	return c.sendReliable(wire.Message{Cmd: wire.CmdRequestUsersList, Version: 2})
}

// Disconnect sends `disconnect USERNAME` and marks the session inactive.
// The client does not wait for the server's ack before it stops considering
// itself joined.
func (c *Client) Disconnect() error {
	err := c.sendReliable(wire.Message{Cmd: wire.CmdDisconnect, Version: 1, Rest: c.username})
	c.active.Store(false)
	c.sink("quitting")
	return err
}

const helpMessage = `Available commands:
|  msg <number_of_users> <username1>,<username2>,... <message> - Send a message to users
|  list - List All Active Users
|  help - Display this help page
|  quit - Disconnect and quit the application`

// Help returns the command-loop help text.
func (c *Client) Help() string { return helpMessage }

func (c *Client) handleDatagram(d udpconn.Datagram, _ func([]byte) error) {
	pkt, err := wire.Decode(string(d.Data))
	if err != nil {
		c.log.Warn("dropping malformed or corrupt packet from server", chatlog.Fields{}.Add("error", err.Error()))
		return
	}

	if pkt.Kind == wire.KindAck {
		if pkt.Seq > 0 {
			c.sender.Ack(pkt.Seq - 1)
		}
		return
	}

	if pkt.Kind != wire.KindData {
		return
	}

	msg, err := wire.ParseMessage(pkt.Payload)
	if err != nil {
		c.sink("ERROR: received incorrectly formatted message.")
		return
	}

	if code, reason, disconnected := errorReason(msg.Cmd); disconnected {
		c.active.Store(false)
		c.log.Warn("admission rejected", chatlog.Fields{}.Add("code", code.String()))
		c.sink("disconnected: " + reason)
		return
	}

	if msg.Cmd == wire.RespUsersList {
		c.sink("list: " + strings.ReplaceAll(msg.Rest, ", ", " "))
		return
	}

	c.sink("msg: " + msg.Rest)
}

// errorReason maps a server error command to its user-visible disconnect
// reason, tagged with the error code the rejection falls under.
func errorReason(cmd string) (chaterr.CodeError, string, bool) {
	switch cmd {
	case wire.ErrServerFull:
		return chaterr.AdmissionServerFull, "server full", true
	case wire.ErrUsernameUnavailable:
		return chaterr.AdmissionUsernameTaken, "username not available", true
	case wire.ErrUnknownMessage:
		return chaterr.Protocol, "server received an unknown message", true
	default:
		return chaterr.UnknownError, "", false
	}
}

// drainPending waits up to disconnectGrace for the pending-send map to
// empty. The receive loop is still running, so an ack arriving during the
// wait clears its record the usual way.
func (c *Client) drainPending(ctx context.Context) {
	deadline := time.After(disconnectGrace)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()

	for c.sender.Len() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-tick.C:
		}
	}
}

func (c *Client) retransmitLoop(ctx context.Context) error {
	ticker := time.NewTicker(retransmitPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if !c.active.Load() {
				// The session ended (quit, eviction, or a cancelled context
				// sending the farewell): give any outstanding packet a short
				// grace period to be acked, then let Run close the socket.
				c.drainPending(ctx)
				return nil
			}

			var gaveUp bool
			c.sender.Expired(now, func(seq uint32, raw string) {
				c.sink(fmt.Sprintf("Timeout for packet %d. Retrying...", seq))
				_ = c.conn.SendTo(c.serverAddr, []byte(raw))
			}, func(uint32) {
				gaveUp = true
			})

			if gaveUp {
				c.log.Error("peer unresponsive", chatlog.Fields{}.Add("code", chaterr.Liveness.String()))
				c.sink(chaterr.Liveness.Message() + ". Disconnecting.")
				c.active.Store(false)
				return nil
			}
		}
	}
}
