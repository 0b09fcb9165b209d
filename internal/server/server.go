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

// Package server implements the chat registry and routing state machine:
// join/list/send_message/disconnect handling over the reliable wire
// protocol, run from a single serialized receive loop.
package server

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nabbar/chatnet/internal/transport/udpconn"
	"github.com/nabbar/chatnet/pkg/chaterr"
	"github.com/nabbar/chatnet/pkg/chatlog"
	"github.com/nabbar/chatnet/pkg/netproto"
	"github.com/nabbar/chatnet/pkg/reliability"
	"github.com/nabbar/chatnet/pkg/wire"
)

// Server owns the registry, the receive-sequence tracker, and the bound UDP
// socket. All of its state is mutated only from handleDatagram, which
// udpconn.Conn.Listen calls serially, so no locking beyond that confinement
// is needed.
type Server struct {
	conn     *udpconn.Conn
	registry *Registry
	recv     *reliability.Receiver
	log      *chatlog.Logger
}

// Config is the subset of chatconfig.ServerConfig the Server needs; kept
// separate so this package doesn't import cmd-facing config types.
type Config struct {
	Network    netproto.Network
	Address    string
	MaxClients int
}

// New binds a UDP socket at cfg.Address and returns a ready Server.
func New(cfg Config, log *chatlog.Logger) (*Server, error) {
	conn, err := udpconn.New(cfg.Network, cfg.Address)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = chatlog.New(chatlog.InfoLevel, nil)
	}
	conn.SetDiagnostics(log.HCLog())

	s := &Server{
		conn:     conn,
		registry: NewRegistry(cfg.MaxClients),
		recv:     reliability.NewReceiver(),
		log:      log,
	}

	conn.RegisterFuncError(func(errs ...error) {
		for _, e := range errs {
			if e != nil {
				s.log.Warn("transport error", chatlog.Fields{}.Add("error", e.Error()))
			}
		}
	})

	return s, nil
}

// Run listens until ctx is cancelled, dispatching every datagram through
// handleDatagram.
func (s *Server) Run(ctx context.Context) error {
	grp, gctx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		return s.conn.Listen(gctx, s.handleDatagram)
	})

	return grp.Wait()
}

// Shutdown closes the bound socket.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.conn.Shutdown(ctx)
}

// handleDatagram runs one datagram through the full receive pipeline:
// parse, checksum verify, sequence check, command dispatch, ack emit.
func (s *Server) handleDatagram(d udpconn.Datagram, reply func([]byte) error) {
	endpoint := d.Addr.String()

	pkt, err := wire.Decode(string(d.Data))
	if err != nil {
		s.log.Warn("dropping packet", chatlog.Fields{}.Add("peer", endpoint).Add("code", framingCode(err).String()).Add("error", err.Error()))
		return
	}

	switch pkt.Kind {
	case wire.KindStart:
		s.recv.Seed(endpoint, pkt.Seq)
		s.ackFor(endpoint, reply)
		return

	case wire.KindEnd:
		s.recv.Forget(endpoint)
		return

	case wire.KindData:
		dispatch, _ := s.recv.Accept(endpoint, pkt.Seq)
		if dispatch {
			s.dispatch(endpoint, d.Addr, pkt.Payload)
		} else {
			s.log.Warn("out-of-order packet, not dispatched", chatlog.Fields{}.Add("peer", endpoint).Add("code", chaterr.Sequence.String()).Add("seq", pkt.Seq))
		}
		s.ackFor(endpoint, reply)

	default:
		s.log.Warn("ignoring packet of unexpected kind", chatlog.Fields{}.Add("kind", string(pkt.Kind)))
	}
}

// framingCode classifies a wire.Decode failure: a checksum mismatch is an
// Integrity error, anything else returned by Decode is a Framing error.
func framingCode(err error) chaterr.CodeError {
	if errors.Is(err, wire.ErrChecksumMismatch) {
		return chaterr.Integrity
	}
	return chaterr.Framing
}

// ackFor sends the cumulative ack for endpoint's current receive state.
func (s *Server) ackFor(endpoint string, reply func([]byte) error) {
	ack := wire.Packet{Kind: wire.KindAck, Seq: s.recv.NextAck(endpoint)}
	raw, err := ack.Encode()
	if err != nil {
		return
	}
	_ = reply([]byte(raw))
}

func (s *Server) dispatch(endpoint string, addr *net.UDPAddr, payload string) {
	msg, err := wire.ParseMessage(payload)
	if err != nil {
		s.errUnknownMessage(endpoint, addr)
		return
	}

	switch msg.Cmd {
	case wire.CmdJoin:
		s.handleJoin(endpoint, addr, msg)
	case wire.CmdRequestUsersList:
		s.handleList(endpoint, addr)
	case wire.CmdSendMessage:
		s.handleSendMessage(endpoint, addr, msg)
	case wire.CmdDisconnect:
		s.handleDisconnect(endpoint, msg)
	default:
		s.errUnknownMessage(endpoint, addr)
	}
}

func (s *Server) handleJoin(endpoint string, addr *net.UDPAddr, msg wire.Message) {
	username := msg.Rest

	switch s.registry.Join(endpoint, username) {
	case JoinServerFull:
		s.log.Warn("join refused", chatlog.Fields{}.Add("user", username).Add("code", chaterr.AdmissionServerFull.String()))
		s.sendMessage(addr, wire.Message{Cmd: wire.ErrServerFull, Version: 2})
	case JoinUsernameTaken:
		s.log.Warn("join refused", chatlog.Fields{}.Add("user", username).Add("code", chaterr.AdmissionUsernameTaken.String()))
		s.sendMessage(addr, wire.Message{Cmd: wire.ErrUsernameUnavailable, Version: 2})
	case JoinOK:
		s.log.Info("join: "+username, nil)
	}
}

func (s *Server) handleList(endpoint string, addr *net.UDPAddr) {
	username, ok := s.registry.Username(endpoint)
	if !ok {
		s.log.Warn("request_users_list from unregistered endpoint", chatlog.Fields{}.Add("peer", endpoint))
		return
	}

	list := strings.Join(s.registry.Users(), ", ")
	s.sendMessage(addr, wire.Message{Cmd: wire.RespUsersList, Version: 3, Rest: list})
	s.log.Info("request_users_list", chatlog.Fields{}.Add("user", username))
}

func (s *Server) handleSendMessage(endpoint string, addr *net.UDPAddr, msg wire.Message) {
	parts := strings.SplitN(msg.Rest, " ", 2)
	if len(parts) < 1 {
		return
	}

	// A negative count must be rejected here, before it reaches
	// fields[:numRecipients] below.
	numRecipients, err := strconv.Atoi(parts[0])
	if err != nil || numRecipients < 0 {
		return
	}

	rest := ""
	if len(parts) == 2 {
		rest = parts[1]
	}

	fields := strings.SplitN(rest, " ", numRecipients+1)
	if len(fields) < numRecipients {
		return
	}

	recipients := fields[:numRecipients]
	text := ""
	if len(fields) > numRecipients {
		text = fields[numRecipients]
	}

	sender, _ := s.registry.Username(endpoint)
	if sender == "" {
		sender = "Unknown"
	}

	forwarded := wire.Message{Cmd: wire.RespForwardedMessage, Version: 4, Rest: sender + ": " + text}

	if len(recipients) == 1 && recipients[0] == "all" {
		s.log.Info("msg: "+sender+" -> all", nil)
		for _, user := range s.registry.OthersExcept(endpoint) {
			s.forwardTo(sender, user, forwarded)
		}
		return
	}

	s.log.Info("msg: "+sender+" -> "+strings.Join(recipients, ", "), nil)
	for _, user := range recipients {
		s.forwardTo(sender, user, forwarded)
	}
}

func (s *Server) forwardTo(sender, username string, msg wire.Message) {
	endpoint, ok := s.registry.Endpoint(username)
	if !ok {
		s.log.Warn("msg: "+sender+" to non-existent user "+username, nil)
		return
	}

	addr, err := net.ResolveUDPAddr("udp", endpoint)
	if err != nil {
		return
	}
	s.sendMessage(addr, msg)
}

func (s *Server) handleDisconnect(endpoint string, msg wire.Message) {
	username, ok := s.registry.Remove(endpoint)
	if ok {
		s.log.Info("disconnected: "+username, nil)
	} else {
		s.log.Warn("disconnect attempt by unregistered or already-disconnected user", chatlog.Fields{}.Add("user", msg.Rest))
	}
}

func (s *Server) errUnknownMessage(endpoint string, addr *net.UDPAddr) {
	s.sendMessage(addr, wire.Message{Cmd: wire.ErrUnknownMessage, Version: 2})
	if _, ok := s.registry.Remove(endpoint); ok {
		s.log.Info("disconnected: server received an unknown message", chatlog.Fields{}.Add("code", chaterr.Protocol.String()))
	}
}

// sendMessage wraps msg in a seq-0 data packet and writes it to addr. Every
// server-initiated push (join errors, list responses, forwarded messages)
// carries sequence 0 and is never retransmitted; a lost reply is recovered
// by the client retrying its own request.
func (s *Server) sendMessage(addr *net.UDPAddr, msg wire.Message) {
	pkt := wire.Packet{Kind: wire.KindData, Seq: 0, Payload: wire.EncodeMessage(msg)}
	raw, err := pkt.Encode()
	if err != nil {
		s.log.Error("failed to encode outbound packet", chatlog.Fields{}.Add("error", err.Error()))
		return
	}
	if err = s.conn.SendTo(addr, []byte(raw)); err != nil {
		s.log.Warn("failed to deliver packet", chatlog.Fields{}.Add("peer", addr.String()).Add("error", err.Error()))
	}
}
