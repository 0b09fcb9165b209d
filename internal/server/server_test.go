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

// White-box behavioral suite: exercises handleDatagram directly against a
// real loopback socket, bypassing Listen, so the end-to-end scenarios can
// be driven without a second process.
package server

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/chatnet/internal/transport/udpconn"
	"github.com/nabbar/chatnet/pkg/chatlog"
	"github.com/nabbar/chatnet/pkg/netproto"
	"github.com/nabbar/chatnet/pkg/wire"
)

func TestServer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "server suite")
}

func newTestServer(maxClients int) *Server {
	s, err := New(Config{Network: netproto.UDP, Address: "127.0.0.1:0", MaxClients: maxClients}, chatlog.New(chatlog.NilLevel, nil))
	Expect(err).NotTo(HaveOccurred())
	return s
}

// newTestServerWithLog is newTestServer but keeps the log output around so
// tests can assert on the literal log-line grammar.
func newTestServerWithLog(maxClients int) (*Server, *bytes.Buffer) {
	var buf bytes.Buffer
	s, err := New(Config{Network: netproto.UDP, Address: "127.0.0.1:0", MaxClients: maxClients}, chatlog.New(chatlog.InfoLevel, &buf))
	Expect(err).NotTo(HaveOccurred())
	return s, &buf
}

func peerAddr(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port}
}

func dataPacket(seq uint32, payload string) []byte {
	p := wire.Packet{Kind: wire.KindData, Seq: seq, Payload: payload}
	raw, err := p.Encode()
	Expect(err).NotTo(HaveOccurred())
	return []byte(raw)
}

// driveDatagram invokes handleDatagram and collects every reply sent back
// to the sender's address: first what went through the reply callback (the
// ack), then whatever the server wrote to addr over its own socket (list
// responses, error replies), read from a socket bound at addr.
func driveDatagram(s *Server, addr *net.UDPAddr, raw []byte) []wire.Packet {
	peer, err := net.ListenUDP("udp", addr)
	Expect(err).NotTo(HaveOccurred())
	defer peer.Close()

	var replies []wire.Packet
	s.handleDatagram(udpconn.Datagram{Addr: addr, Data: raw}, func(b []byte) error {
		pkt, err := wire.Decode(string(b))
		Expect(err).NotTo(HaveOccurred())
		replies = append(replies, pkt)
		return nil
	})

	buf := make([]byte, wire.MaxDatagramSize)
	for {
		_ = peer.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		n, err := peer.Read(buf)
		if err != nil {
			break
		}
		pkt, err := wire.Decode(string(buf[:n]))
		Expect(err).NotTo(HaveOccurred())
		replies = append(replies, pkt)
	}
	return replies
}

var _ = Describe("Server routing", func() {
	var s *Server

	BeforeEach(func() {
		s = newTestServer(10)
	})

	AfterEach(func() {
		_ = s.Shutdown(context.Background())
	})

	It("S1: admits a join and acks it", func() {
		addr := peerAddr(40001)
		replies := driveDatagram(s, addr, dataPacket(0, wire.EncodeMessage(wire.Message{Cmd: wire.CmdJoin, Version: 1, Rest: "client1"})))

		Expect(replies).To(HaveLen(1))
		Expect(replies[0].Kind).To(Equal(wire.KindAck))
		Expect(replies[0].Seq).To(Equal(uint32(1)))

		username, ok := s.registry.Username(addr.String())
		Expect(ok).To(BeTrue())
		Expect(username).To(Equal("client1"))
	})

	It("S1: answers request_users_list and then disconnects cleanly", func() {
		addr := peerAddr(40002)
		driveDatagram(s, addr, dataPacket(0, wire.EncodeMessage(wire.Message{Cmd: wire.CmdJoin, Version: 1, Rest: "client1"})))

		replies := driveDatagram(s, addr, dataPacket(1, wire.EncodeMessage(wire.Message{Cmd: wire.CmdRequestUsersList, Version: 2})))

		var sawList bool
		for _, r := range replies {
			if r.Kind == wire.KindData {
				msg, err := wire.ParseMessage(r.Payload)
				Expect(err).NotTo(HaveOccurred())
				if msg.Cmd == wire.RespUsersList {
					Expect(msg.Rest).To(Equal("client1"))
					sawList = true
				}
			}
		}
		Expect(sawList).To(BeTrue())

		driveDatagram(s, addr, dataPacket(2, wire.EncodeMessage(wire.Message{Cmd: wire.CmdDisconnect, Version: 1, Rest: "client1"})))
		_, ok := s.registry.Username(addr.String())
		Expect(ok).To(BeFalse())
	})

	It("S2: resolves every registered user except the sender for an 'all' broadcast", func() {
		a1, a2, a3 := peerAddr(40010), peerAddr(40011), peerAddr(40012)
		driveDatagram(s, a1, dataPacket(0, wire.EncodeMessage(wire.Message{Cmd: wire.CmdJoin, Version: 1, Rest: "client1"})))
		driveDatagram(s, a2, dataPacket(0, wire.EncodeMessage(wire.Message{Cmd: wire.CmdJoin, Version: 1, Rest: "client2"})))
		driveDatagram(s, a3, dataPacket(0, wire.EncodeMessage(wire.Message{Cmd: wire.CmdJoin, Version: 1, Rest: "client3"})))

		payload := wire.EncodeMessage(wire.Message{Cmd: wire.CmdSendMessage, Version: 4, Rest: "1 all Hello Dear Friends!"})

		var forwardedTo []*net.UDPAddr
		s.handleDatagram(udpconn.Datagram{Addr: a2, Data: dataPacket(1, payload)}, func(b []byte) error {
			return nil
		})

		// The forwarded sends are not captured here; instead confirm that
		// every non-sender recipient resolves to an endpoint in the registry.
		for _, u := range s.registry.OthersExcept(a2.String()) {
			ep, ok := s.registry.Endpoint(u)
			Expect(ok).To(BeTrue())
			addr, err := net.ResolveUDPAddr("udp", ep)
			Expect(err).NotTo(HaveOccurred())
			forwardedTo = append(forwardedTo, addr)
		}
		Expect(forwardedTo).To(HaveLen(2))
	})

	It("S3: an unknown command evicts the sender and elicits ERR_UNKNOWN_MESSAGE", func() {
		addr := peerAddr(40020)
		driveDatagram(s, addr, dataPacket(0, wire.EncodeMessage(wire.Message{Cmd: wire.CmdJoin, Version: 1, Rest: "client2"})))

		replies := driveDatagram(s, addr, dataPacket(1, wire.EncodeMessage(wire.Message{Cmd: "quitt", Version: 1})))

		var sawErr bool
		for _, r := range replies {
			if r.Kind == wire.KindData {
				msg, err := wire.ParseMessage(r.Payload)
				Expect(err).NotTo(HaveOccurred())
				if msg.Cmd == wire.ErrUnknownMessage {
					sawErr = true
				}
			}
		}
		Expect(sawErr).To(BeTrue())

		_, ok := s.registry.Username(addr.String())
		Expect(ok).To(BeFalse())
	})

	It("S4: the 11th join is refused with ERR_SERVER_FULL", func() {
		s = newTestServer(10)
		for i := 0; i < 10; i++ {
			addr := peerAddr(40100 + i)
			driveDatagram(s, addr, dataPacket(0, wire.EncodeMessage(wire.Message{Cmd: wire.CmdJoin, Version: 1, Rest: "user" + strconv.Itoa(i)})))
		}

		addr := peerAddr(40200)
		replies := driveDatagram(s, addr, dataPacket(0, wire.EncodeMessage(wire.Message{Cmd: wire.CmdJoin, Version: 1, Rest: "eleventh"})))

		var sawFull bool
		for _, r := range replies {
			if r.Kind == wire.KindData {
				msg, err := wire.ParseMessage(r.Payload)
				Expect(err).NotTo(HaveOccurred())
				if msg.Cmd == wire.ErrServerFull {
					sawFull = true
				}
			}
		}
		Expect(sawFull).To(BeTrue())
	})

	It("S5: a username collision is refused with ERR_USERNAME_UNAVAILABLE", func() {
		a1, a2 := peerAddr(40300), peerAddr(40301)
		driveDatagram(s, a1, dataPacket(0, wire.EncodeMessage(wire.Message{Cmd: wire.CmdJoin, Version: 1, Rest: "alice"})))

		replies := driveDatagram(s, a2, dataPacket(0, wire.EncodeMessage(wire.Message{Cmd: wire.CmdJoin, Version: 1, Rest: "alice"})))

		var sawTaken bool
		for _, r := range replies {
			if r.Kind == wire.KindData {
				msg, err := wire.ParseMessage(r.Payload)
				Expect(err).NotTo(HaveOccurred())
				if msg.Cmd == wire.ErrUsernameUnavailable {
					sawTaken = true
				}
			}
		}
		Expect(sawTaken).To(BeTrue())
	})

	It("S6: a duplicate in-order retransmission still acks but does not re-dispatch", func() {
		addr := peerAddr(40400)
		driveDatagram(s, addr, dataPacket(0, wire.EncodeMessage(wire.Message{Cmd: wire.CmdJoin, Version: 1, Rest: "client1"})))

		before := s.registry.Count()
		replies := driveDatagram(s, addr, dataPacket(0, wire.EncodeMessage(wire.Message{Cmd: wire.CmdJoin, Version: 1, Rest: "client1-retry"})))
		Expect(s.registry.Count()).To(Equal(before))
		Expect(replies).To(HaveLen(1))
		Expect(replies[0].Kind).To(Equal(wire.KindAck))
		Expect(replies[0].Seq).To(Equal(uint32(1)))
	})
})

var _ = Describe("Server logging", func() {
	It("S1: logs 'join: client1' on a successful join", func() {
		s, buf := newTestServerWithLog(10)
		defer func() { _ = s.Shutdown(context.Background()) }()

		addr := peerAddr(40500)
		driveDatagram(s, addr, dataPacket(0, wire.EncodeMessage(wire.Message{Cmd: wire.CmdJoin, Version: 1, Rest: "client1"})))

		Expect(buf.String()).To(ContainSubstring("join: client1"))
	})

	It("S1: logs 'disconnected: client1' on a clean disconnect", func() {
		s, buf := newTestServerWithLog(10)
		defer func() { _ = s.Shutdown(context.Background()) }()

		addr := peerAddr(40501)
		driveDatagram(s, addr, dataPacket(0, wire.EncodeMessage(wire.Message{Cmd: wire.CmdJoin, Version: 1, Rest: "client1"})))
		driveDatagram(s, addr, dataPacket(1, wire.EncodeMessage(wire.Message{Cmd: wire.CmdDisconnect, Version: 1, Rest: "client1"})))

		Expect(buf.String()).To(ContainSubstring("disconnected: client1"))
	})

	It("S2: logs 'msg: client2 to non-existent user X' when the recipient does not exist", func() {
		s, buf := newTestServerWithLog(10)
		defer func() { _ = s.Shutdown(context.Background()) }()

		addr := peerAddr(40502)
		driveDatagram(s, addr, dataPacket(0, wire.EncodeMessage(wire.Message{Cmd: wire.CmdJoin, Version: 1, Rest: "client2"})))

		payload := wire.EncodeMessage(wire.Message{Cmd: wire.CmdSendMessage, Version: 4, Rest: "1 X hello"})
		driveDatagram(s, addr, dataPacket(1, payload))

		Expect(buf.String()).To(ContainSubstring("msg: client2 to non-existent user X"))
	})

	It("does not panic on a negative recipient count and only acks", func() {
		s, buf := newTestServerWithLog(10)
		defer func() { _ = s.Shutdown(context.Background()) }()

		addr := peerAddr(40503)
		driveDatagram(s, addr, dataPacket(0, wire.EncodeMessage(wire.Message{Cmd: wire.CmdJoin, Version: 1, Rest: "client3"})))

		payload := wire.EncodeMessage(wire.Message{Cmd: wire.CmdSendMessage, Version: 4, Rest: "-1 hello"})

		var replies []wire.Packet
		Expect(func() {
			replies = driveDatagram(s, addr, dataPacket(1, payload))
		}).NotTo(Panic())

		Expect(replies).To(HaveLen(1))
		Expect(replies[0].Kind).To(Equal(wire.KindAck))
		Expect(buf.String()).NotTo(ContainSubstring("msg: client3 ->"))
	})
})
