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

package wire_test

import (
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/chatnet/pkg/wire"
)

func TestWire(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "wire suite")
}

var _ = Describe("Packet framing", func() {
	Describe("round trip", func() {
		It("encodes and decodes a data packet unchanged", func() {
			p := wire.Packet{Kind: wire.KindData, Seq: 7, Payload: "join 1 alice"}
			raw, err := p.Encode()
			Expect(err).NotTo(HaveOccurred())

			got, err := wire.Decode(raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(p))
		})

		It("tolerates pipes embedded in the payload", func() {
			p := wire.Packet{Kind: wire.KindData, Seq: 0, Payload: "msg 4 alice: a|b|c"}
			raw, err := p.Encode()
			Expect(err).NotTo(HaveOccurred())

			got, err := wire.Decode(raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Payload).To(Equal(p.Payload))
		})
	})

	Describe("checksum discipline", func() {
		It("computes the digest over kind|seq|payload| including the trailing pipe", func() {
			raw, err := wire.Packet{Kind: wire.KindAck, Seq: 3}.Encode()
			Expect(err).NotTo(HaveOccurred())

			last := strings.LastIndexByte(raw, '|')
			Expect(wire.Checksum([]byte(raw[:last+1]))).To(Equal(raw[last+1:]))
		})

		It("rejects a tampered payload", func() {
			raw, _ := wire.Packet{Kind: wire.KindData, Seq: 1, Payload: "list"}.Encode()
			tampered := strings.Replace(raw, "list", "lisT", 1)

			_, err := wire.Decode(tampered)
			Expect(err).To(MatchError(wire.ErrChecksumMismatch))
		})
	})

	Describe("malformed input", func() {
		It("rejects a packet with no pipes at all", func() {
			_, err := wire.Decode("garbage")
			Expect(err).To(MatchError(wire.ErrMalformed))
		})

		It("rejects a non-integer sequence number", func() {
			body := "data|abc|hi|"
			raw := body + wire.Checksum([]byte(body))
			_, err := wire.Decode(raw)
			Expect(err).To(MatchError(wire.ErrMalformed))
		})
	})

	Describe("size discipline", func() {
		It("refuses to encode a packet over the datagram ceiling", func() {
			huge := strings.Repeat("x", wire.MaxDatagramSize)
			_, err := wire.Packet{Kind: wire.KindData, Seq: 0, Payload: huge}.Encode()
			Expect(err).To(MatchError(wire.ErrTooLarge))
		})
	})
})
