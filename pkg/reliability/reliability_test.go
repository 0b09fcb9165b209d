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

package reliability_test

import (
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/chatnet/pkg/reliability"
)

func TestReliability(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "reliability suite")
}

var _ = Describe("Receiver", func() {
	var r *reliability.Receiver

	BeforeEach(func() {
		r = reliability.NewReceiver()
	})

	It("dispatches the first packet seen (seq 0) and acks seq 1", func() {
		dispatch, ack := r.Accept("1.2.3.4:5", 0)
		Expect(dispatch).To(BeTrue())
		Expect(ack).To(Equal(uint32(1)))
	})

	It("does not dispatch an out-of-order packet, but still acks the expected seq", func() {
		r.Accept("peer", 0)
		dispatch, ack := r.Accept("peer", 5)
		Expect(dispatch).To(BeFalse())
		Expect(ack).To(Equal(uint32(1)))
	})

	It("does not re-dispatch a duplicate of an already-accepted packet", func() {
		r.Accept("peer", 0)
		dispatch, ack := r.Accept("peer", 0)
		Expect(dispatch).To(BeFalse())
		Expect(ack).To(Equal(uint32(1)))
	})

	It("seeds last_in_order from a start packet", func() {
		r.Seed("peer", 4)
		dispatch, ack := r.Accept("peer", 5)
		Expect(dispatch).To(BeTrue())
		Expect(ack).To(Equal(uint32(6)))
	})

	It("forgets endpoint state on Forget, restarting the sequence at -1", func() {
		r.Accept("peer", 0)
		r.Forget("peer")
		dispatch, ack := r.Accept("peer", 0)
		Expect(dispatch).To(BeTrue())
		Expect(ack).To(Equal(uint32(1)))
	})

	It("reports NextAck without mutating state", func() {
		r.Accept("peer", 0)
		Expect(r.NextAck("peer")).To(Equal(uint32(1)))
		Expect(r.NextAck("peer")).To(Equal(uint32(1)))
		dispatch, ack := r.Accept("peer", 1)
		Expect(dispatch).To(BeTrue())
		Expect(ack).To(Equal(uint32(2)))
	})

	It("keeps independent sequence spaces per endpoint", func() {
		r.Accept("a", 0)
		dispatch, ack := r.Accept("b", 0)
		Expect(dispatch).To(BeTrue())
		Expect(ack).To(Equal(uint32(1)))
	})
})

var _ = Describe("Sender", func() {
	var s *reliability.Sender

	BeforeEach(func() {
		s = reliability.NewSender()
	})

	It("assigns increasing sequence numbers starting at zero", func() {
		Expect(s.Next("p0")).To(Equal(uint32(0)))
		Expect(s.Next("p1")).To(Equal(uint32(1)))
	})

	It("builds raw bytes from the allocated sequence number via NextWith", func() {
		seq, raw := s.NextWith(func(seq uint32) string {
			return fmt.Sprintf("seq=%d", seq)
		})
		Expect(seq).To(Equal(uint32(0)))
		Expect(raw).To(Equal("seq=0"))
		Expect(s.Pending(seq)).To(BeTrue())
	})

	It("clears a pending record once acked", func() {
		seq := s.Next("hello")
		Expect(s.Pending(seq)).To(BeTrue())
		s.Ack(seq)
		Expect(s.Pending(seq)).To(BeFalse())
	})

	It("tolerates an ack for a record already cleared", func() {
		seq := s.Next("hello")
		s.Ack(seq)
		Expect(func() { s.Ack(seq) }).NotTo(Panic())
	})

	It("retransmits a record once it is older than RetryTimeout", func() {
		seq := s.Next("hello")

		var retransmitted []uint32
		s.Expired(time.Now(), func(sq uint32, raw string) { retransmitted = append(retransmitted, sq) }, func(uint32) {})
		Expect(retransmitted).To(BeEmpty())

		future := time.Now().Add(reliability.RetryTimeout + time.Millisecond)
		s.Expired(future, func(sq uint32, raw string) { retransmitted = append(retransmitted, sq) }, func(uint32) {})
		Expect(retransmitted).To(ConsistOf(seq))
	})

	It("declares a record dead after MaxRetries expirations", func() {
		seq := s.Next("hello")

		t := time.Now()
		var dead []uint32
		for i := 0; i < reliability.MaxRetries; i++ {
			t = t.Add(reliability.RetryTimeout + time.Millisecond)
			s.Expired(t, func(uint32, string) {}, func(sq uint32) { dead = append(dead, sq) })
		}
		Expect(dead).To(BeEmpty())

		t = t.Add(reliability.RetryTimeout + time.Millisecond)
		s.Expired(t, func(uint32, string) {}, func(sq uint32) { dead = append(dead, sq) })
		Expect(dead).To(ConsistOf(seq))
	})
})
