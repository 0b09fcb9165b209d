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

// Package reliability implements the stop-and-wait sender/receiver halves
// shared by the server and the client: per-endpoint sequence bookkeeping,
// a mutex-guarded pending-send map, and timeout-driven retransmission.
package reliability

import (
	"sync"
	"time"
)

// Default tuning: 500ms retry interval, 5 retries before the sender
// declares the peer unresponsive.
const (
	RetryTimeout = 500 * time.Millisecond
	MaxRetries   = 5
)

// PendingRecord is the client-side bookkeeping for one unacknowledged
// outbound data packet.
type PendingRecord struct {
	Raw      string
	SentAt   time.Time
	Attempts int
}

// Sender holds at most one outstanding unacknowledged data packet per
// sequence number; it never reorders and never mints a new sequence number
// on retransmit. A Sender is safe for concurrent use: the send-sequence
// counter is advanced only by the caller of Next (the single command/input
// loop), but Ack/Pending/Expired run from other goroutines and share
// the same mutex.
type Sender struct {
	mu      sync.Mutex
	nextSeq uint32
	pending map[uint32]*PendingRecord
}

// NewSender returns an empty Sender starting its sequence space at zero.
func NewSender() *Sender {
	return &Sender{pending: make(map[uint32]*PendingRecord)}
}

// Next allocates the next sequence number and files a pending-send record
// for raw, the packet's serialized bytes. Call this once per reliable send.
func (s *Sender) Next(raw string) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.nextSeq
	s.nextSeq++
	s.pending[seq] = &PendingRecord{Raw: raw, SentAt: time.Now()}
	return seq
}

// NextWith allocates the next sequence number and builds its raw bytes via
// build(seq), for callers whose serialized packet embeds its own sequence
// number and so cannot be produced before the number is known.
func (s *Sender) NextWith(build func(seq uint32) string) (seq uint32, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq = s.nextSeq
	s.nextSeq++
	raw = build(seq)
	s.pending[seq] = &PendingRecord{Raw: raw, SentAt: time.Now()}
	return seq, raw
}

// Ack clears the pending record for seq. Acks are cumulative in semantics
// but delivered per-packet; the caller passes ackSeq-1, the sequence number
// the ack actually confirms. A duplicate or late ack for an already-cleared
// seq is a no-op.
func (s *Sender) Ack(seq uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, seq)
}

// Pending returns true while a sequence number has not yet been
// acknowledged.
func (s *Sender) Pending(seq uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[seq]
	return ok
}

// Len reports how many packets are currently unacknowledged.
func (s *Sender) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Expired walks the pending map and, for every record whose last send is
// older than RetryTimeout, invokes retransmit with its raw bytes and bumps
// its attempt counter and timestamp. If a record's attempts reach
// MaxRetries it is reported to dead instead of being retransmitted again.
// The record stays in the map with its timestamp unchanged, so every later
// call reports it to dead again until it is acked.
//
// retransmit and dead are invoked while the mutex is held, so they must not
// call back into the Sender.
func (s *Sender) Expired(now time.Time, retransmit func(seq uint32, raw string), dead func(seq uint32)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for seq, rec := range s.pending {
		if now.Sub(rec.SentAt) < RetryTimeout {
			continue
		}

		if rec.Attempts >= MaxRetries {
			dead(seq)
			continue
		}

		rec.Attempts++
		rec.SentAt = now
		retransmit(seq, rec.Raw)
	}
}
