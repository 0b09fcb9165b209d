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

package reliability

// Receiver tracks, per remote endpoint, the highest in-order sequence
// number accepted. It is not safe for concurrent use: callers confine all
// mutation to a single serialized loop (the server's receive loop).
type Receiver struct {
	lastInOrder map[string]int64
}

// NewReceiver returns an empty Receiver.
func NewReceiver() *Receiver {
	return &Receiver{lastInOrder: make(map[string]int64)}
}

// Seed sets last_in_order for endpoint directly from a start packet's
// sequence number.
func (r *Receiver) Seed(endpoint string, seq uint32) {
	r.lastInOrder[endpoint] = int64(seq)
}

// Forget removes endpoint's receive-sequence state, per an end packet.
func (r *Receiver) Forget(endpoint string) {
	delete(r.lastInOrder, endpoint)
}

// NextAck reports the ack sequence number endpoint is currently owed -
// last_in_order+1: without consuming or altering any state. Useful after a
// start/end packet, where no data-packet Accept call is appropriate but an
// ack must still be sent.
func (r *Receiver) NextAck(endpoint string) uint32 {
	last, ok := r.lastInOrder[endpoint]
	if !ok {
		last = -1
	}
	return uint32(last + 1)
}

// Accept evaluates a data packet with sequence seq arriving from endpoint.
// It returns (dispatch, ackSeq): dispatch is true iff seq is exactly
// last_in_order+1, in which case last_in_order advances to seq. ackSeq is
// always last_in_order+1 after the call: the receiver acks every data
// packet it sees, in order or not, so a lost ack never stalls the sender
// once a later duplicate arrives.
func (r *Receiver) Accept(endpoint string, seq uint32) (dispatch bool, ackSeq uint32) {
	last, ok := r.lastInOrder[endpoint]
	if !ok {
		last = -1
	}

	if int64(seq) == last+1 {
		last = int64(seq)
		r.lastInOrder[endpoint] = last
		dispatch = true
	}

	return dispatch, uint32(last + 1)
}
