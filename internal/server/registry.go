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

package server

import "sort"

// JoinResult reports the outcome of a join attempt.
type JoinResult int

const (
	JoinOK JoinResult = iota
	JoinServerFull
	JoinUsernameTaken
)

// Registry tracks the endpoint -> username mapping for admitted clients. It
// is not safe for concurrent use: the server confines all mutation to its
// single receive loop.
type Registry struct {
	maxClients int
	clients    map[string]string // endpoint -> username
}

// NewRegistry returns an empty Registry bounded at maxClients.
func NewRegistry(maxClients int) *Registry {
	return &Registry{maxClients: maxClients, clients: make(map[string]string)}
}

// Join admits endpoint under username, enforcing the population cap and
// username uniqueness in that order.
func (r *Registry) Join(endpoint, username string) JoinResult {
	if len(r.clients) >= r.maxClients {
		return JoinServerFull
	}

	for _, u := range r.clients {
		if u == username {
			return JoinUsernameTaken
		}
	}

	r.clients[endpoint] = username
	return JoinOK
}

// Remove drops endpoint's registration, returning its username and whether
// it was registered at all.
func (r *Registry) Remove(endpoint string) (string, bool) {
	username, ok := r.clients[endpoint]
	if ok {
		delete(r.clients, endpoint)
	}
	return username, ok
}

// Username looks up the registered username for endpoint.
func (r *Registry) Username(endpoint string) (string, bool) {
	u, ok := r.clients[endpoint]
	return u, ok
}

// Endpoint resolves username back to its registered endpoint by scanning
// the forward map. The population is bounded by maxClients, so a scan per
// send beats keeping a second map in sync.
func (r *Registry) Endpoint(username string) (string, bool) {
	for endpoint, u := range r.clients {
		if u == username {
			return endpoint, true
		}
	}
	return "", false
}

// Users returns every registered username, sorted A-Z.
func (r *Registry) Users() []string {
	out := make([]string, 0, len(r.clients))
	for _, u := range r.clients {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// OthersExcept returns every registered username except the one at
// endpoint, for the broadcast-to-"all" recipient list.
func (r *Registry) OthersExcept(endpoint string) []string {
	out := make([]string, 0, len(r.clients))
	for e, u := range r.clients {
		if e != endpoint {
			out = append(out, u)
		}
	}
	return out
}

// Count reports how many clients are currently registered.
func (r *Registry) Count() int {
	return len(r.clients)
}
