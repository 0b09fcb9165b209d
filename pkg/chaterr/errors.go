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

package chaterr

import "strings"

// Error is a CodeError bound to an error message, optionally wrapping one or
// more parent errors.
type Error interface {
	error
	Code() CodeError
	Unwrap() []error
}

type ers struct {
	c CodeError
	p []error
}

func newError(c CodeError, parents ...error) Error {
	e := &ers{c: c}
	for _, p := range parents {
		if p != nil {
			e.p = append(e.p, p)
		}
	}
	return e
}

func (e *ers) Code() CodeError {
	return e.c
}

func (e *ers) Unwrap() []error {
	return e.p
}

func (e *ers) Error() string {
	if len(e.p) == 0 {
		return e.c.Message()
	}

	parts := make([]string, 0, len(e.p)+1)
	parts = append(parts, e.c.Message())
	for _, p := range e.p {
		parts = append(parts, p.Error())
	}
	return strings.Join(parts, ": ")
}

// Is reports whether err carries the same CodeError as e: the taxonomy
// category is what matters, not message text or parent chain.
func (e *ers) Is(err error) bool {
	other, ok := err.(Error)
	if !ok {
		return false
	}
	return e.c == other.Code()
}
