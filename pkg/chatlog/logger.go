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

package chatlog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the handle every component in the chat core logs through.
type Logger struct {
	l *logrus.Logger
}

// New builds a Logger writing to w at the given level. A nil w defaults to
// os.Stderr.
func New(lvl Level, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}

	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl.logrus())
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return &Logger{l: l}
}

func (g *Logger) entry(f Fields) *logrus.Entry {
	if len(f) == 0 {
		return logrus.NewEntry(g.l)
	}
	return g.l.WithFields(f.logrus())
}

func (g *Logger) Debug(msg string, f Fields) { g.entry(f).Debug(msg) }
func (g *Logger) Info(msg string, f Fields)  { g.entry(f).Info(msg) }
func (g *Logger) Warn(msg string, f Fields)  { g.entry(f).Warn(msg) }
func (g *Logger) Error(msg string, f Fields) { g.entry(f).Error(msg) }

// SetLevel changes the active logging threshold at runtime.
func (g *Logger) SetLevel(lvl Level) {
	g.l.SetLevel(lvl.logrus())
}
