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
	"log"

	"github.com/hashicorp/go-hclog"
	"github.com/sirupsen/logrus"
)

// hcBridge adapts a Logger to hclog.Logger. No named-logger hierarchy or
// implied-args bookkeeping: the transport layer that consumes this only
// ever logs flat trace/debug lines for datagram lifecycle events.
type hcBridge struct {
	l *Logger
}

// HCLog exposes g as an hclog.Logger, for components (the UDP transport
// layer) that expect that interface rather than this package's own.
func (g *Logger) HCLog() hclog.Logger {
	return &hcBridge{l: g}
}

func (h *hcBridge) Log(level hclog.Level, msg string, args ...interface{}) {
	switch level {
	case hclog.Trace, hclog.Debug:
		h.Debug(msg, args...)
	case hclog.Info:
		h.Info(msg, args...)
	case hclog.Warn:
		h.Warn(msg, args...)
	case hclog.Error:
		h.Error(msg, args...)
	}
}

func argFields(args []interface{}) Fields {
	f := Fields{}
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		f = f.Add(key, args[i+1])
	}
	return f
}

func (h *hcBridge) Trace(msg string, args ...interface{}) { h.l.Debug(msg, argFields(args)) }
func (h *hcBridge) Debug(msg string, args ...interface{}) { h.l.Debug(msg, argFields(args)) }
func (h *hcBridge) Info(msg string, args ...interface{})  { h.l.Info(msg, argFields(args)) }
func (h *hcBridge) Warn(msg string, args ...interface{})  { h.l.Warn(msg, argFields(args)) }
func (h *hcBridge) Error(msg string, args ...interface{}) { h.l.Error(msg, argFields(args)) }

func (h *hcBridge) IsTrace() bool { return h.l.l.IsLevelEnabled(logrus.DebugLevel) }
func (h *hcBridge) IsDebug() bool { return h.l.l.IsLevelEnabled(logrus.DebugLevel) }
func (h *hcBridge) IsInfo() bool  { return h.l.l.IsLevelEnabled(logrus.InfoLevel) }
func (h *hcBridge) IsWarn() bool  { return h.l.l.IsLevelEnabled(logrus.WarnLevel) }
func (h *hcBridge) IsError() bool { return h.l.l.IsLevelEnabled(logrus.ErrorLevel) }

func (h *hcBridge) ImpliedArgs() []interface{} { return nil }
func (h *hcBridge) With(args ...interface{}) hclog.Logger {
	return h
}
func (h *hcBridge) Name() string { return "chatnet" }

func (h *hcBridge) Named(name string) hclog.Logger { return h }

func (h *hcBridge) ResetNamed(name string) hclog.Logger { return h }

func (h *hcBridge) SetLevel(level hclog.Level) {
	switch level {
	case hclog.Off, hclog.NoLevel:
		h.l.SetLevel(NilLevel)
	case hclog.Trace, hclog.Debug:
		h.l.SetLevel(DebugLevel)
	case hclog.Info:
		h.l.SetLevel(InfoLevel)
	case hclog.Warn:
		h.l.SetLevel(WarnLevel)
	case hclog.Error:
		h.l.SetLevel(ErrorLevel)
	}
}

func (h *hcBridge) GetLevel() hclog.Level { return hclog.Info }

func (h *hcBridge) StandardLogger(opts *hclog.StandardLoggerOptions) *log.Logger {
	return log.New(h.l.l.Writer(), "", 0)
}

func (h *hcBridge) StandardWriter(opts *hclog.StandardLoggerOptions) io.Writer {
	return h.l.l.Writer()
}
