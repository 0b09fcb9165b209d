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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nabbar/chatnet/internal/chatconfig"
	"github.com/nabbar/chatnet/internal/server"
	"github.com/nabbar/chatnet/pkg/chatlog"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "chatserver",
		Short: "Reliable UDP group-chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := chatconfig.LoadServer(v)
			if err != nil {
				return err
			}

			log := chatlog.New(cfg.Level(), os.Stderr)

			srv, err := server.New(server.Config{
				Network:    cfg.Network,
				Address:    cfg.Listen(),
				MaxClients: cfg.MaxClients,
			}, log)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.Info("starting listening socket", chatlog.Fields{}.Add("address", cfg.Listen()))

			err = srv.Run(ctx)
			_ = srv.Shutdown(context.Background())
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	if err := chatconfig.BindServerFlags(cmd, v); err != nil {
		panic(err)
	}

	return cmd
}
