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
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/nabbar/chatnet/internal/chatconfig"
	"github.com/nabbar/chatnet/internal/client"
	"github.com/nabbar/chatnet/pkg/chaterr"
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
		Use:   "chatclient",
		Short: "Reliable UDP group-chat client",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := chatconfig.LoadClient(v)
			if err != nil {
				return err
			}

			if cfg.Username == "" {
				fmt.Fprintln(os.Stderr, "Missing Username.")
				_ = cmd.Usage()
				os.Exit(1)
			}

			log := chatlog.New(cfg.Level(), os.Stderr)

			cl, err := client.New(client.Config{
				Network:  cfg.Network,
				Address:  cfg.Dial(),
				Username: cfg.Username,
			}, colorSink, log)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			grp, gctx := errgroup.WithContext(ctx)

			// Either loop ending (quit, eviction, retry exhaustion, stdin
			// EOF) takes the other down with it via the shared context.
			grp.Go(func() error {
				defer cancel()
				return cl.Run(gctx)
			})

			grp.Go(func() error {
				defer cancel()
				runCommandLoop(gctx, cl)
				return nil
			})

			err = grp.Wait()
			_ = cl.Shutdown(context.Background())
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	if err := chatconfig.BindClientFlags(cmd, v); err != nil {
		panic(err)
	}

	return cmd
}

// colorSink renders client output on a color-capable terminal: forwarded
// messages and directory listings in cyan, disconnect/error lines in red.
func colorSink(line string) {
	switch {
	case strings.HasPrefix(line, "disconnected:"), strings.HasPrefix(line, "ERROR:"), strings.HasPrefix(line, "server not responding"):
		color.Red(line)
	case strings.HasPrefix(line, "msg:"), strings.HasPrefix(line, "list:"):
		color.Cyan(line)
	default:
		fmt.Println(line)
	}
}

// runCommandLoop reads line-oriented commands from stdin until ctx is
// cancelled or the user types quit.
func runCommandLoop(ctx context.Context, cl *client.Client) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !cl.IsActive() {
				return
			}
			handleCommand(cl, line)
		}
	}
}

func handleCommand(cl *client.Client, line string) {
	switch {
	case strings.EqualFold(line, "quit"):
		_ = cl.Disconnect()
	case strings.HasPrefix(line, "msg"):
		if err := dispatchMsg(cl, line); err != nil {
			colorSink(chaterr.Application.Message())
		}
	case strings.EqualFold(line, "list"):
		_ = cl.RequestUsersList()
	case strings.EqualFold(line, "help"):
		colorSink(cl.Help())
	default:
		colorSink(chaterr.Application.Message())
	}
}

// dispatchMsg parses "msg N u1,u2,...,uN text with spaces" and re-serializes
// the comma-separated recipient list into the space-separated wire form. N
// must be an integer; the count sent on the wire is the length of the list.
func dispatchMsg(cl *client.Client, line string) error {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return chaterr.Application.Error()
	}

	if _, err := strconv.Atoi(parts[1]); err != nil {
		return chaterr.Application.Error()
	}

	rest := strings.SplitN(parts[2], " ", 2)
	if len(rest) != 2 {
		return chaterr.Application.Error()
	}

	recipients := strings.Split(rest[0], ",")
	return cl.SendChatMessage(recipients, rest[1])
}
