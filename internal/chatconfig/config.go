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

// Package chatconfig binds Cobra flags to Viper keys so the same values
// resolve from flags or environment variables, and decodes the merged
// settings into typed Server/Client config structs. No config file is read.
package chatconfig

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nabbar/chatnet/pkg/chatlog"
	"github.com/nabbar/chatnet/pkg/netproto"
)

// ServerConfig is the bound configuration for cmd/chatserver.
type ServerConfig struct {
	Network    netproto.Network `mapstructure:"network"`
	Address    string           `mapstructure:"address"`
	Port       int              `mapstructure:"port"`
	Window     int              `mapstructure:"window"`
	LogLevel   string           `mapstructure:"log-level"`
	MaxClients int              `mapstructure:"max-clients"`
}

// ClientConfig is the bound configuration for cmd/chatclient.
type ClientConfig struct {
	Network  netproto.Network `mapstructure:"network"`
	Address  string           `mapstructure:"address"`
	Port     int              `mapstructure:"port"`
	Username string           `mapstructure:"user"`
	Window   int              `mapstructure:"window"`
	LogLevel string           `mapstructure:"log-level"`
}

// Level resolves the configured log level string into a chatlog.Level.
func (c ServerConfig) Level() chatlog.Level { return chatlog.ParseLevel(c.LogLevel) }

// Level resolves the configured log level string into a chatlog.Level.
func (c ClientConfig) Level() chatlog.Level { return chatlog.ParseLevel(c.LogLevel) }

// Listen formats the server's bind address as host:port.
func (c ServerConfig) Listen() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

// Dial formats the server address the client should send to.
func (c ClientConfig) Dial() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

const (
	defaultAddress    = "localhost"
	defaultPort       = 15000
	defaultMaxClients = 10
	defaultLogLevel   = "info"
	defaultWindow     = 1
)

// BindServerFlags declares the server's CLI surface on cmd and binds every
// flag to v, so environment variables and flags both resolve through Viper.
func BindServerFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.Flags()
	flags.StringP("address", "a", defaultAddress, "address to bind the UDP socket to")
	flags.IntP("port", "p", defaultPort, "UDP port to bind")
	flags.IntP("window", "w", defaultWindow, "send window size (accepted for compatibility, unused by stop-and-wait)")
	flags.String("log-level", defaultLogLevel, "log level: debug, info, warn, error, nil")
	flags.Int("max-clients", defaultMaxClients, "maximum number of simultaneously registered users")

	for _, name := range []string{"address", "port", "window", "log-level", "max-clients"} {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			return err
		}
	}

	v.SetDefault("network", netproto.UDP.String())
	v.SetEnvPrefix("CHATSERVER")
	v.AutomaticEnv()
	return nil
}

// BindClientFlags declares the client's CLI surface on cmd and binds every
// flag to v.
func BindClientFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.Flags()
	flags.StringP("user", "u", "", "username to join the chat as (required)")
	flags.StringP("address", "a", defaultAddress, "server address")
	flags.IntP("port", "p", defaultPort, "server UDP port")
	flags.IntP("window", "w", defaultWindow, "send window size (accepted for compatibility, unused by stop-and-wait)")
	flags.String("log-level", defaultLogLevel, "log level: debug, info, warn, error, nil")

	for _, name := range []string{"user", "address", "port", "window", "log-level"} {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			return err
		}
	}

	v.SetDefault("network", netproto.UDP.String())
	v.SetEnvPrefix("CHATCLIENT")
	v.AutomaticEnv()
	return nil
}

// decoderConfig returns the mapstructure options shared by both Load calls,
// wiring in netproto's Viper decode hook so the "network" key unmarshals
// straight into a netproto.Network.
func decoderConfig(dst interface{}) *mapstructure.DecoderConfig {
	return &mapstructure.DecoderConfig{
		DecodeHook:       netproto.ViperDecoderHook(),
		WeaklyTypedInput: true,
		Result:           dst,
	}
}

// LoadServer unmarshals v into a ServerConfig.
func LoadServer(v *viper.Viper) (ServerConfig, error) {
	var cfg ServerConfig
	dec, err := mapstructure.NewDecoder(decoderConfig(&cfg))
	if err != nil {
		return cfg, err
	}
	if err = dec.Decode(v.AllSettings()); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadClient unmarshals v into a ClientConfig.
func LoadClient(v *viper.Viper) (ClientConfig, error) {
	var cfg ClientConfig
	dec, err := mapstructure.NewDecoder(decoderConfig(&cfg))
	if err != nil {
		return cfg, err
	}
	if err = dec.Decode(v.AllSettings()); err != nil {
		return cfg, err
	}
	return cfg, nil
}
