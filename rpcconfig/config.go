// Package rpcconfig provides a reusable viper-backed loader for erebus-rpc
// transport configuration: a single struct with mapstructure tags, loaded
// via viper and overridable from the environment.
package rpcconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// TLSMode selects the transport's TLS posture.
type TLSMode string

const (
	TLSOff TLSMode = "off"
	TLSOn  TLSMode = "on"
)

// Keepalive shapes failure semantics under idle channels. Durations are
// stored as duration strings (e.g. "30s") rather than time.Duration so the
// struct decodes cleanly from both YAML and environment variables without a
// custom mapstructure hook.
type Keepalive struct {
	Time                string `mapstructure:"time" json:"time"`
	Timeout             string `mapstructure:"timeout" json:"timeout"`
	PermitWithoutCalls  bool   `mapstructure:"permit_without_calls" json:"permit_without_calls"`
	MinRecvPingInterval string `mapstructure:"min_recv_ping_interval" json:"min_recv_ping_interval"`
	MaxPingStrikes      int    `mapstructure:"max_ping_strikes" json:"max_ping_strikes"`
}

// Durations parses the keepalive's string fields, defaulting any unset or
// unparsable value to zero.
func (k Keepalive) Durations() (t, timeout, minRecvPingInterval time.Duration) {
	t, _ = time.ParseDuration(k.Time)
	timeout, _ = time.ParseDuration(k.Timeout)
	minRecvPingInterval, _ = time.ParseDuration(k.MinRecvPingInterval)
	return
}

// Config is the unified transport configuration for either an erebus-rpc
// server or client process.
type Config struct {
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`

	TLS struct {
		Mode              TLSMode `mapstructure:"mode" json:"mode"`
		RootCertificates  string  `mapstructure:"root_certificates" json:"root_certificates"`
		Certificate       string  `mapstructure:"certificate" json:"certificate"`
		PrivateKey        string  `mapstructure:"private_key" json:"private_key"`
		RequireClientCert bool    `mapstructure:"require_client_cert" json:"require_client_cert"`
	} `mapstructure:"tls" json:"tls"`

	ServerKeepalive Keepalive `mapstructure:"server_keepalive" json:"server_keepalive"`
	ClientKeepalive Keepalive `mapstructure:"client_keepalive" json:"client_keepalive"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// Default returns the baseline configuration used when no file or
// environment override is present.
func Default() Config {
	var c Config
	c.Endpoint = "127.0.0.1:8443"
	c.TLS.Mode = TLSOff
	c.ServerKeepalive = Keepalive{Time: "30s", Timeout: "60s", PermitWithoutCalls: true, MinRecvPingInterval: "5s", MaxPingStrikes: 5}
	c.ClientKeepalive = Keepalive{Time: "20s", Timeout: "10s", PermitWithoutCalls: true}
	c.Logging.Level = "info"
	return c
}

// Load reads configuration from path (if non-empty) and overlays any
// ERE_-prefixed environment variables, starting from Default().
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("ERE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees keys viper already knows, so every key is bound
	// for the environment overlay to reach it (e.g. ERE_TLS_MODE).
	for _, key := range []string{"endpoint", "tls.mode", "tls.root_certificates", "tls.certificate",
		"tls.private_key", "tls.require_client_cert", "logging.level", "logging.file"} {
		_ = v.BindEnv(key)
	}
	for _, ka := range []string{"server_keepalive.", "client_keepalive."} {
		for _, f := range []string{"time", "timeout", "permit_without_calls", "min_recv_ping_interval", "max_ping_strikes"} {
			_ = v.BindEnv(ka + f)
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("rpcconfig: reading %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("rpcconfig: decoding config: %w", err)
	}
	return cfg, nil
}
