// Package config loads server settings from defaults, an optional HCL file
// and HOSTRPC_* environment variables, in that order.
//
// A configuration file looks like:
//
//	http_addr = ":8080"
//	log_level = "debug"
//
//	kv {
//	  max_entries = 500
//	}
//
//	http {
//	  allowed_hosts = ["api.example.com"]
//	}
//
//	mount "/data" {
//	  host = "./input"
//	  mode = "ro"
//	}
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/caffeineduck/hostrpc/hostfunc"
)

var ErrInvalid = errors.New("invalid configuration")

// Config holds every setting of a hostrpc server.
type Config struct {
	HTTPAddr     string `env:"HOSTRPC_HTTP_ADDR"`
	SocketPath   string `env:"HOSTRPC_SOCKET"`
	GRPCAddr     string `env:"HOSTRPC_GRPC_ADDR"`
	LogLevel     string `env:"HOSTRPC_LOG_LEVEL"`
	MaxBodySize  int64  `env:"HOSTRPC_MAX_BODY_SIZE"`
	OTelEndpoint string `env:"HOSTRPC_OTEL_ENDPOINT"`

	KVEnabled      bool `env:"HOSTRPC_KV"`
	KVMaxKeySize   int  `env:"HOSTRPC_KV_MAX_KEY_SIZE"`
	KVMaxValueSize int  `env:"HOSTRPC_KV_MAX_VALUE_SIZE"`
	KVMaxEntries   int  `env:"HOSTRPC_KV_MAX_ENTRIES"`

	AllowedHosts    []string      `env:"HOSTRPC_ALLOWED_HOSTS" envSeparator:","`
	HTTPMaxBodySize int64         `env:"HOSTRPC_HTTP_MAX_BODY_SIZE"`
	HTTPTimeout     time.Duration `env:"HOSTRPC_HTTP_TIMEOUT"`

	// Mounts use the "virtual:host[:mode]" form, e.g. "/data:./input:ro".
	Mounts []string `env:"HOSTRPC_MOUNTS" envSeparator:","`
}

func Default() Config {
	return Config{
		HTTPAddr:       ":8080",
		LogLevel:       "info",
		MaxBodySize:    1 << 20,
		KVMaxKeySize:   hostfunc.DefaultKVMaxKeySize,
		KVMaxValueSize: hostfunc.DefaultKVMaxValueSize,
		KVMaxEntries:   hostfunc.DefaultKVMaxEntries,
		HTTPTimeout:    hostfunc.DefaultRequestTimeout,
	}
}

// Load returns the defaults overlaid with the file at path, when path is
// not empty, and then with the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type hclFile struct {
	HTTPAddr     *string     `hcl:"http_addr,optional"`
	SocketPath   *string     `hcl:"socket_path,optional"`
	GRPCAddr     *string     `hcl:"grpc_addr,optional"`
	LogLevel     *string     `hcl:"log_level,optional"`
	MaxBodySize  *int64      `hcl:"max_body_size,optional"`
	OTelEndpoint *string     `hcl:"otel_endpoint,optional"`
	KV           *hclKV      `hcl:"kv,block"`
	HTTP         *hclHTTP    `hcl:"http,block"`
	Mounts       []*hclMount `hcl:"mount,block"`
}

type hclKV struct {
	MaxKeySize   *int `hcl:"max_key_size,optional"`
	MaxValueSize *int `hcl:"max_value_size,optional"`
	MaxEntries   *int `hcl:"max_entries,optional"`
}

type hclHTTP struct {
	AllowedHosts []string `hcl:"allowed_hosts,optional"`
	MaxBodySize  *int64   `hcl:"max_body_size,optional"`
	Timeout      *string  `hcl:"timeout,optional"`
}

type hclMount struct {
	Path string `hcl:"path,label"`
	Host string `hcl:"host"`
	Mode string `hcl:"mode,optional"`
}

func (c *Config) applyFile(path string) error {
	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("parse config %s: %w", path, diags)
	}
	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return fmt.Errorf("decode config %s: %w", path, diags)
	}

	set(&c.HTTPAddr, parsed.HTTPAddr)
	set(&c.SocketPath, parsed.SocketPath)
	set(&c.GRPCAddr, parsed.GRPCAddr)
	set(&c.LogLevel, parsed.LogLevel)
	set(&c.MaxBodySize, parsed.MaxBodySize)
	set(&c.OTelEndpoint, parsed.OTelEndpoint)

	if kv := parsed.KV; kv != nil {
		c.KVEnabled = true
		set(&c.KVMaxKeySize, kv.MaxKeySize)
		set(&c.KVMaxValueSize, kv.MaxValueSize)
		set(&c.KVMaxEntries, kv.MaxEntries)
	}
	if h := parsed.HTTP; h != nil {
		c.AllowedHosts = append(c.AllowedHosts, h.AllowedHosts...)
		set(&c.HTTPMaxBodySize, h.MaxBodySize)
		if h.Timeout != nil {
			d, err := time.ParseDuration(*h.Timeout)
			if err != nil {
				return fmt.Errorf("%w: http timeout: %v", ErrInvalid, err)
			}
			c.HTTPTimeout = d
		}
	}
	for _, m := range parsed.Mounts {
		spec := m.Path + ":" + m.Host
		if m.Mode != "" {
			spec += ":" + m.Mode
		}
		c.Mounts = append(c.Mounts, spec)
	}
	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Validate checks values that cannot be checked by type alone.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MaxBodySize <= 0 {
		return fmt.Errorf("%w: max body size must be positive", ErrInvalid)
	}
	if _, err := c.FSMounts(); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalid, s)
	}
	return level, nil
}

// ParseMount parses "virtual:host[:mode]". Mode defaults to read-only.
func ParseMount(spec string) (hostfunc.Mount, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return hostfunc.Mount{}, fmt.Errorf("%w: mount %q (expected virtual:host[:mode])", ErrInvalid, spec)
	}
	mode := ""
	if len(parts) == 3 {
		mode = parts[2]
	}
	m, err := hostfunc.ParseMountMode(mode)
	if err != nil {
		return hostfunc.Mount{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return hostfunc.Mount{VirtualPath: parts[0], HostPath: parts[1], Mode: m}, nil
}

// FSMounts parses every mount spec.
func (c Config) FSMounts() ([]hostfunc.Mount, error) {
	mounts := make([]hostfunc.Mount, 0, len(c.Mounts))
	for _, spec := range c.Mounts {
		m, err := ParseMount(spec)
		if err != nil {
			return nil, err
		}
		mounts = append(mounts, m)
	}
	return mounts, nil
}

func (c Config) KV() hostfunc.KVConfig {
	return hostfunc.KVConfig{
		MaxKeySize:   c.KVMaxKeySize,
		MaxValueSize: c.KVMaxValueSize,
		MaxEntries:   c.KVMaxEntries,
	}
}

func (c Config) HTTP() hostfunc.HTTPConfig {
	return hostfunc.HTTPConfig{
		AllowedHosts:   c.AllowedHosts,
		MaxBodySize:    c.HTTPMaxBodySize,
		RequestTimeout: c.HTTPTimeout,
	}
}
