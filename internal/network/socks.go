// Package network holds dialing helpers shared by the network packet sources.
package network

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/proxy"

	"github.com/HoracioDos/weewx-zabbix/internal/config"
)

// NewSOCKS5Dialer creates a SOCKS5 proxy dialer.
func NewSOCKS5Dialer(host string, port int) (proxy.Dialer, error) {
	addr := net.JoinHostPort(host, fmt.Sprint(port))
	dialer, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer for %s: %w", addr, err)
	}
	return dialer, nil
}

// ProxyDialer returns the SOCKS5 dialer for cfg, or nil when no proxy is configured.
func ProxyDialer(cfg config.SOCKSConfig) (proxy.Dialer, error) {
	if cfg.Host == "" || cfg.Port <= 0 {
		return nil, nil
	}
	return NewSOCKS5Dialer(cfg.Host, cfg.Port)
}

// ContextDialer adapts the proxy for clients that dial with a context, such
// as go-redis. It returns nil when no proxy is configured.
func ContextDialer(cfg config.SOCKSConfig) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	d, err := ProxyDialer(cfg)
	if err != nil || d == nil {
		return nil, err
	}
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}, nil
}
