// Package transport builds the outbound HTTP clients used for the model and
// search APIs. Clients can route through a SOCKS5 proxy (for networks that
// only allow egress through one) and stamp every request with a User-Agent.
package transport
