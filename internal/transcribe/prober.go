// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transcribe

import (
	"net"
	"net/url"
	"time"
)

// Prober answers the pre-attempt connectivity check. Offline means no retry
// loop is entered at all.
type Prober interface {
	Online() bool
}

type dialProber struct {
	addr    string
	timeout time.Duration
}

// NewDialProber probes reachability of the transcription endpoint's host
// with a short TCP dial. An unparseable endpoint yields a prober that is
// always online, leaving failure handling to the attempt itself.
func NewDialProber(endpoint string) Prober {
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		return StaticProber(true)
	}
	host := parsed.Host
	if parsed.Port() == "" {
		if parsed.Scheme == "http" {
			host = net.JoinHostPort(parsed.Hostname(), "80")
		} else {
			host = net.JoinHostPort(parsed.Hostname(), "443")
		}
	}
	return &dialProber{addr: host, timeout: 2 * time.Second}
}

func (p *dialProber) Online() bool {
	conn, err := net.DialTimeout("tcp", p.addr, p.timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// StaticProber is a fixed connectivity answer, used in tests and for
// providers that handle their own reachability.
type StaticProber bool

func (p StaticProber) Online() bool { return bool(p) }
