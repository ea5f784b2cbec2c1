// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_transcribe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

var (
	// ErrOffline means the connectivity probe failed before any attempt was
	// made. No retry loop is entered; the caller re-invokes when online.
	ErrOffline = errors.New("transcribe: no network connectivity")

	// ErrRecordingTooShort rejects blobs below the minimum byte threshold
	// before any network call.
	ErrRecordingTooShort = errors.New("transcribe: recording too short")

	// ErrInvalidResponse means the server answered 2xx but the body was
	// missing the expected success markers.
	ErrInvalidResponse = errors.New("transcribe: invalid transcription response")
)

// ServerError is a definitive non-2xx response. The message is surfaced to
// the caller verbatim.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("transcribe: server error %d: %s", e.Status, e.Message)
}

// IsTransient reports whether an attempt failure is eligible for automatic
// retry. Connection errors and client-side timeouts are transient; server
// errors, malformed bodies, precondition failures and cancellations are
// definitive.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrOffline) ||
		errors.Is(err, ErrRecordingTooShort) ||
		errors.Is(err, ErrInvalidResponse) {
		return false
	}
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return false
	}
	// A canceled context is terminal: the caller that owned the cycle is gone
	// and no attempt under that context can ever succeed. Checked before the
	// net/url matches because transports wrap the cancellation.
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
