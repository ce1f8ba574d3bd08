package poller

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/url"
	"syscall"

	"github.com/jpalmerr/pulsewatch/internal/status"
)

// classifyError maps a transport error to an outcome.
//
// Priority: timeout, then connection-level failures, then everything else.
// ctx is the per-probe context; its deadline distinguishes a probe timeout
// from a cancellation of the parent session.
func classifyError(ctx context.Context, err error) status.Outcome {
	if isTimeout(ctx, err) {
		return status.Timeout()
	}
	if isConnectionError(err) {
		return status.ConnectionError()
	}
	return status.OtherError(unwrapURLError(err).Error())
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var (
		dnsErr      *net.DNSError
		opErr       *net.OpError
		recordErr   tls.RecordHeaderError
		verifyErr   *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		certErr     x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &dnsErr),
		errors.As(err, &opErr),
		errors.As(err, &recordErr),
		errors.As(err, &verifyErr),
		errors.As(err, &unknownAuth),
		errors.As(err, &hostErr),
		errors.As(err, &certErr):
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// unwrapURLError strips the "Head \"url\": " prefix the http client adds.
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}
