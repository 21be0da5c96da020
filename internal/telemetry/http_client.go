package telemetry

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// NewInstrumentedHTTPClient creates an HTTP client whose requests over base are
// traced as client spans. A nil base uses http.DefaultTransport. The URL
// reachability checker fetches through it.
func NewInstrumentedHTTPClient(timeout time.Duration, base http.RoundTripper) *http.Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if base == nil {
		base = http.DefaultTransport
	}

	return &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(
			base,
			otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
		),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}
