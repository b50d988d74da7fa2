package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"HeikinSentinel/internal/model"
)

// CandleSource fetches raw candles for one pair, oldest first.
type CandleSource interface {
	Fetch(ctx context.Context, symbol string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error)
	Name() string
}

// SymbolUniverse lists the symbols to monitor, formatted "<BASE>-USDT".
type SymbolUniverse interface {
	Top(ctx context.Context, n int) ([]string, error)
}

// FetchError reports a failed candle or universe request.
type FetchError struct {
	Symbol    string
	Timeframe model.Timeframe
	Status    int // HTTP status, 0 when the request never completed
	Err       error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s %s: status %d: %v", e.Symbol, e.Timeframe, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s %s: %v", e.Symbol, e.Timeframe, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the request may succeed: transport failures,
// rate limiting and server errors.
func (e *FetchError) Retryable() bool {
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// newHTTPClient builds a client with an optional proxy.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
