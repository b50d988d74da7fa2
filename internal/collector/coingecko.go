package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultCoinGeckoURL is the public CoinGecko API root.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGeckoUniverse ranks symbols by market capitalisation.
type CoinGeckoUniverse struct {
	BaseURL string
	Quote   string // quote currency appended to every base symbol
	Client  *http.Client
}

var _ SymbolUniverse = (*CoinGeckoUniverse)(nil)

// NewCoinGeckoUniverse creates a universe with optional proxy support.
func NewCoinGeckoUniverse(baseURL, proxyURL string) *CoinGeckoUniverse {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	return &CoinGeckoUniverse{
		BaseURL: baseURL,
		Quote:   "USDT",
		Client:  newHTTPClient(proxyURL, 10*time.Second),
	}
}

// Top returns the n largest coins as "<BASE>-USDT", in ranking order.
func (u *CoinGeckoUniverse) Top(ctx context.Context, n int) ([]string, error) {
	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("order", "market_cap_desc")
	params.Set("per_page", strconv.Itoa(n))
	params.Set("page", "1")
	params.Set("sparkline", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.BaseURL+"/coins/markets?"+params.Encode(), nil)
	if err != nil {
		return nil, &FetchError{Symbol: "universe", Err: err}
	}
	resp, err := u.Client.Do(req)
	if err != nil {
		return nil, &FetchError{Symbol: "universe", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Symbol: "universe", Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Symbol: "universe", Status: resp.StatusCode, Err: fmt.Errorf("body: %s", truncate(body, 200))}
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsArray() {
		return nil, &FetchError{Symbol: "universe", Status: resp.StatusCode, Err: errors.New("expected a JSON array")}
	}

	seen := make(map[string]bool)
	var symbols []string
	for _, base := range doc.Get("#.symbol").Array() {
		s := strings.ToUpper(strings.TrimSpace(base.String()))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		symbols = append(symbols, s+"-"+u.Quote)
		if n > 0 && len(symbols) == n {
			break
		}
	}
	return symbols, nil
}

// StaticUniverse serves a fixed symbol list from configuration.
type StaticUniverse []string

var _ SymbolUniverse = StaticUniverse(nil)

// Top returns the first n symbols, or all of them when n <= 0.
func (s StaticUniverse) Top(_ context.Context, n int) ([]string, error) {
	out := []string(s)
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return append([]string(nil), out...), nil
}
