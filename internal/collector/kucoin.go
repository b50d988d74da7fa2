package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"HeikinSentinel/internal/model"
)

// DefaultKuCoinURL is the public KuCoin REST endpoint.
const DefaultKuCoinURL = "https://api.kucoin.com"

const kucoinOK = "200000"

// KuCoinSource implements CandleSource using the KuCoin market candles API.
type KuCoinSource struct {
	BaseURL string
	Client  *http.Client
}

var _ CandleSource = (*KuCoinSource)(nil)

// NewKuCoinSource creates a source with optional proxy support.
func NewKuCoinSource(baseURL, proxyURL string) *KuCoinSource {
	if baseURL == "" {
		baseURL = DefaultKuCoinURL
	}
	return &KuCoinSource{
		BaseURL: baseURL,
		Client:  newHTTPClient(proxyURL, 30*time.Second),
	}
}

func (s *KuCoinSource) Name() string { return "kucoin" }

// Fetch returns the candles between start and end. An unsupported timeframe fails with a
// BadIntervalError before any request is made.
func (s *KuCoinSource) Fetch(ctx context.Context, symbol string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	if err := tf.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("type", tf.String())
	params.Set("startAt", strconv.FormatInt(start.Unix(), 10))
	params.Set("endAt", strconv.FormatInt(end.Unix(), 10))
	endpoint := s.BaseURL + "/api/v1/market/candles?" + params.Encode()

	fail := func(status int, err error) error {
		return &FetchError{Symbol: symbol, Timeframe: tf, Status: status, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fail(0, err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(0, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fail(resp.StatusCode, fmt.Errorf("body: %s", truncate(body, 200)))
	}
	if !gjson.ValidBytes(body) {
		return nil, fail(resp.StatusCode, errors.New("malformed response"))
	}

	doc := gjson.ParseBytes(body)
	if code := doc.Get("code").String(); code != kucoinOK {
		// API level errors (unknown symbol, bad params) are not retried.
		return nil, fail(http.StatusBadRequest, fmt.Errorf("api code %s: %s", code, doc.Get("msg").String()))
	}

	candles, err := ParseKuCoinCandles(doc.Get("data").Array())
	if err != nil {
		return nil, fail(resp.StatusCode, err)
	}
	return candles, nil
}

// ParseKuCoinCandles converts rows of [time, open, close, high, low, volume, turnover]
// (string encoded, newest first) into ascending candles with unique timestamps.
func ParseKuCoinCandles(rows []gjson.Result) ([]model.Candle, error) {
	candles := make([]model.Candle, 0, len(rows))
	for i, row := range rows {
		cols := row.Array()
		if len(cols) < 5 {
			return nil, fmt.Errorf("candle row %d: want at least 5 columns, got %d", i, len(cols))
		}
		ts, err := strconv.ParseInt(cols[0].String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("candle row %d: time: %w", i, err)
		}
		var ohlc [4]float64
		for j, col := range []int{1, 3, 4, 2} { // open, high, low, close
			v, err := strconv.ParseFloat(cols[col].String(), 64)
			if err != nil {
				return nil, fmt.Errorf("candle row %d: column %d: %w", i, col, err)
			}
			ohlc[j] = v
		}
		candles = append(candles, model.Candle{
			Time:  time.Unix(ts, 0).UTC(),
			Open:  ohlc[0],
			High:  ohlc[1],
			Low:   ohlc[2],
			Close: ohlc[3],
		})
	}

	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	out := candles[:0]
	for _, c := range candles {
		if len(out) > 0 && out[len(out)-1].Time.Equal(c.Time) {
			out[len(out)-1] = c
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
