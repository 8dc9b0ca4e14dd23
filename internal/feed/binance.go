// Package feed supplies candle data to the analysis engine. The Binance
// provider fetches spot klines over REST; a replay provider serves
// canned series for backtesting and tests.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"smc-analyst/internal/market"
)

const defaultBaseURL = "https://api.binance.com"

// BinanceProvider fetches candles from the Binance spot klines endpoint
type BinanceProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewBinanceProvider creates a provider. baseURL may be empty for the
// production endpoint.
func NewBinanceProvider(baseURL string) *BinanceProvider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &BinanceProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Candles fetches the requested timeframes for a symbol
func (p *BinanceProvider) Candles(ctx context.Context, symbol string, timeframes []market.Timeframe, limit int) (*market.MultiTimeframeCandles, error) {
	out := &market.MultiTimeframeCandles{
		Symbol:    symbol,
		Timestamp: time.Now().UTC(),
		Data:      make(map[market.Timeframe][]market.Candle, len(timeframes)),
	}

	for _, tf := range timeframes {
		candles, err := p.fetchKlines(ctx, symbol, string(tf), limit)
		if err != nil {
			return nil, fmt.Errorf("fetch %s %s klines: %w", symbol, tf, err)
		}
		out.Data[tf] = candles
	}

	return out, nil
}

// fetchKlines fetches one timeframe's candle series
func (p *BinanceProvider) fetchKlines(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", p.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching klines: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var rawKlines [][]interface{}
	if err := json.Unmarshal(body, &rawKlines); err != nil {
		return nil, fmt.Errorf("error parsing klines: %w", err)
	}

	candles := make([]market.Candle, len(rawKlines))
	for i, raw := range rawKlines {
		if len(raw) < 6 {
			return nil, fmt.Errorf("malformed kline at index %d", i)
		}
		openTime, ok := raw[0].(float64)
		if !ok {
			return nil, fmt.Errorf("malformed open time at index %d", i)
		}
		candles[i] = market.Candle{
			Timestamp: time.UnixMilli(int64(openTime)).UTC(),
			Open:      parseFloat(raw[1]),
			High:      parseFloat(raw[2]),
			Low:       parseFloat(raw[3]),
			Close:     parseFloat(raw[4]),
			Volume:    parseFloat(raw[5]),
		}
	}

	return candles, nil
}

func parseFloat(v interface{}) float64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
