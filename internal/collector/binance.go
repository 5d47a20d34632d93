package collector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"

	"SignalSentinel/internal/model"
)

// Binance request-weight error codes.
const (
	codeTooManyRequests = -1003
	codeDisconnected    = -1001
)

// BinanceFetcher implements Source using Binance spot klines.
type BinanceFetcher struct {
	client *binance.Client
}

// NewBinanceFetcher creates a fetcher with optional proxy support. baseURL
// overrides the default endpoint when set.
func NewBinanceFetcher(apiKey, apiSecret, baseURL, proxyURL string, timeout time.Duration) *BinanceFetcher {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := binance.NewClient(apiKey, apiSecret)
	client.HTTPClient = &http.Client{Timeout: timeout, Transport: transport}
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	return &BinanceFetcher{client: client}
}

func (f *BinanceFetcher) Name() string { return "binance" }

// Fetch returns the latest limit klines, oldest first.
func (f *BinanceFetcher) Fetch(ctx context.Context, symbol string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	klines, err := f.client.NewKlinesService().
		Symbol(symbol).
		Interval(string(tf)).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, classifyBinance(err)
	}

	candles := make([]model.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := klineToCandle(k)
		if err != nil {
			return nil, fmt.Errorf("kline %d for %s: %w", k.OpenTime, symbol, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func klineToCandle(k *binance.Kline) (model.Candle, error) {
	var (
		c   = model.Candle{OpenTime: time.UnixMilli(k.OpenTime).UTC()}
		err error
	)
	if c.Open, err = strconv.ParseFloat(k.Open, 64); err != nil {
		return c, fmt.Errorf("open: %w", err)
	}
	if c.High, err = strconv.ParseFloat(k.High, 64); err != nil {
		return c, fmt.Errorf("high: %w", err)
	}
	if c.Low, err = strconv.ParseFloat(k.Low, 64); err != nil {
		return c, fmt.Errorf("low: %w", err)
	}
	if c.Close, err = strconv.ParseFloat(k.Close, 64); err != nil {
		return c, fmt.Errorf("close: %w", err)
	}
	if c.Volume, err = strconv.ParseFloat(k.Volume, 64); err != nil {
		return c, fmt.Errorf("volume: %w", err)
	}
	return c, nil
}

// classifyBinance maps client errors onto ErrRateLimited / ErrTransient.
// Anything else (bad symbol, bad interval) is returned as is.
func classifyBinance(err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case codeTooManyRequests:
			return fmt.Errorf("binance: %w: %v", ErrRateLimited, err)
		case codeDisconnected:
			return fmt.Errorf("binance: %w: %v", ErrTransient, err)
		}
		return fmt.Errorf("binance: %w", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("binance: %w: %v", ErrTransient, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	// Non-API failures are connection resets, 5xx bodies and the like.
	return fmt.Errorf("binance: %w: %v", ErrTransient, err)
}
