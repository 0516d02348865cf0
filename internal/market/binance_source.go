package market

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"paper-quant-bot-go/internal/models"

	"github.com/adshao/go-binance/v2"
)

const requestTimeout = 10 * time.Second

// BinanceSource 通过币安公共REST接口获取行情，不需要API Key
type BinanceSource struct {
	client *binance.Client
}

// NewBinanceSource 创建币安行情源
func NewBinanceSource() *BinanceSource {
	return &BinanceSource{client: binance.NewClient("", "")}
}

// GetCurrentPrices 批量获取最新成交价
func (s *BinanceSource) GetCurrentPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	listed, err := s.client.NewListPricesService().Symbols(symbols).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}

	prices := make(map[string]float64, len(listed))
	for _, p := range listed {
		price, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			return nil, fmt.Errorf("parse price for %s: %w", p.Symbol, err)
		}
		prices[p.Symbol] = price
	}
	return prices, nil
}

// GetHistory 获取最近 limit 根小时K线
func (s *BinanceSource) GetHistory(ctx context.Context, symbol string, limit int) ([]models.Bar, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	klines, err := s.client.NewKlinesService().
		Symbol(symbol).
		Interval("1h").
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch klines for %s: %w", symbol, err)
	}

	bars := make([]models.Bar, 0, len(klines))
	for _, k := range klines {
		bar, err := barFromKline(k)
		if err != nil {
			return nil, fmt.Errorf("parse kline for %s: %w", symbol, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func barFromKline(k *binance.Kline) (models.Bar, error) {
	var bar models.Bar
	fields := []struct {
		raw string
		dst *float64
	}{
		{k.Open, &bar.Open},
		{k.High, &bar.High},
		{k.Low, &bar.Low},
		{k.Close, &bar.Close},
		{k.Volume, &bar.Volume},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return bar, err
		}
		*f.dst = v
	}
	bar.Timestamp = time.UnixMilli(k.OpenTime)
	return bar, nil
}
