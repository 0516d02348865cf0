package market

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"paper-quant-bot-go/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const defaultWSBaseURL = "wss://stream.binance.com:9443"

// maxCacheAge 超过该时间没有收到行情推送的价格视为过期
const maxCacheAge = 5 * time.Minute

// WSCache 订阅币安 miniTicker 组合流，把最新价缓存在内存里。
// 主REST源失败时，降级链可以读这份缓存继续出价。
type WSCache struct {
	baseURL string
	logger  *zap.Logger

	mu        sync.RWMutex
	prices    map[string]float64
	updatedAt map[string]time.Time
	conn      *websocket.Conn

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWSCache 创建行情缓存；baseURL 为空时使用币安默认地址
func NewWSCache(baseURL string, logger *zap.Logger) *WSCache {
	if baseURL == "" {
		baseURL = defaultWSBaseURL
	}
	return &WSCache{
		baseURL:   baseURL,
		logger:    logger,
		prices:    make(map[string]float64),
		updatedAt: make(map[string]time.Time),
		stopChan:  make(chan struct{}),
	}
}

// Start 建立 WebSocket 连接并启动读循环，断线自动重连
func (c *WSCache) Start(symbols []string) {
	go c.run(symbols)
}

// Stop 关闭读循环。主动断开当前连接，让阻塞在 ReadMessage 的
// 读协程立即退出，而不是等到服务端下一次推送。
func (c *WSCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
	})
}

func (c *WSCache) run(symbols []string) {
	streams := make([]string, len(symbols))
	for i, s := range symbols {
		streams[i] = strings.ToLower(s) + "@miniTicker"
	}
	wsURL := fmt.Sprintf("%s/stream?streams=%s", c.baseURL, strings.Join(streams, "/"))

	for {
		select {
		case <-c.stopChan:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			c.logger.Warn("行情 WebSocket 连接失败，稍后重试", zap.Error(err))
			select {
			case <-time.After(5 * time.Second):
				continue
			case <-c.stopChan:
				return
			}
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}
}

func (c *WSCache) readLoop(conn *websocket.Conn) {
	type miniTicker struct {
		Data struct {
			Symbol string `json:"s"`
			Close  string `json:"c"`
		} `json:"data"`
	}

	for {
		select {
		case <-c.stopChan:
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("行情 WebSocket 读取失败，准备重连", zap.Error(err))
			return
		}

		var tick miniTicker
		if err := json.Unmarshal(message, &tick); err != nil || tick.Data.Symbol == "" {
			continue
		}
		price, err := strconv.ParseFloat(tick.Data.Close, 64)
		if err != nil || price <= 0 {
			continue
		}

		c.mu.Lock()
		c.prices[tick.Data.Symbol] = price
		c.updatedAt[tick.Data.Symbol] = time.Now()
		c.mu.Unlock()
	}
}

// GetCurrentPrices 从缓存读取最新价。过期或没收到过推送的交易对
// 不出现在返回里，留给降级链的下一个源补齐。
func (c *WSCache) GetCurrentPrices(_ context.Context, symbols []string) (map[string]float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	prices := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		price, ok := c.prices[s]
		if !ok || time.Since(c.updatedAt[s]) > maxCacheAge {
			continue
		}
		prices[s] = price
	}
	return prices, nil
}

// GetHistory 缓存源不提供K线历史
func (c *WSCache) GetHistory(context.Context, string, int) ([]models.Bar, error) {
	return nil, ErrNoHistory
}
