package collector

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/league-stream-utils/lsu-assets/internal/config"
)

// ErrUnexpectedStatus 表示客户端接口返回了非 200 状态码。
var ErrUnexpectedStatus = errors.New("unexpected live client status")

// Shared HTTP transport tunings；游戏客户端只在本机监听，连接数保持很小。
var defaultTransport = &http.Transport{
	MaxIdleConns:          4,
	MaxIdleConnsPerHost:   4,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   5 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	DialContext: (&net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// ActivePlayer 是 activeplayer 接口返回的原始 JSON 对象。
type ActivePlayer map[string]json.RawMessage

// LiveClient 访问游戏客户端的 Live Client Data API。
type LiveClient struct {
	endpoint string
	http     *http.Client
}

// NewLiveClient 按配置构建客户端；游戏客户端使用自签名证书，
// InsecureSkipVerify 默认开启。
func NewLiveClient(cfg config.CollectorConfig) *LiveClient {
	timeout := 5 * time.Second
	if cfg.RequestTimeout.DurationValue() > 0 {
		timeout = cfg.RequestTimeout.DurationValue()
	}

	transport := defaultTransport.Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	return &LiveClient{
		endpoint: cfg.Endpoint,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// ActivePlayer 拉取一次当前玩家数据。
func (c *LiveClient) ActivePlayer(ctx context.Context) (ActivePlayer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build live client request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("live client unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var payload ActivePlayer
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode live client payload: %w", err)
	}
	return payload, nil
}
