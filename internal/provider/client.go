package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mailsync/backend/internal/config"
	"mailsync/backend/internal/domain"
)

var (
	// ErrRemoteUnavailable 网络故障或远端 5xx，调用方可整轮重试
	ErrRemoteUnavailable = errors.New("remote provider unavailable")
	// ErrRemoteRejected 远端 4xx（凭证无效、请求非法），不应自动重试
	ErrRemoteRejected = errors.New("remote provider rejected request")
)

// Client 远端 delta API 的无状态请求层。
// 只负责请求/响应与错误分类，从不重试，重试策略由调用方决定。
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient 创建远端服务商客户端
func NewClient(cfg config.ProviderConfig, log *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:  log,
	}
}

// StartSync 请求远端准备一个同步窗口（就绪探测）。
// 远端后台准备未完成时返回 ready=false，由上层轮询。
func (c *Client) StartSync(ctx context.Context, credential string, windowDays int) (*StartSyncResponse, error) {
	query := url.Values{}
	query.Set("daysWithin", strconv.Itoa(windowDays))
	query.Set("bodyType", "html")

	var resp StartSyncResponse
	if err := c.do(ctx, http.MethodPost, "/email/sync", query, credential, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchChangedPage 拉取一页变更记录。
// 游标选择规则：存在页游标时只用页游标，否则用增量游标。
func (c *Client) FetchChangedPage(ctx context.Context, credential string, cursor domain.SyncCursor) (*ChangedPage, error) {
	token, isPage := cursor.RequestToken()

	query := url.Values{}
	if isPage {
		query.Set("pageToken", token)
	} else {
		query.Set("deltaToken", token)
	}

	var page ChangedPage
	if err := c.do(ctx, http.MethodGet, "/email/sync/updated", query, credential, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchAccountProfile 查询账户身份信息（仅账户关联流程使用）
func (c *Client) FetchAccountProfile(ctx context.Context, credential string) (*Profile, error) {
	var profile Profile
	if err := c.do(ctx, http.MethodGet, "/account", nil, credential, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// do 发起一次请求并按状态分类错误：网络错误/5xx -> ErrRemoteUnavailable，
// 4xx -> ErrRemoteRejected，成功时解码 JSON 响应体。
func (c *Client) do(ctx context.Context, method, path string, query url.Values, credential string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("remote provider error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("%w: status %d: %s", ErrRemoteUnavailable, resp.StatusCode, string(body))
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status %d: %s", ErrRemoteRejected, resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
