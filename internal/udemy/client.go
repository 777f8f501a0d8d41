// Package udemy はUdemy Business Reporting APIのクライアントを提供する。
// レスポンス形式はアカウントやAPIバージョンにより揺れるため、
// レコードは非構造化マップのまま返し、解釈は呼び出し側に委ねる。
package udemy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// defaultTimeout はUdemy APIリクエストのデフォルトタイムアウト。
const defaultTimeout = 45 * time.Second

// RawRecord はUdemy APIの1レコードを表す非構造化マップ。
type RawRecord map[string]any

// Page はページネーションAPIの1ページ分のレスポンスを表す。
type Page struct {
	Results []RawRecord `json:"results"`
	Next    string      `json:"next"`
	Count   int         `json:"count"`
}

// Client はUdemy Business APIのクライアント。
// Basic認証（client_id:client_secret）でReporting/Analyticsエンドポイントを呼び出す。
type Client struct {
	baseURL      *url.URL
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewClient はClientの新しいインスタンスを生成する。
// timeoutが0以下の場合はデフォルト（45秒）を使用する。
func NewClient(baseURL, clientID, clientSecret string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("udemy: invalid base URL %q: %w", baseURL, err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:      u,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}, nil
}

// FetchPage は指定エンドポイントの1ページ分を取得する。
// 失敗は種類ごとに区別され（*TransportError / *DecodeError / *StatusError）、
// いずれも当該ランにとって致命的（呼び出し側で伝播させる）。
func (c *Client) FetchPage(ctx context.Context, endpoint string, params url.Values) (*Page, error) {
	reqURL := *c.baseURL
	reqURL.Path = endpoint
	reqURL.RawQuery = params.Encode()
	fullURL := reqURL.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, &TransportError{URL: fullURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Udemy APIの呼び出しに失敗しました",
			slog.String("url", fullURL),
			slog.String("error", err.Error()),
		)
		return nil, &TransportError{URL: fullURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: fullURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("Udemy APIがエラーステータスを返しました",
			slog.String("url", fullURL),
			slog.Int("http_status", resp.StatusCode),
			slog.String("body", truncate(body)),
		)
		return nil, &StatusError{URL: fullURL, StatusCode: resp.StatusCode, Snippet: truncate(body)}
	}

	page := &Page{}
	if err := json.Unmarshal(body, page); err != nil {
		c.logger.Error("Udemy APIのレスポンスのパースに失敗しました",
			slog.String("url", fullURL),
			slog.String("body", truncate(body)),
			slog.String("error", err.Error()),
		)
		return nil, &DecodeError{URL: fullURL, Snippet: truncate(body), Err: err}
	}

	return page, nil
}

// ParseNext はレスポンスのnext URLをエンドポイントとクエリパラメータに分解する。
// プロバイダの暴走を防ぐため、ベースURLと異なるホストを指すカーソルは拒否する。
func (c *Client) ParseNext(next string) (string, url.Values, error) {
	u, err := url.Parse(next)
	if err != nil {
		return "", nil, fmt.Errorf("udemy: invalid next cursor %q: %w", next, err)
	}

	// 相対URLはベースと同一ホスト扱い
	if u.Host != "" && u.Host != c.baseURL.Host {
		return "", nil, fmt.Errorf("udemy: next cursor points to unexpected host %q", u.Host)
	}

	params, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return "", nil, fmt.Errorf("udemy: invalid next cursor query %q: %w", u.RawQuery, err)
	}

	return u.Path, params, nil
}
