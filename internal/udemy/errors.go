package udemy

import "fmt"

// snippetLimit はログ・エラーに含めるレスポンスボディの最大バイト数。
const snippetLimit = 500

// TransportError はリクエスト構築・ネットワークレベルの失敗を表す。
type TransportError struct {
	URL string
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *TransportError) Error() string {
	return fmt.Sprintf("udemy: request to %s failed: %v", e.URL, e.Err)
}

// Unwrap はラップされた原因エラーを返す。
func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError はレスポンスボディのJSONデコード失敗を表す。
// 診断用にボディ先頭のスニペットを保持する。
type DecodeError struct {
	URL     string
	Snippet string
	Err     error
}

// Error はerrorインターフェースを実装する。
func (e *DecodeError) Error() string {
	return fmt.Sprintf("udemy: invalid JSON response from %s: %v", e.URL, e.Err)
}

// Unwrap はラップされた原因エラーを返す。
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StatusError は2xx以外のHTTPステータスを表す。
type StatusError struct {
	URL        string
	StatusCode int
	Snippet    string
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	return fmt.Sprintf("udemy: API returned status %d for %s", e.StatusCode, e.URL)
}

// truncate はボディをスニペット長に切り詰める。
func truncate(body []byte) string {
	if len(body) > snippetLimit {
		return string(body[:snippetLimit])
	}
	return string(body)
}
