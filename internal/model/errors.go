// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// 原因カテゴリとクライアント向けの対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, sync, system
	Action   string // クライアント向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidPathID  = "INVALID_PATH_ID"
	ErrCodeMissingEmail   = "MISSING_EMAIL"
	ErrCodePathNotFound   = "PATH_NOT_FOUND"
	ErrCodeSyncInProgress = "SYNC_IN_PROGRESS"
	ErrCodeSyncFailed     = "SYNC_FAILED"
)

// NewInvalidPathIDError は不正なパスIDエラーを生成する。
func NewInvalidPathIDError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPathID,
		Message:  fmt.Sprintf("パスIDが不正です: %s", raw),
		Category: "validation",
		Action:   "パスIDには正の整数を指定してください。",
	}
}

// NewMissingEmailError はメールアドレス未指定エラーを生成する。
func NewMissingEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingEmail,
		Message:  "メールアドレスが指定されていません。",
		Category: "validation",
		Action:   "ユーザーのメールアドレスを指定してください。",
	}
}

// NewPathNotFoundError はパス未検出エラーを生成する。
func NewPathNotFoundError(pathID int64) *APIError {
	return &APIError{
		Code:     ErrCodePathNotFound,
		Message:  fmt.Sprintf("指定されたパスが見つかりません: %d", pathID),
		Category: "validation",
		Action:   "パスIDを確認してください。",
	}
}

// NewSyncInProgressError は同期多重起動エラーを生成する。
func NewSyncInProgressError() *APIError {
	return &APIError{
		Code:     ErrCodeSyncInProgress,
		Message:  "同期はすでに実行中です。",
		Category: "sync",
		Action:   "実行中の同期が完了してから再度お試しください。",
	}
}

// NewSyncFailedError は同期失敗エラーを生成する。
func NewSyncFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeSyncFailed,
		Message:  fmt.Sprintf("同期に失敗しました: %s", reason),
		Category: "sync",
		Action:   "Udemy APIの認証情報と接続性を確認し、しばらく待ってから再度お試しください。",
	}
}
