// Package model はドメインモデルを定義する。
package model

import "time"

// Path はUdemy Businessのラーニングパス（カリキュラム）を表す。
// IDは外部プロバイダ側の数値IDをそのまま使用する（外部がソースオブトゥルース）。
type Path struct {
	ID           int64
	Title        string
	TotalCourses *int // 不明な場合はnil
	Description  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// User は学習者を表す。メールアドレスが自然キー。
type User struct {
	Email        string
	Name         string
	LastActivity *time.Time // 未観測の場合はnil
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PathMembership はひとりの学習者のひとつのパスにおける集計進捗を表す。
// (PathID, UserEmail) が複合キー。
type PathMembership struct {
	PathID            int64
	UserEmail         string
	TotalProgress     float64 // 0〜100スケール
	CoursesCompleted  int
	CoursesInProgress int
	LastActivity      *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// RunSummary は同期パイプライン1回分の実行結果カウンタを表す。
// カウンタはエンティティの distinct 数ではなく、UPSERT操作の成功回数。
type RunSummary struct {
	Paths     int `json:"paths"`
	Users     int `json:"users"`
	PathUsers int `json:"path_users"`
	Pages     int `json:"pages"`
	Skipped   int `json:"skipped"`
}

// RunStatus は同期ランの状態を表す。
type RunStatus string

const (
	// RunStatusRunning は実行中のラン。
	RunStatusRunning RunStatus = "running"
	// RunStatusSucceeded は正常終了したラン。
	RunStatusSucceeded RunStatus = "succeeded"
	// RunStatusFailed は失敗したラン。
	RunStatusFailed RunStatus = "failed"
)

// SyncRun は同期パイプラインの実行履歴レコードを表す。
type SyncRun struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Status       RunStatus
	Summary      RunSummary
	ErrorMessage string
}
