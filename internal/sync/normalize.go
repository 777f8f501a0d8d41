// Package sync はUdemy Business分析APIからの進捗データ同期パイプラインを提供する。
// 正規化、リコンサイル（UPSERT）、ページネーション制御を含む。
package sync

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/marcelogomeza/udemyunich/internal/udemy"
)

// namePlaceholder は表示名がどのフィールドからも解決できない場合の固定値。
const namePlaceholder = "Usuario"

// Canonical はプロバイダ非依存に正規化された1件の進捗観測を表す。
type Canonical struct {
	PathID            int64
	PathTitle         string // 解決できない場合は空（リコンサイル時にプレースホルダを合成）
	PathTotalCourses  *int
	Email             string
	Name              string
	TotalProgress     float64 // 0〜100スケール
	CoursesCompleted  int
	CoursesInProgress int
	LastActivity      *time.Time
}

// extractor は生レコードから1つの論理値を取り出す戦略を表す。
// 値が存在しない場合はok=falseを返す。
type extractor func(rec udemy.RawRecord) (any, bool)

// key はトップレベルキーから値を取り出すextractorを返す。
func key(name string) extractor {
	return func(rec udemy.RawRecord) (any, bool) {
		v, ok := rec[name]
		if !ok || v == nil {
			return nil, false
		}
		return v, true
	}
}

// nested はネストされたオブジェクト（例: path.id）から値を取り出すextractorを返す。
func nested(outer, inner string) extractor {
	return func(rec udemy.RawRecord) (any, bool) {
		obj, ok := rec[outer].(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := obj[inner]
		if !ok || v == nil {
			return nil, false
		}
		return v, true
	}
}

// probe はextractorを順に評価し、最初に存在した値を返す。
// プロバイダのフィールド名ドリフトはこのテーブルの編集だけで吸収する。
func probe(rec udemy.RawRecord, extractors ...extractor) (any, bool) {
	for _, ex := range extractors {
		if v, ok := ex(rec); ok {
			return v, true
		}
	}
	return nil, false
}

// フィールドごとの探索順。外部APIのレコード形状は契約として安定していないため、
// 観測された別名を優先順に並べている。
var (
	pathIDExtractors = []extractor{
		key("path_id"), nested("path", "id"), key("learning_path_id"),
	}
	pathTitleExtractors = []extractor{
		key("path_title"), nested("path", "title"), key("path_name"),
	}
	pathItemsExtractors = []extractor{
		key("path_items"), nested("path", "items"), key("path_num_items"),
	}
	emailExtractors = []extractor{
		key("user_email"), nested("user", "email"), key("email"),
	}
	nameExtractors = []extractor{
		key("user_name"), nested("user", "name"), nested("user", "display_name"), key("name"),
	}
	ratioExtractors = []extractor{
		key("ratio"), key("progress"),
	}
	completedExtractors = []extractor{
		key("completed_items"), key("items_completed"),
	}
	inProgressExtractors = []extractor{
		key("in_progress_items"), key("items_in_progress"),
	}
	lastActivityExtractors = []extractor{
		key("last_activity"), key("last_activity_at"),
	}
)

// Normalize は生レコードを正規化済みレコードに変換する。
// パスIDまたはメールアドレスが解決できないレコードはスキップ対象として
// ok=falseを返す（エラーではない）。
func Normalize(raw udemy.RawRecord) (*Canonical, bool) {
	pathID, ok := probeInt64(raw, pathIDExtractors)
	if !ok {
		return nil, false
	}

	email, ok := probeString(raw, emailExtractors)
	if !ok || email == "" {
		return nil, false
	}

	c := &Canonical{
		PathID: pathID,
		Email:  email,
	}

	if title, ok := probeString(raw, pathTitleExtractors); ok {
		c.PathTitle = title
	}

	if items, ok := probeInt64(raw, pathItemsExtractors); ok {
		v := int(items)
		c.PathTotalCourses = &v
	}

	c.Name = resolveName(raw, email)

	if ratio, ok := probeFloat(raw, ratioExtractors); ok {
		c.TotalProgress = normalizeRatio(ratio)
	}

	if completed, ok := probeInt64(raw, completedExtractors); ok {
		c.CoursesCompleted = int(completed)
	}
	if inProgress, ok := probeInt64(raw, inProgressExtractors); ok {
		c.CoursesInProgress = int(inProgress)
	}

	if s, ok := probeString(raw, lastActivityExtractors); ok {
		// タイムスタンプのパース失敗はレコードを中断せず、未観測として扱う
		c.LastActivity = parseTimestamp(s)
	}

	return c, true
}

// resolveName は表示名を優先順に解決する。
// 単一フィールド → first+last合成 → メールアドレス → 固定プレースホルダ。
func resolveName(raw udemy.RawRecord, email string) string {
	if name, ok := probeString(raw, nameExtractors); ok && name != "" {
		return name
	}

	first, _ := probeString(raw, []extractor{key("user_first_name"), key("first_name")})
	last, _ := probeString(raw, []extractor{key("user_surname"), key("last_name")})
	if full := strings.TrimSpace(first + " " + last); full != "" {
		return full
	}

	if email != "" {
		return email
	}

	return namePlaceholder
}

// normalizeRatio は進捗率を0〜100スケールに正規化する。
// 1以下は0〜1の割合とみなして100倍する。整数の1が「1%」を意味する
// プロバイダでは誤分類になり得る既知の境界（プロバイダ契約の確認待ち）。
func normalizeRatio(ratio float64) float64 {
	if ratio <= 1 {
		return ratio * 100
	}
	return ratio
}

// timestampLayouts はlast_activityのパースで試すレイアウト。先頭から順に試す。
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp はタイムスタンプ文字列をパースする。失敗時はnilを返す。
func parseTimestamp(s string) *time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// probeString は文字列として解釈できる最初の値を返す。
func probeString(rec udemy.RawRecord, extractors []extractor) (string, bool) {
	v, ok := probe(rec, extractors...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return s, true
}

// probeFloat は数値として解釈できる最初の値を返す。
// JSON数値のほか、整数・json.Number・数値文字列も受け付ける。
func probeFloat(rec udemy.RawRecord, extractors []extractor) (float64, bool) {
	v, ok := probe(rec, extractors...)
	if !ok {
		return 0, false
	}
	return asFloat(v)
}

// probeInt64 は整数として解釈できる最初の値を返す。
func probeInt64(rec udemy.RawRecord, extractors []extractor) (int64, bool) {
	f, ok := probeFloat(rec, extractors)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// asFloat は外部APIの数値エンコーディングの揺れを吸収する。
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
