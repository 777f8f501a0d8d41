package sync

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/marcelogomeza/udemyunich/internal/udemy"
)

// TestNormalize_FieldAliases はフィールド名の別名が探索順どおりに解決されることを検証する。
func TestNormalize_FieldAliases(t *testing.T) {
	tests := []struct {
		name       string
		raw        udemy.RawRecord
		wantPathID int64
		wantTitle  string
		wantEmail  string
	}{
		{
			name: "トップレベルキー",
			raw: udemy.RawRecord{
				"path_id":    float64(10),
				"path_title": "Go入門",
				"user_email": "alice@example.com",
			},
			wantPathID: 10,
			wantTitle:  "Go入門",
			wantEmail:  "alice@example.com",
		},
		{
			name: "ネストされたオブジェクト",
			raw: udemy.RawRecord{
				"path": map[string]any{"id": float64(20), "title": "SQL基礎"},
				"user": map[string]any{"email": "bob@example.com"},
			},
			wantPathID: 20,
			wantTitle:  "SQL基礎",
			wantEmail:  "bob@example.com",
		},
		{
			name: "レガシー別名",
			raw: udemy.RawRecord{
				"learning_path_id": float64(30),
				"path_name":        "Docker実践",
				"email":            "carol@example.com",
			},
			wantPathID: 30,
			wantTitle:  "Docker実践",
			wantEmail:  "carol@example.com",
		},
		{
			name: "先勝ち（path_idがpath.idより優先される）",
			raw: udemy.RawRecord{
				"path_id":    float64(1),
				"path":       map[string]any{"id": float64(99)},
				"user_email": "dave@example.com",
			},
			wantPathID: 1,
			wantEmail:  "dave@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := Normalize(tt.raw)
			if !ok {
				t.Fatal("expected record to be normalized, got skip")
			}
			if c.PathID != tt.wantPathID {
				t.Errorf("PathID = %d, want %d", c.PathID, tt.wantPathID)
			}
			if c.PathTitle != tt.wantTitle {
				t.Errorf("PathTitle = %q, want %q", c.PathTitle, tt.wantTitle)
			}
			if c.Email != tt.wantEmail {
				t.Errorf("Email = %q, want %q", c.Email, tt.wantEmail)
			}
		})
	}
}

// TestNormalize_SkipPolicy はパスIDまたはメールが解決できないレコードの
// スキップ判定を検証する。
func TestNormalize_SkipPolicy(t *testing.T) {
	tests := []struct {
		name string
		raw  udemy.RawRecord
	}{
		{
			name: "パスIDなし",
			raw:  udemy.RawRecord{"user_email": "alice@example.com"},
		},
		{
			name: "メールなし",
			raw:  udemy.RawRecord{"path_id": float64(1)},
		},
		{
			name: "メールが空文字",
			raw:  udemy.RawRecord{"path_id": float64(1), "user_email": ""},
		},
		{
			name: "空レコード",
			raw:  udemy.RawRecord{},
		},
		{
			name: "nil値はキー不在と同じ扱い",
			raw:  udemy.RawRecord{"path_id": nil, "user_email": "alice@example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := Normalize(tt.raw); ok {
				t.Error("expected record to be skipped")
			}
		})
	}
}

// TestNormalize_RatioHeuristic は進捗率の0〜1割合と0〜100パーセントの
// 自動判別を検証する。
func TestNormalize_RatioHeuristic(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want float64
	}{
		{name: "割合は100倍される", raw: 0.45, want: 45},
		{name: "パーセントはそのまま", raw: float64(62), want: 62},
		{name: "ゼロ", raw: float64(0), want: 0},
		{name: "境界値1は割合扱い", raw: float64(1), want: 100},
		{name: "満了100", raw: float64(100), want: 100},
		{name: "文字列の数値も受け付ける", raw: "0.5", want: 50},
		{name: "json.Number", raw: json.Number("75.5"), want: 75.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := Normalize(udemy.RawRecord{
				"path_id":    float64(1),
				"user_email": "alice@example.com",
				"ratio":      tt.raw,
			})
			if !ok {
				t.Fatal("expected record to be normalized")
			}
			if c.TotalProgress != tt.want {
				t.Errorf("TotalProgress = %v, want %v", c.TotalProgress, tt.want)
			}
		})
	}
}

// TestNormalize_ProgressFallback はratioが無い場合にprogressキーへ
// フォールバックすることを検証する。
func TestNormalize_ProgressFallback(t *testing.T) {
	c, ok := Normalize(udemy.RawRecord{
		"path_id":    float64(1),
		"user_email": "alice@example.com",
		"progress":   float64(80),
	})
	if !ok {
		t.Fatal("expected record to be normalized")
	}
	if c.TotalProgress != 80 {
		t.Errorf("TotalProgress = %v, want 80", c.TotalProgress)
	}
}

// TestResolveName は表示名の解決順序を検証する。
func TestResolveName(t *testing.T) {
	tests := []struct {
		name  string
		raw   udemy.RawRecord
		email string
		want  string
	}{
		{
			name:  "単一フィールドが最優先",
			raw:   udemy.RawRecord{"user_name": "Alice", "user_first_name": "X"},
			email: "alice@example.com",
			want:  "Alice",
		},
		{
			name:  "ネストされたname",
			raw:   udemy.RawRecord{"user": map[string]any{"name": "Bob"}},
			email: "bob@example.com",
			want:  "Bob",
		},
		{
			name:  "first+lastの合成",
			raw:   udemy.RawRecord{"user_first_name": "Carol", "user_surname": "García"},
			email: "carol@example.com",
			want:  "Carol García",
		},
		{
			name:  "firstのみでも合成される",
			raw:   udemy.RawRecord{"first_name": "Dave"},
			email: "dave@example.com",
			want:  "Dave",
		},
		{
			name:  "名前が無ければメールアドレス",
			raw:   udemy.RawRecord{},
			email: "eve@example.com",
			want:  "eve@example.com",
		},
		{
			name:  "メールも無ければプレースホルダ",
			raw:   udemy.RawRecord{},
			email: "",
			want:  "Usuario",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveName(tt.raw, tt.email); got != tt.want {
				t.Errorf("resolveName() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestParseTimestamp は複数レイアウトのフォールバックと失敗時のnilを検証する。
func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantNil bool
	}{
		{
			name:  "RFC3339",
			input: "2026-03-15T10:30:00Z",
			want:  time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "タイムゾーンなしのISO形式",
			input: "2026-03-15T10:30:00",
			want:  time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "スペース区切り",
			input: "2026-03-15 10:30:00",
			want:  time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "日付のみ",
			input: "2026-03-15",
			want:  time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "パース不能な文字列はnil",
			input:   "not-a-date",
			wantNil: true,
		},
		{
			name:    "空文字はnil",
			input:   "",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseTimestamp(tt.input)
			if tt.wantNil {
				if got != nil {
					t.Errorf("parseTimestamp(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("parseTimestamp(%q) = nil, want %v", tt.input, tt.want)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// TestNormalize_FullRecord は全フィールドが揃ったレコードの正規化を検証する。
func TestNormalize_FullRecord(t *testing.T) {
	raw := udemy.RawRecord{
		"path_id":           float64(42),
		"path_title":        "クラウド基礎",
		"path_items":        float64(12),
		"user_email":        "alice@example.com",
		"user_name":         "Alice",
		"ratio":             0.75,
		"completed_items":   float64(9),
		"in_progress_items": float64(2),
		"last_activity":     "2026-05-01T08:00:00Z",
	}

	c, ok := Normalize(raw)
	if !ok {
		t.Fatal("expected record to be normalized")
	}

	if c.PathID != 42 {
		t.Errorf("PathID = %d, want 42", c.PathID)
	}
	if c.PathTitle != "クラウド基礎" {
		t.Errorf("PathTitle = %q", c.PathTitle)
	}
	if c.PathTotalCourses == nil || *c.PathTotalCourses != 12 {
		t.Errorf("PathTotalCourses = %v, want 12", c.PathTotalCourses)
	}
	if c.Name != "Alice" {
		t.Errorf("Name = %q, want Alice", c.Name)
	}
	if c.TotalProgress != 75 {
		t.Errorf("TotalProgress = %v, want 75", c.TotalProgress)
	}
	if c.CoursesCompleted != 9 {
		t.Errorf("CoursesCompleted = %d, want 9", c.CoursesCompleted)
	}
	if c.CoursesInProgress != 2 {
		t.Errorf("CoursesInProgress = %d, want 2", c.CoursesInProgress)
	}
	if c.LastActivity == nil || !c.LastActivity.Equal(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("LastActivity = %v", c.LastActivity)
	}
}

// TestNormalize_MalformedTimestamp は不正なタイムスタンプがレコードを
// 中断させず未観測として扱われることを検証する。
func TestNormalize_MalformedTimestamp(t *testing.T) {
	c, ok := Normalize(udemy.RawRecord{
		"path_id":       float64(1),
		"user_email":    "alice@example.com",
		"last_activity": "garbage",
	})
	if !ok {
		t.Fatal("expected record to be normalized")
	}
	if c.LastActivity != nil {
		t.Errorf("LastActivity = %v, want nil", c.LastActivity)
	}
}

// TestNormalize_MissingOptionalFields は任意フィールド欠落時のゼロ値を検証する。
func TestNormalize_MissingOptionalFields(t *testing.T) {
	c, ok := Normalize(udemy.RawRecord{
		"path_id":    float64(7),
		"user_email": "alice@example.com",
	})
	if !ok {
		t.Fatal("expected record to be normalized")
	}
	if c.PathTitle != "" {
		t.Errorf("PathTitle = %q, want empty", c.PathTitle)
	}
	if c.PathTotalCourses != nil {
		t.Errorf("PathTotalCourses = %v, want nil", c.PathTotalCourses)
	}
	if c.TotalProgress != 0 {
		t.Errorf("TotalProgress = %v, want 0", c.TotalProgress)
	}
	if c.LastActivity != nil {
		t.Errorf("LastActivity = %v, want nil", c.LastActivity)
	}
	// 名前はメールアドレスで代用される
	if c.Name != "alice@example.com" {
		t.Errorf("Name = %q, want email fallback", c.Name)
	}
}

// TestAsFloat は数値エンコーディングの揺れの吸収を検証する。
func TestAsFloat(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   float64
		wantOK bool
	}{
		{name: "float64", input: float64(1.5), want: 1.5, wantOK: true},
		{name: "int", input: 3, want: 3, wantOK: true},
		{name: "int64", input: int64(4), want: 4, wantOK: true},
		{name: "json.Number", input: json.Number("2.5"), want: 2.5, wantOK: true},
		{name: "数値文字列", input: " 42 ", want: 42, wantOK: true},
		{name: "非数値文字列", input: "abc", wantOK: false},
		{name: "bool", input: true, wantOK: false},
		{name: "nil", input: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := asFloat(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("asFloat(%v) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("asFloat(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
