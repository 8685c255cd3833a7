package acrossdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/yamakishi/tehai-ops/internal/merge"
)

// ErrUnavailable ソースDBに到達できない。マージ全体を中断させる致命エラー。
// 行単位の不正データ（数値変換失敗など）はここには含まれず、既定値で続行する。
var ErrUnavailable = errors.New("across db unavailable")

// 利用可能なビュー（読み取り専用）。ここに無いビューへのクエリは拒否する。
const (
	ViewTehai  = "V_D手配リスト" // 手配リスト（BOM・部品表）
	ViewHacchu = "V_D発注"    // 発注データ
	ViewZan    = "V_D発注残"   // 発注残（納入済数を含む）
	ViewShiire = "V_D仕入"    // 仕入（納入実績）
)

var availableViews = map[string]string{
	ViewTehai:  "手配リスト（BOM・部品表）",
	ViewHacchu: "発注データ（発注番号・仕入先・納期など）",
	ViewZan:    "発注残データ（納入済数を含む）",
	ViewShiire: "仕入データ（納入実績）",
}

// AvailableViews ビュー名→説明
func AvailableViews() map[string]string {
	views := make(map[string]string, len(availableViews))
	for k, v := range availableViews {
		views[k] = v
	}
	return views
}

// RowSet ビュー検索の結果
type RowSet struct {
	Columns []string       `json:"columns"`
	Rows    []merge.RawRow `json:"rows"`
	Count   int            `json:"count"`
}

// Client Across DB（レガシーERP、SQL Server）へのリードオンリークライアント
type Client struct {
	db *sql.DB
}

func NewClient(dsn string) (*Client, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Client{db: db}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

// QueryView ホワイトリスト済みビューへのパラメータ付き検索
func (c *Client) QueryView(ctx context.Context, view, whereClause string, limit int, args ...any) (*RowSet, error) {
	if _, ok := availableViews[view]; !ok {
		return nil, fmt.Errorf("不正なビュー名: %s", view)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := fmt.Sprintf("SELECT TOP %d * FROM dbo.[%s]", limit, view)
	if whereClause != "" {
		query += " WHERE " + whereClause
	}
	return c.query(ctx, query, args...)
}

func (c *Client) query(ctx context.Context, query string, args ...any) (*RowSet, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	set := &RowSet{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		raw := make(merge.RawRow, len(cols))
		for i, col := range cols {
			raw[col] = values[i]
		}
		set.Rows = append(set.Rows, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	set.Count = len(set.Rows)
	return set, nil
}

// PadOrderNumber 発注番号の8桁ゼロパディング（ビュー側の格納形式に合わせる）
func PadOrderNumber(orderNumber string) string {
	s := strings.TrimSpace(orderNumber)
	for len(s) < 8 {
		s = "0" + s
	}
	return s
}

// TehaiBySeiban 製番の手配リスト行を取得
func (c *Client) TehaiBySeiban(ctx context.Context, seiban string) ([]merge.RawRow, error) {
	set, err := c.query(ctx, `
		SELECT 製番, 担当者, ページNo, 行No, 部品No, 階層, 品目CD,
		       品名, 仕様１, 仕様２, 手配区分CD, 手配区分, メーカー,
		       材質, 員数, 必要数, 手配数, 単位, 備考, 日付
		FROM dbo.[V_D手配リスト]
		WHERE 製番 = @p1
	`, strings.TrimSpace(seiban))
	if err != nil {
		return nil, err
	}
	return set.Rows, nil
}

// HacchuBySeiban 製番の発注データ行を取得
func (c *Client) HacchuBySeiban(ctx context.Context, seiban string) ([]merge.RawRow, error) {
	set, err := c.query(ctx, `
		SELECT 発注番号, 製番, 品名, 仕様１, 仕様２, 手配区分CD, 手配区分,
		       材質, 仕入先CD, 仕入先名, 仕入先略称, 発注数, 単位,
		       発注単価, 発注金額, 発注日, 納期, 回答納期, 備考
		FROM dbo.[V_D発注]
		WHERE 製番 = @p1
	`, strings.TrimSpace(seiban))
	if err != nil {
		return nil, err
	}
	return set.Rows, nil
}

// ShiireBySeiban 製番の仕入（納入実績）行を取得
func (c *Client) ShiireBySeiban(ctx context.Context, seiban string) ([]merge.RawRow, error) {
	set, err := c.query(ctx, `
		SELECT 発注番号, 製番, 納入日, 納入数
		FROM dbo.[V_D仕入]
		WHERE 製番 = @p1
	`, strings.TrimSpace(seiban))
	if err != nil {
		return nil, err
	}
	return set.Rows, nil
}

// MihatchuBySeiban 未発注（社内加工・在庫）行を取得。
// V_D手配リストのうち発注データに乗らない社内手配分を拾う。
func (c *Client) MihatchuBySeiban(ctx context.Context, seiban string) ([]merge.RawRow, error) {
	set, err := c.query(ctx, `
		SELECT 製番, ページNo, 行No, 部品No, 階層, 品目CD,
		       品名, 仕様１, 仕様２, 手配区分CD, 手配区分, メーカー,
		       材質, 員数, 必要数, 手配数, 単位, 備考
		FROM dbo.[V_D手配リスト]
		WHERE 製番 = @p1 AND 手配区分CD IN ('11', '15')
	`, strings.TrimSpace(seiban))
	if err != nil {
		return nil, err
	}
	return set.Rows, nil
}

// SearchOrder 発注番号で発注データを検索（ゼロパディング対応）
func (c *Client) SearchOrder(ctx context.Context, orderNumber string) (*RowSet, error) {
	return c.QueryView(ctx, ViewHacchu, "発注番号 = @p1", 100, PadOrderNumber(orderNumber))
}

// SearchOrderRemaining 発注残（納入状況）を検索
func (c *Client) SearchOrderRemaining(ctx context.Context, orderNumber string) (*RowSet, error) {
	return c.QueryView(ctx, ViewZan, "発注番号 = @p1", 100, PadOrderNumber(orderNumber))
}

// SearchReceipts 仕入（納入実績）を検索
func (c *Client) SearchReceipts(ctx context.Context, orderNumber string) (*RowSet, error) {
	return c.QueryView(ctx, ViewShiire, "発注番号 = @p1", 100, PadOrderNumber(orderNumber))
}

// Status 現在のDB状態スナップショット。変更検知（merge.Diff）の入力になる。
func (c *Client) Status(ctx context.Context) (merge.Snapshot, error) {
	snapshot := merge.Snapshot{
		SeibanCounts: make(map[string]int),
		TakenAt:      time.Now().UTC(),
	}

	row := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dbo.[V_D手配リスト]")
	if err := row.Scan(&snapshot.TehaiCount); err != nil {
		return snapshot, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	row = c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dbo.[V_D発注]")
	if err := row.Scan(&snapshot.HacchuCount); err != nil {
		return snapshot, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rows, err := c.db.QueryContext(ctx, "SELECT 製番, COUNT(*) FROM dbo.[V_D手配リスト] GROUP BY 製番")
	if err != nil {
		return snapshot, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()
	for rows.Next() {
		var seiban string
		var count int
		if err := rows.Scan(&seiban, &count); err != nil {
			return snapshot, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		snapshot.SeibanCounts[strings.TrimSpace(seiban)] = count
	}
	return snapshot, rows.Err()
}
