package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

const defaultTimeout = 5 * time.Second

// 事件类型。
const (
	EventRotate      = "rotate"
	EventEgressCheck = "egress_check"
)

// History 记录轮换与出口探测事件，作为诊断数据落到 SQL 库。
// 支持 MySQL（Open）与 SQLite（OpenSQLite）两种后端。
type History struct {
	db      *sql.DB
	dialect string
}

// EventRecord 一条已发生的池事件。
type EventRecord struct {
	ID         string
	ClientName string
	EventType  string
	Proxy      string
	Success    bool
	Detail     string
	CreatedAt  time.Time
}

// QueryEventsParams 查询过滤条件。
type QueryEventsParams struct {
	ClientName string
	EventType  string
	Limit      int
}

// Open initializes a MySQL-backed history store
// (dsn example: user:pass@tcp(host:3306)/dbname?parseTime=true).
func Open(dsn string) (*History, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(30)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(2 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	h := &History{db: db, dialect: "mysql"}
	if err := h.migrate(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *History) migrate(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var stmt string
	if h.dialect == "mysql" {
		stmt = "CREATE TABLE IF NOT EXISTS pool_events (" +
			"  id VARCHAR(36) PRIMARY KEY," +
			"  client_name VARCHAR(128) NOT NULL," +
			"  event_type VARCHAR(32) NOT NULL," +
			"  proxy TEXT NOT NULL," +
			"  success BOOLEAN NOT NULL," +
			"  detail TEXT NULL," +
			"  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP," +
			"  INDEX idx_client_created (client_name, created_at)" +
			") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;"
		_, err := h.db.ExecContext(ctx, stmt)
		return err
	}

	stmt = "CREATE TABLE IF NOT EXISTS pool_events (" +
		"  id TEXT PRIMARY KEY," +
		"  client_name TEXT NOT NULL," +
		"  event_type TEXT NOT NULL," +
		"  proxy TEXT NOT NULL," +
		"  success INTEGER NOT NULL," +
		"  detail TEXT," +
		"  created_at TIMESTAMP NOT NULL" +
		");"
	if _, err := h.db.ExecContext(ctx, stmt); err != nil {
		return err
	}
	_, err := h.db.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS idx_client_created ON pool_events (client_name, created_at);")
	return err
}

// InsertEvent 插入一条事件记录；ID 为空时自动生成。
func (h *History) InsertEvent(ctx context.Context, rec *EventRecord) error {
	if h == nil || h.db == nil {
		return errors.New("history store not initialized")
	}
	if rec == nil {
		return errors.New("record is nil")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	} else {
		rec.CreatedAt = rec.CreatedAt.UTC()
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	_, err := h.db.ExecContext(ctx,
		"INSERT INTO pool_events (id, client_name, event_type, proxy, success, detail, created_at) VALUES (?,?,?,?,?,?,?)",
		rec.ID, rec.ClientName, rec.EventType, rec.Proxy, rec.Success, rec.Detail, rec.CreatedAt)
	return err
}

// QueryEvents 返回最新的 limit 条记录，按时间倒序。
func (h *History) QueryEvents(ctx context.Context, params QueryEventsParams) ([]EventRecord, error) {
	if h == nil || h.db == nil {
		return nil, errors.New("history store not initialized")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 100
	} else if limit > 1000 {
		limit = 1000
	}

	query := "SELECT id, client_name, event_type, proxy, success, detail, created_at FROM pool_events WHERE 1=1"
	args := []interface{}{}
	if params.ClientName != "" {
		query += " AND client_name = ?"
		args = append(args, params.ClientName)
	}
	if params.EventType != "" {
		query += " AND event_type = ?"
		args = append(args, params.EventType)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var rec EventRecord
		var detail sql.NullString
		if err := rows.Scan(&rec.ID, &rec.ClientName, &rec.EventType, &rec.Proxy, &rec.Success, &detail, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Detail = detail.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PruneBefore 清理早于 cutoff 的事件，返回删除行数。
func (h *History) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if h == nil || h.db == nil {
		return 0, errors.New("history store not initialized")
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	res, err := h.db.ExecContext(ctx, "DELETE FROM pool_events WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (h *History) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultTimeout)
}
