package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	xerrors "RadialCore/internal/errors"
)

// MySQLConfig 描述 MySQL 连接池参数。
type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// MySQLStore 使用 MySQL 存储动作记录。
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore 创建连接池并执行内嵌的迁移脚本。
func NewMySQLStore(ctx context.Context, cfg MySQLConfig) (*MySQLStore, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "打开动作日志数据库失败")
	}
	store := &MySQLStore{db: db}
	if err := store.runMigrations(ctx); err != nil {
		db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "执行动作日志迁移失败")
	}
	return store, nil
}

func openDatabase(ctx context.Context, cfg MySQLConfig) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("MySQL DSN 不能为空")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("连接 MySQL 失败: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(4)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(2)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("无法连接到 MySQL: %w", err)
	}
	return db, nil
}

const insertRecordSQL = `INSERT INTO action_journal
    (id, invocation_id, action_id, success, message, kind, duration_ms, executed_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

const recentRecordsSQL = `SELECT id, invocation_id, action_id, success, message, kind, duration_ms, executed_at
    FROM action_journal ORDER BY executed_at DESC LIMIT ?`

// Append 将记录写入 MySQL。
func (s *MySQLStore) Append(ctx context.Context, r Record) error {
	if _, err := s.db.ExecContext(ctx, insertRecordSQL,
		r.ID,
		r.InvocationID,
		r.ActionID,
		r.Success,
		r.Message,
		r.Kind,
		r.Duration.Milliseconds(),
		r.At.UnixMilli(),
	); err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "写入动作日志失败")
	}
	return nil
}

// Recent 查询最近的若干条记录。
func (s *MySQLStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, recentRecordsSQL, limit)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "查询动作日志失败")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r          Record
			durationMS int64
			executedAt int64
		)
		if err := rows.Scan(&r.ID, &r.InvocationID, &r.ActionID, &r.Success, &r.Message, &r.Kind, &durationMS, &executedAt); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "解析动作日志失败")
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.At = time.UnixMilli(executedAt)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "遍历动作日志失败")
	}
	return records, nil
}

// Close 关闭底层数据库连接。
func (s *MySQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
