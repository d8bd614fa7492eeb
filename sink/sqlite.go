package sink

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	line       BLOB    NOT NULL,
	written_at INTEGER NOT NULL
)`

// busyTimeoutMS 数据库被其他进程锁住时的最长等待。
// Write 在 poller 线程中执行，等待不能超过一次短暂的停顿，超时的记录按失败丢弃。
const busyTimeoutMS = 10

// SQLite 将每条记录插入 records 表，seq 保留提交顺序
type SQLite struct {
	path string
	db   *sql.DB
	ins  *sql.Stmt
	log  *zap.Logger
}

// OpenSQLite 打开（或创建）数据库并建表
func OpenSQLite(path string, log *zap.Logger) (*SQLite, error) {
	if log == nil {
		log = zap.NewNop()
	}
	// 经 DSN 设置，连接重建后依然生效
	dsn := fmt.Sprintf("%s?_busy_timeout=%d", path, busyTimeoutMS)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sink: open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sink: connect sqlite: %w", err)
	}
	// 单写者
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		sqliteSchema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("sink: exec %q: %w", stmt, err)
		}
	}
	ins, err := db.Prepare("INSERT INTO records (line, written_at) VALUES (?, ?)")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sink: prepare insert: %w", err)
	}
	log.Info("opened", zap.String("path", path), zap.String("driver", DriverSQLite))
	return &SQLite{path: path, db: db, ins: ins, log: log}, nil
}

func (s *SQLite) Write(rec []byte) error {
	if s.db == nil {
		return ErrClosed
	}
	if rec == nil {
		// nil 会被绑定为 NULL
		rec = []byte{}
	}
	if _, err := s.ins.Exec(rec, time.Now().UnixNano()); err != nil {
		return &WriteError{Op: "insert", Path: s.path, Err: err}
	}
	return nil
}

// Lines 按 seq 顺序返回所有记录
func (s *SQLite) Lines() ([][]byte, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.Query("SELECT line FROM records ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("sink: query records: %w", err)
	}
	defer rows.Close()
	var out [][]byte
	for rows.Next() {
		var line []byte
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("sink: scan record: %w", err)
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.ins.Close()
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	s.db = nil
	return err
}
