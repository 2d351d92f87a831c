package database

import (
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
)

// ReconnectPlugin pings the pool before statements and waits for it to recover
// when the connection was dropped.
type ReconnectPlugin struct {
	logger     *slog.Logger
	maxRetries int
	retryDelay time.Duration
	reconnects atomic.Int64
}

// NewReconnectPlugin creates a new reconnect plugin.
func NewReconnectPlugin(logger *slog.Logger) *ReconnectPlugin {
	return &ReconnectPlugin{
		logger:     logger,
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
	}
}

func (p *ReconnectPlugin) Name() string {
	return "edtech:reconnect"
}

func (p *ReconnectPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		name string
		reg  func() error
	}{
		{"query", func() error { return cb.Query().Before("gorm:query").Register("reconnect:query", p.check) }},
		{"create", func() error { return cb.Create().Before("gorm:create").Register("reconnect:create", p.check) }},
		{"update", func() error { return cb.Update().Before("gorm:update").Register("reconnect:update", p.check) }},
		{"delete", func() error { return cb.Delete().Before("gorm:delete").Register("reconnect:delete", p.check) }},
		{"row", func() error { return cb.Row().Before("gorm:row").Register("reconnect:row", p.check) }},
		{"raw", func() error { return cb.Raw().Before("gorm:raw").Register("reconnect:raw", p.check) }},
	}
	for _, h := range hooks {
		if err := h.reg(); err != nil {
			return err
		}
	}
	return nil
}

// Reconnects returns the number of recoveries observed.
func (p *ReconnectPlugin) Reconnects() int64 {
	return p.reconnects.Load()
}

func (p *ReconnectPlugin) check(db *gorm.DB) {
	// statements inside a transaction are pinned to one connection
	if _, inTx := db.Statement.ConnPool.(*sql.Tx); inTx {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Ping(); err != nil && isConnectionError(err) {
		p.logger.Warn("database connection lost, attempting to reconnect", slog.String("error", err.Error()))
		if !p.recover(sqlDB) {
			p.logger.Error("database reconnection failed", slog.Int("attempts", p.maxRetries))
		}
	}
}

func (p *ReconnectPlugin) recover(sqlDB *sql.DB) bool {
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		time.Sleep(p.retryDelay * time.Duration(attempt))
		if err := sqlDB.Ping(); err == nil {
			total := p.reconnects.Add(1)
			p.logger.Info("database reconnection successful", slog.Int64("total_reconnects", total))
			return true
		}
	}
	return false
}

var connectionErrorPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"connection timed out",
	"bad connection",
	"closed network connection",
	"server closed",
	"eof",
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range connectionErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
