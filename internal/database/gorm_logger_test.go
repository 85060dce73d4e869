package database

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestGormSlogLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sql := func() (string, int64) { return "SELECT 1", 1 }
	ctx := context.Background()

	l := newGormSlogLogger(base, false)
	l.Trace(ctx, time.Now(), sql, nil)
	assert.Empty(t, buf.String(), "plain queries need info mode")

	l.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String(), "record not found is not an error")

	l.Trace(ctx, time.Now(), sql, gorm.ErrInvalidData)
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "gorm query failed")
	buf.Reset()

	l.Trace(ctx, time.Now(), sql, gorm.ErrDuplicatedKey)
	assert.Contains(t, buf.String(), "level=WARN")
	buf.Reset()

	l.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), "gorm slow query")
	buf.Reset()

	l.LogMode(logger.Info).Trace(ctx, time.Now(), sql, nil)
	assert.Contains(t, buf.String(), "sql=\"SELECT 1\"")
	buf.Reset()

	l.LogMode(logger.Silent).Trace(ctx, time.Now(), sql, gorm.ErrInvalidData)
	assert.Empty(t, buf.String())
}
