package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "SELECT", operationFromSQL("select * from tickets"))
	assert.Equal(t, "INSERT", operationFromSQL(" INSERT INTO tasks (id) VALUES (1)"))
	assert.Equal(t, "SELECT", operationFromSQL("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}

func TestGormLoggerSkipsRecordNotFound(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewGormLogger(zap.New(core), DefaultGormLoggerConfig(false))

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM categories WHERE id = 1", 0
	}, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len())

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "UPDATE tickets SET status = 'closed'", 1
	}, errors.New("database is locked"))
	assert.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "gorm.query", entry.Message)
	assert.Equal(t, "UPDATE", entry.ContextMap()["operation"])
}

func TestGormLoggerLogMode(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewGormLogger(zap.New(core), DefaultGormLoggerConfig(false))

	silent := l.LogMode(gormlogger.Silent)
	silent.Error(context.Background(), "should not log")
	assert.Equal(t, 0, logs.Len())

	l.Warn(context.Background(), "slow migration")
	assert.Equal(t, 1, logs.Len())
}
