package gorm

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func newTestLogger(buf *bytes.Buffer, level gormlogger.LogLevel, slow time.Duration) *Logger {
	return &Logger{
		logger:        zerolog.New(buf).Level(zerolog.TraceLevel),
		level:         level,
		slowThreshold: slow,
	}
}

func TestTrace(t *testing.T) {
	stmt := func() (string, int64) { return "SELECT * FROM roles", 3 }

	tests := []struct {
		name    string
		level   gormlogger.LogLevel
		slow    time.Duration
		begin   time.Time
		err     error
		want    string
		wantNot bool
	}{
		{name: "silent logs nothing", level: gormlogger.Silent, err: errors.New("boom"), wantNot: true},
		{name: "error is logged", level: gormlogger.Error, err: errors.New("boom"), want: "query failed"},
		{name: "record not found is not an error", level: gormlogger.Error, err: gormlogger.ErrRecordNotFound, wantNot: true},
		{
			name:  "slow query",
			level: gormlogger.Warn,
			slow:  time.Millisecond,
			begin: time.Now().Add(-time.Second),
			want:  "slow query",
		},
		{name: "fast query at warn level", level: gormlogger.Warn, slow: time.Hour, wantNot: true},
		{name: "info logs every query", level: gormlogger.Info, want: "SELECT * FROM roles"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			begin := tt.begin
			if begin.IsZero() {
				begin = time.Now()
			}

			newTestLogger(&buf, tt.level, tt.slow).Trace(context.Background(), begin, stmt, tt.err)

			if tt.wantNot {
				assert.Empty(t, buf.String())
				return
			}

			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestLogMode(t *testing.T) {
	var buf bytes.Buffer

	l := newTestLogger(&buf, gormlogger.Warn, 0)
	l.Info(context.Background(), "hidden %d", 1)
	assert.Empty(t, buf.String())

	l.LogMode(gormlogger.Info).Info(context.Background(), "shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
	assert.Equal(t, gormlogger.Warn, l.level, "LogMode must not modify the receiver")
}
