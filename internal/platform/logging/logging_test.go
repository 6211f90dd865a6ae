package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/m-mizutani/masq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jsonLogger returns a buffer-backed slog logger for output assertions.
func jsonLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer

	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

// redactingLogger returns a logger with the default redaction applied.
func redactingLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{ReplaceAttr: NewReplaceAttr()})

	return slog.New(handler), &buf
}

func TestFromContext(t *testing.T) {
	custom := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name     string
		ctx      context.Context
		expected *slog.Logger
	}{
		{name: "nil context falls back to default", ctx: nil, expected: defaultLogger},
		{name: "bare context falls back to default", ctx: context.Background(), expected: defaultLogger},
		{name: "context with logger returns it", ctx: WithContext(context.Background(), custom), expected: custom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FromContext(tt.ctx))
		})
	}
}

func TestContextIDEnrichers(t *testing.T) {
	tests := []struct {
		name   string
		enrich func(context.Context, string) context.Context
		key    string
		value  string
	}{
		{name: "request id", enrich: WithRequestID, key: "request_id", value: "req-7f3a"},
		{name: "trace id", enrich: WithTraceID, key: "trace_id", value: "trace-91cc"},
		{name: "correlation id", enrich: WithCorrelationID, key: "correlation_id", value: "corr-e004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := jsonLogger()

			ctx := WithContext(context.Background(), logger)
			ctx = tt.enrich(ctx, tt.value)

			FromContext(ctx).InfoContext(ctx, "serving random quote")

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.value, entry[tt.key])
		})
	}
}

func TestMultipleContextIDs(t *testing.T) {
	logger, buf := jsonLogger()

	ctx := WithContext(context.Background(), logger)
	ctx = WithRequestID(ctx, "req-7f3a")
	ctx = WithTraceID(ctx, "trace-91cc")
	ctx = WithCorrelationID(ctx, "corr-e004")

	FromContext(ctx).Info("quote liked")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-7f3a", entry["request_id"])
	assert.Equal(t, "trace-91cc", entry["trace_id"])
	assert.Equal(t, "corr-e004", entry["correlation_id"])
}

func TestSetDefault(t *testing.T) {
	original := defaultLogger
	defer SetDefault(original)

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	SetDefault(custom)

	assert.Equal(t, custom, FromContext(context.Background()))
	assert.Equal(t, custom, defaultLogger)
}

func TestNew(t *testing.T) {
	logger := New(&Config{
		Level:   "info",
		Format:  "json",
		Service: "quote-service",
		Version: "1.2.3",
	})
	assert.NotNil(t, logger)
}

func TestNewWithWriter(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		level    string
		logAt    func(l *slog.Logger)
		contains []string
	}{
		{
			name:     "json format carries service metadata",
			format:   "json",
			level:    "info",
			logAt:    func(l *slog.Logger) { l.Info("catalog import finished", slog.Int("added", 12)) },
			contains: []string{"catalog import finished", "quote-service", "1.2.3", "added"},
		},
		{
			name:     "text format at debug",
			format:   "text",
			level:    "debug",
			logAt:    func(l *slog.Logger) { l.Debug("drawing candidate") },
			contains: []string{"drawing candidate", "quote-service"},
		},
		{
			name:     "pretty format",
			format:   "pretty",
			level:    "info",
			logAt:    func(l *slog.Logger) { l.Info("server listening") },
			contains: []string{"server listening"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(&Config{
				Level:   tt.level,
				Format:  tt.format,
				Service: "quote-service",
				Version: "1.2.3",
			}, &buf)
			require.NotNil(t, logger)

			tt.logAt(logger)

			output := buf.String()
			for _, want := range tt.contains {
				assert.Contains(t, output, want)
			}
		})
	}
}

func TestNewWithWriter_JSONStructure(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&Config{
		Level:   "info",
		Format:  "json",
		Service: "quote-service",
		Version: "1.2.3",
	}, &buf)

	logger.Info("quote liked", slog.Int("quote_id", 42))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "quote liked", entry["msg"])
	assert.Equal(t, "quote-service", entry["service_name"])
	assert.Equal(t, "1.2.3", entry["service_version"])
}

func TestNewWithWriter_FileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "service.log")

	var buf bytes.Buffer
	logger := NewWithWriter(&Config{
		Level:   "info",
		Format:  "json",
		Service: "quote-service",
		Version: "1.2.3",
		File: FileConfig{
			Enabled:    true,
			Path:       logFile,
			MaxSizeMB:  1,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}, &buf)
	require.NotNil(t, logger)

	logger.Info("teed to file")

	// Terminal writer and log file both receive the record.
	assert.Contains(t, buf.String(), "teed to file")
	require.FileExists(t, logFile)

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "teed to file")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{input: "trace", expected: LevelTrace},
		{input: "debug", expected: slog.LevelDebug},
		{input: "info", expected: slog.LevelInfo},
		{input: "warn", expected: slog.LevelWarn},
		{input: "warning", expected: slog.LevelWarn},
		{input: "error", expected: slog.LevelError},
		{input: "DEBUG", expected: slog.LevelDebug},
		{input: "ERROR", expected: slog.LevelError},
		{input: "unknown", expected: slog.LevelInfo},
		{input: "", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run("level "+tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestSlogToCharmLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    slog.Level
		expected log.Level
	}{
		{name: "trace maps to debug", input: LevelTrace, expected: log.DebugLevel},
		{name: "debug", input: slog.LevelDebug, expected: log.DebugLevel},
		{name: "info", input: slog.LevelInfo, expected: log.InfoLevel},
		{name: "warn", input: slog.LevelWarn, expected: log.WarnLevel},
		{name: "error", input: slog.LevelError, expected: log.ErrorLevel},
		{name: "below debug clamps to debug", input: slog.Level(-12), expected: log.DebugLevel},
		{name: "above error clamps to error", input: slog.Level(12), expected: log.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, slogToCharmLevel(tt.input))
		})
	}
}

func TestNewMultiHandler(t *testing.T) {
	multi := NewMultiHandler(
		slog.NewTextHandler(io.Discard, nil),
		slog.NewJSONHandler(io.Discard, nil),
	)
	require.NotNil(t, multi)
	assert.Len(t, multi.handlers, 2)
}

func TestMultiHandler_Enabled(t *testing.T) {
	debugHandler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})
	errorHandler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})

	tests := []struct {
		name     string
		handlers []slog.Handler
		level    slog.Level
		expected bool
	}{
		{name: "any handler enabled suffices", handlers: []slog.Handler{debugHandler, errorHandler}, level: slog.LevelInfo, expected: true},
		{name: "no handler enabled", handlers: []slog.Handler{errorHandler, errorHandler}, level: slog.LevelInfo, expected: false},
		{name: "all handlers enabled", handlers: []slog.Handler{debugHandler, debugHandler}, level: slog.LevelWarn, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			multi := NewMultiHandler(tt.handlers...)
			assert.Equal(t, tt.expected, multi.Enabled(context.Background(), tt.level))
		})
	}
}

func TestMultiHandler_Handle(t *testing.T) {
	var terminal, file bytes.Buffer

	multi := NewMultiHandler(
		slog.NewJSONHandler(&terminal, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)
	logger := slog.New(multi)

	logger.Info("quote served")
	assert.Contains(t, terminal.String(), "quote served")
	assert.Contains(t, file.String(), "quote served")

	terminal.Reset()
	file.Reset()

	// Below the second handler's level, only the first one records it.
	logger.Debug("candidate rejected")
	assert.Contains(t, terminal.String(), "candidate rejected")
	assert.Empty(t, file.String())
}

func TestMultiHandler_WithAttrs(t *testing.T) {
	var buf1, buf2 bytes.Buffer

	multi := NewMultiHandler(slog.NewJSONHandler(&buf1, nil), slog.NewJSONHandler(&buf2, nil))
	enriched := multi.WithAttrs([]slog.Attr{slog.String("component", "app.QuoteService")})
	require.NotNil(t, enriched)

	slog.New(enriched).Info("view recorded")

	assert.Contains(t, buf1.String(), "app.QuoteService")
	assert.Contains(t, buf2.String(), "app.QuoteService")
}

func TestMultiHandler_WithGroup(t *testing.T) {
	var buf1, buf2 bytes.Buffer

	multi := NewMultiHandler(slog.NewJSONHandler(&buf1, nil), slog.NewJSONHandler(&buf2, nil))
	grouped := multi.WithGroup("request")
	require.NotNil(t, grouped)

	slog.New(grouped).Info("handled", slog.String("path", "/api/v1/quote"))

	assert.Contains(t, buf1.String(), "request")
	assert.Contains(t, buf2.String(), "request")
}

func TestDefaultRedactOptions(t *testing.T) {
	assert.Greater(t, len(DefaultRedactOptions()), 10)
}

func TestNewReplaceAttr(t *testing.T) {
	tests := []struct {
		name         string
		fieldName    string
		fieldValue   string
		shouldRedact bool
	}{
		{name: "authorization header", fieldName: "authorization", fieldValue: "Bearer abc.def.ghi", shouldRedact: true},
		{name: "raw token", fieldName: "token", fieldValue: "tok-4492-secret", shouldRedact: true},
		{name: "cognito id token", fieldName: "id_token", fieldValue: "id-token-material", shouldRedact: true},
		{name: "cognito access token", fieldName: "accessToken", fieldValue: "access-token-material", shouldRedact: true},
		{name: "refresh token", fieldName: "refresh_token", fieldValue: "refresh-token-material", shouldRedact: true},
		{name: "feed api key", fieldName: "api_key", fieldValue: "zen-feed-key-4492", shouldRedact: true},
		{name: "password", fieldName: "password", fieldValue: "hunter2", shouldRedact: true},
		{name: "private key", fieldName: "privateKey", fieldValue: "-----BEGIN KEY-----", shouldRedact: true},
		{name: "username passes through", fieldName: "username", fieldValue: "alice", shouldRedact: false},
		{name: "quote author passes through", fieldName: "author", fieldValue: "Marcus Aurelius", shouldRedact: false},
		{name: "quote id passes through", fieldName: "quote_id", fieldValue: "42", shouldRedact: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := redactingLogger()

			logger.Info("request handled", slog.String(tt.fieldName, tt.fieldValue))

			output := buf.String()
			if tt.shouldRedact {
				assert.NotContains(t, output, tt.fieldValue)
				assert.Contains(t, output, tt.fieldName)
				assert.True(t,
					strings.Contains(output, "REDACTED") || strings.Contains(output, "***"),
					"output should carry a redaction marker",
				)
			} else {
				assert.Contains(t, output, tt.fieldValue)
			}
		})
	}
}

// A JWT-shaped value is masked even under a field name the deny list
// does not cover.
func TestNewReplaceAttr_JWTValue(t *testing.T) {
	logger, buf := redactingLogger()

	jwt := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9." +
		"eyJzdWIiOiJhbGljZSIsImNvZ25pdG86Z3JvdXBzIjpbIlVTRVIiXX0." +
		"c2lnbmF0dXJl"

	logger.Info("claims decoded", slog.String("header_value", jwt))

	output := buf.String()
	assert.NotContains(t, output, jwt)
	assert.Contains(t, output, "header_value")
}

func TestNewReplaceAttr_BearerValue(t *testing.T) {
	logger, buf := redactingLogger()

	logger.Info("proxying", slog.String("upstream_auth", "Bearer zen-feed-key-4492"))

	output := buf.String()
	assert.NotContains(t, output, "zen-feed-key-4492")
	assert.Contains(t, output, "upstream_auth")
}

func TestNewReplaceAttr_SecretPrefix(t *testing.T) {
	logger, buf := redactingLogger()

	logger.Info("config loaded", slog.String("secret_feed_config", "feed-credential"))

	output := buf.String()
	assert.NotContains(t, output, "feed-credential")
	assert.Contains(t, output, "secret_feed_config")
}

func TestNewReplaceAttr_ExtraOptions(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		ReplaceAttr: NewReplaceAttr(masq.WithFieldName("feedKey")),
	})
	logger := slog.New(handler)

	logger.Info("feed client built", slog.String("feedKey", "zen-feed-key-4492"))

	output := buf.String()
	assert.NotContains(t, output, "zen-feed-key-4492")
	assert.Contains(t, output, "feedKey")
}

// Request-scoped ids survive redaction; only the secret-shaped attrs are
// masked.
func TestContextWithRedaction(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{ReplaceAttr: NewReplaceAttr()})
	logger := slog.New(handler)

	ctx := WithContext(context.Background(), logger)
	ctx = WithRequestID(ctx, "req-redaction-7f3a")

	FromContext(ctx).Info("like recorded",
		slog.String("username", "alice"),
		slog.String("authorization", "Bearer tok-4492-secret"),
	)

	output := buf.String()
	assert.Contains(t, output, "req-redaction-7f3a")
	assert.Contains(t, output, "alice")
	assert.NotContains(t, output, "tok-4492-secret")
	assert.Contains(t, output, "authorization")
}
