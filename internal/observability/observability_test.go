package observability

import (
	"testing"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitLoggers(t *testing.T) {
	origCLI, origServer := CLILogger, ServerLogger
	t.Cleanup(func() {
		CLILogger, ServerLogger = origCLI, origServer
	})

	InitCLILogger("picolens-test", true)
	require.NotNil(t, CLILogger)
	CLILogger.Debug("cli logger ready", zap.String("mode", "verbose"))

	InitServerLogger("picolens-test", "debug", "picolens")
	require.NotNil(t, ServerLogger)
	ServerLogger.Info("server logger ready", zap.String("component", "test"))
}

func TestServerLoggerConfig(t *testing.T) {
	t.Setenv("PICOLENS_ENV", "test")

	cfg := ServerLoggerConfig("picolens", "warn", "picolens")
	assert.Equal(t, logging.ProfileStructured, cfg.Profile)
	assert.Equal(t, "WARN", cfg.DefaultLevel)
	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, "picolens", cfg.StaticFields["namespace"])
	require.Len(t, cfg.Sinks, 1)
	assert.Equal(t, "json", cfg.Sinks[0].Format)

	logger, err := logging.New(cfg)
	require.NoError(t, err)
	logger.Warn("config accepted")

	assert.Empty(t, ServerLoggerConfig("picolens", "info", "").StaticFields)
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]string{
		"trace":   "TRACE",
		"DEBUG":   "DEBUG",
		"info":    "INFO",
		"warning": "WARN",
		" error ": "ERROR",
		"bogus":   "INFO",
		"":        "INFO",
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLogLevel(in), in)
	}
}

func TestInitMetricsRandomPort(t *testing.T) {
	origSys, origExporter, origPort := TelemetrySystem, PrometheusExporter, metricsPort
	t.Cleanup(func() {
		_ = ShutdownMetrics()
		TelemetrySystem, PrometheusExporter, metricsPort = origSys, origExporter, origPort
	})

	require.NoError(t, InitMetrics("picolens_test", 0))
	require.NotNil(t, TelemetrySystem)
	require.NotNil(t, PrometheusExporter)
	assert.NoError(t, TelemetrySystem.Counter("observability_test_total", 1, nil))

	require.NoError(t, ShutdownMetrics())
	assert.Nil(t, TelemetrySystem)
	assert.Nil(t, PrometheusExporter)
	assert.NoError(t, ShutdownMetrics())
}

func TestResolvePort(t *testing.T) {
	port, err := resolvePort("[::]:9321")
	require.NoError(t, err)
	assert.Equal(t, 9321, port)

	_, err = resolvePort("no-port")
	assert.Error(t, err)
}
