package serve

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tabletrelay/pkg/config"
	"tabletrelay/pkg/log"
	"tabletrelay/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
)

func TestGetCommand(t *testing.T) {
	t.Parallel()

	cmd := GetCommand()

	if cmd == nil {
		t.Fatal("GetCommand() returned nil")
	}
	if cmd.Name != "serve" {
		t.Errorf("command name = %q; want %q", cmd.Name, "serve")
	}
	if cmd.Action == nil {
		t.Error("command action should not be nil")
	}
	if cmd.Flags == nil {
		t.Error("command flags should not be nil")
	}
}

// parse runs the serve command with args and returns the loaded config
// instead of serving.
func parse(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()

	var cfg *config.Config
	var loadErr error

	cmd := GetCommand()
	cmd.Action = func(ctx context.Context, cmd *cli.Command) error {
		cfg, loadErr = loadConfig(cmd)
		return nil
	}

	if err := cmd.Run(context.Background(), append([]string{"serve"}, args...)); err != nil {
		t.Fatalf("Run(%v) error = %v", args, err)
	}
	return cfg, loadErr
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := parse(t)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.PointerAddr != config.DefaultPointerAddr {
		t.Errorf("PointerAddr = %q; want %q", cfg.PointerAddr, config.DefaultPointerAddr)
	}
	if cfg.ScreenAddr != config.ScreenAddr {
		t.Errorf("ScreenAddr = %q; want %q", cfg.ScreenAddr, config.ScreenAddr)
	}
	if cfg.Verbose {
		t.Error("Verbose should default to false")
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "relay.yaml")
	data := "pointer_addr: 127.0.0.1:4000\nmetrics_addr: 127.0.0.1:9100\ncapture:\n  display: \":5\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}

	cfg, err := parse(t, "--config", path, "-p", "127.0.0.1:4001", "--device-name", "studio pen", "-v")
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.PointerAddr != "127.0.0.1:4001" {
		t.Errorf("PointerAddr = %q; flag should win", cfg.PointerAddr)
	}
	if cfg.MetricsAddr != "127.0.0.1:9100" {
		t.Errorf("MetricsAddr = %q; file value should be kept", cfg.MetricsAddr)
	}
	if cfg.Capture.Display != ":5" {
		t.Errorf("Display = %q; file value should be kept", cfg.Capture.Display)
	}
	if cfg.Device.Name != "studio pen" {
		t.Errorf("Device.Name = %q", cfg.Device.Name)
	}
	if !cfg.Verbose {
		t.Error("Verbose should be set by -v")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := parse(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("loadConfig() should fail for a missing file")
	}
}

func TestServe_BindFailure(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.PointerAddr = "127.0.0.1:99999"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := serve(ctx, cfg, log.NewLoggerTo(&strings.Builder{}, false))
	if err == nil || !strings.Contains(err.Error(), "binding pointer endpoint") {
		t.Errorf("serve() error = %v; want pointer bind failure", err)
	}
}

func TestMetricsMux(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ConnectionsAccepted.WithLabelValues("pointer").Inc()

	rec := httptest.NewRecorder()
	metricsMux(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `tabletrelay_connections_accepted_total{endpoint="pointer"} 1`) {
		t.Errorf("metrics output missing counter:\n%s", rec.Body.String())
	}
}
