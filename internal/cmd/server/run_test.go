package serverrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/devlog/internal/config"
	pebblestore "github.com/rzbill/devlog/internal/storage/pebble"
	logpkg "github.com/rzbill/devlog/pkg/log"
)

func quietLogger() logpkg.Logger {
	return logpkg.NewLogger(logpkg.WithOutput(&logpkg.NullOutput{}))
}

func TestRunStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{
			DataDir:  dir,
			GRPCAddr: "127.0.0.1:0",
			HTTPAddr: "127.0.0.1:0",
			Fsync:    pebblestore.FsyncModeAlways,
			Config:   cfgpkg.Default(),
			Logger:   quietLogger(),
		})
	}()
	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}
	if _, err := os.Stat(filepath.Join(dir, "store")); err != nil {
		t.Fatalf("store dir: %v", err)
	}
}

func TestRunListenError(t *testing.T) {
	err := Run(context.Background(), Options{
		DataDir:  t.TempDir(),
		GRPCAddr: "127.0.0.1:-1",
		Config:   cfgpkg.Default(),
		Logger:   quietLogger(),
	})
	if err == nil {
		t.Fatal("expected listen error")
	}
}

func TestRunHTTPListenError(t *testing.T) {
	err := Run(context.Background(), Options{
		DataDir:  t.TempDir(),
		GRPCAddr: "127.0.0.1:0",
		HTTPAddr: "127.0.0.1:-1",
		Config:   cfgpkg.Default(),
		Logger:   quietLogger(),
	})
	if err == nil {
		t.Fatal("expected http listen error")
	}
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.HeaderFormat = "v9"
	err := Run(context.Background(), Options{DataDir: t.TempDir(), GRPCAddr: "127.0.0.1:0", Config: cfg, Logger: quietLogger()})
	if err == nil {
		t.Fatal("expected config error")
	}
}

func TestOptionsFromFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, o Options)
	}{
		{
			name: "defaults",
			args: nil,
			check: func(t *testing.T, o Options) {
				if o.Fsync != pebblestore.FsyncModeUnspecified {
					t.Errorf("fsync = %v", o.Fsync)
				}
				if o.HTTPAddr != DefaultHTTPAddr && os.Getenv("DEVLOG_HTTP") == "" {
					t.Errorf("http = %q", o.HTTPAddr)
				}
				if o.Config.Log.Level != "info" || o.Config.HeaderFormat != "v3" {
					t.Errorf("config = %+v", o.Config)
				}
			},
		},
		{
			name: "overrides",
			args: []string{"--fsync", "never", "--log-level", "debug", "--log-format", "json", "--grpc", "127.0.0.1:7000", "--http", "", "--data-dir", "/tmp/x"},
			check: func(t *testing.T, o Options) {
				if o.Fsync != pebblestore.FsyncModeNever || o.Config.Log.Level != "debug" || o.Config.Log.Format != "json" {
					t.Errorf("opts = %+v", o)
				}
				if o.GRPCAddr != "127.0.0.1:7000" || o.HTTPAddr != "" || o.DataDir != "/tmp/x" {
					t.Errorf("grpc=%q http=%q dir=%q", o.GRPCAddr, o.HTTPAddr, o.DataDir)
				}
			},
		},
		{name: "bad fsync", args: []string{"--fsync", "sometimes"}, wantErr: true},
		{name: "missing config file", args: []string{"--config", "/nonexistent/devlog.yaml"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewCommand().Commands()[0]
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("parse: %v", err)
			}
			o, err := optionsFromFlags(cmd)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("options: %v", err)
			}
			tt.check(t, o)
		})
	}
}
