package console_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rzbill/devlog/internal/entry"
	"github.com/rzbill/devlog/internal/eventlog"
	"github.com/rzbill/devlog/internal/handler/console"
	"github.com/rzbill/devlog/internal/logerr"
	logpkg "github.com/rzbill/devlog/pkg/log"
)

func newRegistry(t *testing.T) *eventlog.Registry {
	t.Helper()
	reg, err := eventlog.NewRegistry(eventlog.Options{
		Capabilities: eventlog.Capabilities{Format: entry.FormatV3},
		Clock:        func() int64 { return 1700 },
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func TestConsoleLineFormat(t *testing.T) {
	reg := newRegistry(t)
	var out bytes.Buffer
	l, err := reg.Register("con", console.New(&out), 0)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := l.Printf(entry.ModuleOS, entry.LevelWarn, "disk %d%%", 91); err != nil {
		t.Fatalf("Printf: %v", err)
	}
	if err := l.AppendBody(entry.ModuleFS, entry.LevelInfo, entry.TypeBinary, []byte{0xde, 0xad}); err != nil {
		t.Fatalf("AppendBody: %v", err)
	}
	want := "[ts=1700 mod=OS level=WARN idx=0] disk 91%\n" +
		"[ts=1700 mod=FS level=INFO idx=1] dead\n"
	if out.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestConsoleRendersCBOR(t *testing.T) {
	reg := newRegistry(t)
	var out bytes.Buffer
	l, err := reg.Register("con", console.New(&out), 0)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := l.AppendMap(entry.ModuleDefault, entry.LevelError, map[string]int{"code": 7}); err != nil {
		t.Fatalf("AppendMap: %v", err)
	}
	if !strings.Contains(out.String(), `{"code": 7}`) {
		t.Fatalf("got %q", out.String())
	}
}

func TestConsoleHasNoReadOrWalk(t *testing.T) {
	reg := newRegistry(t)
	l, err := reg.Register("con", console.New(&bytes.Buffer{}), 0)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	err = l.Walk(func(*eventlog.Log, *eventlog.Offset, eventlog.Locator, int) error { return nil }, nil)
	if !errors.Is(err, logerr.ErrUnsupported) {
		t.Fatalf("Walk err = %v", err)
	}
	if err := l.Clear(); !errors.Is(err, logerr.ErrUnsupported) {
		t.Fatalf("Clear err = %v", err)
	}
	if l.Policy() != eventlog.PolicyNone {
		t.Fatalf("policy = %v", l.Policy())
	}
}

func TestConsoleMirror(t *testing.T) {
	reg := newRegistry(t)
	var out bytes.Buffer
	logger := logpkg.NewLogger(
		logpkg.WithLevel(logpkg.DebugLevel),
		logpkg.WithFormatter(&logpkg.TextFormatter{DisableTimestamp: true}),
		logpkg.WithOutput(&logpkg.WriterOutput{W: &out}),
	)
	l, err := reg.Register("mirror", console.NewMirror(logger), 0)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := l.AppendBody(entry.ModuleMgmt, entry.LevelCritical, entry.TypeString, []byte("reset")); err != nil {
		t.Fatalf("AppendBody: %v", err)
	}
	want := "CRITICAL reset idx=0 mod=MGMT ts=1700\n"
	if out.String() != want {
		t.Fatalf("got %q want %q", out.String(), want)
	}
}

func TestRender(t *testing.T) {
	if got := console.Render(entry.TypeString, []byte("hi")); got != "hi" {
		t.Fatalf("text = %q", got)
	}
	if got := console.Render(entry.TypeBinary, []byte{1, 2}); got != "0102" {
		t.Fatalf("binary = %q", got)
	}
	if got := console.Render(entry.TypeCBOR, []byte{0x18}); !strings.HasPrefix(got, "cbor:") {
		t.Fatalf("malformed cbor = %q", got)
	}
}
