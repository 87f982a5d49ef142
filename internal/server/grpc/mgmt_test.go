package grpcserver

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rzbill/devlog/internal/entry"
	"github.com/rzbill/devlog/internal/eventlog"
	"github.com/rzbill/devlog/internal/handler/memring"
)

// lateRing runs after once, right after the next walk finishes.
type lateRing struct {
	*memring.Ring
	after func()
}

func (r *lateRing) Walk(fn eventlog.RawWalkFunc, off *eventlog.Offset) error {
	err := r.Ring.Walk(fn, off)
	if f := r.after; f != nil {
		r.after = nil
		f()
	}
	return err
}

func newServiceLog(t *testing.T) (*Service, *eventlog.Log, *lateRing) {
	t.Helper()
	reg, err := eventlog.NewRegistry(eventlog.Options{})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	ring, err := memring.New(4096)
	if err != nil {
		t.Fatalf("ring: %v", err)
	}
	h := &lateRing{Ring: ring}
	l, err := reg.Register("ring", h, 0)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return NewService(reg, nil, nil), l, h
}

func request(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	req, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return req
}

func TestReadWakesOnAppendDuringWalk(t *testing.T) {
	svc, l, h := newServiceLog(t)
	h.after = func() {
		if err := l.Printf(entry.ModuleDefault, entry.LevelInfo, "raced"); err != nil {
			t.Errorf("printf: %v", err)
		}
	}

	start := time.Now()
	res, err := svc.Read(context.Background(), request(t, map[string]interface{}{"log": "ring", "wait_ms": 2000}))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("read slept %v through an append", elapsed)
	}
	entries := res.GetFields()["entries"].GetListValue().GetValues()
	if len(entries) != 1 || entries[0].GetStructValue().GetFields()["msg"].GetStringValue() != "raced" {
		t.Fatalf("entries = %v", entries)
	}
}

func TestNumericArgumentRanges(t *testing.T) {
	svc, _, _ := newServiceLog(t)
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
	}{
		{"module above 255", func() error {
			_, err := svc.Append(ctx, request(t, map[string]interface{}{"log": "ring", "module": 300, "msg": "x"}))
			return err
		}},
		{"negative module", func() error {
			_, err := svc.SetLevel(ctx, request(t, map[string]interface{}{"module": -1, "level": "info"}))
			return err
		}},
		{"fractional module", func() error {
			_, err := svc.Append(ctx, request(t, map[string]interface{}{"log": "ring", "module": 1.5, "msg": "x"}))
			return err
		}},
		{"negative index", func() error {
			_, err := svc.Read(ctx, request(t, map[string]interface{}{"log": "ring", "index": -1}))
			return err
		}},
		{"index above uint32", func() error {
			_, err := svc.Read(ctx, request(t, map[string]interface{}{"log": "ring", "index": 1 << 33}))
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wantCode(t, tc.call(), codes.InvalidArgument)
		})
	}

	if _, err := svc.Read(ctx, request(t, map[string]interface{}{"log": "ring", "index": 4294967295})); err != nil {
		t.Fatalf("max index read: %v", err)
	}
}
