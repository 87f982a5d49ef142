package memring_test

import (
	"errors"
	"testing"

	"github.com/rzbill/devlog/internal/chain"
	"github.com/rzbill/devlog/internal/entry"
	"github.com/rzbill/devlog/internal/eventlog"
	"github.com/rzbill/devlog/internal/handler/memring"
	"github.com/rzbill/devlog/internal/logerr"
)

func newLog(t *testing.T, format entry.Format, capacity int) (*eventlog.Log, *memring.Ring) {
	t.Helper()
	reg, err := eventlog.NewRegistry(eventlog.Options{
		Capabilities: eventlog.Capabilities{Format: format, ModuleLevels: true},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	ring, err := memring.New(capacity)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l, err := reg.Register("L", ring, 0)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return l, ring
}

func appendText(t *testing.T, l *eventlog.Log, body string) {
	t.Helper()
	if err := l.AppendBody(entry.ModuleDefault, entry.LevelInfo, entry.TypeString, []byte(body)); err != nil {
		t.Fatalf("append %q: %v", body, err)
	}
}

func TestRingKeepsEverythingWithinCapacity(t *testing.T) {
	l, ring := newLog(t, entry.FormatV2, 100)
	for _, s := range []string{"a", "bb", "ccc"} {
		appendText(t, l, s)
	}
	recs, err := l.Entries(nil)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d entries", len(recs))
	}
	for i, want := range []string{"a", "bb", "ccc"} {
		if string(recs[i].Body) != want || recs[i].Header.Index != uint32(i) {
			t.Fatalf("entry %d = %q idx=%d", i, recs[i].Body, recs[i].Header.Index)
		}
	}
	if st := ring.Stats(); st.Used != 14*3+6 || st.Evicted != 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestRingEvictsOldestAndKeepsIndices(t *testing.T) {
	// 15 + 16 + 17 bytes does not fit in 40
	l, ring := newLog(t, entry.FormatV2, 40)
	for _, s := range []string{"a", "bb", "ccc"} {
		appendText(t, l, s)
	}
	recs, err := l.Entries(nil)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d entries, want surviving suffix of 2", len(recs))
	}
	if string(recs[0].Body) != "bb" || recs[0].Header.Index != 1 {
		t.Fatalf("first survivor = %q idx=%d", recs[0].Body, recs[0].Header.Index)
	}
	if string(recs[1].Body) != "ccc" || recs[1].Header.Index != 2 {
		t.Fatalf("second survivor = %q idx=%d", recs[1].Body, recs[1].Header.Index)
	}
	if st := ring.Stats(); st.Evicted != 1 || st.Used != 33 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestRingRejectsEntryLargerThanCapacity(t *testing.T) {
	l, _ := newLog(t, entry.FormatV3, 20)
	err := l.AppendBody(0, entry.LevelInfo, entry.TypeBinary, make([]byte, 10))
	if !errors.Is(err, logerr.ErrFull) {
		t.Fatalf("err = %v, want ErrFull", err)
	}
	if l.NextIndex() != 0 {
		t.Fatalf("index advanced to %d on failure", l.NextIndex())
	}
	if st := l.Stats(); st.Failed != 1 || st.Appended != 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestRingWalkLast(t *testing.T) {
	l, _ := newLog(t, entry.FormatV3, 1024)
	for _, s := range []string{"x", "y", "z"} {
		appendText(t, l, s)
	}
	recs, err := l.Entries(&eventlog.Offset{Mode: eventlog.WalkLast})
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(recs) != 1 || string(recs[0].Body) != "z" || recs[0].Header.Index != 2 {
		t.Fatalf("last = %+v", recs)
	}
}

func TestRingChainAppendIsConsumed(t *testing.T) {
	l, _ := newLog(t, entry.FormatV3, 1024)
	c := chain.FromBytes(make([]byte, l.Registry().HeaderSize()), []byte("hello "), []byte("world"))
	disp, err := l.AppendChain(entry.ModuleTest, entry.LevelWarn, entry.TypeString, c)
	if err != nil || disp != chain.Consumed {
		t.Fatalf("AppendChain = %v, %v", disp, err)
	}
	if !c.Released() {
		t.Fatal("consumed chain should be released")
	}

	var got *chain.Chain
	err = l.WalkBody(func(l *eventlog.Log, _ *eventlog.Offset, hdr *entry.Header, loc eventlog.Locator, n int) error {
		if hdr.Module != entry.ModuleTest || hdr.Level != entry.LevelWarn {
			t.Fatalf("header = %+v", hdr)
		}
		got = chain.New()
		_, err := l.ReadChainBody(loc, got, 0, n)
		return err
	}, nil)
	if err != nil {
		t.Fatalf("WalkBody: %v", err)
	}
	if string(got.Bytes()) != "hello world" {
		t.Fatalf("body = %q", got.Bytes())
	}
}

func TestRingChainTooLargeIsReturned(t *testing.T) {
	l, _ := newLog(t, entry.FormatV3, 32)
	body := chain.FromBytes(make([]byte, 40))
	disp, err := l.AppendChainBody(0, entry.LevelInfo, entry.TypeBinary, body)
	if !errors.Is(err, logerr.ErrFull) || disp != chain.ReturnedToCaller {
		t.Fatalf("AppendChainBody = %v, %v", disp, err)
	}
	if body.Released() || body.Len() != 40 {
		t.Fatalf("returned chain should be intact, len=%d", body.Len())
	}
	body.Release()
}

func TestRingClear(t *testing.T) {
	l, ring := newLog(t, entry.FormatV3, 1024)
	appendText(t, l, "one")
	appendText(t, l, "two")
	if err := l.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if st := ring.Stats(); st.Entries != 0 || st.Used != 0 {
		t.Fatalf("stats after clear = %+v", st)
	}
	appendText(t, l, "three")
	recs, _ := l.Entries(nil)
	if len(recs) != 1 || recs[0].Header.Index != 2 {
		t.Fatalf("index should keep counting after clear: %+v", recs)
	}
	if l.Policy() != eventlog.PolicyOverwrite {
		t.Fatalf("policy = %v", l.Policy())
	}
}

func TestNewRejectsZeroCapacity(t *testing.T) {
	if _, err := memring.New(0); !errors.Is(err, logerr.ErrInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}
