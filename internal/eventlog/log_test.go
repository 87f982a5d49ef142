package eventlog

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"github.com/rzbill/devlog/internal/chain"
	"github.com/rzbill/devlog/internal/entry"
	"github.com/rzbill/devlog/internal/logerr"
)

func TestAppendAssignsSequentialIndex(t *testing.T) {
	for _, f := range []entry.Format{entry.FormatV2, entry.FormatV3} {
		t.Run(f.String(), func(t *testing.T) {
			l, h := newTestLog(t, Options{Capabilities: Capabilities{Format: f}})
			for i := 0; i < 3; i++ {
				if err := l.Printf(entry.ModuleDefault, entry.LevelInfo, "msg %d", i); err != nil {
					t.Fatalf("printf %d: %v", i, err)
				}
			}
			if l.NextIndex() != 3 || len(h.entries) != 3 {
				t.Fatalf("next=%d stored=%d", l.NextIndex(), len(h.entries))
			}
			for i, e := range h.entries {
				if len(e) != f.HeaderSize()+len("msg 0") {
					t.Fatalf("entry %d length %d", i, len(e))
				}
				hdr, err := entry.Decode(f, e)
				if err != nil {
					t.Fatalf("decode: %v", err)
				}
				if hdr.Index != uint32(i) || hdr.Timestamp != int64(100*(i+1)) || hdr.Level != entry.LevelInfo {
					t.Fatalf("header %d = %+v", i, hdr)
				}
			}
		})
	}
}

func TestConcurrentAppendsContiguous(t *testing.T) {
	const writers, perWriter = 8, 200
	l, _ := newTestLog(t, v3Options())

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := l.Printf(0, entry.LevelInfo, "w%d-%d", w, i); err != nil {
					t.Errorf("printf: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	recs, err := l.Entries(nil)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(recs) != writers*perWriter {
		t.Fatalf("stored %d entries, want %d", len(recs), writers*perWriter)
	}
	for i, r := range recs {
		if r.Header.Index != uint32(i) {
			t.Fatalf("entry %d has index %d", i, r.Header.Index)
		}
	}
	if l.NextIndex() != writers*perWriter {
		t.Fatalf("next = %d", l.NextIndex())
	}
}

func TestAppendFlatBufferWritesHeaderInPlace(t *testing.T) {
	l, h := newTestLog(t, v3Options())
	buf := make([]byte, entry.FormatV3.HeaderSize()+3)
	copy(buf[entry.FormatV3.HeaderSize():], "abc")
	if err := l.AppendTyped(entry.ModulePerUser, entry.LevelWarn, entry.TypeBinary, buf); err != nil {
		t.Fatalf("append: %v", err)
	}
	hdr, _ := entry.Decode(entry.FormatV3, h.entries[0])
	if hdr.Module != entry.ModulePerUser || hdr.Type != entry.TypeBinary || hdr.Level != entry.LevelWarn {
		t.Fatalf("header = %+v", hdr)
	}
	if !bytes.Equal(buf, h.entries[0]) {
		t.Fatal("caller buffer should carry the encoded header")
	}

	if err := l.Append(0, entry.LevelInfo, make([]byte, 4)); !errors.Is(err, logerr.ErrInvalidArgument) {
		t.Fatalf("short buffer err = %v", err)
	}
}

func TestOversizedBodyKeepsIndex(t *testing.T) {
	opts := v3Options()
	opts.MaxEntryLen = 16
	l, h := newTestLog(t, opts)
	if err := l.AppendBody(0, entry.LevelInfo, entry.TypeString, make([]byte, 16)); err != nil {
		t.Fatalf("append at bound: %v", err)
	}
	err := l.AppendBody(0, entry.LevelInfo, entry.TypeString, make([]byte, 17))
	if !errors.Is(err, logerr.ErrInvalidArgument) {
		t.Fatalf("oversized err = %v", err)
	}
	if l.NextIndex() != 1 || len(h.entries) != 1 {
		t.Fatalf("next=%d stored=%d", l.NextIndex(), len(h.entries))
	}
}

func TestHandlerFailureKeepsIndex(t *testing.T) {
	l, h := newTestLog(t, v3Options())
	h.failErr = logerr.ErrFull
	if err := l.Printf(0, entry.LevelError, "lost"); !errors.Is(err, logerr.ErrFull) {
		t.Fatalf("err = %v", err)
	}
	if l.NextIndex() != 0 || l.Stats().Failed != 1 || l.Stats().Appended != 0 {
		t.Fatalf("next=%d stats=%+v", l.NextIndex(), l.Stats())
	}
	h.failErr = nil
	if err := l.Printf(0, entry.LevelError, "kept"); err != nil {
		t.Fatalf("printf: %v", err)
	}
	recs, _ := l.Entries(nil)
	if len(recs) != 1 || recs[0].Header.Index != 0 {
		t.Fatalf("records = %+v", recs)
	}
}

func TestLevelFiltering(t *testing.T) {
	l, h := newTestLog(t, v3Options())
	l.SetLevel(entry.LevelWarn)
	if err := l.Printf(0, entry.LevelInfo, "quiet"); err != nil {
		t.Fatalf("filtered printf returned %v", err)
	}
	if err := l.Printf(0, entry.LevelWarn, "loud"); err != nil {
		t.Fatalf("printf: %v", err)
	}
	l.SetLevel(0)
	if err := l.Registry().Levels().Set(entry.ModulePerUser, entry.LevelError); err != nil {
		t.Fatalf("set module level: %v", err)
	}
	_ = l.Printf(entry.ModulePerUser, entry.LevelWarn, "muted module")
	_ = l.Printf(entry.ModulePerUser, entry.LevelCritical, "kept module")
	_ = l.Printf(entry.ModulePerUser+1, entry.LevelDebug, "other module")

	if len(h.entries) != 3 {
		t.Fatalf("stored = %d", len(h.entries))
	}
	st := l.Stats()
	if st.Dropped != 2 || st.Appended != 3 {
		t.Fatalf("stats = %+v", st)
	}
	if l.NextIndex() != 3 {
		t.Fatalf("filtered entries must not consume indices, next=%d", l.NextIndex())
	}
}

func TestPrintfTruncates(t *testing.T) {
	opts := v3Options()
	opts.PrintfMaxLen = 8
	l, _ := newTestLog(t, opts)
	if err := l.Printf(0, entry.LevelInfo, "%s", "0123456789"); err != nil {
		t.Fatalf("printf: %v", err)
	}
	recs, _ := l.Entries(nil)
	if string(recs[0].Body) != "01234567" {
		t.Fatalf("body = %q", recs[0].Body)
	}
}

func TestAppendMapEncodesCBOR(t *testing.T) {
	l, _ := newTestLog(t, v3Options())
	if err := l.AppendMap(0, entry.LevelInfo, map[string]any{"code": 7, "unit": "mV"}); err != nil {
		t.Fatalf("append map: %v", err)
	}
	recs, _ := l.Entries(nil)
	if recs[0].Header.Type != entry.TypeCBOR {
		t.Fatalf("type = %v", recs[0].Header.Type)
	}
	var got map[string]any
	if err := cbor.Unmarshal(recs[0].Body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["unit"] != "mV" || got["code"] != uint64(7) {
		t.Fatalf("decoded = %#v", got)
	}
	if err := l.AppendMap(0, entry.LevelInfo, func() {}); !errors.Is(err, logerr.ErrInvalidArgument) {
		t.Fatalf("unencodable err = %v", err)
	}
}

func appendThree(t *testing.T, l *Log) {
	t.Helper()
	for _, m := range []string{"a", "b", "c"} {
		if err := l.Printf(0, entry.LevelInfo, "%s", m); err != nil {
			t.Fatalf("printf: %v", err)
		}
	}
}

func bodies(recs []Record) string {
	var sb strings.Builder
	for _, r := range recs {
		sb.Write(r.Body)
	}
	return sb.String()
}

func TestWalkOffsets(t *testing.T) {
	l, _ := newTestLog(t, v3Options())
	appendThree(t, l) // timestamps 100, 200, 300

	tests := []struct {
		name string
		off  *Offset
		want string
	}{
		{"all", nil, "abc"},
		{"since", &Offset{Mode: WalkSince, Timestamp: 200}, "bc"},
		{"index", &Offset{Index: 2}, "c"},
		{"since and index", &Offset{Mode: WalkSince, Timestamp: 100, Index: 1}, "bc"},
		{"last", &Offset{Mode: WalkLast}, "c"},
		{"last below index", &Offset{Mode: WalkLast, Index: 5}, ""},
		{"wire last", OffsetFromTS(-1, 0), "c"},
		{"wire all", OffsetFromTS(0, 1), "bc"},
		{"wire since", OffsetFromTS(300, 0), "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := l.Entries(tt.off)
			if err != nil {
				t.Fatalf("entries: %v", err)
			}
			if got := bodies(recs); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWalkLastOnEmptyLog(t *testing.T) {
	l, _ := newTestLog(t, v3Options())
	for _, off := range []*Offset{{Mode: WalkLast}, OffsetFromTS(-1, 0)} {
		visited := 0
		err := l.Walk(func(*Log, *Offset, Locator, int) error {
			visited++
			return nil
		}, off)
		if err != nil {
			t.Fatalf("walk: %v", err)
		}
		if visited != 0 {
			t.Fatalf("last-only walk of empty log visited %d entries", visited)
		}
	}
}

func TestWalkStopErrorPassesThrough(t *testing.T) {
	l, _ := newTestLog(t, v3Options())
	appendThree(t, l)
	stop := errors.New("stop")
	visited := 0
	err := l.Walk(func(_ *Log, off *Offset, loc Locator, n int) error {
		visited++
		if n != entry.FormatV3.HeaderSize()+1 {
			t.Fatalf("entry length %d", n)
		}
		if visited == 2 {
			return stop
		}
		return nil
	}, nil)
	if err != stop {
		t.Fatalf("err = %v, want the callback error itself", err)
	}
	if visited != 2 {
		t.Fatalf("visited = %d", visited)
	}
}

func TestWalkPassesArg(t *testing.T) {
	l, _ := newTestLog(t, v3Options())
	appendThree(t, l)
	var seen []any
	off := &Offset{Arg: "ctx"}
	_ = l.WalkBody(func(_ *Log, off *Offset, hdr *entry.Header, _ Locator, bodyLen int) error {
		seen = append(seen, off.Arg)
		if bodyLen != 1 {
			t.Fatalf("body length %d", bodyLen)
		}
		return nil
	}, off)
	if len(seen) != 3 || seen[0] != "ctx" {
		t.Fatalf("args = %v", seen)
	}
}

func TestWalkDetectsShortEntry(t *testing.T) {
	l, h := newTestLog(t, v3Options())
	h.entries = append(h.entries, []byte{1, 2, 3})
	if _, err := l.Entries(nil); !errors.Is(err, logerr.ErrCorrupt) {
		t.Fatalf("err = %v", err)
	}
}

func TestReadHeaderAndBody(t *testing.T) {
	l, _ := newTestLog(t, v3Options())
	if err := l.AppendBody(entry.ModulePerUser, entry.LevelError, entry.TypeString, []byte("payload")); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = l.Walk(func(l *Log, _ *Offset, loc Locator, _ int) error {
		hdr, err := l.ReadHeader(loc)
		if err != nil || hdr.Module != entry.ModulePerUser {
			t.Fatalf("header = %+v, %v", hdr, err)
		}
		buf := make([]byte, 4)
		n, err := l.ReadBody(loc, buf, 3)
		if err != nil || string(buf[:n]) != "load" {
			t.Fatalf("body = %q, %v", buf[:n], err)
		}
		c := chain.New()
		defer c.Release()
		n, err = l.ReadChainBody(loc, c, 0, 7)
		if err != nil || n != 7 || string(c.Bytes()) != "payload" {
			t.Fatalf("chain body = %q, %v", c.Bytes(), err)
		}
		return nil
	}, nil)
}

func TestAppendChainDispositions(t *testing.T) {
	l, h := newTestLog(t, v3Options())
	hsz := entry.FormatV3.HeaderSize()

	c := chain.FromBytes(make([]byte, hsz), []byte("he"), []byte("llo"))
	disp, err := l.AppendChain(0, entry.LevelInfo, entry.TypeString, c)
	if err != nil || disp != chain.Consumed {
		t.Fatalf("append chain: %v %v", disp, err)
	}
	if !c.Released() {
		t.Fatal("consumed chain should be released by the handler path")
	}
	if string(h.entries[0][hsz:]) != "hello" {
		t.Fatalf("stored body %q", h.entries[0][hsz:])
	}

	l.SetLevel(entry.LevelError)
	c = chain.FromBytes(make([]byte, hsz), []byte("x"))
	disp, err = l.AppendChain(0, entry.LevelInfo, entry.TypeString, c)
	if err != nil || disp != chain.ReturnedToCaller || c.Released() {
		t.Fatalf("filtered chain: %v %v released=%v", disp, err, c.Released())
	}
	c.Release()
	l.SetLevel(0)

	h.failErr = logerr.ErrIO
	body := chain.FromBytes([]byte("body"))
	disp, err = l.AppendChainBody(0, entry.LevelInfo, entry.TypeString, body)
	if !errors.Is(err, logerr.ErrIO) || disp != chain.ReturnedToCaller {
		t.Fatalf("failed chain: %v %v", disp, err)
	}
	if body.Len() != 4 || string(body.Bytes()) != "body" {
		t.Fatalf("returned body = %q", body.Bytes())
	}
	if l.NextIndex() != 1 {
		t.Fatalf("next = %d", l.NextIndex())
	}

	h.failErr = nil
	disp, err = l.AppendChainBody(0, entry.LevelInfo, entry.TypeString, body)
	if err != nil || disp != chain.Consumed {
		t.Fatalf("retry: %v %v", disp, err)
	}

	if _, err := l.AppendChain(0, entry.LevelInfo, entry.TypeString, body); !errors.Is(err, logerr.ErrInvalidArgument) {
		t.Fatalf("released chain err = %v", err)
	}
}

func TestLevelGateCountsOnce(t *testing.T) {
	l, h := newTestLog(t, v3Options())
	l.SetLevel(entry.LevelError)

	body := chain.FromBytes([]byte("kept"))
	disp, err := l.AppendChainBody(0, entry.LevelInfo, entry.TypeString, body)
	if err != nil || disp != chain.ReturnedToCaller || string(body.Bytes()) != "kept" {
		t.Fatalf("filtered chain body: %v %v %q", disp, err, body.Bytes())
	}
	if err := l.Printf(0, entry.LevelInfo, "x"); err != nil {
		t.Fatalf("printf: %v", err)
	}
	if err := l.AppendMap(0, entry.LevelInfo, map[string]int{"a": 1}); err != nil {
		t.Fatalf("append map: %v", err)
	}
	if st := l.Stats(); st.Dropped != 3 {
		t.Fatalf("dropped = %d, want one per filtered call", st.Dropped)
	}

	// Flip the level while chain bodies are appended: every call is
	// either stored or dropped, and filtered bodies come back intact.
	const n = 500
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < n; i++ {
			if i%2 == 0 {
				l.SetLevel(entry.LevelError)
			} else {
				l.SetLevel(0)
			}
		}
	}()
	for i := 0; i < n; i++ {
		b := chain.FromBytes([]byte("body"))
		disp, err := l.AppendChainBody(0, entry.LevelInfo, entry.TypeString, b)
		if err != nil {
			t.Fatalf("append chain body: %v", err)
		}
		if disp == chain.ReturnedToCaller {
			if string(b.Bytes()) != "body" {
				t.Fatalf("returned body = %q", b.Bytes())
			}
			b.Release()
		}
	}
	<-done
	st := l.Stats()
	if st.Appended+st.Dropped != n+3 {
		t.Fatalf("appended %d + dropped %d != %d calls", st.Appended, st.Dropped, n+3)
	}
	h.mu.Lock()
	stored := len(h.entries)
	h.mu.Unlock()
	if int64(stored) != st.Appended {
		t.Fatalf("stored %d, appended counter %d", stored, st.Appended)
	}
}

func TestAppendChainAlwaysReleases(t *testing.T) {
	l, h := newTestLog(t, v3Options())
	h.failErr = logerr.ErrFull
	c := chain.FromBytes(make([]byte, entry.FormatV3.HeaderSize()), []byte("x"))
	if err := l.AppendChainAlways(0, entry.LevelInfo, entry.TypeString, c); !errors.Is(err, logerr.ErrFull) {
		t.Fatalf("err = %v", err)
	}
	if !c.Released() {
		t.Fatal("chain should be released on failure")
	}
}

func TestClear(t *testing.T) {
	l, _ := newTestLog(t, v3Options())
	appendThree(t, l)
	if err := l.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if recs, _ := l.Entries(nil); len(recs) != 0 {
		t.Fatalf("entries after clear = %d", len(recs))
	}
	if l.NextIndex() != 3 {
		t.Fatalf("index should keep counting, next=%d", l.NextIndex())
	}

	r := newTestRegistry(t, v3Options())
	sink, _ := r.Register("sink", &sinkHandler{}, 0)
	if err := sink.Clear(); !errors.Is(err, logerr.ErrUnsupported) {
		t.Fatalf("sink clear err = %v", err)
	}
	if sink.Policy() != PolicyNone {
		t.Fatalf("policy = %v", sink.Policy())
	}
}
