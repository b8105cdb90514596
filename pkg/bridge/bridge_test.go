package bridge //nolint:testpackage // internal white-box tests need access to unexported fields

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quill/pkg/protocol"
)

const testTimeout = 2 * time.Second

func TestBridge_OpenFileScenario(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	b, c := newBridgeWithController(t, Config{})
	c.send(`{"typ":"OpenFileCommand","data":["notes.txt"],"serial":0}`)

	waitFor(t, func() bool { return b.Snapshot().EventCount == 1 }, testTimeout)
	snap := b.Snapshot()
	if snap.ActiveFile != "notes.txt" || snap.Buffer != "hello" {
		t.Errorf("unexpected state %+v", snap)
	}
	c.expectSilence(50 * time.Millisecond)
}

func TestBridge_FileListScenario(t *testing.T) {
	t.Parallel()

	b, c := newBridgeWithController(t, Config{})
	c.send(`{"typ":"SetAvailableFilesCommand","data":["a.txt","b.txt"],"serial":1}`)
	waitFor(t, func() bool { return b.Snapshot().EventCount == 1 }, testTimeout)

	if got := b.Snapshot().AvailableFiles; !reflect.DeepEqual(got, []string{"a.txt", "b.txt"}) {
		t.Fatalf("availableFiles = %v", got)
	}

	// The user clicks b.txt.
	if err := b.Send(protocol.TagClickFile, "b.txt"); err != nil {
		t.Fatal(err)
	}
	got := c.next(testTimeout)
	want := protocol.Envelope{Tag: protocol.TagClickFile, Data: []string{"b.txt"}, Serial: 0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestBridge_UnknownTagScenario(t *testing.T) {
	t.Parallel()

	b, c := newBridgeWithController(t, Config{})
	c.send(`{"typ":"Foo","data":["x"],"serial":9}`)

	got := c.next(testTimeout)
	if got.Tag != protocol.TagDebugGotUnknownMessage {
		t.Fatalf("tag = %s", got.Tag)
	}
	if got.Data[0] != `Foo, "x", 9` {
		t.Errorf("description = %q", got.Data[0])
	}
	waitFor(t, func() bool { return b.Snapshot().EventCount == 1 }, testTimeout)
}

func TestBridge_OutboundSerialsIncrease(t *testing.T) {
	t.Parallel()

	bridge, ctl := newBridgeWithController(t, Config{})
	for _, tag := range []protocol.Tag{protocol.TagNavigateUp, protocol.TagGuiEvent, protocol.TagBufferChanged} {
		if err := bridge.Send(tag); err != nil {
			t.Fatal(err)
		}
	}
	for want := range int64(3) {
		if got := ctl.next(testTimeout); got.Serial != want {
			t.Fatalf("serial = %d, want %d", got.Serial, want)
		}
	}
	if next := bridge.Snapshot().NextSerial; next != 3 {
		t.Errorf("NextSerial = %d, want 3", next)
	}
}

func TestBridge_StartIsIdempotent(t *testing.T) {
	t.Parallel()

	b, c := newBridgeWithController(t, Config{})

	const k = 16
	var wg sync.WaitGroup
	for range k {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Start(context.Background())
		}()
	}
	wg.Wait()

	// A second dispatcher would have failed with ErrAlreadyRunning and
	// stopped the bridge; the first one is still serving.
	c.send(`{"typ":"Foo","data":[],"serial":0}`)
	if got := c.next(testTimeout); got.Tag != protocol.TagDebugGotUnknownMessage {
		t.Fatalf("tag = %s", got.Tag)
	}
	select {
	case <-b.Done():
		t.Fatalf("bridge stopped: %v", b.Wait())
	default:
	}
	if err := b.Shutdown(); err != nil {
		t.Errorf("Shutdown = %v", err)
	}
}

func TestBridge_AppliesEverythingBeforeEndOfInput(t *testing.T) {
	t.Parallel()

	const n = 50
	var in strings.Builder
	for i := range n {
		in.Write(protocol.Encode(protocol.New("Foo", int64(i), strconv.Itoa(i))))
	}
	var out bytes.Buffer
	b := New(Config{}, strings.NewReader(in.String()), &out)
	b.Start(context.Background())

	err := b.Wait()
	var streamErr *StreamError
	if !errors.As(err, &streamErr) || !errors.Is(err, io.EOF) {
		t.Fatalf("Wait = %v, want read StreamError wrapping io.EOF", err)
	}
	if got := b.Snapshot().EventCount; got != n {
		t.Errorf("eventCount = %d, want %d", got, n)
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != n {
		t.Fatalf("got %d outbound lines, want %d", len(lines), n)
	}
	for i, line := range lines {
		env, err := protocol.Decode([]byte(line))
		if err != nil {
			t.Fatal(err)
		}
		want := fmt.Sprintf("Foo, %q, %d", strconv.Itoa(i), i)
		if env.Tag != protocol.TagDebugGotUnknownMessage || env.Data[0] != want {
			t.Errorf("line %d = %+v, want report %q", i, env, want)
		}
	}
}

func TestBridge_AppliesEverythingBeforeMalformedLine(t *testing.T) {
	t.Parallel()

	in := `{"typ":"SetAvailableFilesCommand","data":["a.txt"],"serial":0}` + "\n" +
		`{"typ":"SetBufferCommand","data":["kept"],"serial":1}` + "\n" +
		`not json` + "\n"
	b := New(Config{}, strings.NewReader(in), io.Discard)
	b.Start(context.Background())

	var decErr *protocol.DecodeError
	if err := b.Wait(); !errors.As(err, &decErr) {
		t.Fatalf("Wait = %v, want *protocol.DecodeError", err)
	}
	snap := b.Snapshot()
	if snap.EventCount != 2 || snap.Buffer != "kept" || !reflect.DeepEqual(snap.AvailableFiles, []string{"a.txt"}) {
		t.Errorf("state = %+v", snap)
	}
}

func TestBridge_MalformedLineIsFatal(t *testing.T) {
	t.Parallel()

	b, c := newBridgeWithController(t, Config{})
	c.send(`{"typ":"OpenFileCommand"`)

	var decErr *protocol.DecodeError
	if err := b.Wait(); !errors.As(err, &decErr) {
		t.Fatalf("Wait = %v, want *protocol.DecodeError", err)
	}
}

func TestBridge_EndOfInputIsFatal(t *testing.T) {
	t.Parallel()

	b, c := newBridgeWithController(t, Config{})
	_ = c.inW.Close()

	err := b.Wait()
	var streamErr *StreamError
	if !errors.As(err, &streamErr) || streamErr.Op != "read" {
		t.Fatalf("Wait = %v, want read *StreamError", err)
	}
	if !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF in chain, got %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestBridge_WriteFailureIsFatal(t *testing.T) {
	t.Parallel()

	inR, inW := io.Pipe()
	defer inW.Close()
	b := New(Config{}, inR, failingWriter{})
	b.Start(context.Background())

	if err := b.Send(protocol.TagNavigateUp); err != nil {
		t.Fatal(err)
	}

	var streamErr *StreamError
	if err := b.Wait(); !errors.As(err, &streamErr) || streamErr.Op != "write" {
		t.Fatalf("Wait = %v, want write *StreamError", err)
	}
	if err := b.Send(protocol.TagNavigateUp); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after writer failure = %v, want ErrClosed", err)
	}
}

func TestBridge_ShutdownFlushesQueuedEvents(t *testing.T) {
	t.Parallel()

	b, c := newBridgeWithController(t, Config{})
	if err := b.Send(protocol.TagExit, protocol.ExitFarewell); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- b.Shutdown() }()

	got := c.next(testTimeout)
	if got.Tag != protocol.TagExit || got.Data[0] != "byebye" {
		t.Errorf("got %+v, want Exit byebye", got)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	case <-time.After(testTimeout):
		t.Fatal("Shutdown did not return")
	}

	if err := b.Send(protocol.TagNavigateUp); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Shutdown = %v, want ErrClosed", err)
	}
}

func TestBridge_ShutdownWithoutStart(t *testing.T) {
	t.Parallel()

	b := New(Config{}, strings.NewReader(""), io.Discard)
	if err := b.Shutdown(); err != nil {
		t.Errorf("Shutdown = %v", err)
	}
	select {
	case <-b.Done():
	default:
		t.Error("Done not closed")
	}
}

func TestBridge_ShutdownWithoutStartClosesWatcher(t *testing.T) {
	t.Parallel()

	b := New(Config{WatchActiveFile: true}, strings.NewReader(""), io.Discard)
	if b.watcher == nil {
		t.Skip("file watching unavailable")
	}
	if err := b.Shutdown(); err != nil {
		t.Fatalf("Shutdown = %v", err)
	}
	if err := b.watcher.Follow(filepath.Join(t.TempDir(), "notes.txt")); err == nil {
		t.Error("watcher still open after Shutdown")
	}
}

func TestBridge_ChangedFiresOnInbound(t *testing.T) {
	t.Parallel()

	bridge, ctl := newBridgeWithController(t, Config{})
	ctl.send(`{"typ":"SetBufferCommand","data":["remote"],"serial":0}`)

	select {
	case <-bridge.Changed():
	case <-time.After(testTimeout):
		t.Fatal("no change notification")
	}
	waitFor(t, func() bool { return bridge.Snapshot().Buffer == "remote" }, testTimeout)
}

func TestBridge_EditBufferIsLocal(t *testing.T) {
	t.Parallel()

	b, c := newBridgeWithController(t, Config{})
	c.send(`{"typ":"SetBufferCommand","data":["remote"],"serial":0}`)
	waitFor(t, func() bool { return b.Snapshot().Buffer == "remote" }, testTimeout)
	rev := b.Snapshot().BufferRevision

	b.EditBuffer("first")
	b.EditBuffer("second")
	waitFor(t, func() bool { return b.Snapshot().Buffer == "second" }, testTimeout)

	snap := b.Snapshot()
	if snap.BufferRevision != rev {
		t.Errorf("local edits bumped revision %d -> %d", rev, snap.BufferRevision)
	}
	c.expectSilence(50 * time.Millisecond)
}

func TestBridge_ChangeBufferReportsLatestText(t *testing.T) {
	t.Parallel()

	b, c := newBridgeWithController(t, Config{})
	b.ChangeBuffer("draft")

	got := c.next(testTimeout)
	if got.Tag != protocol.TagBufferChanged || !reflect.DeepEqual(got.Data, []string{"draft"}) {
		t.Fatalf("got %+v, want BufferChanged draft", got)
	}
	snap := b.Snapshot()
	if snap.Buffer != "draft" || snap.EventCount != 0 {
		t.Errorf("state = %+v", snap)
	}
}

// A controller that stops reading must not stall the interactive loop.
func TestBridge_InteractiveCallsDoNotBlockOnStalledController(t *testing.T) {
	t.Parallel()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	b := New(Config{OutboundCapacity: 2}, inR, outW)
	b.Start(context.Background())

	returned := make(chan struct{})
	var busy atomic.Int64
	go func() {
		defer close(returned)
		for i := range 10 {
			if errors.Is(b.TrySend(protocol.TagNavigateUp), ErrBusy) {
				busy.Add(1)
			}
			b.ChangeBuffer("text " + strconv.Itoa(i))
			_ = b.Snapshot()
		}
	}()
	select {
	case <-returned:
	case <-time.After(testTimeout):
		t.Fatal("interactive calls blocked while the controller was not reading")
	}
	if busy.Load() == 0 {
		t.Error("expected ErrBusy from a full outbox")
	}

	// Once the controller reads again the latest text is reported last and
	// the serials have no gaps: rejected sends do not consume one.
	lines := make(chan protocol.Envelope, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(outR)
		for scanner.Scan() {
			env, err := protocol.Decode(scanner.Bytes())
			if err != nil {
				return
			}
			lines <- env
		}
	}()

	var serials []int64
	deadline := time.After(testTimeout)
	for done := false; !done; {
		select {
		case env := <-lines:
			serials = append(serials, env.Serial)
			done = env.Tag == protocol.TagBufferChanged && env.Data[0] == "text 9"
		case <-deadline:
			t.Fatalf("latest edit never reported, serials so far %v", serials)
		}
	}
	slices.Sort(serials)
	for i, serial := range serials {
		if serial != int64(i) {
			t.Fatalf("serials = %v, want 0..%d without gaps", serials, len(serials)-1)
		}
	}
	if next := b.Snapshot().NextSerial; next != int64(len(serials)) {
		t.Errorf("NextSerial = %d, want %d", next, len(serials))
	}

	_ = inW.Close()
	_ = b.Shutdown()
	_ = outW.Close()
}

func TestBridge_TapSeesBothDirections(t *testing.T) {
	t.Parallel()

	tap := &recordingTap{}
	_, c := newBridgeWithController(t, Config{}, WithTap(tap))
	c.send(`{"typ":"Foo","data":[],"serial":0}`)
	c.next(testTimeout)

	waitFor(t, func() bool {
		in, out := tap.counts()
		return in == 1 && out == 1
	}, testTimeout)
}

func TestBridge_ReadFileOption(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var paths []string
	b, c := newBridgeWithController(t, Config{EchoReads: true}, WithReadFile(func(p string) ([]byte, error) {
		mu.Lock()
		paths = append(paths, p)
		mu.Unlock()
		return []byte("stub"), nil
	}))

	c.sendEnvelope(protocol.New(protocol.TagOpenFile, 0, "virtual.txt"))
	got := c.next(testTimeout)
	if got.Tag != protocol.TagDebugMessage || !reflect.DeepEqual(got.Data, []string{"read file", "stub"}) {
		t.Errorf("got %+v", got)
	}
	waitFor(t, func() bool { return b.Snapshot().Buffer == "stub" }, testTimeout)

	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(paths, []string{"virtual.txt"}) {
		t.Errorf("read paths = %v", paths)
	}
}

func TestBridge_WatchActiveFileReloads(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "live.txt")
	if err := os.WriteFile(path, []byte("v1"), 0o600); err != nil {
		t.Fatal(err)
	}

	b, c := newBridgeWithController(t, Config{WatchActiveFile: true})
	if b.watcher == nil {
		t.Skip("file watching unavailable on this platform")
	}
	c.sendEnvelope(protocol.New(protocol.TagOpenFile, 0, path))
	waitFor(t, func() bool { return b.Snapshot().Buffer == "v1" }, testTimeout)

	if err := os.WriteFile(path, []byte("v2"), 0o600); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return b.Snapshot().Buffer == "v2" }, 5*time.Second)
}

func TestBridge_DroppedDebugCountedInSnapshot(t *testing.T) {
	t.Parallel()

	// Nobody reads the outbound pipe, so the writer blocks on its first
	// envelope and the single-slot outbox fills.
	inR, inW := io.Pipe()
	defer inW.Close()
	outR, outW := io.Pipe()
	defer outR.Close()

	b := New(Config{OutboundCapacity: 1}, inR, outW)
	b.Start(context.Background())
	t.Cleanup(func() {
		_ = outR.Close()
		_ = b.Shutdown()
	})

	for range 10 {
		if err := b.Send(protocol.TagDebugMessage, "noise"); err != nil {
			t.Fatal(err)
		}
	}
	if got := b.Snapshot().DroppedEvents; got == 0 {
		t.Error("expected some debug envelopes to be dropped")
	}
}
