package tail

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/ddship/internal/adapters/fs"
	"github.com/bft-labs/ddship/internal/domain"
)

type collector struct {
	mu       sync.Mutex
	messages []string
}

func (c *collector) emit(rec domain.LogRecord) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, rec.Message)
	return true
}

func (c *collector) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.messages...)
}

func appendFile(t *testing.T, path, data string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(data); err != nil {
		t.Fatal(err)
	}
}

func TestFollower_OneShotEmitsUnterminatedLastLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	appendFile(t, path, "one\ntwo\n\nthree\npartial")

	c := &collector{}
	f := NewFollower(Config{Paths: []string{path}}, NewParser(false, domain.LevelInfo, ""), c.emit)

	if err := f.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	got := strings.Join(c.Messages(), ",")
	if got != "one,two,three,partial" {
		t.Errorf("messages = %s, want one,two,three,partial", got)
	}
	if emitted, dropped := f.Stats(); emitted != 4 || dropped != 0 {
		t.Errorf("Stats() = %d, %d; want 4, 0", emitted, dropped)
	}
}

func TestFollower_OneShotResumesAfterUnterminatedLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	repo := fs.NewPositionFileRepository(filepath.Join(dir, "state"))
	parser := NewParser(false, domain.LevelInfo, "")

	appendFile(t, path, "a\nb")
	first := &collector{}
	if err := NewFollower(Config{Paths: []string{path}, Positions: repo}, parser, first.emit).Run(context.Background()); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}

	appendFile(t, path, "\nc\n")
	second := &collector{}
	if err := NewFollower(Config{Paths: []string{path}, Positions: repo}, parser, second.emit).Run(context.Background()); err != nil {
		t.Fatalf("second Run() error: %v", err)
	}

	if got := strings.Join(first.Messages(), ","); got != "a,b" {
		t.Errorf("first run = %s, want a,b", got)
	}
	if got := strings.Join(second.Messages(), ","); got != "c" {
		t.Errorf("second run = %s, want c", got)
	}
}

func TestFollower_ResumesFromSavedOffset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	repo := fs.NewPositionFileRepository(filepath.Join(dir, "state"))
	parser := NewParser(false, domain.LevelInfo, "")

	appendFile(t, path, "a\nb\n")
	first := &collector{}
	if err := NewFollower(Config{Paths: []string{path}, Positions: repo}, parser, first.emit).Run(context.Background()); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}

	appendFile(t, path, "c\nd\n")
	second := &collector{}
	if err := NewFollower(Config{Paths: []string{path}, Positions: repo}, parser, second.emit).Run(context.Background()); err != nil {
		t.Fatalf("second Run() error: %v", err)
	}

	if got := strings.Join(first.Messages(), ","); got != "a,b" {
		t.Errorf("first run = %s, want a,b", got)
	}
	if got := strings.Join(second.Messages(), ","); got != "c,d" {
		t.Errorf("second run = %s, want c,d", got)
	}

	positions, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if positions[path].Offset != 8 {
		t.Errorf("saved offset = %d, want 8", positions[path].Offset)
	}
}

func TestFollower_RestartsWhenFileShrank(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	repo := fs.NewPositionFileRepository(filepath.Join(dir, "state"))
	parser := NewParser(false, domain.LevelInfo, "")

	appendFile(t, path, "first line\nsecond line\n")
	if err := NewFollower(Config{Paths: []string{path}, Positions: repo}, parser, (&collector{}).emit).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("new\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := &collector{}
	if err := NewFollower(Config{Paths: []string{path}, Positions: repo}, parser, c.emit).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := strings.Join(c.Messages(), ","); got != "new" {
		t.Errorf("messages = %s, want new", got)
	}
}

func TestFollower_MissingFile(t *testing.T) {
	f := NewFollower(Config{Paths: []string{filepath.Join(t.TempDir(), "nope.log")}}, NewParser(false, domain.LevelInfo, ""), (&collector{}).emit)

	if err := f.Run(context.Background()); err == nil {
		t.Error("Run() on missing file without follow succeeded, want error")
	}
}

func TestFollower_Follow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	appendFile(t, path, "before\n")

	c := &collector{}
	f := NewFollower(Config{Paths: []string{path}, Follow: true}, NewParser(false, domain.LevelInfo, ""), c.emit)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	waitForMessages(t, c, 1)
	appendFile(t, path, "after")
	time.Sleep(50 * time.Millisecond)
	appendFile(t, path, " append\n")
	waitForMessages(t, c, 2)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if got := strings.Join(c.Messages(), ","); got != "before,after append" {
		t.Errorf("messages = %s", got)
	}
}

func waitForMessages(t *testing.T, c *collector, n int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(c.Messages()) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("got %d messages, want %d", len(c.Messages()), n)
}

func TestReadLines(t *testing.T) {
	c := &collector{}
	in := strings.NewReader("x\n\ny\nz")

	if err := ReadLines(context.Background(), in, NewParser(false, domain.LevelInfo, ""), c.emit); err != nil {
		t.Fatalf("ReadLines() error: %v", err)
	}
	if got := strings.Join(c.Messages(), ","); got != "x,y,z" {
		t.Errorf("messages = %s, want x,y,z", got)
	}
}
