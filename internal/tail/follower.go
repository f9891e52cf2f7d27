package tail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/ddship/internal/adapters/log"
	"github.com/bft-labs/ddship/internal/domain"
	"github.com/bft-labs/ddship/internal/ports"
)

// maxLineSize bounds a single stdin line.
const maxLineSize = 1 << 20

// Emit receives each parsed record. It returns false if the record was dropped.
type Emit func(rec domain.LogRecord) bool

// Config holds follower settings.
type Config struct {
	Paths []string

	// Follow keeps watching files for appended data until the context ends
	Follow bool

	// Positions persists read offsets; nil disables persistence
	Positions ports.PositionRepository

	Logger ports.Logger
}

// Follower reads lines from files and hands the parsed records to Emit.
type Follower struct {
	config    Config
	parser    *Parser
	emit      Emit
	files     map[string]*trackedFile
	positions map[string]ports.Position

	emitted int64
	dropped int64
}

type trackedFile struct {
	path    string
	file    *os.File
	reader  *bufio.Reader
	offset  int64
	inode   uint64
	partial []byte
}

// NewFollower creates a follower.
func NewFollower(config Config, parser *Parser, emit Emit) *Follower {
	paths := make([]string, len(config.Paths))
	for i, p := range config.Paths {
		paths[i] = filepath.Clean(p)
	}
	config.Paths = paths
	if config.Logger == nil {
		config.Logger = log.NewNoopLogger()
	}

	return &Follower{
		config: config,
		parser: parser,
		emit:   emit,
		files:  make(map[string]*trackedFile),
	}
}

// Run reads every file from its saved offset. Without Follow it returns once
// all files hit EOF, emitting a last line that has no newline; with Follow it
// keeps reading until ctx is cancelled and emits only complete lines.
func (f *Follower) Run(ctx context.Context) error {
	defer f.closeAll()

	if err := f.loadPositions(ctx); err != nil {
		return err
	}

	var watcher *fsnotify.Watcher
	if f.config.Follow {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer w.Close()
		watcher = w

		// Watch directories so rotated files are seen when recreated
		dirs := make(map[string]bool)
		for _, p := range f.config.Paths {
			dir := filepath.Dir(p)
			if dirs[dir] {
				continue
			}
			dirs[dir] = true
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
		}
	}

	for _, p := range f.config.Paths {
		if err := f.open(p, true); err != nil {
			if !f.config.Follow || !errors.Is(err, os.ErrNotExist) {
				return err
			}
			f.config.Logger.Warn("file not found, waiting for it", ports.String("path", p))
			continue
		}
		if err := f.read(f.files[p]); err != nil {
			return err
		}
		if !f.config.Follow {
			f.flushPartial(f.files[p])
		}
	}
	f.savePositions(ctx)

	if watcher == nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			f.savePositions(context.Background())
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			f.handle(ctx, ev)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.config.Logger.Warn("watcher error", ports.Err(err))
		}
	}
}

// Stats returns how many records were emitted and how many Emit refused.
func (f *Follower) Stats() (emitted, dropped int64) {
	return f.emitted, f.dropped
}

func (f *Follower) handle(ctx context.Context, ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !f.tracked(path) {
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		// Rotation: finish the old handle, then start the new file from the top
		if tf, ok := f.files[path]; ok {
			_ = f.read(tf)
			tf.file.Close()
			delete(f.files, path)
		}
		if err := f.open(path, false); err != nil {
			f.config.Logger.Warn("reopen failed", ports.String("path", path), ports.Err(err))
			return
		}
		f.config.Logger.Info("file recreated, reading from start", ports.String("path", path))

	case ev.Has(fsnotify.Write):
		if _, ok := f.files[path]; !ok {
			if err := f.open(path, true); err != nil {
				return
			}
		}
		f.checkTruncate(f.files[path])

	default:
		return
	}

	if err := f.read(f.files[path]); err != nil {
		f.config.Logger.Warn("read failed", ports.String("path", path), ports.Err(err))
	}
	f.savePositions(ctx)
}

func (f *Follower) tracked(path string) bool {
	for _, p := range f.config.Paths {
		if p == path {
			return true
		}
	}
	return false
}

// open opens path and seeks to its saved offset when resume is true and the
// saved position still describes the same file.
func (f *Follower) open(path string, resume bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat %s: %w", path, err)
	}

	tf := &trackedFile{path: path, file: file, inode: inodeOf(fi)}
	if pos, ok := f.positions[path]; ok && resume {
		sameFile := pos.Inode == 0 || pos.Inode == tf.inode
		if sameFile && pos.Offset <= fi.Size() {
			if _, err := file.Seek(pos.Offset, io.SeekStart); err != nil {
				file.Close()
				return fmt.Errorf("seek %s: %w", path, err)
			}
			tf.offset = pos.Offset
		}
	}
	tf.reader = bufio.NewReader(file)
	f.files[path] = tf
	return nil
}

// checkTruncate restarts a file from the top if it shrank below our offset.
func (f *Follower) checkTruncate(tf *trackedFile) {
	fi, err := tf.file.Stat()
	if err != nil {
		return
	}
	if fi.Size() >= tf.offset+int64(len(tf.partial)) {
		return
	}
	if _, err := tf.file.Seek(0, io.SeekStart); err != nil {
		return
	}
	f.config.Logger.Info("file truncated, reading from start", ports.String("path", tf.path))
	tf.offset = 0
	tf.partial = nil
	tf.reader.Reset(tf.file)
}

// read emits every complete line available in tf.
func (f *Follower) read(tf *trackedFile) error {
	for {
		chunk, err := tf.reader.ReadBytes('\n')
		if len(chunk) > 0 {
			if chunk[len(chunk)-1] == '\n' {
				line := chunk
				if len(tf.partial) > 0 {
					line = append(tf.partial, chunk...)
					tf.partial = nil
				}
				tf.offset += int64(len(line))
				f.deliver(string(line))
			} else {
				tf.partial = append(tf.partial, chunk...)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", tf.path, err)
		}
	}
}

// flushPartial emits an unterminated last line. One-shot reads call it at EOF
// since no more data will complete the line.
func (f *Follower) flushPartial(tf *trackedFile) {
	if len(tf.partial) == 0 {
		return
	}
	line := tf.partial
	tf.partial = nil
	tf.offset += int64(len(line))
	f.deliver(string(line))
}

func (f *Follower) deliver(line string) {
	rec, ok := f.parser.Parse(line)
	if !ok {
		return
	}
	if f.emit(rec) {
		f.emitted++
	} else {
		f.dropped++
	}
}

func (f *Follower) loadPositions(ctx context.Context) error {
	f.positions = make(map[string]ports.Position)
	if f.config.Positions == nil {
		return nil
	}
	positions, err := f.config.Positions.Load(ctx)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}
	f.positions = positions
	return nil
}

func (f *Follower) savePositions(ctx context.Context) {
	for path, tf := range f.files {
		f.positions[path] = ports.Position{Path: path, Offset: tf.offset, Inode: tf.inode}
	}
	if f.config.Positions == nil {
		return
	}
	if err := f.config.Positions.Save(ctx, f.positions); err != nil {
		f.config.Logger.Warn("save positions failed", ports.Err(err))
	}
}

func (f *Follower) closeAll() {
	for _, tf := range f.files {
		tf.file.Close()
	}
}

// ReadLines parses every line of r and hands it to emit until EOF or until
// ctx is cancelled.
func ReadLines(ctx context.Context, r io.Reader, parser *Parser, emit Emit) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if rec, ok := parser.Parse(scanner.Text()); ok {
			emit(rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}
