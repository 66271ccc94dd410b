package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/gravitas-games/craftgrid/pkg/workbench"
)

// Writer appends JSON lines to hourly zstd-compressed files named
// <prefix>-YYYY-MM-DD-HH.jsonl.zst under dir.
type Writer struct {
	dir    string
	prefix string
	now    func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewWriter creates a writer. Files are opened lazily on the first Write.
func NewWriter(dir, prefix string) *Writer {
	return &Writer{
		dir:    dir,
		prefix: prefix,
		now:    time.Now,
	}
}

// Close flushes and closes the current file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Write appends v as one JSON line.
func (w *Writer) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err
}

func (w *Writer) pathForHour(hour string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// Files lists the journal files written so far, oldest first.
func (w *Writer) Files() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(w.dir, w.prefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// CraftJournal records the station events worth keeping: crafts, result
// handling and slot changes. Grid churn is skipped.
type CraftJournal struct {
	w *Writer
}

// NewCraftJournal creates a journal writing under dir.
func NewCraftJournal(dir string) *CraftJournal {
	return &CraftJournal{w: NewWriter(dir, "crafts")}
}

// Attach subscribes the journal to every owner's events on bus.
func (j *CraftJournal) Attach(bus workbench.EventBus) {
	bus.Subscribe(workbench.AllOwners, j.Record)
}

// Record writes e if its type is journaled. Write failures are logged, not
// returned, so a full disk never blocks crafting.
func (j *CraftJournal) Record(e workbench.Event) {
	if !Journaled(e.Type) {
		return
	}
	if err := j.w.Write(e); err != nil {
		log.Printf("Craft journal write failed: %v", err)
	}
}

// Files lists the journal files written so far.
func (j *CraftJournal) Files() ([]string, error) { return j.w.Files() }

// Close flushes the journal.
func (j *CraftJournal) Close() error { return j.w.Close() }

// Journaled reports whether events of type t are recorded.
func Journaled(t workbench.EventType) bool {
	switch t {
	case workbench.EventCrafted,
		workbench.EventResultCollected,
		workbench.EventResultDiscarded,
		workbench.EventContainerChanged,
		workbench.EventToolChanged:
		return true
	default:
		return false
	}
}

// ReadEvents decodes every event in a journal file.
func ReadEvents(path string) ([]workbench.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeEvents(f)
}

// DecodeEvents decodes a zstd-compressed JSONL stream of events.
func DecodeEvents(r io.Reader) ([]workbench.Event, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []workbench.Event
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e workbench.Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, fmt.Errorf("journal line %d: %w", len(out)+1, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
