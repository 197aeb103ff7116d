package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

type HourTicker struct {
	stop chan struct{}
	C    <-chan time.Time
}

func NewHourTicker() *HourTicker {
	ht := &HourTicker{
		stop: make(chan struct{}),
	}
	ht.C = ht.Ticker()
	return ht
}

func (ht *HourTicker) Ticker() <-chan time.Time {
	ch := make(chan time.Time)
	go func() {
		hour := time.Now().Hour()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case t := <-ticker.C:
				if t.Hour() != hour {
					select {
					case ch <- t:
					case <-ht.stop:
						return
					}
					hour = t.Hour()
				}
			case <-ht.stop:
				return
			}
		}
	}()
	return ch
}

func (ht *HourTicker) Stop() {
	close(ht.stop)
}

// AsyncFileWriter buffers log lines in a channel and writes them from a single
// goroutine into an hourly rotated file. filename is kept as a symlink to the current
// file. Lines are dropped when the buffer is full.
type AsyncFileWriter struct {
	sync.Mutex

	filename string
	fd       *os.File

	wg         sync.WaitGroup
	started    int32
	dropped    uint64
	buf        chan []byte
	stop       chan struct{}
	hourTicker *HourTicker
}

func NewAsyncFileWriter(filename string, bufSize int64) *AsyncFileWriter {
	return &AsyncFileWriter{
		filename: filename,
		buf:      make(chan []byte, bufSize),
		stop:     make(chan struct{}),
	}
}

func (w *AsyncFileWriter) InitLogFile() error {
	w.Lock()
	defer w.Unlock()

	realFile, err := w.timeFilename()
	if err != nil {
		return err
	}

	fd, err := os.OpenFile(realFile, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	if w.fd != nil {
		w.fd.Sync()
		w.fd.Close()
	}
	w.fd = fd

	if _, err := os.Lstat(w.filename); err == nil {
		os.Remove(w.filename)
	}
	return os.Symlink("./"+filepath.Base(realFile), w.filename)
}

func (w *AsyncFileWriter) Start() error {
	if !atomic.CompareAndSwapInt32(&w.started, 0, 1) {
		return nil
	}
	if err := w.InitLogFile(); err != nil {
		atomic.StoreInt32(&w.started, 0)
		return err
	}
	w.hourTicker = NewHourTicker()

	w.wg.Add(1)
	go func() {
		defer func() {
			w.flushBuffer()
			w.wg.Done()
		}()

		for {
			select {
			case msg := <-w.buf:
				w.SyncWrite(msg)
			case <-w.hourTicker.C:
				if err := w.InitLogFile(); err != nil {
					fmt.Fprintln(os.Stderr, "failed to rotate log file:", err)
				}
			case <-w.stop:
				return
			}
		}
	}()
	return nil
}

// flushBuffer writes whatever is still queued.
func (w *AsyncFileWriter) flushBuffer() {
	for {
		select {
		case msg := <-w.buf:
			w.SyncWrite(msg)
		default:
			w.Flush()
			return
		}
	}
}

func (w *AsyncFileWriter) SyncWrite(msg []byte) {
	w.Lock()
	defer w.Unlock()
	if w.fd != nil {
		w.fd.Write(msg)
	}
}

// Stop drains the buffer and closes the file.
func (w *AsyncFileWriter) Stop() {
	if !atomic.CompareAndSwapInt32(&w.started, 1, 0) {
		return
	}
	close(w.stop)
	w.wg.Wait()
	w.hourTicker.Stop()

	w.Lock()
	defer w.Unlock()
	if w.fd != nil {
		w.fd.Close()
		w.fd = nil
	}
}

func (w *AsyncFileWriter) Write(msg []byte) (n int, err error) {
	// the caller may reuse msg once Write returns
	buf := make([]byte, len(msg))
	copy(buf, msg)

	select {
	case w.buf <- buf:
	default:
		atomic.AddUint64(&w.dropped, 1)
	}
	return len(msg), nil
}

// Dropped counts lines discarded because the buffer was full.
func (w *AsyncFileWriter) Dropped() uint64 {
	return atomic.LoadUint64(&w.dropped)
}

func (w *AsyncFileWriter) Flush() error {
	w.Lock()
	defer w.Unlock()
	if w.fd == nil {
		return nil
	}
	return w.fd.Sync()
}

func (w *AsyncFileWriter) timeFilename() (string, error) {
	absPath, err := filepath.Abs(w.filename)
	if err != nil {
		return "", err
	}
	return absPath + "." + time.Now().Format("2006-01-02_15"), nil
}
