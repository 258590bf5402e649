package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Rotator keeps a date-stamped copy of the decoded message stream. The
// current day's file stays plain; on the first write of a new day the
// previous file is gzip-compressed and removed. Rotation happens on the
// write path, so an idle receiver holds at most one open file.
type Rotator struct {
	dir    string
	useUTC bool
	logger *logrus.Logger

	mu      sync.Mutex
	file    *os.File
	curDate string
}

// NewRotator creates the log directory if needed and opens today's file.
func NewRotator(dir string, useUTC bool, logger *logrus.Logger) (*Rotator, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	r := &Rotator{dir: dir, useUTC: useUTC, logger: logger}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.open(r.today()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Rotator) today() string {
	now := time.Now()
	if r.useUTC {
		now = now.UTC()
	}
	return now.Format("2006-01-02")
}

func (r *Rotator) path(date string) string {
	return filepath.Join(r.dir, fmt.Sprintf("modesrx_%s.log", date))
}

// open must be called with mu held.
func (r *Rotator) open(date string) error {
	f, err := os.OpenFile(r.path(date), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	r.file = f
	r.curDate = date
	return nil
}

// Writer returns the current day's file, rotating first if the date rolled
// over since the last write.
func (r *Rotator) Writer() (io.Writer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	date := r.today()
	if date == r.curDate {
		return r.file, nil
	}

	r.logger.WithFields(logrus.Fields{
		"old_date": r.curDate,
		"new_date": date,
	}).Info("rotating output log")

	oldPath := r.path(r.curDate)
	if err := r.file.Close(); err != nil {
		r.logger.WithError(err).Error("closing old log file")
	}
	if err := compress(oldPath); err != nil {
		r.logger.WithError(err).Error("compressing old log file")
	}
	if err := r.open(date); err != nil {
		return nil, err
	}
	return r.file, nil
}

// Close closes the current file without compressing it.
func (r *Rotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// compress gzips path into path.gz and removes the original.
func compress(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}
