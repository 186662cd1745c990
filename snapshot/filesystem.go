package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// Filesystem keeps one JSON file per agency in a directory. Writes go to
// a temp file first and are renamed into place, so readers always see a
// complete snapshot.
type Filesystem struct {
	Directory string

	TimeNow func() time.Time
}

func NewFilesystem(directory string) *Filesystem {
	if directory == "" {
		directory = "."
	}
	return &Filesystem{
		Directory: directory,
		TimeNow:   time.Now,
	}
}

type fsSnapshot struct {
	Records    []RawArrival `json:"records"`
	CapturedAt time.Time    `json:"captured_at"`
}

func (f *Filesystem) path(agency string) string {
	return filepath.Join(f.Directory, fmt.Sprintf("cache-%s.json", agency))
}

func (f *Filesystem) Write(ctx context.Context, agency string, records []RawArrival) error {
	buf, err := json.Marshal(fsSnapshot{
		Records:    records,
		CapturedAt: f.TimeNow().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "marshalling snapshot")
	}

	tmp, err := os.CreateTemp(f.Directory, ".cache-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}

	_, err = tmp.Write(buf)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "writing snapshot for %s", agency)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "closing snapshot for %s", agency)
	}

	if err := os.Rename(tmp.Name(), f.path(agency)); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "replacing snapshot for %s", agency)
	}

	return nil
}

func (f *Filesystem) Read(ctx context.Context, agency string) (Snapshot, error) {
	buf, err := os.ReadFile(f.path(agency))
	if os.IsNotExist(err) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, errors.Wrapf(err, "reading snapshot for %s", agency)
	}

	var stored fsSnapshot
	if err := json.Unmarshal(buf, &stored); err != nil {
		return Snapshot{}, &CorruptError{Agency: agency, Err: err}
	}

	return Snapshot{
		Agency:     agency,
		Records:    stored.Records,
		CapturedAt: stored.CapturedAt,
	}, nil
}
