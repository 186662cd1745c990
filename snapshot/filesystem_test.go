package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemFileNaming(t *testing.T) {
	dir := t.TempDir()
	fs := NewFilesystem(dir)

	require.NoError(t, fs.Write(context.Background(), "SF", testRecords()))

	_, err := os.Stat(filepath.Join(dir, "cache-SF.json"))
	assert.NoError(t, err)
}

func TestFilesystemCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	fs := NewFilesystem(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "cache-SF.json"), []byte("{not json"), 0644))

	_, err := fs.Read(context.Background(), "SF")

	var corrupt *CorruptError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, "SF", corrupt.Agency)
}

func TestFilesystemLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	fs := NewFilesystem(dir)

	require.NoError(t, fs.Write(context.Background(), "SF", testRecords()))
	require.NoError(t, fs.Write(context.Background(), "SF", testRecords()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cache-SF.json", entries[0].Name())
}

func TestFilesystemConcurrentReadersSeeCompleteSnapshots(t *testing.T) {
	ctx := context.Background()
	fs := NewFilesystem(t.TempDir())
	require.NoError(t, fs.Write(ctx, "SF", testRecords()))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				assert.NoError(t, fs.Write(ctx, "SF", testRecords()))
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				snap, err := fs.Read(ctx, "SF")
				if !assert.NoError(t, err) {
					continue
				}
				// Never a partially written file.
				assert.Len(t, snap.Records, 3)
			}
		}()
	}
	wg.Wait()
}
