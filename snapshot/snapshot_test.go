package snapshot

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCapture = time.Date(2024, 5, 10, 12, 0, 0, 123456789, time.UTC)

func testClock() time.Time {
	return testCapture
}

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	fs := NewFilesystem(t.TempDir())
	fs.TimeNow = testClock

	mem := NewMemory()
	mem.TimeNow = testClock

	sq, err := NewSQLiteStore()
	require.NoError(t, err)
	sq.TimeNow = testClock
	t.Cleanup(func() { sq.Close() })

	stores := map[string]Store{
		"filesystem": fs,
		"memory":     mem,
		"sqlite":     sq,
	}

	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		pg, err := NewPostgresStore(dsn, true)
		require.NoError(t, err)
		pg.TimeNow = testClock
		t.Cleanup(func() { pg.Close() })
		stores["postgres"] = pg
	}

	return stores
}

func testRecords() []RawArrival {
	return []RawArrival{
		{
			Line:            "14",
			Direction:       "IB",
			Destination:     "Mission + Steuart",
			StopID:          "13911",
			ExpectedArrival: "2024-05-10T12:05:00Z",
		},
		{
			Line:            "49",
			Direction:       "OB",
			Destination:     "City College",
			StopID:          "13911",
			ExpectedArrival: "2024-05-10T12:07:00Z",
		},
		{
			// A partial record must survive the round trip as-is.
			Line:   "22",
			StopID: "13912",
		},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Write(ctx, "SF", testRecords()))

			snap, err := store.Read(ctx, "SF")
			require.NoError(t, err)

			assert.Equal(t, "SF", snap.Agency)
			assert.Equal(t, testRecords(), snap.Records)
			assert.True(t, snap.CapturedAt.Equal(testCapture),
				"captured at %v, want %v", snap.CapturedAt, testCapture)
		})
	}
}

func TestStoreReadMissingAgency(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Read(context.Background(), "nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreOverwriteReplacesWholeSnapshot(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Write(ctx, "SF", testRecords()))

			replacement := []RawArrival{testRecords()[0]}
			require.NoError(t, store.Write(ctx, "SF", replacement))

			snap, err := store.Read(ctx, "SF")
			require.NoError(t, err)
			assert.Equal(t, replacement, snap.Records)
		})
	}
}

func TestStoreAgenciesIndependent(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Write(ctx, "SF", testRecords()))
			require.NoError(t, store.Write(ctx, "BA", testRecords()[:1]))

			sf, err := store.Read(ctx, "SF")
			require.NoError(t, err)
			ba, err := store.Read(ctx, "BA")
			require.NoError(t, err)

			assert.Len(t, sf.Records, 3)
			assert.Len(t, ba.Records, 1)
		})
	}
}

func TestStoreWriteEmptyRecords(t *testing.T) {
	// An agency with no upcoming arrivals still gets a fresh capture
	// time.
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Write(ctx, "SF", nil))

			snap, err := store.Read(ctx, "SF")
			require.NoError(t, err)
			assert.Empty(t, snap.Records)
			assert.True(t, snap.CapturedAt.Equal(testCapture))
		})
	}
}
