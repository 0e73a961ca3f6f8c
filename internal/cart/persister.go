package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/vladislavdragonenkov/foodorder/internal/domain"
)

var errStaleSnapshot = errors.New("stale cart snapshot")

// snapshotWriter пишет снапшоты строго по возрастанию ревизий:
// запись, опоздавшая относительно более новой, отбрасывается.
type snapshotWriter struct {
	mu      sync.Mutex
	kv      domain.KVStore
	key     string
	written uint64
}

func newSnapshotWriter(kv domain.KVStore, key string) *snapshotWriter {
	if kv == nil {
		return nil
	}
	return &snapshotWriter{kv: kv, key: key}
}

func (w *snapshotWriter) write(ctx context.Context, rev uint64, blob []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if rev <= w.written {
		return errStaleSnapshot
	}
	if err := w.kv.Set(ctx, w.key, blob); err != nil {
		return err
	}
	w.written = rev
	return nil
}
