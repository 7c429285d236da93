package s3blob

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/okquant/costsim/internal/domain"
)

// EstimateArchiver buffers estimate records in memory and periodically
// flushes them to object storage as gzip-compressed JSON lines. One object
// is written per flush:
//
//	estimates/{symbol}/{2006-01-02}/{150405}.jsonl.gz
type EstimateArchiver struct {
	writer   *Writer
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending []domain.EstimateRecord
}

// NewEstimateArchiver creates an archiver that flushes every interval.
func NewEstimateArchiver(w *Writer, interval time.Duration, logger *slog.Logger) *EstimateArchiver {
	return &EstimateArchiver{
		writer:   w,
		interval: interval,
		logger:   logger.With("component", "archiver"),
	}
}

// Add buffers one record for the next flush. Safe for concurrent use.
func (a *EstimateArchiver) Add(rec domain.EstimateRecord) {
	a.mu.Lock()
	a.pending = append(a.pending, rec)
	a.mu.Unlock()
}

// Run flushes the buffer on every tick until ctx is cancelled, then performs
// a final flush so buffered records are not lost on shutdown.
func (a *EstimateArchiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := a.Flush(flushCtx); err != nil {
				a.logger.Error("final flush failed", "error", err)
			}
			return ctx.Err()
		case <-ticker.C:
			if err := a.Flush(ctx); err != nil {
				a.logger.Error("flush failed", "error", err)
			}
		}
	}
}

// Flush writes all buffered records as one gzip JSONL object. It is a no-op
// when the buffer is empty. On upload failure the batch is requeued ahead of
// any records added in the meantime.
func (a *EstimateArchiver) Flush(ctx context.Context) error {
	a.mu.Lock()
	batch := a.pending
	a.pending = nil
	a.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	data, err := encodeJSONLGzip(batch)
	if err != nil {
		return fmt.Errorf("s3blob: encode archive batch: %w", err)
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("estimates/%s/%s/%s.jsonl.gz",
		batch[0].Symbol, now.Format("2006-01-02"), now.Format("150405"))

	if err := a.writer.Put(ctx, key, data, "application/gzip"); err != nil {
		a.mu.Lock()
		a.pending = append(batch, a.pending...)
		a.mu.Unlock()
		return err
	}

	a.logger.Info("archived estimates", "key", key, "records", len(batch))
	return nil
}

func encodeJSONLGzip(records []domain.EstimateRecord) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := json.NewEncoder(gz)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			_ = gz.Close()
			return nil, err
		}
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
