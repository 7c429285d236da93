package s3blob

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okquant/costsim/internal/domain"
)

func TestEncodeJSONLGzipRoundTrip(t *testing.T) {
	records := []domain.EstimateRecord{
		{ID: "a", Symbol: "BTC-USDT", OrderSize: 100, CreatedAt: time.Unix(1_700_000_000, 0).UTC()},
		{ID: "b", Symbol: "BTC-USDT", OrderSize: -50, CreatedAt: time.Unix(1_700_000_060, 0).UTC()},
	}

	data, err := encodeJSONLGzip(records)
	require.NoError(t, err)

	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(raw), []byte("\n"))
	require.Len(t, lines, 2)

	var got domain.EstimateRecord
	require.NoError(t, json.Unmarshal(lines[0], &got))
	assert.Equal(t, records[0], got)
	require.NoError(t, json.Unmarshal(lines[1], &got))
	assert.Equal(t, records[1], got)
}

func TestArchiverBuffersUntilFlush(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := NewEstimateArchiver(nil, time.Hour, logger)

	a.Add(domain.EstimateRecord{ID: "a"})
	a.Add(domain.EstimateRecord{ID: "b"})

	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Len(t, a.pending, 2)
	assert.Equal(t, "a", a.pending[0].ID)
}
