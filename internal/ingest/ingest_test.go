package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/uni-assistant-go/internal/metrics"
	"github.com/garyellow/uni-assistant-go/internal/rag"
	"github.com/garyellow/uni-assistant-go/internal/storage"
)

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) { return []float32{1, 0}, nil }

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return 2 }

type fakeUpserter struct {
	batches [][]rag.Vector
}

func (f *fakeUpserter) Upsert(_ context.Context, v []rag.Vector) (int, error) {
	f.batches = append(f.batches, v)
	return len(v), nil
}

func seedDB(t *testing.T, pages ...storage.Page) *storage.DB {
	t.Helper()
	db, err := storage.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	for _, p := range pages {
		require.NoError(t, db.SavePage(context.Background(), &p))
	}
	return db
}

func longText(words int) string {
	var b strings.Builder
	for i := range words {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString("admission")
	}
	return b.String()
}

func TestRun(t *testing.T) {
	t.Parallel()

	db := seedDB(t,
		storage.Page{URL: "https://www.aup.edu.pk/admissions", Title: "Admissions", Content: longText(300)},
		storage.Page{URL: "https://www.aup.edu.pk/fees", Title: "Fees", Content: "Tuition is 50,000 per semester."},
		storage.Page{URL: "https://www.aup.edu.pk/blank", Title: "Blank"},
	)
	emb := &fakeEmbedder{}
	up := &fakeUpserter{}
	m := metrics.New(prometheus.NewRegistry())

	in := New(db, db, emb, up, Config{ChunkSize: 800, ChunkOverlap: 100, BatchSize: 2}, nil, m)
	stats, err := in.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Pages)
	assert.Greater(t, stats.Chunks, 2)
	assert.Equal(t, stats.Chunks, stats.Upserted)
	assert.InDelta(t, float64(stats.Chunks), testutil.ToFloat64(m.IngestChunksTotal), 0)

	stored, err := db.ListChunks(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, stats.Chunks)
	for _, c := range stored {
		assert.LessOrEqual(t, len(c.Text), 800)
	}

	for _, batch := range up.batches {
		assert.LessOrEqual(t, len(batch), 2)
		for _, v := range batch {
			assert.NotEmpty(t, v.Metadata.Text)
			assert.NotEmpty(t, v.Metadata.Source)
			assert.NotEmpty(t, v.Metadata.Title)
			assert.Len(t, v.Values, 2)
		}
	}
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	db := seedDB(t, storage.Page{URL: "https://www.aup.edu.pk/fees", Title: "Fees", Content: "Tuition is 50,000 per semester."})
	up := &fakeUpserter{}
	in := New(db, db, &fakeEmbedder{}, up, Config{}, nil, nil)

	_, err := in.Run(context.Background())
	require.NoError(t, err)
	_, err = in.Run(context.Background())
	require.NoError(t, err)

	n, err := db.CountChunks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, up.batches, 2)
	assert.Equal(t, up.batches[0][0].ID, up.batches[1][0].ID)
}

func TestRun_LocalOnly(t *testing.T) {
	t.Parallel()

	db := seedDB(t, storage.Page{URL: "https://www.aup.edu.pk/fees", Title: "Fees", Content: "Tuition is 50,000 per semester."})
	stats, err := New(db, db, nil, nil, Config{}, nil, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Chunks)
	assert.Zero(t, stats.Upserted)
}

func TestRun_EmbedError(t *testing.T) {
	t.Parallel()

	db := seedDB(t, storage.Page{URL: "https://www.aup.edu.pk/fees", Title: "Fees", Content: "Tuition."})
	_, err := New(db, db, &fakeEmbedder{err: errors.New("quota")}, &fakeUpserter{}, Config{}, nil, nil).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
}

func TestChunkID(t *testing.T) {
	t.Parallel()

	a := ChunkID("https://www.aup.edu.pk/fees", 0)
	assert.Equal(t, a, ChunkID("https://www.aup.edu.pk/fees", 0))
	assert.NotEqual(t, a, ChunkID("https://www.aup.edu.pk/fees", 1))
	assert.Len(t, a, 36)
}
