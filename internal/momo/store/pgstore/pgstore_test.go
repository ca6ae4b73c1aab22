package pgstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"momo/internal/momo/merrors"
	"momo/internal/momo/model"
)

// newTestStore connects to a real Postgres instance via DATABASE_URL, the
// same skip-if-unset convention as the teacher's internal/auth/store_test.go.
// pgstore has no in-memory fallback: it exists precisely to exercise pgx,
// pgvector-go, and golang-migrate against a real database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	_ = godotenv.Load("../../../../.env")
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	st, err := New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestDocumentLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	doc := &model.Document{
		ID:            "doc-" + time.Now().Format("150405.000000"),
		Title:         "test doc",
		DocType:       model.DocTypeText,
		Status:        model.StatusQueued,
		ContainerTags: []string{"container-a"},
		Metadata:      map[string]any{"extract_memories": true},
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	require.NoError(t, st.CreateDocument(ctx, doc))

	got, err := st.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "test doc", got.Title)
	assert.True(t, got.ExtractMemories())
	assert.Equal(t, []string{"container-a"}, got.ContainerTags)

	require.NoError(t, st.UpdateDocumentStatus(ctx, doc.ID, model.StatusDone, ""))
	got, err = st.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, got.Status)

	require.NoError(t, st.DeleteDocument(ctx, doc.ID))
	_, err = st.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, merrors.ErrNotFound)
}

func TestMemoryRelationsFirstWriteWins(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	m := &model.Memory{
		ID:           "mem-" + time.Now().Format("150405.000000"),
		Content:      "likes coffee",
		ContainerTag: "container-a",
		Version:      1,
		IsLatest:     true,
		SourceCount:  1,
		MemoryType:   model.MemoryTypePreference,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, st.CreateMemory(ctx, m))

	require.NoError(t, st.AddRelation(ctx, m.ID, "other-1", model.RelationUpdates))
	require.NoError(t, st.AddRelation(ctx, m.ID, "other-1", model.RelationExtends)) // should not overwrite

	got, err := st.GetMemory(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RelationUpdates, got.Relations["other-1"])
}

func TestCheckInferenceExistsExactSetEquality(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Format("150405.000000")
	inf := &model.Memory{
		ID:           "inf-" + base,
		Content:      "derived fact",
		ContainerTag: "container-a",
		IsLatest:     true,
		IsInference:  true,
		MemoryType:   model.MemoryTypeFact,
		Relations: map[string]model.RelationKind{
			"src-1": model.RelationDerives,
			"src-2": model.RelationDerives,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, st.CreateMemory(ctx, inf))

	exists, err := st.CheckInferenceExists(ctx, []string{"src-1", "src-2"})
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = st.CheckInferenceExists(ctx, []string{"src-1"})
	require.NoError(t, err)
	assert.False(t, exists, "subset must not count as existing")

	exists, err = st.CheckInferenceExists(ctx, []string{"src-1", "src-2", "src-3"})
	require.NoError(t, err)
	assert.False(t, exists, "superset must not count as existing")
}
