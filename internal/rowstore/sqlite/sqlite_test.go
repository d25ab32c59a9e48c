package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/region23/hotelbot/internal/rowstore"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SeedAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Seed(ctx, "RESERVAS", [][]string{
		{"ID", "Habitación", "Check-in", "Check-out", "Estado"},
		{"ord_1", "Doble", "2025-03-01", "2025-03-04", "confirmada"},
		{"ord_2", "Suite", "2025-03-02", "2025-03-03", ""},
	}))

	rows, err := store.Get(ctx, "RESERVAS", "A:Z")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ord_1", rows[1][0])
	// пустые ячейки в конце строки обрезаются
	assert.Equal(t, []string{"ord_2", "Suite", "2025-03-02", "2025-03-03"}, rows[2])

	rows, err = store.Get(ctx, "RESERVAS", "B2:C")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Doble", "2025-03-01"}, {"Suite", "2025-03-02"}}, rows)
}

func TestSQLiteStore_MissingSheet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "Rooms", "A:Z")
	assert.True(t, rowstore.IsSheetNotFound(err))

	err = store.Append(ctx, "Rooms", "A:Z", [][]string{{"x"}})
	assert.True(t, rowstore.IsSheetNotFound(err))
}

func TestSQLiteStore_UpdateSingleCell(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Seed(ctx, "RESERVAS", [][]string{
		{"ID", "Estado"},
		{"ord_1", "pendiente"},
	}))

	require.NoError(t, store.Update(ctx, "RESERVAS", "B2", [][]string{{"confirmada"}}))

	rows, err := store.Get(ctx, "RESERVAS", "A:Z")
	require.NoError(t, err)
	assert.Equal(t, []string{"ord_1", "confirmada"}, rows[1])

	// запись за пределами текущей ширины строки расширяет ее
	require.NoError(t, store.Update(ctx, "RESERVAS", "D2", [][]string{{"nota"}}))
	rows, err = store.Get(ctx, "RESERVAS", "A2:D2")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"ord_1", "confirmada", "", "nota"}}, rows)
}

func TestSQLiteStore_AppendAfterLastRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSheet(ctx, "RESERVAS"))
	require.NoError(t, store.Append(ctx, "RESERVAS", "A:Z", [][]string{{"ID", "Estado"}}))
	require.NoError(t, store.Append(ctx, "RESERVAS", "A:Z", [][]string{{"ord_1", "pendiente"}}))
	require.NoError(t, store.Append(ctx, "RESERVAS", "A:Z", [][]string{{"ord_2", "pendiente"}}))

	rows, err := store.Get(ctx, "RESERVAS", "A:Z")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ord_2", rows[2][0])
}

func TestSQLiteStore_GapsAreEmptyRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSheet(ctx, "FAQ"))
	require.NoError(t, store.Update(ctx, "FAQ", "A1", [][]string{{"Pregunta", "Respuesta"}}))
	require.NoError(t, store.Update(ctx, "FAQ", "A3", [][]string{{"¿Check-in?", "15:00"}}))

	rows, err := store.Get(ctx, "FAQ", "A:Z")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Empty(t, rows[1])
	assert.Equal(t, "15:00", rows[2][1])
}

func TestSQLiteStore_Ping(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
