package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/prasetyowira/qrgen/constant"
	"github.com/prasetyowira/qrgen/infrastructure/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock storage for failure paths
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStorage) SetItem(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockStorage) RemoveItem(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func record(url string) Record {
	return Record{
		ID:              "id-" + url,
		URL:             url,
		ImageRequestURL: "https://api.qrserver.com/v1/create-qr-code/?size=300x300&data=" + url,
		Size:            300,
		Timestamp:       "2026-10-18T10:00:00.000Z",
		DisplayDate:     "10/18/2026 10:00:00 AM",
	}
}

func urls(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.URL)
	}
	return out
}

func TestList_EmptyWhenAbsent(t *testing.T) {
	store := NewStore(db.NewMemoryStorage())

	records, err := store.List(context.Background())

	assert.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestList_CorruptValueIsEmptyAndReported(t *testing.T) {
	storage := db.NewMemoryStorage()
	ctx := context.Background()
	require.NoError(t, storage.SetItem(ctx, constant.HistoryStorageKey, "{not json"))

	var reported error
	store := NewStore(storage, WithCorruptionHook(func(_ context.Context, raw string, err error) {
		assert.Equal(t, "{not json", raw)
		reported = err
	}))

	records, err := store.List(ctx)

	assert.NoError(t, err)
	assert.Empty(t, records)
	assert.Error(t, reported)
}

func TestList_ReadsBrowserWrittenSizeString(t *testing.T) {
	storage := db.NewMemoryStorage()
	ctx := context.Background()
	raw := `[{"url":"https://example.com","qrUrl":"https://api.qrserver.com/v1/create-qr-code/?size=300x300&data=https%3A%2F%2Fexample.com","size":"300","timestamp":"2024-01-01T00:00:00.000Z","dateString":"1/1/2024 12:00:00 AM"}]`
	require.NoError(t, storage.SetItem(ctx, constant.HistoryStorageKey, raw))

	records, err := NewStore(storage).List(ctx)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 300, records[0].Size)
	assert.Equal(t, "", records[0].ID)
	assert.Equal(t, "1/1/2024 12:00:00 AM", records[0].DisplayDate)
}

func TestList_StorageErrorIsReturned(t *testing.T) {
	storage := new(MockStorage)
	storage.On("GetItem", mock.Anything, constant.HistoryStorageKey).Return("", false, errors.New("disk gone"))

	_, err := NewStore(storage).List(context.Background())

	assert.Error(t, err)
	storage.AssertExpectations(t)
}

func TestAdd_PrependsNewestFirst(t *testing.T) {
	store := NewStore(db.NewMemoryStorage())
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, record("https://a.example")))
	require.NoError(t, store.Add(ctx, record("https://b.example")))

	records, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://b.example", "https://a.example"}, urls(records))
}

func TestAdd_CapsAtTwentyMostRecent(t *testing.T) {
	store := NewStore(db.NewMemoryStorage())
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.NoError(t, store.Add(ctx, record(fmt.Sprintf("https://example.com/%d", i))))
	}

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, constant.HistoryLimit)
	assert.Equal(t, "https://example.com/24", records[0].URL)
	assert.Equal(t, "https://example.com/5", records[19].URL)
}

func TestAdd_PersistsWireFormat(t *testing.T) {
	storage := db.NewMemoryStorage()
	store := NewStore(storage)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, record("https://example.com")))

	raw, found, err := storage.GetItem(ctx, constant.HistoryStorageKey)
	require.NoError(t, err)
	require.True(t, found)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	require.Len(t, decoded, 1)
	for _, field := range []string{"url", "qrUrl", "size", "timestamp", "dateString"} {
		assert.Contains(t, decoded[0], field)
	}
}

func TestAdd_OverwritesCorruptHistory(t *testing.T) {
	storage := db.NewMemoryStorage()
	ctx := context.Background()
	require.NoError(t, storage.SetItem(ctx, constant.HistoryStorageKey, "garbage"))
	store := NewStore(storage, WithCorruptionHook(func(context.Context, string, error) {}))

	require.NoError(t, store.Add(ctx, record("https://example.com")))

	records, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com"}, urls(records))
}

func TestAdd_WriteFailureLeavesError(t *testing.T) {
	storage := new(MockStorage)
	storage.On("GetItem", mock.Anything, constant.HistoryStorageKey).Return("", false, nil)
	storage.On("SetItem", mock.Anything, constant.HistoryStorageKey, mock.Anything).Return(errors.New("read-only"))

	err := NewStore(storage).Add(context.Background(), record("https://example.com"))

	assert.Error(t, err)
	storage.AssertExpectations(t)
}

func TestRemoveAt_InRange(t *testing.T) {
	store := NewStore(db.NewMemoryStorage())
	ctx := context.Background()
	for _, u := range []string{"https://a.example", "https://b.example", "https://c.example"} {
		require.NoError(t, store.Add(ctx, record(u)))
	}

	require.NoError(t, store.RemoveAt(ctx, 1))

	records, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://c.example", "https://a.example"}, urls(records))
}

func TestRemoveAt_OutOfRange(t *testing.T) {
	store := NewStore(db.NewMemoryStorage())
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, record("https://a.example")))

	for _, index := range []int{-1, 1, 5} {
		err := store.RemoveAt(ctx, index)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	}

	records, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example"}, urls(records))
}

func TestRemoveAtMatching_DetectsStaleIndex(t *testing.T) {
	store := NewStore(db.NewMemoryStorage())
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, record("https://a.example")))
	require.NoError(t, store.Add(ctx, record("https://b.example")))

	err := store.RemoveAtMatching(ctx, 0, "id-https://a.example")
	assert.ErrorIs(t, err, ErrStaleIndex)

	require.NoError(t, store.RemoveAtMatching(ctx, 1, "id-https://a.example"))
	records, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://b.example"}, urls(records))
}

func TestGet(t *testing.T) {
	store := NewStore(db.NewMemoryStorage())
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, record("https://a.example")))

	rec, err := store.Get(ctx, 0)
	assert.NoError(t, err)
	assert.Equal(t, "https://a.example", rec.URL)

	_, err = store.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestClear(t *testing.T) {
	storage := db.NewMemoryStorage()
	store := NewStore(storage)
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, record("https://a.example")))

	require.NoError(t, store.Clear(ctx))

	records, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
	_, found, _ := storage.GetItem(ctx, constant.HistoryStorageKey)
	assert.False(t, found)
}

func TestScenario_AddAddRemoveClear(t *testing.T) {
	store := NewStore(db.NewMemoryStorage())
	ctx := context.Background()
	a := record("https://example.com")
	b := record("https://example.org")

	require.NoError(t, store.Add(ctx, a))
	records, _ := store.List(ctx)
	assert.Equal(t, []Record{a}, records)

	require.NoError(t, store.Add(ctx, b))
	records, _ = store.List(ctx)
	assert.Equal(t, []Record{b, a}, records)

	require.NoError(t, store.RemoveAt(ctx, 1))
	records, _ = store.List(ctx)
	assert.Equal(t, []Record{b}, records)

	require.NoError(t, store.Clear(ctx))
	records, _ = store.List(ctx)
	assert.Equal(t, []Record{}, records)
}

func TestWithKey(t *testing.T) {
	storage := db.NewMemoryStorage()
	store := NewStore(storage, WithKey("other"))
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, record("https://a.example")))

	_, found, _ := storage.GetItem(ctx, "other")
	assert.True(t, found)
	_, found, _ = storage.GetItem(ctx, constant.HistoryStorageKey)
	assert.False(t, found)
}
