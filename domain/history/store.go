package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/prasetyowira/qrgen/constant"
	"github.com/prasetyowira/qrgen/infrastructure/logger"
)

var (
	// ErrIndexOutOfRange is returned when a position does not exist in the current history.
	ErrIndexOutOfRange = errors.New(constant.ErrIndexOutOfRange)
	// ErrStaleIndex is returned when the record at a position is not the one the caller rendered.
	ErrStaleIndex = errors.New(constant.ErrStaleIndex)
)

// Storage is a synchronous key-value slot, the server-side counterpart of
// the browser's localStorage.
type Storage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// CorruptionHook is told about persisted values that could not be parsed.
type CorruptionHook func(ctx context.Context, raw string, err error)

// Option configures a Store
type Option func(*Store)

// WithCorruptionHook replaces the default hook, which logs a warning.
func WithCorruptionHook(hook CorruptionHook) Option {
	return func(s *Store) {
		if hook != nil {
			s.onCorrupt = hook
		}
	}
}

// WithKey overrides the storage key, "qrHistory" by default.
func WithKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

// Store keeps the newest-first, capped generation history in a single
// storage slot. Every mutation is a full read-modify-write of that slot.
type Store struct {
	storage   Storage
	key       string
	limit     int
	onCorrupt CorruptionHook

	// serializes read-modify-write cycles from concurrent requests
	mu sync.Mutex
}

// NewStore creates a history store on top of the given storage
func NewStore(storage Storage, opts ...Option) *Store {
	s := &Store{
		storage:   storage,
		key:       constant.HistoryStorageKey,
		limit:     constant.HistoryLimit,
		onCorrupt: logCorruption,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func logCorruption(ctx context.Context, raw string, err error) {
	logger.CtxWarn(ctx, "Error reading history, treating it as empty", logger.LoggerInfo{
		ContextFunction: constant.CtxHistoryList,
		Error: &logger.CustomError{
			Code:    constant.ErrCodeHistoryCorrupt,
			Message: err.Error(),
			Type:    constant.ErrTypeStorage,
		},
		Data: map[string]interface{}{
			constant.DataBytes: len(raw),
		},
	})
}

// List returns the history, newest first. A missing or unparseable value
// yields an empty history; only storage failures are returned as errors.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Get returns the record at index in the current history.
func (s *Store) Get(ctx context.Context, index int) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return Record{}, err
	}
	if index < 0 || index >= len(records) {
		return Record{}, fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, index, len(records))
	}
	return records[index], nil
}

// Add puts record at the front of the history and drops the oldest entries
// beyond the limit. The new list is persisted before Add returns.
func (s *Store) Add(ctx context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}

	updated := make([]Record, 0, len(records)+1)
	updated = append(updated, record)
	updated = append(updated, records...)
	if len(updated) > s.limit {
		updated = updated[:s.limit]
	}

	if err := s.save(ctx, updated); err != nil {
		return err
	}

	logger.CtxDebug(ctx, "History entry added", logger.LoggerInfo{
		ContextFunction: constant.CtxHistoryAdd,
		Data: map[string]interface{}{
			constant.DataURL:   record.URL,
			constant.DataCount: len(updated),
		},
	})
	return nil
}

// RemoveAt deletes the record at index. An index outside the current list
// fails with ErrIndexOutOfRange and leaves the history untouched.
func (s *Store) RemoveAt(ctx context.Context, index int) error {
	return s.RemoveAtMatching(ctx, index, "")
}

// RemoveAtMatching deletes the record at index if its ID equals id. An empty
// id, or a record written without an ID, skips the identity check.
func (s *Store) RemoveAtMatching(ctx context.Context, index int, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}

	if index < 0 || index >= len(records) {
		logger.CtxWarn(ctx, "History index out of range", logger.LoggerInfo{
			ContextFunction: constant.CtxHistoryDel,
			Error: &logger.CustomError{
				Code:    constant.ErrCodeIndexOutOfRange,
				Message: constant.ErrIndexOutOfRange,
				Type:    constant.ErrTypeRetrieval,
			},
			Data: map[string]interface{}{
				constant.DataIndex: index,
				constant.DataCount: len(records),
			},
		})
		return fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, index, len(records))
	}

	if id != "" && records[index].ID != "" && records[index].ID != id {
		logger.CtxWarn(ctx, "History entry changed since it was rendered", logger.LoggerInfo{
			ContextFunction: constant.CtxHistoryDel,
			Error: &logger.CustomError{
				Code:    constant.ErrCodeStaleIndex,
				Message: constant.ErrStaleIndex,
				Type:    constant.ErrTypeRetrieval,
			},
			Data: map[string]interface{}{
				constant.DataIndex:    index,
				constant.DataRecordID: id,
			},
		})
		return fmt.Errorf("%w: index %d", ErrStaleIndex, index)
	}

	updated := make([]Record, 0, len(records)-1)
	updated = append(updated, records[:index]...)
	updated = append(updated, records[index+1:]...)

	if err := s.save(ctx, updated); err != nil {
		return err
	}

	logger.CtxInfo(ctx, "History entry removed", logger.LoggerInfo{
		ContextFunction: constant.CtxHistoryDel,
		Data: map[string]interface{}{
			constant.DataIndex:     index,
			constant.DataRemaining: len(updated),
		},
	})
	return nil
}

// Clear deletes the persisted history entirely.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.RemoveItem(ctx, s.key); err != nil {
		logger.CtxError(ctx, "Failed to clear history", logger.LoggerInfo{
			ContextFunction: constant.CtxHistoryClear,
			Error: &logger.CustomError{
				Code:    constant.ErrCodeHistoryWrite,
				Message: err.Error(),
				Type:    constant.ErrTypeStorage,
			},
		})
		return fmt.Errorf("clearing history: %w", err)
	}

	logger.CtxInfo(ctx, "History cleared", logger.LoggerInfo{
		ContextFunction: constant.CtxHistoryClear,
	})
	return nil
}

// load reads and decodes the slot. Callers hold s.mu.
func (s *Store) load(ctx context.Context) ([]Record, error) {
	raw, found, err := s.storage.GetItem(ctx, s.key)
	if err != nil {
		logger.CtxError(ctx, "Failed to read history", logger.LoggerInfo{
			ContextFunction: constant.CtxHistoryList,
			Error: &logger.CustomError{
				Code:    constant.ErrCodeHistoryRead,
				Message: err.Error(),
				Type:    constant.ErrTypeStorage,
			},
		})
		return nil, fmt.Errorf("reading history: %w", err)
	}
	if !found || raw == "" {
		return []Record{}, nil
	}

	var records []Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		s.onCorrupt(ctx, raw, err)
		return []Record{}, nil
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// save encodes and writes the slot. Callers hold s.mu.
func (s *Store) save(ctx context.Context, records []Record) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	if err := s.storage.SetItem(ctx, s.key, string(payload)); err != nil {
		logger.CtxError(ctx, "Failed to persist history", logger.LoggerInfo{
			ContextFunction: constant.CtxHistoryAdd,
			Error: &logger.CustomError{
				Code:    constant.ErrCodeHistoryWrite,
				Message: err.Error(),
				Type:    constant.ErrTypeStorage,
			},
			Data: map[string]interface{}{
				constant.DataCount: len(records),
			},
		})
		return fmt.Errorf("writing history: %w", err)
	}
	return nil
}
