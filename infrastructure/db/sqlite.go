package db

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/prasetyowira/qrgen/constant"
	"github.com/prasetyowira/qrgen/infrastructure/cache"
	appLogger "github.com/prasetyowira/qrgen/infrastructure/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"
)

// SQLiteStorage is a durable key-value store backed by a single SQLite table.
// It implements history.Storage.
type SQLiteStorage struct {
	db    *gorm.DB
	cache *cache.NamespaceLRU
}

// KVModel is the GORM model for one storage slot
type KVModel struct {
	Key       string `gorm:"column:slot_key;primaryKey"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName keeps the table name stable regardless of GORM naming strategy
func (KVModel) TableName() string {
	return "kv_items"
}

// GormLogger implements GORM's logger.Interface
type GormLogger struct{}

// LogMode implements the log.Interface method
func (l *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	return l
}

// Info logs info messages
func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	appLogger.CtxInfo(ctx, msg, appLogger.LoggerInfo{
		ContextFunction: constant.CtxDB,
		Data: map[string]interface{}{
			constant.DataData: data,
		},
	})
}

// Warn logs warn messages
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	appLogger.CtxWarn(ctx, msg, appLogger.LoggerInfo{
		ContextFunction: constant.CtxDB,
		Data: map[string]interface{}{
			constant.DataData: data,
		},
	})
}

// Error logs error messages
func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	appLogger.CtxError(ctx, msg, appLogger.LoggerInfo{
		ContextFunction: constant.CtxDB,
		Error: &appLogger.CustomError{
			Code:    constant.ErrCodeDBGeneral,
			Message: msg,
			Type:    constant.ErrTypeDB,
		},
		Data: map[string]interface{}{
			constant.DataData: data,
		},
	})
}

// Trace logs SQL operations
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	// A missing slot is an expected outcome, not a failure
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		appLogger.CtxError(ctx, "SQL error", appLogger.LoggerInfo{
			ContextFunction: constant.CtxDB,
			Error: &appLogger.CustomError{
				Code:    constant.ErrCodeDBGeneral,
				Message: err.Error(),
				Type:    constant.ErrTypeDB,
			},
			Data: map[string]interface{}{
				constant.DataElapsed: elapsed.String(),
				constant.DataRows:    rows,
				constant.DataSQL:     sql,
			},
		})
		return
	}

	appLogger.CtxDebug(ctx, "SQL query", appLogger.LoggerInfo{
		ContextFunction: constant.CtxDB,
		Data: map[string]interface{}{
			constant.DataElapsed: elapsed.String(),
			constant.DataRows:    rows,
			constant.DataSQL:     sql,
		},
	})
}

// NewSQLiteStorage opens (or creates) the SQLite database at dbPath.
// cacheObj may be nil.
func NewSQLiteStorage(dbPath string, cacheObj *cache.NamespaceLRU) (*SQLiteStorage, error) {
	ctx := appLogger.NewRequestContext()

	appLogger.CtxDebug(ctx, "Opening SQLite database", appLogger.LoggerInfo{
		ContextFunction: constant.CtxDB,
		Data: map[string]interface{}{
			constant.DataPath: dbPath,
		},
	})

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: &GormLogger{},
	})
	if err != nil {
		appLogger.CtxError(ctx, "Failed to open database", appLogger.LoggerInfo{
			ContextFunction: constant.CtxDB,
			Error: &appLogger.CustomError{
				Code:    constant.ErrCodeDBOpen,
				Message: err.Error(),
				Type:    constant.ErrTypeDB,
			},
			Data: map[string]interface{}{
				constant.DataPath: dbPath,
			},
		})
		return nil, err
	}

	if err := db.AutoMigrate(&KVModel{}); err != nil {
		appLogger.CtxError(ctx, "Failed to migrate database schema", appLogger.LoggerInfo{
			ContextFunction: constant.CtxDB,
			Error: &appLogger.CustomError{
				Code:    constant.ErrCodeDBMigrate,
				Message: err.Error(),
				Type:    constant.ErrTypeDB,
			},
		})
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}

	if cacheObj == nil {
		cacheObj = cache.NewNamespaceLRU(0)
	}

	appLogger.CtxInfo(ctx, "Database initialized successfully", appLogger.LoggerInfo{
		ContextFunction: constant.CtxDB,
		Data: map[string]interface{}{
			constant.DataPath: dbPath,
		},
	})

	return &SQLiteStorage{db: db, cache: cacheObj}, nil
}

// GetItem returns the value stored under key. Another process may write the
// same database file, so a cached value is only used while its row stamp
// still matches the one in SQLite.
func (s *SQLiteStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	if s.cache.Enabled() {
		var head KVModel
		err := s.db.WithContext(ctx).Select("updated_at").Where("slot_key = ?", key).Take(&head).Error
		if err == nil {
			if value, ok := s.cachedValue(key, head.UpdatedAt); ok {
				return value, true, nil
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, s.lookupFailed(ctx, key, err)
		}
	}

	var model KVModel
	err := s.db.WithContext(ctx).Where("slot_key = ?", key).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.cache.Invalidate(constant.StorageNamespace, key)
		appLogger.CtxDebug(ctx, "Storage key not found", appLogger.LoggerInfo{
			ContextFunction: constant.CtxGetItem,
			Data: map[string]interface{}{
				constant.DataKey: key,
			},
		})
		return "", false, nil
	}
	if err != nil {
		return "", false, s.lookupFailed(ctx, key, err)
	}

	s.cache.Set(constant.StorageNamespace, key, stampValue(model.UpdatedAt, model.Value))
	return model.Value, true, nil
}

func (s *SQLiteStorage) lookupFailed(ctx context.Context, key string, err error) error {
	appLogger.CtxError(ctx, "Database error while reading key", appLogger.LoggerInfo{
		ContextFunction: constant.CtxGetItem,
		Error: &appLogger.CustomError{
			Code:    constant.ErrCodeDBLookup,
			Message: err.Error(),
			Type:    constant.ErrTypeDB,
		},
		Data: map[string]interface{}{
			constant.DataKey: key,
		},
	})
	return err
}

// cachedValue returns the cached value for key if it was cached at stamp
func (s *SQLiteStorage) cachedValue(key string, stamp time.Time) (string, bool) {
	raw, found := s.cache.Get(constant.StorageNamespace, key)
	if !found {
		return "", false
	}
	cachedStamp, value, ok := strings.Cut(raw, "|")
	if !ok || cachedStamp != strconv.FormatInt(stamp.UnixNano(), 10) {
		return "", false
	}
	return value, true
}

// stampValue prefixes value with the row stamp it was read or written at
func stampValue(stamp time.Time, value string) string {
	return strconv.FormatInt(stamp.UnixNano(), 10) + "|" + value
}

// SetItem stores value under key, replacing any previous value
func (s *SQLiteStorage) SetItem(ctx context.Context, key, value string) error {
	model := KVModel{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&model)
	if result.Error != nil {
		s.cache.Invalidate(constant.StorageNamespace, key)
		appLogger.CtxError(ctx, "Failed to write key", appLogger.LoggerInfo{
			ContextFunction: constant.CtxSetItem,
			Error: &appLogger.CustomError{
				Code:    constant.ErrCodeDBUpsert,
				Message: result.Error.Error(),
				Type:    constant.ErrTypeDB,
			},
			Data: map[string]interface{}{
				constant.DataKey: key,
			},
		})
		return result.Error
	}

	s.cache.Set(constant.StorageNamespace, key, stampValue(model.UpdatedAt, value))

	appLogger.CtxDebug(ctx, "Key written", appLogger.LoggerInfo{
		ContextFunction: constant.CtxSetItem,
		Data: map[string]interface{}{
			constant.DataKey:          key,
			constant.DataBytes:        len(value),
			constant.DataRowsAffected: result.RowsAffected,
		},
	})
	return nil
}

// RemoveItem deletes key. Removing a missing key is not an error.
func (s *SQLiteStorage) RemoveItem(ctx context.Context, key string) error {
	s.cache.Invalidate(constant.StorageNamespace, key)

	result := s.db.WithContext(ctx).Where("slot_key = ?", key).Delete(&KVModel{})
	if result.Error != nil {
		appLogger.CtxError(ctx, "Failed to delete key", appLogger.LoggerInfo{
			ContextFunction: constant.CtxRemoveItem,
			Error: &appLogger.CustomError{
				Code:    constant.ErrCodeDBDelete,
				Message: result.Error.Error(),
				Type:    constant.ErrTypeDB,
			},
			Data: map[string]interface{}{
				constant.DataKey: key,
			},
		})
		return result.Error
	}

	appLogger.CtxDebug(ctx, "Key removed", appLogger.LoggerInfo{
		ContextFunction: constant.CtxRemoveItem,
		Data: map[string]interface{}{
			constant.DataKey:          key,
			constant.DataRowsAffected: result.RowsAffected,
		},
	})
	return nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	ctx := context.Background()
	sqlDB, err := s.db.DB()
	if err != nil {
		appLogger.CtxError(ctx, "Failed to get database connection", appLogger.LoggerInfo{
			ContextFunction: constant.CtxClose,
			Error: &appLogger.CustomError{
				Code:    constant.ErrCodeDBClose,
				Message: err.Error(),
				Type:    constant.ErrTypeDB,
			},
		})
		return err
	}

	appLogger.CtxInfo(ctx, "Closing database connection", appLogger.LoggerInfo{
		ContextFunction: constant.CtxClose,
	})

	// A shared cache must not serve values from a closed database
	s.cache.InvalidateNamespace(constant.StorageNamespace)
	return sqlDB.Close()
}
