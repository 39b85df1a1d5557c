package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"senyas/internal/config"
	"senyas/internal/models"
	"senyas/internal/redis"
)

// ErrUploadNotFound is returned by Lookup for names the catalog never recorded.
var ErrUploadNotFound = errors.New("upload not found")

const redisUploadPrefix = "senyas:upload:"

// Catalog keeps metadata for files written by the UploadStore.
type Catalog interface {
	Record(ctx context.Context, file *models.UploadedFile) error
	Lookup(ctx context.Context, storedName string) (*models.UploadedFile, error)
	Close() error
}

// OpenCatalog builds the catalog selected by cfg.Catalog.Driver.
func OpenCatalog(ctx context.Context, cfg *config.Config) (Catalog, error) {
	switch cfg.Catalog.Driver {
	case "", "none":
		return NoopCatalog{}, nil
	case "redis":
		client, err := redis.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("create redis client: %w", err)
		}
		return NewRedisCatalog(client), nil
	default:
		db, err := Open(cfg.Catalog.Driver, cfg.Catalog.DSN)
		if err != nil {
			return nil, err
		}
		if err := Migrate(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		return NewSQLCatalog(db), nil
	}
}

// NoopCatalog records nothing; every lookup misses.
type NoopCatalog struct{}

func (NoopCatalog) Record(context.Context, *models.UploadedFile) error { return nil }

func (NoopCatalog) Lookup(context.Context, string) (*models.UploadedFile, error) {
	return nil, ErrUploadNotFound
}

func (NoopCatalog) Close() error { return nil }

type sqlCatalog struct {
	db *sqlx.DB
}

// NewSQLCatalog stores records in the uploaded_files table; db must be migrated.
func NewSQLCatalog(db *sqlx.DB) Catalog {
	return &sqlCatalog{db: db}
}

func (s *sqlCatalog) Record(ctx context.Context, file *models.UploadedFile) error {
	if file == nil {
		return errors.New("file cannot be nil")
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO uploaded_files (stored_name, original_name, size_bytes, mime_type, storage_path, url, upload_type, created_at)
		VALUES (:stored_name, :original_name, :size_bytes, :mime_type, :storage_path, :url, :upload_type, :created_at)`, file)
	if err != nil {
		return fmt.Errorf("insert uploaded file: %w", err)
	}
	return nil
}

func (s *sqlCatalog) Lookup(ctx context.Context, storedName string) (*models.UploadedFile, error) {
	var file models.UploadedFile
	err := s.db.GetContext(ctx, &file, s.db.Rebind(`
		SELECT stored_name, original_name, size_bytes, mime_type, storage_path, url, upload_type, created_at
		FROM uploaded_files WHERE stored_name = ?`), storedName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUploadNotFound
		}
		return nil, fmt.Errorf("lookup uploaded file: %w", err)
	}
	return &file, nil
}

func (s *sqlCatalog) Close() error {
	return s.db.Close()
}

type redisCatalog struct {
	client *redis.Client
}

// NewRedisCatalog stores one JSON value per stored name, without expiry.
func NewRedisCatalog(client *redis.Client) Catalog {
	return &redisCatalog{client: client}
}

func (r *redisCatalog) Record(ctx context.Context, file *models.UploadedFile) error {
	if file == nil {
		return errors.New("file cannot be nil")
	}
	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode uploaded file: %w", err)
	}
	if err := r.client.Set(ctx, redisUploadPrefix+file.StoredName, data, 0); err != nil {
		return fmt.Errorf("store uploaded file: %w", err)
	}
	return nil
}

func (r *redisCatalog) Lookup(ctx context.Context, storedName string) (*models.UploadedFile, error) {
	raw, err := r.client.Get(ctx, redisUploadPrefix+storedName)
	if err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			return nil, ErrUploadNotFound
		}
		return nil, fmt.Errorf("lookup uploaded file: %w", err)
	}
	var file models.UploadedFile
	if err := json.Unmarshal([]byte(raw), &file); err != nil {
		return nil, fmt.Errorf("decode uploaded file: %w", err)
	}
	return &file, nil
}

func (r *redisCatalog) Close() error {
	return r.client.Close()
}
