package kyc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MeKo-Tech/nagarikta/internal/pipeline"
)

// Record is a stored extraction, optionally with the claims it was
// checked against.
type Record struct {
	ID        string           `json:"id"`
	SubjectID string           `json:"subject_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	Result    *pipeline.Result `json:"result"`
	Claims    *Claims          `json:"claims,omitempty"`
	Checks    *Checks          `json:"checks,omitempty"`
	Passed    *bool            `json:"passed,omitempty"`
}

// NewRecord wraps a result, reusing its run ID.
func NewRecord(res *pipeline.Result, subject string) *Record {
	id := res.RunID
	if id == "" {
		id = uuid.NewString()
	}
	return &Record{ID: id, SubjectID: subject, CreatedAt: time.Now().UTC(), Result: res}
}

// Store keeps records by ID and remembers the latest record per subject.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Latest(ctx context.Context, subject string) (*Record, error)
	Close() error
}

// MemoryStore is a Store in process memory. Records expire after ttl
// when ttl is positive.
type MemoryStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	records  map[string]*Record
	subjects map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		records:  make(map[string]*Record),
		subjects: make(map[string]string),
	}
}

func (m *MemoryStore) Save(_ context.Context, rec *Record) error {
	if rec == nil || rec.ID == "" {
		return errors.New("record without id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	if rec.SubjectID != "" {
		m.subjects[rec.SubjectID] = rec.ID
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok || m.expired(rec) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

func (m *MemoryStore) Latest(ctx context.Context, subject string) (*Record, error) {
	m.mu.RLock()
	id, ok := m.subjects[subject]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: subject %s", ErrNotFound, subject)
	}
	return m.Get(ctx, id)
}

func (m *MemoryStore) expired(rec *Record) bool {
	return m.ttl > 0 && m.now().Sub(rec.CreatedAt) > m.ttl
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }

// RedisConfig locates the Redis server.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// RedisStore keeps JSON encoded records in Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 2 * time.Second,
		MaxRetries:  1,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}
	slog.Info("connected to redis", "addr", cfg.Addr, "db", cfg.DB)
	return newRedisStore(client, cfg), nil
}

func newRedisStore(client *redis.Client, cfg RedisConfig) *RedisStore {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "nagarikta"
	}
	return &RedisStore{client: client, ttl: cfg.TTL, prefix: prefix}
}

func (r *RedisStore) recordKey(id string) string       { return r.prefix + ":record:" + id }
func (r *RedisStore) subjectKey(subject string) string { return r.prefix + ":subject:" + subject }

func (r *RedisStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil || rec.ID == "" {
		return errors.New("record without id")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.recordKey(rec.ID), data, r.ttl)
	if rec.SubjectID != "" {
		pipe.Set(ctx, r.subjectKey(rec.SubjectID), rec.ID, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save record %s: %w", rec.ID, err)
	}
	slog.Debug("record saved", "id", rec.ID, "subject", rec.SubjectID)
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	data, err := r.client.Get(ctx, r.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	return &rec, nil
}

func (r *RedisStore) Latest(ctx context.Context, subject string) (*Record, error) {
	id, err := r.client.Get(ctx, r.subjectKey(subject)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: subject %s", ErrNotFound, subject)
	}
	if err != nil {
		return nil, fmt.Errorf("get subject %s: %w", subject, err)
	}
	return r.Get(ctx, id)
}

// Close implements Store.
func (r *RedisStore) Close() error { return r.client.Close() }
