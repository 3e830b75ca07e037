package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-finance-api/internal/finance"
	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
)

const draftKeyPrefix = "payment_draft:"

// DraftRepository stores cashier payment drafts in Redis, falling back to process memory without a client.
type DraftRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu     sync.Mutex
	memory map[string]memoryDraft
	now    func() time.Time
}

type memoryDraft struct {
	payload   []byte
	expiresAt time.Time
}

// NewDraftRepository constructs a draft repository. A nil client keeps drafts in memory.
func NewDraftRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) *DraftRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftRepository{
		client: client,
		ttl:    ttl,
		logger: logger,
		memory: make(map[string]memoryDraft),
		now:    time.Now,
	}
}

// Get loads a draft. Missing or expired drafts return appErrors.ErrCacheMiss.
func (r *DraftRepository) Get(ctx context.Context, id string) (*finance.PaymentDraft, error) {
	key := draftKeyPrefix + id

	var raw []byte
	if r.client == nil {
		r.mu.Lock()
		entry, ok := r.memory[key]
		if ok && r.expired(entry) {
			delete(r.memory, key)
			ok = false
		}
		r.mu.Unlock()
		if !ok {
			return nil, appErrors.ErrCacheMiss
		}
		raw = entry.payload
	} else {
		value, err := r.client.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return nil, appErrors.ErrCacheMiss
			}
			return nil, fmt.Errorf("redis get %s: %w", key, err)
		}
		raw = value
	}

	var draft finance.PaymentDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("unmarshal draft %s: %w", id, err)
	}
	return &draft, nil
}

// Save stores the draft and refreshes its TTL.
func (r *DraftRepository) Save(ctx context.Context, draft *finance.PaymentDraft) error {
	key := draftKeyPrefix + draft.ID
	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft %s: %w", draft.ID, err)
	}

	if r.client == nil {
		r.mu.Lock()
		entry := memoryDraft{payload: payload}
		if r.ttl > 0 {
			entry.expiresAt = r.now().Add(r.ttl)
		}
		r.memory[key] = entry
		r.mu.Unlock()
		return nil
	}

	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes a draft. Deleting a missing draft is not an error.
func (r *DraftRepository) Delete(ctx context.Context, id string) error {
	key := draftKeyPrefix + id
	if r.client == nil {
		r.mu.Lock()
		delete(r.memory, key)
		r.mu.Unlock()
		return nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Purge removes expired in-memory drafts and reports how many were dropped.
func (r *DraftRepository) Purge() int {
	if r.client != nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, entry := range r.memory {
		if r.expired(entry) {
			delete(r.memory, key)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Debug("purged expired drafts", zap.Int("count", removed))
	}
	return removed
}

// Close releases the underlying Redis connection if present.
func (r *DraftRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

func (r *DraftRepository) expired(entry memoryDraft) bool {
	return !entry.expiresAt.IsZero() && !r.now().Before(entry.expiresAt)
}
