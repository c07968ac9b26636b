package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/minhasfinancas/backend/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	auditIndexKey = "audit:index"
	auditEntryKey = "audit:entry:%s"
)

// AuditSink is the side channel every mutating service call reports to.
// Implementations must never fail the primary operation: recording is
// log-and-continue.
type AuditSink interface {
	Record(ctx context.Context, entry models.AuditEntry)
}

// AuditService stores audit entries in Redis as JSON documents indexed
// by timestamp, and exposes admin-gated reads.
type AuditService struct {
	redis *redis.Client
}

func NewAuditService(redisClient *redis.Client) *AuditService {
	return &AuditService{redis: redisClient}
}

// Record appends one audit entry. Failures are logged and swallowed;
// the audit trail is a side channel and never blocks the primary write.
func (s *AuditService) Record(ctx context.Context, entry models.AuditEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		logrus.Warnf("[AUDIT] failed to marshal entry: %v", err)
		return
	}

	logrus.Infof("[AUDIT] %s %s %s by user %d: %s",
		entry.Action, entry.Entity, entry.EntityID, entry.UserID, entry.Description)

	if s.redis == nil {
		return
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, fmt.Sprintf(auditEntryKey, entry.ID), data, 0)
	pipe.ZAdd(ctx, auditIndexKey, &redis.Z{
		Score:  float64(entry.Timestamp.UnixNano()),
		Member: entry.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.Warnf("[AUDIT] failed to store entry %s: %v", entry.ID, err)
	}
}

// ListAll returns every audit entry, newest first. Administrators only.
func (s *AuditService) ListAll(ctx context.Context, actor models.Principal) ([]models.AuditEntry, error) {
	if err := allowAdmin(actor); err != nil {
		return nil, err
	}
	if s.redis == nil {
		return []models.AuditEntry{}, nil
	}

	ids, err := s.redis.ZRevRange(ctx, auditIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	if len(ids) == 0 {
		return []models.AuditEntry{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf(auditEntryKey, id)
	}

	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch audit entries: %w", err)
	}

	entries := make([]models.AuditEntry, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var entry models.AuditEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			logrus.Warnf("[AUDIT] corrupt entry skipped: %v", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetByID returns one audit entry. Administrators only.
func (s *AuditService) GetByID(ctx context.Context, id string, actor models.Principal) (*models.AuditEntry, error) {
	if err := allowAdmin(actor); err != nil {
		return nil, err
	}
	if s.redis == nil {
		return nil, fmt.Errorf("%w: audit entry %s", ErrNotFound, id)
	}

	raw, err := s.redis.Get(ctx, fmt.Sprintf(auditEntryKey, id)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: audit entry %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch audit entry: %w", err)
	}

	var entry models.AuditEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("decode audit entry: %w", err)
	}
	return &entry, nil
}
