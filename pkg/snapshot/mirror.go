package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chronicare-ai/platform/pkg/common/logger"
	"github.com/chronicare-ai/platform/pkg/common/models"
)

const latestMetadataKey = "risk:snapshot:latest"

// RedisMirror mirrors the active snapshot's metadata to redis so operators
// and sibling services can see what is currently served without touching
// the API, and caches rendered detail views keyed by snapshot version.
// Detail entries never go stale: a new snapshot means a new version and
// therefore fresh keys.
type RedisMirror struct {
	client    *redis.Client
	metaTTL   time.Duration
	detailTTL time.Duration
}

func NewRedisMirror(client *redis.Client, metaTTL, detailTTL time.Duration) *RedisMirror {
	return &RedisMirror{client: client, metaTTL: metaTTL, detailTTL: detailTTL}
}

func (m *RedisMirror) PublishMetadata(ctx context.Context, meta models.SnapshotMetadata, version uint64) error {
	payload, err := json.Marshal(struct {
		Version uint64 `json:"version"`
		models.SnapshotMetadata
	}{Version: version, SnapshotMetadata: meta})
	if err != nil {
		return err
	}
	if err := m.client.Set(ctx, latestMetadataKey, payload, m.metaTTL).Err(); err != nil {
		logger.Log.WithError(err).Warn("failed to mirror snapshot metadata to redis")
		return err
	}
	return nil
}

func (m *RedisMirror) CacheDetail(ctx context.Context, version uint64, patientID string, payload []byte) {
	key := detailKey(version, patientID)
	if err := m.client.Set(ctx, key, payload, m.detailTTL).Err(); err != nil {
		logger.Log.WithError(err).WithField("key", key).Debug("detail cache write failed")
	}
}

func (m *RedisMirror) GetDetail(ctx context.Context, version uint64, patientID string) ([]byte, bool) {
	payload, err := m.client.Get(ctx, detailKey(version, patientID)).Bytes()
	if err != nil {
		return nil, false
	}
	return payload, true
}

func detailKey(version uint64, patientID string) string {
	return fmt.Sprintf("risk:detail:v%d:%s", version, patientID)
}
