package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/CiteRank-Engine/internal/config"
	"github.com/turtacn/CiteRank-Engine/internal/domain/caselaw"
	scoring "github.com/turtacn/CiteRank-Engine/internal/domain/ranking"
	"github.com/turtacn/CiteRank-Engine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteRank-Engine/pkg/errors"
)

const defaultKeyPrefix = "citerank:"

// ScoreCache projects published snapshots into Redis: one hash of score
// entries and one sorted set of composites per version, plus a current
// pointer.  Versioned keys expire on their own; the pointer never does, so a
// reader always finds the latest surviving version.
type ScoreCache struct {
	client *Client
	logger logging.Logger
	prefix string
	ttl    time.Duration
}

// NewScoreCache builds a cache writer/reader over an established client.
func NewScoreCache(client *Client, cfg config.RedisConfig, logger logging.Logger) *ScoreCache {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &ScoreCache{client: client, logger: logger, prefix: prefix, ttl: cfg.ScoreTTL}
}

func (c *ScoreCache) scoresKey(version string) string { return c.prefix + "scores:" + version }
func (c *ScoreCache) rankedKey(version string) string { return c.prefix + "ranked:" + version }
func (c *ScoreCache) currentKey() string              { return c.prefix + "current" }

// Publish writes one snapshot's scores and total order, then moves the
// current pointer.  All writes ride one MULTI/EXEC so readers never observe
// a version whose data is half-written.
func (c *ScoreCache) Publish(ctx context.Context, snap *scoring.ScoreSnapshot) error {
	if snap == nil {
		return nil
	}

	pipe := c.client.TxPipeline()

	if snap.Len() > 0 {
		fields := make(map[string]interface{}, snap.Len())
		for id, entry := range snap.Entries {
			data, err := json.Marshal(entry)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeSerialization, "score entry marshal failed")
			}
			fields[string(id)] = data
		}
		pipe.HSet(ctx, c.scoresKey(snap.Version), fields)

		members := make([]redis.Z, 0, len(snap.Ranked))
		for _, rc := range snap.Ranked {
			members = append(members, redis.Z{Score: rc.Composite, Member: string(rc.ID)})
		}
		pipe.ZAdd(ctx, c.rankedKey(snap.Version), members...)

		if c.ttl > 0 {
			pipe.Expire(ctx, c.scoresKey(snap.Version), c.ttl)
			pipe.Expire(ctx, c.rankedKey(snap.Version), c.ttl)
		}
	}

	pipe.Set(ctx, c.currentKey(), snap.Version, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "score publish to redis failed")
	}

	c.logger.Debug("scores published to redis",
		logging.String("version", snap.Version),
		logging.Int("cases", snap.Len()))
	return nil
}

// CurrentVersion returns the latest published version.
func (c *ScoreCache) CurrentVersion(ctx context.Context) (string, error) {
	version, err := c.client.Get(ctx, c.currentKey()).Result()
	if err == redis.Nil {
		return "", errors.New(errors.ErrCodeNoSnapshot, "no ranking version published to redis")
	}
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeCacheError, "current version lookup failed")
	}
	return version, nil
}

// GetScore returns one case's entry under the given version.  An empty
// version resolves to the current pointer.
func (c *ScoreCache) GetScore(ctx context.Context, version string, id caselaw.CaseID) (scoring.ScoreEntry, error) {
	var entry scoring.ScoreEntry

	if version == "" {
		var err error
		if version, err = c.CurrentVersion(ctx); err != nil {
			return entry, err
		}
	}

	data, err := c.client.HGet(ctx, c.scoresKey(version), string(id)).Result()
	if err == redis.Nil {
		return entry, errors.CaseNotFound(string(id))
	}
	if err != nil {
		return entry, errors.Wrap(err, errors.ErrCodeCacheError, "score lookup failed")
	}
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return entry, errors.Wrap(err, errors.ErrCodeSerialization, "score entry unmarshal failed")
	}
	return entry, nil
}

// TopRanked returns the k best cases under the given version, best first.
// An empty version resolves to the current pointer.
func (c *ScoreCache) TopRanked(ctx context.Context, version string, k int) ([]scoring.RankedCase, error) {
	if k <= 0 {
		return nil, nil
	}
	if version == "" {
		var err error
		if version, err = c.CurrentVersion(ctx); err != nil {
			return nil, err
		}
	}

	members, err := c.client.ZRevRangeWithScores(ctx, c.rankedKey(version), 0, int64(k-1)).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "ranked range lookup failed")
	}

	ranked := make([]scoring.RankedCase, 0, len(members))
	for i, m := range members {
		id, _ := m.Member.(string)
		ranked = append(ranked, scoring.RankedCase{
			Rank:      i + 1,
			ID:        caselaw.CaseID(id),
			Composite: m.Score,
		})
	}
	return ranked, nil
}
