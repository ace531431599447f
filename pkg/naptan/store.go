package naptan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bodspipeline/bodspipeline/pkg/redis_client"
)

const stopKeyPrefix = "naptan:stop:"
const naptanCodeKeyPrefix = "naptan:naptancode:"
const lastFetchedKey = "naptan:last_fetched"

// Store is the stop-point cache. The primary key is the ATCO code; NaPTAN
// codes resolve through a secondary index key.
type Store struct {
	Client *redis.Client
}

func NewStore() *Store {
	return &Store{Client: redis_client.Client}
}

// WriteBatch writes one batch of stop points in a single round trip.
func (s *Store) WriteBatch(ctx context.Context, batch []*StopPoint) error {
	pipe := s.Client.Pipeline()

	for _, stopPoint := range batch {
		encoded, err := json.Marshal(stopPoint)
		if err != nil {
			return err
		}

		pipe.Set(ctx, stopKeyPrefix+stopPoint.AtcoCode, encoded, 0)
		if stopPoint.NaptanCode != "" {
			pipe.Set(ctx, naptanCodeKeyPrefix+stopPoint.NaptanCode, stopPoint.AtcoCode, 0)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) StopByATCO(ctx context.Context, atcoCode string) (*StopPoint, error) {
	encoded, err := s.Client.Get(ctx, stopKeyPrefix+atcoCode).Bytes()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var stopPoint StopPoint
	if err := json.Unmarshal(encoded, &stopPoint); err != nil {
		return nil, err
	}

	return &stopPoint, nil
}

func (s *Store) StopByNaptanCode(ctx context.Context, naptanCode string) (*StopPoint, error) {
	atcoCode, err := s.Client.Get(ctx, naptanCodeKeyPrefix+naptanCode).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return s.StopByATCO(ctx, atcoCode)
}

// StopsByNaptanCodes resolves each code through the secondary index and
// fetches the stop points in one multi-get. Unknown codes are skipped.
func (s *Store) StopsByNaptanCodes(ctx context.Context, naptanCodes []string) ([]*StopPoint, error) {
	if len(naptanCodes) == 0 {
		return nil, nil
	}

	indexKeys := make([]string, len(naptanCodes))
	for i, code := range naptanCodes {
		indexKeys[i] = naptanCodeKeyPrefix + code
	}

	atcoValues, err := s.Client.MGet(ctx, indexKeys...).Result()
	if err != nil {
		return nil, err
	}

	var stopKeys []string
	for _, value := range atcoValues {
		if atcoCode, ok := value.(string); ok && atcoCode != "" {
			stopKeys = append(stopKeys, stopKeyPrefix+atcoCode)
		}
	}
	if len(stopKeys) == 0 {
		return nil, nil
	}

	stopValues, err := s.Client.MGet(ctx, stopKeys...).Result()
	if err != nil {
		return nil, err
	}

	var stopPoints []*StopPoint
	for _, value := range stopValues {
		encoded, ok := value.(string)
		if !ok {
			continue
		}

		var stopPoint StopPoint
		if err := json.Unmarshal([]byte(encoded), &stopPoint); err != nil {
			return nil, err
		}
		stopPoints = append(stopPoints, &stopPoint)
	}

	return stopPoints, nil
}

// LastFetched returns when the registry was last loaded, or the zero time
// when it never has been.
func (s *Store) LastFetched(ctx context.Context) (time.Time, error) {
	value, err := s.Client.Get(ctx, lastFetchedKey).Result()
	if err == redis.Nil {
		return time.Time{}, nil
	} else if err != nil {
		return time.Time{}, err
	}

	fetched, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed %s value %q: %w", lastFetchedKey, value, err)
	}

	return fetched, nil
}

func (s *Store) RecordFetched(ctx context.Context, at time.Time) error {
	return s.Client.Set(ctx, lastFetchedKey, at.Format(time.RFC3339), 0).Err()
}
