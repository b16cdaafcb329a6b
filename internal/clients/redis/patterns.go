package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
)

// PatternSource reads learned extraction patterns written by the
// out-of-band learning process. The pipeline never writes here.
type PatternSource interface {
	// LoadAll returns every stored pattern, keyed "<pathology>:<field>".
	LoadAll(ctx context.Context) (map[string][]StoredPattern, error)
	Close() error
}

// StoredPattern is the wire shape of one learned rule.
type StoredPattern struct {
	ID          string  `json:"id"`
	Pathology   string  `json:"pathology"`
	Field       string  `json:"field"` // procedure|complication
	Expr        string  `json:"expr"`
	Canonical   string  `json:"canonical,omitempty"`
	Specificity float64 `json:"specificity,omitempty"`
}

type patternSource struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

func NewPatternSource(log *logger.Logger) (PatternSource, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	prefix := strings.TrimSpace(os.Getenv("REDIS_PATTERN_PREFIX"))
	if prefix == "" {
		prefix = "learned_pattern"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &patternSource{
		log:    log.With("service", "RedisPatternSource"),
		rdb:    rdb,
		prefix: prefix,
	}, nil
}

func (s *patternSource) LoadAll(ctx context.Context) (map[string][]StoredPattern, error) {
	out := map[string][]StoredPattern{}
	var cursor uint64
	match := s.prefix + ":*"

	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, match, 200).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan: %w", err)
		}
		for _, key := range keys {
			raw, err := s.rdb.LRange(ctx, key, 0, -1).Result()
			if err != nil {
				s.log.Warn("pattern key read failed, skipping", "key", key, "error", err)
				continue
			}
			groupKey := strings.TrimPrefix(key, s.prefix+":")
			for _, item := range raw {
				var p StoredPattern
				if err := json.Unmarshal([]byte(item), &p); err != nil {
					s.log.Warn("malformed stored pattern, skipping", "key", key, "error", err)
					continue
				}
				out[groupKey] = append(out[groupKey], p)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out, nil
}

func (s *patternSource) Close() error {
	return s.rdb.Close()
}
