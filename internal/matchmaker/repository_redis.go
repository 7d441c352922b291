package matchmaker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisRepo struct {
	rdb *redis.Client
}

func NewRedisRepo(rdb *redis.Client) Repo {
	return &redisRepo{rdb: rdb}
}

// key 约定：
//
//	kv: mm:match:{password}        -> ArchivedMatch JSON
//	kv: mm:playerMatch:{identity}  -> password
//	两者 TTL 相同，等于口令 retention
func matchKey(password string) string {
	return fmt.Sprintf("mm:match:%s", password)
}
func playerMatchKey(identity string) string {
	return fmt.Sprintf("mm:playerMatch:%s", identity)
}

func (r *redisRepo) SaveMatch(ctx context.Context, m *MatchResult, ttl time.Duration) error {
	data, err := json.Marshal(Archived(m))
	if err != nil {
		return err
	}
	p := r.rdb.TxPipeline()
	p.Set(ctx, matchKey(m.Password()), data, ttl)
	for _, id := range m.Participants() {
		p.Set(ctx, playerMatchKey(id), m.Password(), ttl)
	}
	_, err = p.Exec(ctx)
	return err
}

func (r *redisRepo) MatchByPassword(ctx context.Context, password string) (*ArchivedMatch, error) {
	raw, err := r.rdb.Get(ctx, matchKey(password)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var am ArchivedMatch
	if err := json.Unmarshal(raw, &am); err != nil {
		return nil, fmt.Errorf("decode match %s: %w", password, err)
	}
	return &am, nil
}

func (r *redisRepo) MatchOfPlayer(ctx context.Context, identity string) (*ArchivedMatch, error) {
	password, err := r.rdb.Get(ctx, playerMatchKey(identity)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	am, err := r.MatchByPassword(ctx, password)
	if err != nil || am == nil || !am.Includes(identity) {
		return nil, err
	}
	return am, nil
}
