// Package cache keeps application drafts outside of the main database.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/sutdhousing/portal/core"
	"github.com/sutdhousing/portal/core/application"
)

// NewRedisClient connects to redis with short timeouts.
func NewRedisClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         conf.Redis.Addr,
		Password:     conf.Redis.Password,
		DB:           conf.Redis.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
}

func draftKey(studentID, periodUID string) string {
	return "draft:" + studentID + ":" + periodUID
}

type redisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ application.DraftStore = (*redisDraftStore)(nil)

// NewRedisDraftStore stores drafts as JSON documents expiring after ttl of inactivity.
func NewRedisDraftStore(client *redis.Client, ttl time.Duration) application.DraftStore {
	return &redisDraftStore{client: client, ttl: ttl}
}

func (s *redisDraftStore) GetDraft(ctx context.Context, studentID, periodUID string) (application.Draft, error) {
	data, err := s.client.Get(ctx, draftKey(studentID, periodUID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return application.Draft{}, application.ErrDraftNotFound
		}
		return application.Draft{}, errors.Wrap(err, "getting draft")
	}

	var d application.Draft
	if err = json.Unmarshal(data, &d); err != nil {
		return application.Draft{}, errors.Wrap(err, "decoding draft")
	}
	return d, nil
}

func (s *redisDraftStore) SaveDraft(ctx context.Context, d application.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "encoding draft")
	}
	return errors.Wrap(s.client.Set(ctx, draftKey(d.StudentID, d.ApplicationPeriodUID), data, s.ttl).Err(), "saving draft")
}

func (s *redisDraftStore) DeleteDraft(ctx context.Context, studentID, periodUID string) error {
	return errors.Wrap(s.client.Del(ctx, draftKey(studentID, periodUID)).Err(), "deleting draft")
}
