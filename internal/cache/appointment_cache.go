package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/appointment-service/internal/domain"
)

const keyPrefix = "appointment:snapshot:"

// AppointmentCache holds read snapshots of appointments between transitions.
type AppointmentCache interface {
	Get(ctx context.Context, id string) (*domain.Appointment, bool, error)
	Set(ctx context.Context, appt *domain.Appointment) error
	Invalidate(ctx context.Context, id string) error
}

type redisAppointmentCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisAppointmentCache returns a cache backed by client. A nil client or a
// non-positive ttl yields a cache that never stores anything.
func NewRedisAppointmentCache(client *redis.Client, ttl time.Duration) AppointmentCache {
	if client == nil || ttl <= 0 {
		return noopCache{}
	}
	return &redisAppointmentCache{client: client, ttl: ttl}
}

// Key returns the redis key for an appointment snapshot.
func Key(id string) string {
	return keyPrefix + id
}

func (c *redisAppointmentCache) Get(ctx context.Context, id string) (*domain.Appointment, bool, error) {
	raw, err := c.client.Get(ctx, Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var appt domain.Appointment
	if err := json.Unmarshal(raw, &appt); err != nil {
		// Drop entries written by an incompatible build.
		_ = c.client.Del(ctx, Key(id)).Err()
		return nil, false, nil
	}
	return &appt, true, nil
}

func (c *redisAppointmentCache) Set(ctx context.Context, appt *domain.Appointment) error {
	raw, err := json.Marshal(appt)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, Key(appt.ID), raw, c.ttl).Err()
}

func (c *redisAppointmentCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, Key(id)).Err()
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*domain.Appointment, bool, error) {
	return nil, false, nil
}
func (noopCache) Set(context.Context, *domain.Appointment) error { return nil }
func (noopCache) Invalidate(context.Context, string) error       { return nil }
