package replica

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisRecordStore implements RecordStore on a Redis instance. Each record
// is a hash under record:<name>; a set per record type tracks membership so
// List stays a two-step read.
type redisRecordStore struct {
	client *redis.Client
}

// NewRedisRecordStore connects to Redis and verifies the connection.
func NewRedisRecordStore(addr, password string, db int) (RecordStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisRecordStore{client: client}, nil
}

func recordKey(name string) string { return "record:" + name }
func typeSetKey(rt string) string  { return "records:" + rt }

func (r *redisRecordStore) Save(ctx context.Context, rec Record) error {
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, recordKey(rec.Name), map[string]interface{}{
		"type":      rec.Type,
		"payload":   rec.Payload,
		"clientRef": rec.ClientRef,
	})
	pipe.SAdd(ctx, typeSetKey(rec.Type), rec.Name)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisRecordStore) Get(ctx context.Context, name string) (Record, error) {
	fields, err := r.client.HGetAll(ctx, recordKey(name)).Result()
	if err != nil {
		return Record{}, err
	}
	if len(fields) == 0 {
		return Record{}, ErrRecordNotFound
	}
	return Record{
		Name:      name,
		Type:      fields["type"],
		Payload:   []byte(fields["payload"]),
		ClientRef: fields["clientRef"],
	}, nil
}

func (r *redisRecordStore) Delete(ctx context.Context, name string) error {
	rec, err := r.Get(ctx, name)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, recordKey(name))
	pipe.SRem(ctx, typeSetKey(rec.Type), name)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *redisRecordStore) List(ctx context.Context, recordType string) ([]Record, error) {
	names, err := r.client.SMembers(ctx, typeSetKey(recordType)).Result()
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(names))
	for _, name := range names {
		rec, err := r.Get(ctx, name)
		if errors.Is(err, ErrRecordNotFound) {
			// Membership set can lag a concurrent delete.
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
