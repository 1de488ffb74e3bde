package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis keeps each collection in a hash (id -> JSON) with a sorted set
// recording insertion order. Every write publishes the collection name on
// one change channel; subscribers re-read the whole collection on each
// notification and after every (re)subscribe.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

func NewRedis(rdb *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "hifz:"
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) hashKey(collection string) string  { return r.prefix + collection }
func (r *Redis) orderKey(collection string) string { return r.prefix + collection + ":order" }
func (r *Redis) channel() string                   { return r.prefix + "changes" }

func (r *Redis) load(ctx context.Context, collection string) ([]Document, error) {
	ids, err := r.rdb.ZRange(ctx, r.orderKey(collection), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	data, err := r.rdb.HGetAll(ctx, r.hashKey(collection)).Result()
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(data))
	for _, id := range ids {
		if body, ok := data[id]; ok {
			docs = append(docs, Document{ID: id, Data: json.RawMessage(body)})
			delete(data, id)
		}
	}
	// documents written without an order entry go last, by id
	rest := make([]string, 0, len(data))
	for id := range data {
		rest = append(rest, id)
	}
	sort.Strings(rest)
	for _, id := range rest {
		docs = append(docs, Document{ID: id, Data: json.RawMessage(data[id])})
	}
	return docs, nil
}

func (r *Redis) Subscribe(ctx context.Context, collection string, l Listener) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	pubsub := r.rdb.Subscribe(ctx, r.channel())
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, redisErr("subscribe", collection, "", err)
	}

	reload := func() {
		docs, err := r.load(ctx, collection)
		if err != nil {
			if ctx.Err() == nil {
				l.fail(redisErr("subscribe", collection, "", err))
			}
			return
		}
		if ctx.Err() == nil {
			l.change(docs)
		}
	}

	go func() {
		defer pubsub.Close()
		reload()
		ch := pubsub.ChannelWithSubscriptions(ctx, 100)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				switch m := msg.(type) {
				case *redis.Subscription:
					if m.Kind == "subscribe" {
						reload()
					}
				case *redis.Message:
					if m.Payload == collection {
						reload()
					}
				}
			}
		}
	}()

	return cancel, nil
}

func (r *Redis) Upsert(ctx context.Context, collection, id string, data json.RawMessage) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.hashKey(collection), id, string(data))
		pipe.ZAddNX(ctx, r.orderKey(collection), &redis.Z{Score: float64(time.Now().UnixMicro()), Member: id})
		pipe.Publish(ctx, r.channel(), collection)
		return nil
	})
	return redisErr("upsert", collection, id, err)
}

func (r *Redis) Delete(ctx context.Context, collection, id string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, r.hashKey(collection), id)
		pipe.ZRem(ctx, r.orderKey(collection), id)
		pipe.Publish(ctx, r.channel(), collection)
		return nil
	})
	return redisErr("delete", collection, id, err)
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close leaves the client open; it is owned by the application.
func (r *Redis) Close() error {
	return nil
}

func redisErr(op, collection, id string, err error) error {
	if err == nil {
		return nil
	}
	if strings.HasPrefix(err.Error(), "NOPERM") {
		return transportErr(op, collection, id, fmt.Errorf("%w: %v", ErrPermissionDenied, err))
	}
	return transportErr(op, collection, id, fmt.Errorf("%w: %v", ErrUnavailable, err))
}
