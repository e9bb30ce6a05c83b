package cache

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/seriesgen/internal/foundation/errors"
	"git.home.luguber.info/inful/seriesgen/internal/logfields"
)

// DefaultBucket is used when no bucket name is configured.
const DefaultBucket = "seriesgen"

// NATS keeps values in a JetStream key/value bucket.
type NATS struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
}

// OpenNATS connects to url and opens bucket, creating it when missing.
func OpenNATS(ctx context.Context, url, bucket string) (*NATS, error) {
	if url == "" {
		return nil, errors.ConfigError("nats cache requires a url").Build()
	}
	if bucket == "" {
		bucket = DefaultBucket
	}

	conn, err := nats.Connect(url)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "connect to NATS").
			WithContext("url", url).Retryable().Build()
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.WrapError(err, errors.CategoryCache, "create JetStream context").Build()
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	kv, err := js.KeyValue(ctx, bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "seriesgen build state",
			History:     1,
		})
		if err != nil {
			conn.Close()
			return nil, errors.WrapError(err, errors.CategoryCache, "create KV bucket").
				WithContext("bucket", bucket).Build()
		}
		slog.Info("Created KV bucket", logfields.Name(bucket))
	}
	return &NATS{conn: conn, kv: kv}, nil
}

// Key names may not contain characters outside the KV key alphabet.
func natsKey(key string) string {
	return strings.NewReplacer(" ", "_", "*", "_", ">", "_").Replace(key)
}

func (n *NATS) Get(ctx context.Context, key string) (string, bool, error) {
	entry, err := n.kv.Get(ctx, natsKey(key))
	if err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, errors.WrapError(err, errors.CategoryCache, "get cache entry").
			WithContext("key", key).Build()
	}
	return string(entry.Value()), true, nil
}

func (n *NATS) Set(ctx context.Context, key, value string) error {
	if _, err := n.kv.Put(ctx, natsKey(key), []byte(value)); err != nil {
		return errors.WrapError(err, errors.CategoryCache, "put cache entry").
			WithContext("key", key).Build()
	}
	return nil
}

func (n *NATS) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}
