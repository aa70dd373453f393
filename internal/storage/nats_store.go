package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/watertracker/internal/config"
	"git.home.luguber.info/inful/watertracker/internal/counter"
	derrors "git.home.luguber.info/inful/watertracker/internal/errors"
	"git.home.luguber.info/inful/watertracker/internal/logfields"
)

// NATSStore keeps the namespace as one JSON value in a JetStream
// key-value bucket, so both fields change in a single Put.
type NATSStore struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
	key  string
}

// NewNATSStore connects and creates the bucket when missing.
func NewNATSStore(ctx context.Context, cfg config.NATSConfig, namespace string) (*NATSStore, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name("watertracker"))
	if err != nil {
		return nil, derrors.StoreUnavailable("nats", err).WithContext("url", cfg.URL)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, derrors.StoreUnavailable("nats", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	kv, err := js.KeyValue(initCtx, cfg.Bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(initCtx, jetstream.KeyValueConfig{
			Bucket:      cfg.Bucket,
			Description: "watertracker counter state",
			History:     1,
		})
		if err != nil {
			conn.Close()
			return nil, derrors.StoreUnavailable("nats", err).WithContext("bucket", cfg.Bucket)
		}
		slog.Info("Created KV bucket for counter state", slog.String("bucket", cfg.Bucket), logfields.URL(cfg.URL))
	}

	return &NATSStore{conn: conn, kv: kv, key: namespace}, nil
}

func (n *NATSStore) Get(ctx context.Context) (counter.State, error) {
	entry, err := n.kv.Get(ctx, n.key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return counter.State{}, nil
	}
	if err != nil {
		return counter.State{}, derrors.StoreFailed("nats", "get", err)
	}

	var st counter.State
	if err := json.Unmarshal(entry.Value(), &st); err != nil {
		return counter.State{}, derrors.StoreFailed("nats", "decode", err)
	}
	return st, nil
}

func (n *NATSStore) Set(ctx context.Context, st counter.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return derrors.StoreFailed("nats", "encode", err)
	}
	if _, err := n.kv.Put(ctx, n.key, data); err != nil {
		return derrors.StoreFailed("nats", "set", err)
	}
	return nil
}

func (n *NATSStore) Close() error {
	n.conn.Close()
	return nil
}
