package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Entry is a cached upstream response body
type Entry struct {
	Body      []byte
	FetchedAt time.Time
}

// Cache stores upstream response bodies for a limited time
type Cache interface {
	// Get returns the entry for key, or nil if it is missing or expired
	Get(ctx context.Context, key string) (*Entry, error)
	// Put stores body under key for ttl
	Put(ctx context.Context, key string, body []byte, ttl time.Duration) error
	// Prune removes entries that expired before now
	Prune(ctx context.Context, now time.Time) (int64, error)
	Close() error
}

// Nop is a Cache that never stores anything
type Nop struct{}

func (Nop) Get(context.Context, string) (*Entry, error) { return nil, nil }
func (Nop) Put(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) Prune(context.Context, time.Time) (int64, error) { return 0, nil }
func (Nop) Close() error { return nil }

// Bodies are stored zstd-compressed; the encoder and decoder are safe for
// concurrent EncodeAll/DecodeAll calls
var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func initCodec() {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil)
	})
}

func compress(body []byte) ([]byte, error) {
	initCodec()
	if codecErr != nil {
		return nil, fmt.Errorf("creating zstd codec: %w", codecErr)
	}
	return encoder.EncodeAll(body, make([]byte, 0, len(body)/2)), nil
}

func decompress(data []byte) ([]byte, error) {
	initCodec()
	if codecErr != nil {
		return nil, fmt.Errorf("creating zstd codec: %w", codecErr)
	}
	body, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing cached body: %w", err)
	}
	return body, nil
}
