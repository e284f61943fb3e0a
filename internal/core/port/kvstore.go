package port

import "context"

// KeyValueStore is a scoped string store used for user preferences.
// No transactional guarantees are assumed.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}
