// Package redis implements the engine's stores and distributed locker on Redis.
package redis

import "time"

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "signoff:"

// farFuture is the index score of keys without expiry (2100-01-01).
const farFuture = 4102444800

type options struct {
	prefix string
	ttl    time.Duration
}

// Option configures the Redis stores.
type Option func(*options)

// WithTTL sets the expiration of instance and history keys. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

func newOptions(opts []Option) options {
	o := options{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) score(now time.Time) float64 {
	if o.ttl == 0 {
		return farFuture
	}
	return float64(now.Add(o.ttl).Unix())
}
