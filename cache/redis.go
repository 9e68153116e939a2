package cache

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/go-redis/redis"
	"github.com/khankhulgun/khanearth/conf"
	"github.com/khankhulgun/khanearth/models"
	"github.com/pkg/errors"
)

const (
	ConfigKeyNetwork  = "network"
	ConfigKeyAddress  = "address"
	ConfigKeyPassword = "password"
	ConfigKeyDB       = "db"
	ConfigKeyTTL      = "ttl"
	ConfigKeySSL      = "ssl"
	ConfigKeyPrefix   = "prefix"
)

const (
	defaultNetwork = "tcp"
	defaultAddress = "127.0.0.1:6379"
	defaultPrefix  = "khanearth"
)

type redisCache struct {
	typ    string
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func newRedisCache(cfg models.CacheConfig) (Cache, error) {
	opts, err := redisOptions(cfg.Options)
	if err != nil {
		return nil, err
	}
	ttl, err := parseTTL(cfg.Options.Get(ConfigKeyTTL))
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	pong, err := client.Ping().Result()
	if err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "connect to redis at %s", opts.Addr)
	}
	if pong != "PONG" {
		client.Close()
		return nil, errors.Errorf("redis did not respond with 'PONG', '%s'", pong)
	}

	prefix := cfg.Options.Get(ConfigKeyPrefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &redisCache{typ: cfg.Type, client: client, ttl: ttl, prefix: prefix}, nil
}

func redisOptions(c conf.Config) (*redis.Options, error) {
	network := c.Get(ConfigKeyNetwork)
	if network == "" {
		network = defaultNetwork
	}
	addr := c.Get(ConfigKeyAddress)
	if addr == "" {
		addr = defaultAddress
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, errors.Wrapf(err, "redis address %q", addr)
	}
	if host == "" {
		return nil, errors.Errorf("no host provided in '%s'", addr)
	}
	db, _ := c.Int(ConfigKeyDB)

	o := &redis.Options{
		Network:     network,
		Addr:        addr,
		Password:    c.Get(ConfigKeyPassword),
		DB:          db,
		PoolSize:    2,
		DialTimeout: 3 * time.Second,
	}
	if ssl, _ := c.Bool(ConfigKeySSL); ssl {
		o.TLSConfig = &tls.Config{ServerName: host}
	}
	return o, nil
}

func (r *redisCache) key(k Key) string {
	return r.prefix + ":" + k.String()
}

func (r *redisCache) Type() string { return r.typ }

func (r *redisCache) Get(ctx context.Context, key Key) ([]byte, bool, error) {
	data, err := r.client.WithContext(ctx).Get(r.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "redis get %s", key)
	}
	return data, true, nil
}

func (r *redisCache) Set(ctx context.Context, key Key, data []byte) error {
	if err := r.client.WithContext(ctx).Set(r.key(key), data, r.ttl).Err(); err != nil {
		return errors.Wrapf(err, "redis set %s", key)
	}
	return nil
}

func (r *redisCache) Close() error { return r.client.Close() }
