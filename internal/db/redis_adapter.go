package db

import (
	"context"
	"encoding"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/gkmit/notify-console/internal/config"
	"github.com/gkmit/notify-console/internal/gwerrors"
	"github.com/gkmit/notify-console/internal/models"
	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"
)

// RedisAdapter persists the credentials of a single console session in redis
type RedisAdapter struct {
	rdb       LimitedRedisClient
	encryptor models.Encryptor
	namespace string
}

func (RedisAdapter) serializeStruct(strct any) []any {
	v := reflect.ValueOf(strct)
	t := v.Type()
	var output []any
	for i := 0; i < v.NumField(); i++ {
		if !t.Field(i).IsExported() {
			continue
		}
		fieldName := t.Field(i).Name
		fieldValue := v.Field(i).Interface()
		marshaller, ok := fieldValue.(encoding.TextMarshaler)
		if !ok {
			output = append(output, fieldName, fmt.Sprint(fieldValue))
			continue
		}
		rawBytes, err := marshaller.MarshalText()
		if err != nil {
			output = append(output, fieldName, fmt.Sprint(fieldValue))
			continue
		}
		output = append(output, fieldName, string(rawBytes))
	}
	return output
}

func (RedisAdapter) deserializeToStruct(hash map[string]string, output any) error {
	if len(hash) == 0 {
		// HGetAll returns an empty map when the key does not exist
		return gwerrors.ErrMissingDBResource
	}
	decoder, err := mapstructure.NewDecoder(
		&mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result: output,
		},
	)
	if err != nil {
		return err
	}
	return decoder.Decode(hash)
}

// key prepends the namespace (if any) to the name of the persisted item
func (r RedisAdapter) key(name string) string {
	if r.namespace == "" {
		return name
	}
	return r.namespace + ":" + name
}

// Ping checks that the redis server can be reached
func (r RedisAdapter) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

type RedisAdapterOption func(*RedisAdapter) error

func WithRedisConfig(redisConfig config.RedisConfig) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		if len(redisConfig.Addresses) == 0 {
			return fmt.Errorf("at least one redis address is required")
		}
		if redisConfig.IsSentinel {
			r.rdb = redis.NewFailoverClient(&redis.FailoverOptions{
				MasterName:       redisConfig.MasterName,
				SentinelAddrs:    redisConfig.Addresses,
				Password:         string(redisConfig.Password),
				DB:               redisConfig.DBIndex,
				SentinelPassword: string(redisConfig.Password),
			})
			return nil
		}
		r.rdb = redis.NewClient(&redis.Options{
			Password: string(redisConfig.Password),
			DB:       redisConfig.DBIndex,
			Addr:     redisConfig.Addresses[0],
		})
		return nil
	}
}

// WithCredentialsConfig sets up the client, namespace and encryption from the credentials section of the config
func WithCredentialsConfig(credentialsConfig config.CredentialsConfig) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		switch credentialsConfig.Type {
		case config.CredentialsTypeRedis:
			err := WithRedisConfig(credentialsConfig.Redis)(r)
			if err != nil {
				return err
			}
		case config.CredentialsTypeRedisMock:
			r.rdb = NewMockRedisClient()
		default:
			return fmt.Errorf("unrecognized persistence type %v", credentialsConfig.Type)
		}
		r.namespace = credentialsConfig.Namespace
		if credentialsConfig.TokenEncryption.Enabled {
			return WithEncryption(string(credentialsConfig.TokenEncryption.SecretKey))(r)
		}
		return nil
	}
}

func WithRedisClient(rdb LimitedRedisClient) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		r.rdb = rdb
		return nil
	}
}

func WithNamespace(namespace string) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		r.namespace = namespace
		return nil
	}
}

func WithEncryption(secretKey string) RedisAdapterOption {
	return func(r *RedisAdapter) error {
		encryptor, err := NewGCMEncryptor(secretKey)
		if err != nil {
			return err
		}
		r.encryptor = encryptor
		return nil
	}
}

func NewRedisAdapter(options ...RedisAdapterOption) (*RedisAdapter, error) {
	db := RedisAdapter{}
	for _, opt := range options {
		err := opt(&db)
		if err != nil {
			return &RedisAdapter{}, err
		}
	}
	if db.rdb == nil {
		return &RedisAdapter{}, fmt.Errorf("redis client is not initialized")
	}
	slog.Debug(
		"TOKEN STORE",
		"message",
		"redis adapter initialized",
		"namespace",
		db.namespace,
		"encrypted",
		db.encryptor != nil,
	)
	return &db, nil
}
