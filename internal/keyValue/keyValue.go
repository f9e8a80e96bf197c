package keyValue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// KV is a small expiring key/value cache. In self-contained mode it is
// backed by an in-process map, otherwise by redis.

type value struct {
	value   string
	expires time.Time
}

type KV struct {
	sugar         *zap.SugaredLogger
	redisClient   *redis.Client
	selfContained bool

	mutex   sync.RWMutex
	hashmap map[string]value

	redisCtx context.Context
}

func New(sugar *zap.SugaredLogger, redisClient *redis.Client, selfContained bool) *KV {
	kv := &KV{
		sugar:         sugar,
		redisClient:   redisClient,
		selfContained: selfContained,
		hashmap:       make(map[string]value),
		redisCtx:      context.Background(),
	}

	if selfContained {
		go kv.checkForLocalExpiredKeys()
	}

	return kv
}

func (kv *KV) checkForLocalExpiredKeys() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		kv.mutex.Lock()
		for key, v := range kv.hashmap {
			if v.expires.Before(time.Now()) {
				delete(kv.hashmap, key)
			}
		}
		kv.mutex.Unlock()
	}
}

func (kv *KV) Get(key string) (string, error) {
	debugText := fmt.Sprintf("Getting value of key [%s]", key)
	if kv.selfContained {
		kv.sugar.Debugf("%s from hashmap", debugText)

		kv.mutex.RLock()
		defer kv.mutex.RUnlock()

		v := kv.hashmap[key]
		if !v.expires.IsZero() && v.expires.Before(time.Now()) {
			return "", nil
		}
		return v.value, nil
	}

	kv.sugar.Debugf("%s from redis", debugText)

	val, err := kv.redisClient.Get(kv.redisCtx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	} else if err != nil {
		return "", err
	}

	return val, nil
}

func (kv *KV) Set(key string, val string, expires time.Duration) error {
	debugText := fmt.Sprintf("Setting value of key [%s] to [%s]", key, val)
	if kv.selfContained {
		kv.sugar.Debugf("%s in hashmap", debugText)

		kv.mutex.Lock()
		defer kv.mutex.Unlock()

		kv.hashmap[key] = value{val, time.Now().Add(expires)}
		return nil
	}

	kv.sugar.Debugf("%s in redis", debugText)
	_, err := kv.redisClient.Set(kv.redisCtx, key, val, expires).Result()
	return err
}

func (kv *KV) Delete(key string) error {
	if kv.selfContained {
		kv.mutex.Lock()
		defer kv.mutex.Unlock()

		delete(kv.hashmap, key)
		return nil
	}

	return kv.redisClient.Del(kv.redisCtx, key).Err()
}
