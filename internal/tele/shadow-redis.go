package tele

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/temoto/alive/v2"
	"github.com/temoto/mk2pvrouter/helpers"
	"github.com/temoto/mk2pvrouter/log2"
	tele_api "github.com/temoto/mk2pvrouter/tele"
	tele_config "github.com/temoto/mk2pvrouter/tele/config"
)

const defaultShadowTtl = 24 * time.Hour

type shadowItem struct {
	tag   string
	value string
	at    time.Time
}

// shadowStore writes latest values into hash, field per tag.
type shadowStore interface {
	Store(ctx context.Context, key string, fields map[string]interface{}, ttl time.Duration) error
	Close() error
}

// redisShadow keeps latest value of each tag in redis hash
// "tag"=value, "tag:ts"=unix seconds. Not history.
type redisShadow struct {
	log   *log2.Log
	store shadowStore
	key   string
	ttl   time.Duration
	ch    chan shadowItem
	stat  *tele_api.Stat
}

func newRedisShadow(log *log2.Log, c tele_config.Config, stat *tele_api.Stat) *redisShadow {
	client := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	return newShadow(log, redisStore{client}, c, stat)
}

func newShadow(log *log2.Log, store shadowStore, c tele_config.Config, stat *tele_api.Stat) *redisShadow {
	return &redisShadow{
		log:   log,
		store: store,
		key:   c.RedisKey,
		ttl:   helpers.IntSecondDefault(c.RedisTtlSec, defaultShadowTtl),
		ch:    make(chan shadowItem, c.QueueSize),
		stat:  stat,
	}
}

// update must not block router.
func (self *redisShadow) update(tag, value string, at time.Time) {
	select {
	case self.ch <- shadowItem{tag: tag, value: value, at: at}:
	default:
		self.stat.Add(&self.stat.Dropped, 1)
	}
}

func (self *redisShadow) run(a *alive.Alive) {
	defer a.Done()
	stopch := a.StopChan()
	for {
		select {
		case item := <-self.ch:
			fields := map[string]interface{}{
				item.tag:         item.value,
				item.tag + ":ts": item.at.Unix(),
			}
			// coalesce queued updates into one write
		drain:
			for {
				select {
				case more := <-self.ch:
					fields[more.tag] = more.value
					fields[more.tag+":ts"] = more.at.Unix()
				default:
					break drain
				}
			}
			ctx, cancel := context.WithTimeout(context.Background(), DefaultNetworkTimeout)
			err := self.store.Store(ctx, self.key, fields, self.ttl)
			cancel()
			if err != nil {
				self.log.Debugf("tele redis shadow key=%s err=%v", self.key, err)
				self.stat.Add(&self.stat.Dropped, 1)
				continue
			}
			self.stat.Add(&self.stat.Shadow, 1)
		case <-stopch:
			return
		}
	}
}

func (self *redisShadow) close() {
	if err := self.store.Close(); err != nil {
		self.log.Debugf("tele redis close err=%v", err)
	}
}

type redisStore struct{ c *redis.Client }

func (self redisStore) Store(ctx context.Context, key string, fields map[string]interface{}, ttl time.Duration) error {
	_, err := self.c.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

func (self redisStore) Close() error { return self.c.Close() }
