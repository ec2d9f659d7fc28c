package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"FinRisk/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisQueue keeps one pending list, one retry sorted set and one
// dead-letter list per message type. The client is owned by the caller.
type RedisQueue struct {
	log       *logger.Logger
	cfg       Config
	client    *redis.Client
	keyPrefix string
	permanent []error
	now       func() time.Time

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Option configures RedisQueue.
type Option func(*RedisQueue)

// WithKeyPrefix sets the key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(r *RedisQueue) {
		if prefix != "" {
			r.keyPrefix = prefix
		}
	}
}

// WithPermanentErrors lists sentinels that skip retries and go straight to
// the dead-letter list.
func WithPermanentErrors(errs ...error) Option {
	return func(r *RedisQueue) { r.permanent = append(r.permanent, errs...) }
}

// NewRedisQueue builds a queue over an existing client.
func NewRedisQueue(log *logger.Logger, cfg Config, client *redis.Client, opts ...Option) *RedisQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Second
	}
	r := &RedisQueue{
		log:       log,
		cfg:       cfg,
		client:    client,
		keyPrefix: "finrisk:queue",
		now:       time.Now,
		handlers:  make(map[string]HandlerFunc),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle registers fn for msgType. Must be called before Start.
func (r *RedisQueue) Handle(msgType string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[msgType]; ok {
		r.log.Warn("queue handler already registered", logger.String("type", msgType))
		return
	}
	r.handlers[msgType] = fn
}

// Publish enqueues a message. Publishing works whether or not the consumer
// side was started.
func (r *RedisQueue) Publish(ctx context.Context, msgType string, payload interface{}) error {
	msg, err := NewMessage(msgType, payload, r.now())
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.pendingKey(msgType), data)
	if r.cfg.MaxPending > 0 {
		pipe.LTrim(ctx, r.pendingKey(msgType), 0, r.cfg.MaxPending-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("lpush %s: %w", msgType, err)
	}
	return nil
}

// Start pings Redis and launches workers and a retry mover for every
// registered type.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("queue already running")
	}

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := r.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.running = true

	for msgType, fn := range r.handlers {
		for i := 0; i < r.cfg.Workers; i++ {
			r.wg.Add(1)
			go r.worker(ctx, msgType, fn)
		}
		r.wg.Add(1)
		go r.retryLoop(ctx, msgType)
		backlog, err := r.Pending(pingCtx, msgType)
		if err != nil {
			r.log.Warn("queue backlog unknown", logger.String("type", msgType), logger.Error(err))
		}
		r.log.Info("queue consumer started",
			logger.String("type", msgType),
			logger.Int("workers", r.cfg.Workers),
			logger.Int64("backlog", backlog))
	}
	return nil
}

// Stop cancels workers and waits for them, bounded by ctx.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.log.Info("queue stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for queue workers: %w", ctx.Err())
	}
}

// Pending reports the number of queued messages of a type.
func (r *RedisQueue) Pending(ctx context.Context, msgType string) (int64, error) {
	return r.client.LLen(ctx, r.pendingKey(msgType)).Result()
}

func (r *RedisQueue) worker(ctx context.Context, msgType string, fn HandlerFunc) {
	defer r.wg.Done()
	key := r.pendingKey(msgType)
	for ctx.Err() == nil {
		res, err := r.client.BRPop(ctx, time.Second, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			r.log.Error("queue brpop failed", logger.String("type", msgType), logger.Error(err))
			sleep(ctx, time.Second)
			continue
		}
		if len(res) < 2 {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			r.log.Error("queue message undecodable", logger.String("type", msgType), logger.Error(err))
			r.bury(msgType, []byte(res[1]))
			continue
		}
		r.dispatch(ctx, msg, fn)
	}
}

func (r *RedisQueue) dispatch(ctx context.Context, msg Message, fn HandlerFunc) {
	err := safeCall(ctx, fn, msg.Payload)
	switch disposition(msg, err, r.cfg.RetryLimit, r.permanent) {
	case outcomeDone:
	case outcomeRequeue:
		r.push(r.pendingKey(msg.Type), msg)
	case outcomeRetry:
		msg.Attempts++
		msg.LastError = err.Error()
		at := r.now().Add(r.cfg.RetryDelay)
		data, _ := json.Marshal(msg)
		if zerr := r.client.ZAdd(context.Background(), r.retryKey(msg.Type), redis.Z{
			Score:  float64(at.Unix()),
			Member: data,
		}).Err(); zerr != nil {
			r.log.Error("queue schedule retry failed", logger.String("id", msg.ID), logger.Error(zerr))
		}
		r.log.Warn("queue message failed, retrying",
			logger.String("id", msg.ID),
			logger.String("type", msg.Type),
			logger.Int("attempt", msg.Attempts),
			logger.Error(err))
	case outcomeDead:
		msg.LastError = err.Error()
		r.push(r.deadKey(msg.Type), msg)
		r.log.Error("queue message dead-lettered",
			logger.String("id", msg.ID),
			logger.String("type", msg.Type),
			logger.Error(err))
	}
}

func (r *RedisQueue) retryLoop(ctx context.Context, msgType string) {
	defer r.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.promoteDue(ctx, msgType)
		}
	}
}

// promoteDue moves retries whose time has come back onto the pending list.
func (r *RedisQueue) promoteDue(ctx context.Context, msgType string) {
	due, err := r.client.ZRangeByScore(ctx, r.retryKey(msgType), &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(r.now().Unix(), 10),
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			r.log.Error("queue fetch retries failed", logger.String("type", msgType), logger.Error(err))
		}
		return
	}
	for _, member := range due {
		pipe := r.client.TxPipeline()
		pipe.ZRem(ctx, r.retryKey(msgType), member)
		pipe.LPush(ctx, r.pendingKey(msgType), member)
		if _, err := pipe.Exec(ctx); err != nil {
			if ctx.Err() == nil {
				r.log.Error("queue promote retry failed", logger.String("type", msgType), logger.Error(err))
			}
			return
		}
	}
}

func (r *RedisQueue) push(key string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("queue marshal failed", logger.String("id", msg.ID), logger.Error(err))
		return
	}
	if err := r.client.LPush(context.Background(), key, data).Err(); err != nil {
		r.log.Error("queue lpush failed", logger.String("key", key), logger.Error(err))
	}
}

func (r *RedisQueue) bury(msgType string, raw []byte) {
	if err := r.client.LPush(context.Background(), r.deadKey(msgType), raw).Err(); err != nil {
		r.log.Error("queue lpush failed", logger.String("key", r.deadKey(msgType)), logger.Error(err))
	}
}

func (r *RedisQueue) pendingKey(msgType string) string {
	return fmt.Sprintf("%s:%s:pending", r.keyPrefix, msgType)
}

func (r *RedisQueue) retryKey(msgType string) string {
	return fmt.Sprintf("%s:%s:retry", r.keyPrefix, msgType)
}

func (r *RedisQueue) deadKey(msgType string) string {
	return fmt.Sprintf("%s:%s:dead", r.keyPrefix, msgType)
}

func safeCall(ctx context.Context, fn HandlerFunc, payload []byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return fn(ctx, payload)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
