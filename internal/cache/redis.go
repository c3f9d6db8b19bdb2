// Package cache содержит кэш карточек кредитов в Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmeshcher/credit-approval-system/internal/model"
)

const (
	keyPrefix         = "credit-approval:loan:"
	customerKeyPrefix = "credit-approval:customer:"
)

// LoanKey возвращает ключ Redis для карточки кредита.
func LoanKey(loanID int64) string {
	return keyPrefix + strconv.FormatInt(loanID, 10)
}

// CustomerLoansKey возвращает ключ множества карточек, в которые встроен клиент.
func CustomerLoansKey(customerID int64) string {
	return customerKeyPrefix + strconv.FormatInt(customerID, 10) + ":loans"
}

// RedisCache хранит карточки кредитов с ограниченным временем жизни.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache подключается к Redis по адресу addr.
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

// GetLoan возвращает карточку кредита из кэша. Ошибки Redis считаются промахом.
func (c *RedisCache) GetLoan(ctx context.Context, loanID int64) (*model.LoanDetails, bool) {
	val, err := c.client.Get(ctx, LoanKey(loanID)).Bytes()
	if err != nil {
		return nil, false
	}

	var details model.LoanDetails
	if err := json.Unmarshal(val, &details); err != nil {
		return nil, false
	}
	return &details, true
}

// SetLoan сохраняет карточку кредита и регистрирует её в индексе клиента.
func (c *RedisCache) SetLoan(ctx context.Context, details model.LoanDetails) error {
	val, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal loan details: %w", err)
	}

	loanKey := LoanKey(details.Loan.ID)
	indexKey := CustomerLoansKey(details.Loan.CustomerID)

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, loanKey, val, c.ttl)
		pipe.SAdd(ctx, indexKey, loanKey)
		if c.ttl > 0 {
			pipe.Expire(ctx, indexKey, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set loan details: %w", err)
	}
	return nil
}

// InvalidateLoans удаляет карточки кредитов из кэша.
func (c *RedisCache) InvalidateLoans(ctx context.Context, loanIDs ...int64) error {
	if len(loanIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(loanIDs))
	for _, id := range loanIDs {
		keys = append(keys, LoanKey(id))
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete loan details: %w", err)
	}
	return nil
}

// InvalidateCustomers удаляет все карточки кредитов, в которые встроены данные клиентов.
func (c *RedisCache) InvalidateCustomers(ctx context.Context, customerIDs ...int64) error {
	for _, id := range customerIDs {
		indexKey := CustomerLoansKey(id)

		keys, err := c.client.SMembers(ctx, indexKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("read customer %d loan index: %w", id, err)
		}

		if err := c.client.Del(ctx, append(keys, indexKey)...).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("delete customer %d loan details: %w", id, err)
		}
	}
	return nil
}

// Close закрывает соединение с Redis.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Nop не хранит данные. Используется, когда Redis не настроен.
type Nop struct{}

// GetLoan всегда сообщает о промахе.
func (Nop) GetLoan(context.Context, int64) (*model.LoanDetails, bool) { return nil, false }

// SetLoan ничего не делает.
func (Nop) SetLoan(context.Context, model.LoanDetails) error { return nil }

// InvalidateLoans ничего не делает.
func (Nop) InvalidateLoans(context.Context, ...int64) error { return nil }

// InvalidateCustomers ничего не делает.
func (Nop) InvalidateCustomers(context.Context, ...int64) error { return nil }

// Close ничего не делает.
func (Nop) Close() error { return nil }
