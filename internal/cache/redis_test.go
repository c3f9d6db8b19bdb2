package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/credit-approval-system/internal/model"
)

func TestLoanKey(t *testing.T) {
	assert.Equal(t, "credit-approval:loan:42", LoanKey(42))
	assert.NotEqual(t, LoanKey(1), LoanKey(11))
}

func TestCustomerLoansKey(t *testing.T) {
	assert.Equal(t, "credit-approval:customer:7:loans", CustomerLoansKey(7))
	assert.NotEqual(t, CustomerLoansKey(1), CustomerLoansKey(11))
	assert.NotEqual(t, LoanKey(7), CustomerLoansKey(7))
}

func TestNop(t *testing.T) {
	var c Nop
	ctx := context.Background()

	assert.NoError(t, c.SetLoan(ctx, model.LoanDetails{Loan: model.Loan{ID: 1}}))

	got, ok := c.GetLoan(ctx, 1)
	assert.False(t, ok)
	assert.Nil(t, got)

	assert.NoError(t, c.InvalidateLoans(ctx, 1, 2))
	assert.NoError(t, c.InvalidateCustomers(ctx, 1))
	assert.NoError(t, c.Close())
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := NewRedisCache(ctx, "127.0.0.1:1", time.Minute)
	assert.Error(t, err)
	assert.Nil(t, c)
}

func newTestRedisCache(t *testing.T) *RedisCache {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis test in short mode")
	}
	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDRESS is not set")
	}

	c, err := NewRedisCache(context.Background(), addr, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRedisCache_InvalidateCustomers(t *testing.T) {
	c := newTestRedisCache(t)
	ctx := context.Background()

	base := time.Now().UnixNano() % 1_000_000_000
	owner, other := base+1, base+2

	cards := []model.LoanDetails{
		{Loan: model.Loan{ID: base + 10, CustomerID: owner}, Customer: model.Customer{ID: owner, FirstName: "Aarav"}},
		{Loan: model.Loan{ID: base + 11, CustomerID: owner}, Customer: model.Customer{ID: owner, FirstName: "Aarav"}},
		{Loan: model.Loan{ID: base + 12, CustomerID: other}, Customer: model.Customer{ID: other, FirstName: "Diya"}},
	}
	for _, d := range cards {
		require.NoError(t, c.SetLoan(ctx, d))
	}
	t.Cleanup(func() { c.InvalidateCustomers(context.Background(), owner, other) })

	got, ok := c.GetLoan(ctx, base+10)
	require.True(t, ok)
	assert.Equal(t, "Aarav", got.Customer.FirstName)

	require.NoError(t, c.InvalidateCustomers(ctx, owner))

	_, ok = c.GetLoan(ctx, base+10)
	assert.False(t, ok)
	_, ok = c.GetLoan(ctx, base+11)
	assert.False(t, ok)
	_, ok = c.GetLoan(ctx, base+12)
	assert.True(t, ok, "cards of other customers stay cached")

	require.NoError(t, c.InvalidateCustomers(ctx, base+99), "customer without cached cards")
}
