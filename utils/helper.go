package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/ledgermirror_backend/config"
	"github.com/shopspring/decimal"
)

// ParseDecimalString converts a provider-supplied numeric string to decimal.
func ParseDecimalString(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}

	dec, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}
	return dec, nil
}

// ParseProviderDate accepts the date formats the provider is known to emit.
// Returns the zero time for an empty input.
func ParseProviderDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// ProviderLock obtains a short-lived distributed lock for one provider so that
// a scheduled run and an on-demand run never execute concurrently. The caller
// must release the returned lock.
func ProviderLock(ctx context.Context, providerId int, moduleName string, functionName string) (*redislock.Lock, error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		// Avoid nil-pointer panics when Redis lock isn't initialized yet.
		config.LogError(logger, moduleName, functionName, "Redis lock not initialized", providerId, errors.New("redis lock is nil"))
		return nil, errors.New("service not ready (redis lock not initialized)")
	}

	lockKey := fmt.Sprintf("uol-sync:%d", providerId)
	lock, err := locker.Obtain(ctx, lockKey, 15*time.Minute, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain lock for provider", providerId, err)
		return nil, redislock.ErrNotObtained
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining lock for provider", providerId, err)
		return nil, err
	}
	return lock, nil
}
