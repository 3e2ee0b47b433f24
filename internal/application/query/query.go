// Package query contains read operations (CQRS - Queries).
// Queries never modify state: they read through store.UnitOfWork.Repos()
// and shape the data for clients. Expensive reports go through ReportCache.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sekolah-hub/attendance-hub/internal/domain/school"
	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
	"github.com/sekolah-hub/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPORT CACHE
// ══════════════════════════════════════════════════════════════════════════════

// ReportCachePrefix starts every cached report key.
const ReportCachePrefix = "report:"

// ReportCache stores rendered reports. Any error is treated as a miss.
type ReportCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// DeletePrefix drops every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// NopCache never hits.
type NopCache struct{}

func (NopCache) Get(context.Context, string, any) (bool, error)        { return false, nil }
func (NopCache) Set(context.Context, string, any, time.Duration) error { return nil }
func (NopCache) DeletePrefix(context.Context, string) error            { return nil }

// cached returns the cached value under key or computes and stores it.
func cached[T any](ctx context.Context, c ReportCache, log *logger.Logger, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	var out T
	if c != nil {
		hit, err := c.Get(ctx, key, &out)
		if err != nil {
			log.Debug("report cache miss on error", logger.String("key", key), logger.Err(err))
		} else if hit {
			return out, nil
		}
	}
	out, err := compute()
	if err != nil {
		return out, err
	}
	if c != nil {
		if err := c.Set(ctx, key, out, ttl); err != nil {
			log.Debug("report cache set failed", logger.String("key", key), logger.Err(err))
		}
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED DTOs
// ══════════════════════════════════════════════════════════════════════════════

// StudentRef is the short student shape embedded in reports.
type StudentRef struct {
	ID       int64   `json:"id"`
	Fullname string  `json:"fullname"`
	GradeID  int64   `json:"grade_id"`
	Grade    *string `json:"grade"`
}

// Rate is an attendance percentage rounded to one decimal. It marshals as
// a JSON number.
type Rate struct{ decimal.Decimal }

// MarshalJSON writes the rate as a plain number.
func (r Rate) MarshalJSON() ([]byte, error) {
	return []byte(r.StringFixed(1)), nil
}

// UnmarshalJSON reads a plain number.
func (r *Rate) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return err
	}
	r.Decimal = d
	return nil
}

// RateOf returns attended/total*100 rounded to one decimal, or 0 when total is 0.
func RateOf(attended, total int) Rate {
	if total <= 0 {
		return Rate{decimal.Zero}
	}
	return Rate{decimal.NewFromInt(int64(attended)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(1)}
}

// gradeNames indexes grade names by id.
func gradeNames(ctx context.Context, grades school.GradeRepository) (map[int64]string, error) {
	list, err := grades.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(list))
	for _, g := range list {
		out[g.ID] = g.Name
	}
	return out, nil
}

func studentRef(s school.Student, names map[int64]string) StudentRef {
	ref := StudentRef{ID: s.ID, Fullname: s.Fullname, GradeID: s.GradeID}
	if n, ok := names[s.GradeID]; ok {
		ref.Grade = &n
	}
	return ref
}

// fail wraps non-domain errors as storage failures.
func fail(domain, op string, err error) error {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return shared.Storage(domain, op, err)
}
