package service

import (
	"context"
	"time"

	"lodgeworks/pkg/cache"
	"lodgeworks/pkg/model"
)

// Cache operation names. The resource id is part of the key separately,
// so per-resource pattern invalidation covers all four shapes at once.
const (
	opCheck    = "check"
	opCalendar = "calendar"
	opRange    = "range"
)

// cachedAvailability decorates an AvailabilityService with read-through
// caching. Single checks, calendars, and range summaries are cached per
// resource; bulk checks reuse the single-check entries one resource at a
// time so a mutation on one resource never serves stale answers for it
// inside a bulk response. Queries that exclude a specific record bypass
// the cache, their answers are caller-specific.
type cachedAvailability struct {
	inner AvailabilityService
	cache *cache.AvailabilityCache
}

func NewCachedAvailability(inner AvailabilityService, availabilityCache *cache.AvailabilityCache) AvailabilityService {
	if availabilityCache == nil {
		return inner
	}
	return &cachedAvailability{inner: inner, cache: availabilityCache}
}

func (c *cachedAvailability) CheckAvailability(ctx context.Context, query *model.AvailabilityQuery) (*model.AvailabilityResult, error) {
	if query == nil || query.ExcludeBookingID != "" || query.ExcludeReservationID != "" {
		return c.inner.CheckAvailability(ctx, query)
	}

	key := cache.Key(opCheck, query.ResourceID, query)
	var cached model.AvailabilityResult
	if c.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	result, err := c.inner.CheckAvailability(ctx, query)
	if err != nil {
		return nil, err
	}
	c.cache.SetJSON(ctx, key, result, query.ResourceID)
	return result, nil
}

func (c *cachedAvailability) CheckBulkAvailability(
	ctx context.Context,
	resourceIDs []string,
	checkIn, checkOut time.Time,
	includePending bool,
) (map[string]*model.AvailabilityResult, error) {
	results := make(map[string]*model.AvailabilityResult, len(resourceIDs))
	misses := make([]string, 0, len(resourceIDs))

	for _, id := range resourceIDs {
		key := c.bulkEntryKey(id, checkIn, checkOut, includePending)
		var cached model.AvailabilityResult
		if c.cache.GetJSON(ctx, key, &cached) {
			results[id] = &cached
		} else {
			misses = append(misses, id)
		}
	}
	if len(misses) == 0 {
		return results, nil
	}

	fresh, err := c.inner.CheckBulkAvailability(ctx, misses, checkIn, checkOut, includePending)
	if err != nil {
		return nil, err
	}
	for id, result := range fresh {
		results[id] = result
		c.cache.SetJSON(ctx, c.bulkEntryKey(id, checkIn, checkOut, includePending), result, id)
	}
	return results, nil
}

func (c *cachedAvailability) GetCalendarAvailability(ctx context.Context, resourceID string, startDate, endDate time.Time) ([]model.CalendarDay, error) {
	key := cache.Key(opCalendar, resourceID, map[string]any{
		"start": startDate,
		"end":   endDate,
	})
	var cached []model.CalendarDay
	if c.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	days, err := c.inner.GetCalendarAvailability(ctx, resourceID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	c.cache.SetJSON(ctx, key, days, resourceID)
	return days, nil
}

func (c *cachedAvailability) GetDateRangeAvailability(
	ctx context.Context,
	resourceID string,
	startDate, endDate time.Time,
	minStayDays int,
) (*model.DateRangeAvailability, error) {
	key := cache.Key(opRange, resourceID, map[string]any{
		"start":    startDate,
		"end":      endDate,
		"min_stay": minStayDays,
	})
	var cached model.DateRangeAvailability
	if c.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	summary, err := c.inner.GetDateRangeAvailability(ctx, resourceID, startDate, endDate, minStayDays)
	if err != nil {
		return nil, err
	}
	c.cache.SetJSON(ctx, key, summary, resourceID)
	return summary, nil
}

// bulkEntryKey builds the same key a single-resource check would use, so
// bulk and single lookups share entries and invalidations.
func (c *cachedAvailability) bulkEntryKey(resourceID string, checkIn, checkOut time.Time, includePending bool) string {
	return cache.Key(opCheck, resourceID, &model.AvailabilityQuery{
		ResourceID:     resourceID,
		CheckIn:        checkIn,
		CheckOut:       checkOut,
		IncludePending: includePending,
	})
}
