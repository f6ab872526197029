// Package schedule provides cancellable waits until wall-clock boundaries.
// Waits are timer based rather than polling, so a cancelled context returns
// immediately instead of at the next tick.
package schedule

import (
	"context"
	"time"
)

// clock is swapped in tests.
var clock = time.Now

// UntilHour blocks until the next occurrence of the given hour (0-23) at
// minute zero, local time.
func UntilHour(ctx context.Context, hour int) error {
	return wait(ctx, nextHour(clock(), hour))
}

// UntilMinute blocks until the next occurrence of the given minute (0-59)
// within the hour, at second zero.
func UntilMinute(ctx context.Context, minute int) error {
	return wait(ctx, nextMinute(clock(), minute))
}

// UntilSecond blocks until the next occurrence of the given second (0-59)
// within the minute.
func UntilSecond(ctx context.Context, second int) error {
	return wait(ctx, nextSecond(clock(), second))
}

// At blocks until the next occurrence of hour:minute, local time.
func At(ctx context.Context, hour, minute int) error {
	return wait(ctx, nextTime(clock(), hour, minute))
}

func wait(ctx context.Context, target time.Time) error {
	d := target.Sub(clock())
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextHour(now time.Time, hour int) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

func nextMinute(now time.Time, minute int) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), minute, 0, 0, now.Location())
	if !target.After(now) {
		target = target.Add(time.Hour)
	}
	return target
}

func nextSecond(now time.Time, second int) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), second, 0, now.Location())
	if !target.After(now) {
		target = target.Add(time.Minute)
	}
	return target
}

func nextTime(now time.Time, hour, minute int) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}
