package scheduler

import (
	"time"

	"github.com/shaiso/Chronos/internal/domain"
)

// MinutesSinceMidnight возвращает минуты от полуночи в часовом поясе t.
func MinutesSinceMidnight(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// triggerAt возвращает момент срабатывания trigger в день day (в поясе day).
// time.Date нормализует переходы на летнее время.
func triggerAt(day time.Time, trigger domain.TriggerTime) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, trigger.Hour, trigger.Minute, 0, 0, day.Location())
}

// Due проверяет, находится ли now внутри окна срабатывания.
//
// Окно: start <= now < start+window. Учитываются окна, начавшиеся вчера
// (trigger 23:58 с окном 5m действует до 00:03).
// Возвращает trigger и начало его окна.
func Due(now time.Time, triggers []domain.TriggerTime, window time.Duration) (domain.TriggerTime, time.Time, bool) {
	for _, dayOffset := range []int{0, -1} {
		day := now.AddDate(0, 0, dayOffset)
		for _, trigger := range triggers {
			start := triggerAt(day, trigger)
			if !now.Before(start) && now.Before(start.Add(window)) {
				return trigger, start, true
			}
		}
	}
	return domain.TriggerTime{}, time.Time{}, false
}

// NextTrigger возвращает ближайший момент срабатывания строго после now.
// Если все triggers сегодня прошли — берётся первый завтрашний.
func NextTrigger(now time.Time, triggers []domain.TriggerTime) (time.Time, domain.TriggerTime) {
	var (
		best        time.Time
		bestTrigger domain.TriggerTime
	)
	for _, dayOffset := range []int{0, 1} {
		day := now.AddDate(0, 0, dayOffset)
		for _, trigger := range triggers {
			at := triggerAt(day, trigger)
			if !at.After(now) {
				continue
			}
			if best.IsZero() || at.Before(best) {
				best = at
				bestTrigger = trigger
			}
		}
	}
	return best, bestTrigger
}

// WaitDuration возвращает длительность сна до следующего срабатывания.
// now.Add(WaitDuration(now, triggers)) попадает ровно на границу trigger.
func WaitDuration(now time.Time, triggers []domain.TriggerTime) time.Duration {
	next, _ := NextTrigger(now, triggers)
	if next.IsZero() {
		return 0
	}
	return next.Sub(now)
}

// Upcoming возвращает n ближайших срабатываний после from.
func Upcoming(from time.Time, triggers []domain.TriggerTime, n int) []time.Time {
	if len(triggers) == 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	cursor := from
	for len(out) < n {
		next, _ := NextTrigger(cursor, triggers)
		out = append(out, next)
		cursor = next
	}
	return out
}
