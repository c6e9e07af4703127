package scheduler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/shaiso/Chronos/internal/domain"
)

// cronParser — парсер cron-выражений.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ErrUnsupportedCron — выражение нельзя свести к набору ежедневных triggers.
var ErrUnsupportedCron = errors.New("cron expression must fire every day")

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	_, err := cronParser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return nil
}

// ParseCronTriggers раскладывает cron-выражение в набор ежедневных triggers.
//
// Поддерживаются только выражения, срабатывающие каждый день:
// "0 8,22 * * *" → [08:00, 22:00]. Ограничения по дням/месяцам
// отклоняются — окна scheduler считаются по времени суток.
func ParseCronTriggers(cronExpr string) ([]domain.TriggerTime, error) {
	sched, err := cronParser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}

	spec, ok := sched.(*cron.SpecSchedule)
	if !ok {
		// @every и подобные дескрипторы
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCron, cronExpr)
	}

	if !allBits(spec.Dom, 1, 31) || !allBits(spec.Month, 1, 12) || !allBits(spec.Dow, 0, 6) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCron, cronExpr)
	}

	var triggers []domain.TriggerTime
	for h := 0; h < 24; h++ {
		if spec.Hour&(1<<uint(h)) == 0 {
			continue
		}
		for m := 0; m < 60; m++ {
			if spec.Minute&(1<<uint(m)) == 0 {
				continue
			}
			triggers = append(triggers, domain.TriggerTime{Hour: h, Minute: m})
		}
	}
	return triggers, nil
}

// CronExpr формирует эквивалентное cron-выражение для набора triggers.
// Для triggers с разными минутами результат перечисляет выражения через ";".
func CronExpr(triggers []domain.TriggerTime) string {
	byMinute := make(map[int][]string)
	var minutes []int
	for _, t := range triggers {
		if _, ok := byMinute[t.Minute]; !ok {
			minutes = append(minutes, t.Minute)
		}
		byMinute[t.Minute] = append(byMinute[t.Minute], fmt.Sprint(t.Hour))
	}

	exprs := make([]string, 0, len(minutes))
	for _, m := range minutes {
		exprs = append(exprs, fmt.Sprintf("%d %s * * *", m, strings.Join(byMinute[m], ",")))
	}
	return strings.Join(exprs, "; ")
}

// allBits проверяет, что установлены все биты в диапазоне [lo, hi].
func allBits(field uint64, lo, hi int) bool {
	for i := lo; i <= hi; i++ {
		if field&(1<<uint(i)) == 0 {
			return false
		}
	}
	return true
}
