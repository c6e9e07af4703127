package domain

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidTrigger — время срабатывания вне диапазона или в неверном формате.
var ErrInvalidTrigger = errors.New("invalid trigger time")

// TriggerTime — время суток, в которое scheduler запускает scraper.
//
// Задаётся парой (час, минута) в часовом поясе расписания.
// Пример: 08:00 и 22:00 — утренний и вечерний запуск.
type TriggerTime struct {
	Hour   int `json:"hour" yaml:"hour"`
	Minute int `json:"minute" yaml:"minute"`
}

// ParseTriggerTime парсит строку формата "HH:MM".
func ParseTriggerTime(s string) (TriggerTime, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TriggerTime{}, fmt.Errorf("%w: %q, expected HH:MM", ErrInvalidTrigger, s)
	}

	hour, err := strconv.Atoi(hh)
	if err != nil {
		return TriggerTime{}, fmt.Errorf("%w: %q: bad hour", ErrInvalidTrigger, s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return TriggerTime{}, fmt.Errorf("%w: %q: bad minute", ErrInvalidTrigger, s)
	}

	t := TriggerTime{Hour: hour, Minute: minute}
	if err := t.Validate(); err != nil {
		return TriggerTime{}, err
	}
	return t, nil
}

// ParseTriggerTimes парсит список через запятую: "08:00,22:00".
// Результат отсортирован по времени суток, повторы отклоняются.
func ParseTriggerTimes(s string) ([]TriggerTime, error) {
	var triggers []TriggerTime
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		t, err := ParseTriggerTime(part)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, t)
	}
	SortTriggers(triggers)
	if err := CheckDistinct(triggers); err != nil {
		return nil, err
	}
	return triggers, nil
}

// CheckDistinct проверяет отсортированный список на повторы.
func CheckDistinct(triggers []TriggerTime) error {
	for i := 1; i < len(triggers); i++ {
		if triggers[i] == triggers[i-1] {
			return fmt.Errorf("%w: duplicate trigger time %s", ErrInvalidTrigger, triggers[i])
		}
	}
	return nil
}

// Validate проверяет диапазоны часа и минуты.
func (t TriggerTime) Validate() error {
	if t.Hour < 0 || t.Hour > 23 {
		return fmt.Errorf("%w: hour %d out of range 0-23", ErrInvalidTrigger, t.Hour)
	}
	if t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("%w: minute %d out of range 0-59", ErrInvalidTrigger, t.Minute)
	}
	return nil
}

// MinuteOfDay возвращает количество минут от полуночи (0..1439).
func (t TriggerTime) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

// String возвращает "HH:MM".
func (t TriggerTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// SortTriggers сортирует по времени суток на месте.
func SortTriggers(triggers []TriggerTime) {
	sort.Slice(triggers, func(i, j int) bool {
		return triggers[i].MinuteOfDay() < triggers[j].MinuteOfDay()
	})
}

// FormatTriggers возвращает "08:00,22:00".
func FormatTriggers(triggers []TriggerTime) string {
	parts := make([]string, len(triggers))
	for i, t := range triggers {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}
