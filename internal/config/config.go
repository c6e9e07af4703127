package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/shaiso/Chronos/internal/domain"
	"github.com/shaiso/Chronos/internal/launcher"
	"github.com/shaiso/Chronos/internal/scheduler"
)

// Config — полная конфигурация scheduler и launcher.
type Config struct {
	Schedule ScheduleConfig `yaml:"schedule"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Retry    RetryConfig    `yaml:"retry"`

	// LogFile — append-only журнал запусков.
	LogFile string `yaml:"log_file"`

	// DBURL — Postgres; пусто — без истории и leader lock.
	DBURL string `yaml:"db_url"`

	// RabbitMQURL — пусто — без событий.
	RabbitMQURL string `yaml:"rabbitmq_url"`

	// Port — порт HTTP сервера статуса и метрик.
	Port string `yaml:"port"`

	// LauncherIdle — one-shot launcher после запуска ждёт сигнала вместо выхода.
	LauncherIdle bool `yaml:"launcher_idle"`
}

// ScheduleConfig — расписание.
type ScheduleConfig struct {
	Times    []string      `yaml:"times"`
	Cron     string        `yaml:"cron"` // приоритетнее Times
	Timezone string        `yaml:"timezone"`
	Window   time.Duration `yaml:"window"`
	Cooldown time.Duration `yaml:"cooldown"`
}

// ScraperConfig — внешний процесс.
type ScraperConfig struct {
	Command string        `yaml:"command"`
	Dir     string        `yaml:"dir"`
	Venv    string        `yaml:"venv"`
	Timeout time.Duration `yaml:"timeout"` // 0 — без ограничения
}

// RetryConfig — повторы внутри одного окна.
type RetryConfig struct {
	MaxAttempts int             `yaml:"max_attempts"`
	Delays      []time.Duration `yaml:"delays"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() *Config {
	return &Config{
		Schedule: ScheduleConfig{
			Times:    []string{"08:00", "22:00"},
			Timezone: "Local",
			Window:   scheduler.DefaultWindow,
			Cooldown: scheduler.DefaultCooldown,
		},
		Scraper: ScraperConfig{
			Command: "python3 main.py",
			Dir:     ".",
		},
		Retry: RetryConfig{
			MaxAttempts: 1,
			Delays:      []time.Duration{30 * time.Second, 60 * time.Second, 90 * time.Second},
		},
		LogFile: "logs/cron.log",
		Port:    "8081",
	}
}

// Load читает CONFIG_FILE (если задан) и переменные окружения, затем проверяет результат.
func Load() (*Config, error) {
	return LoadFrom(afero.NewOsFs(), os.LookupEnv)
}

// LoadFrom — Load с явной файловой системой и источником переменных.
func LoadFrom(fs afero.Fs, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path, ok := lookup("CONFIG_FILE"); ok && path != "" {
		if err := cfg.loadFile(fs, path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile накладывает YAML-файл поверх текущих значений.
func (c *Config) loadFile(fs afero.Fs, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv накладывает переменные окружения.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, key, v, err)
		}
		*dst = d
		return nil
	}

	if v, ok := lookup("SCHEDULE_TIMES"); ok && v != "" {
		c.Schedule.Times = splitList(v)
	}
	str("SCHEDULE_CRON", &c.Schedule.Cron)
	str("SCHEDULE_TZ", &c.Schedule.Timezone)
	if err := dur("TRIGGER_WINDOW", &c.Schedule.Window); err != nil {
		return err
	}
	if err := dur("COOLDOWN", &c.Schedule.Cooldown); err != nil {
		return err
	}

	str("SCRAPER_CMD", &c.Scraper.Command)
	str("SCRAPER_DIR", &c.Scraper.Dir)
	str("SCRAPER_VENV", &c.Scraper.Venv)
	if err := dur("SCRAPER_TIMEOUT", &c.Scraper.Timeout); err != nil {
		return err
	}

	if v, ok := lookup("RETRY_MAX_ATTEMPTS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RETRY_MAX_ATTEMPTS=%q: not a number", ErrInvalidConfig, v)
		}
		c.Retry.MaxAttempts = n
	}
	if v, ok := lookup("RETRY_DELAYS"); ok && v != "" {
		var delays []time.Duration
		for _, part := range splitList(v) {
			d, err := parseDuration(part)
			if err != nil {
				return fmt.Errorf("%w: RETRY_DELAYS=%q: %v", ErrInvalidConfig, v, err)
			}
			delays = append(delays, d)
		}
		c.Retry.Delays = delays
	}

	str("LOG_FILE", &c.LogFile)
	str("DB_URL", &c.DBURL)
	str("RABBITMQ_URL", &c.RabbitMQURL)
	str("SCHED_PORT", &c.Port)

	if v, ok := lookup("LAUNCHER_IDLE"); ok && v != "" {
		idle, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: LAUNCHER_IDLE=%q: not a boolean", ErrInvalidConfig, v)
		}
		c.LauncherIdle = idle
	}
	return nil
}

// Validate проверяет конфигурацию целиком.
func (c *Config) Validate() error {
	triggers, err := c.Triggers()
	if err != nil {
		return err
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	window := c.Schedule.Window
	if window <= 0 || window > time.Hour {
		return fmt.Errorf("%w: trigger window %s must be in (0, 1h]", ErrInvalidConfig, window)
	}
	if c.Schedule.Cooldown < window {
		return fmt.Errorf("%w: cooldown %s is shorter than trigger window %s",
			ErrInvalidConfig, c.Schedule.Cooldown, window)
	}
	if err := checkSeparation(triggers, window); err != nil {
		return err
	}

	if len(c.CommandArgs()) == 0 {
		return fmt.Errorf("%w: scraper command is empty", ErrInvalidConfig)
	}
	if c.Scraper.Timeout < 0 {
		return fmt.Errorf("%w: scraper timeout %s is negative", ErrInvalidConfig, c.Scraper.Timeout)
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry max attempts must be >= 1, got %d", ErrInvalidConfig, c.Retry.MaxAttempts)
	}
	for _, d := range c.Retry.Delays {
		if d <= 0 {
			return fmt.Errorf("%w: retry delay %s must be positive", ErrInvalidConfig, d)
		}
	}

	if c.LogFile == "" {
		return fmt.Errorf("%w: log file is required", ErrInvalidConfig)
	}

	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: port %q", ErrInvalidConfig, c.Port)
	}

	return nil
}

// Triggers возвращает отсортированный набор triggers.
// SCHEDULE_CRON, если задан, заменяет SCHEDULE_TIMES.
func (c *Config) Triggers() ([]domain.TriggerTime, error) {
	var (
		triggers []domain.TriggerTime
		err      error
	)
	if c.Schedule.Cron != "" {
		triggers, err = scheduler.ParseCronTriggers(c.Schedule.Cron)
	} else {
		triggers, err = domain.ParseTriggerTimes(strings.Join(c.Schedule.Times, ","))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if len(triggers) == 0 {
		return nil, fmt.Errorf("%w: at least one trigger time is required", ErrInvalidConfig)
	}
	if err := domain.CheckDistinct(triggers); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return triggers, nil
}

// Location возвращает часовой пояс расписания. "" и "Local" — системный.
func (c *Config) Location() (*time.Location, error) {
	tz := c.Schedule.Timezone
	if tz == "" || tz == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, tz, err)
	}
	return loc, nil
}

// CommandArgs — команда scraper, разбитая по пробелам.
func (c *Config) CommandArgs() []string {
	return strings.Fields(c.Scraper.Command)
}

// RetryPolicy возвращает политику повторов для launcher.
func (c *Config) RetryPolicy() launcher.RetryPolicy {
	return launcher.RetryPolicy{
		MaxAttempts: c.Retry.MaxAttempts,
		Delays:      append([]time.Duration(nil), c.Retry.Delays...),
	}
}

// checkSeparation проверяет, что окна соседних triggers не пересекаются,
// включая переход через полночь.
func checkSeparation(triggers []domain.TriggerTime, window time.Duration) error {
	if len(triggers) < 2 {
		return nil
	}
	const day = 24 * 60
	for i, t := range triggers {
		next := triggers[(i+1)%len(triggers)]
		gap := next.MinuteOfDay() - t.MinuteOfDay()
		if gap <= 0 {
			gap += day
		}
		if time.Duration(gap)*time.Minute < window {
			return fmt.Errorf("%w: triggers %s and %s are closer than the trigger window %s",
				ErrInvalidConfig, t, next, window)
		}
	}
	return nil
}

// parseDuration принимает Go-длительность ("10m") или целое число секунд ("600").
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
