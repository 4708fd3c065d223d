// Package config загружает конфигурацию сервиса.
//
// Порядок применения (каждый следующий уровень перекрывает предыдущий):
//
//  1. значения по умолчанию
//  2. YAML файл (путь из FOLLOWUP_CONFIG или флага --config)
//  3. переменные окружения (включая .env / .env.local / ENV_FILE)
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shaiso/followup/internal/repo"
	"github.com/shaiso/followup/internal/scheduler"
)

// PathEnv — переменная окружения с путём к YAML файлу.
const PathEnv = "FOLLOWUP_CONFIG"

// Lock backends.
const (
	LockNone     = "none"
	LockPostgres = "postgres"
	LockRedis    = "redis"
)

// Mail drivers.
const (
	MailSMTP = "smtp"
	MailHTTP = "http"
	MailLog  = "log"
)

// Config — конфигурация followup-server.
type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	DBURL    string `yaml:"db_url"`

	// RabbitMQURL — пустая строка отключает публикацию событий.
	RabbitMQURL string `yaml:"rabbitmq_url"`

	Redis     RedisConfig     `yaml:"redis"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Mail      MailConfig      `yaml:"mail"`
	Log       LogConfig       `yaml:"log"`
}

// RedisConfig — подключение к Redis (для LOCK_BACKEND=redis).
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SchedulerConfig — параметры цикла рассылки.
type SchedulerConfig struct {
	Schedule    string        `yaml:"schedule"`
	PassTimeout time.Duration `yaml:"pass_timeout"`
	OpTimeout   time.Duration `yaml:"op_timeout"`
	Concurrency int           `yaml:"concurrency"`
	LockBackend string        `yaml:"lock_backend"`
	RunOnStart  bool          `yaml:"run_on_start"`
}

// MailConfig — доставка писем.
type MailConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`

	// APIURL и APIKey — для driver=http (SendGrid v3 совместимый API).
	APIURL string `yaml:"api_url"`
	APIKey string `yaml:"api_key"`
}

// LogConfig — настройки slog.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		DBURL:    repo.DefaultDSN,
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Scheduler: SchedulerConfig{
			Schedule:    scheduler.DefaultSchedule,
			PassTimeout: 10 * time.Minute,
			OpTimeout:   30 * time.Second,
			Concurrency: 4,
			LockBackend: LockNone,
			RunOnStart:  true,
		},
		Mail: MailConfig{
			Driver: MailLog,
			Port:   587,
			From:   "followups@example.com",
		},
		Log: LogConfig{
			Level:  "INFO",
			Format: "json",
		},
	}
}

// Load собирает конфигурацию: defaults → YAML → env.
//
// Пустой path означает путь из FOLLOWUP_CONFIG; если и он пуст, YAML не читается.
func Load(path string) (Config, error) {
	if err := loadEnvFiles(); err != nil {
		return Config{}, err
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadEnvFiles загружает .env файлы. ENV_FILE, если задан, заменяет остальные.
// godotenv не перезаписывает уже выставленные переменные.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}

	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var errs []error

	setString(&cfg.HTTPAddr, "HTTP_ADDR")
	setString(&cfg.DBURL, "DB_URL")
	setString(&cfg.RabbitMQURL, "RABBITMQ_URL")

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	errs = append(errs, setInt(&cfg.Redis.DB, "REDIS_DB"))

	setString(&cfg.Scheduler.Schedule, "SCHEDULE")
	errs = append(errs,
		setDuration(&cfg.Scheduler.PassTimeout, "PASS_TIMEOUT"),
		setDuration(&cfg.Scheduler.OpTimeout, "OP_TIMEOUT"),
		setInt(&cfg.Scheduler.Concurrency, "PASS_CONCURRENCY"),
		setBool(&cfg.Scheduler.RunOnStart, "RUN_ON_START"),
	)
	setString(&cfg.Scheduler.LockBackend, "LOCK_BACKEND")

	setString(&cfg.Mail.Driver, "MAIL_DRIVER")
	setString(&cfg.Mail.Host, "MAIL_HOST")
	errs = append(errs, setInt(&cfg.Mail.Port, "MAIL_PORT"))
	setString(&cfg.Mail.User, "MAIL_USER")
	setString(&cfg.Mail.Password, "MAIL_PASS")
	setString(&cfg.Mail.From, "MAIL_FROM")
	setString(&cfg.Mail.APIURL, "MAIL_API_URL")
	setString(&cfg.Mail.APIKey, "MAIL_API_KEY")

	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, v)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q", key, v)
	}
	*dst = d
	return nil
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	*dst = b
	return nil
}

// Validate проверяет согласованность конфигурации.
func (c Config) Validate() error {
	var errs []error

	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	if err := scheduler.ValidateSchedule(c.Scheduler.Schedule); err != nil {
		errs = append(errs, err)
	}
	if c.Scheduler.PassTimeout <= 0 {
		errs = append(errs, errors.New("pass_timeout must be positive"))
	}
	if c.Scheduler.OpTimeout <= 0 {
		errs = append(errs, errors.New("op_timeout must be positive"))
	}
	if c.Scheduler.Concurrency <= 0 {
		errs = append(errs, errors.New("concurrency must be positive"))
	}

	switch c.Scheduler.LockBackend {
	case LockNone, LockPostgres:
	case LockRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for lock_backend=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown lock_backend %q", c.Scheduler.LockBackend))
	}

	switch c.Mail.Driver {
	case MailLog:
	case MailSMTP:
		if c.Mail.Host == "" {
			errs = append(errs, errors.New("mail.host is required for driver=smtp"))
		}
		if c.Mail.Port <= 0 {
			errs = append(errs, errors.New("mail.port must be positive"))
		}
		if c.Mail.From == "" {
			errs = append(errs, errors.New("mail.from is required for driver=smtp"))
		}
	case MailHTTP:
		if c.Mail.APIKey == "" {
			errs = append(errs, errors.New("mail.api_key is required for driver=http"))
		}
		if c.Mail.From == "" {
			errs = append(errs, errors.New("mail.from is required for driver=http"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mail driver %q", c.Mail.Driver))
	}

	return errors.Join(errs...)
}
