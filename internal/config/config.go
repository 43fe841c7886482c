package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/bcrypt"

	"github.com/aatumaykin/cronkeeper/internal/policy"
)

// Load загружает конфигурацию из TOML файла
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse разбирает TOML, применяет значения по умолчанию и раскрывает ${VAR}
func Parse(data []byte) (*Config, error) {
	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	applyDefaults(&cfg)
	expandEnvVars(&cfg)

	return &cfg, nil
}

// Validate проверяет валидность конфигурации
func (c *Config) Validate() []error {
	var errors []error

	// Проверка server
	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		errors = append(errors, fmt.Errorf("invalid server.listen %q: %w", c.Server.Listen, err))
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		errors = append(errors, fmt.Errorf("server.tls_cert_file and server.tls_key_file must be set together"))
	}
	if c.Server.MaxBodyBytes < 0 {
		errors = append(errors, fmt.Errorf("server.max_body_bytes must be positive"))
	}
	if c.Server.ReadTimeoutSeconds < 0 || c.Server.WriteTimeoutSeconds < 0 ||
		c.Server.IdleTimeoutSeconds < 0 || c.Server.ShutdownTimeoutSeconds < 0 {
		errors = append(errors, fmt.Errorf("server timeouts cannot be negative"))
	}

	// Без токенов шлюз не стартует
	if len(c.Auth.Tokens) == 0 {
		errors = append(errors, fmt.Errorf("auth.tokens: at least one token hash is required"))
	}
	names := make(map[string]bool, len(c.Auth.Tokens))
	for i, t := range c.Auth.Tokens {
		field := fmt.Sprintf("auth.tokens[%d].hash", i)
		if t.Hash == "" {
			errors = append(errors, fmt.Errorf("%s is required", field))
		} else if _, err := bcrypt.Cost([]byte(t.Hash)); err != nil {
			errors = append(errors, formatValidationError(field, "not a bcrypt hash", t.Hash))
		}
		if t.Name != "" {
			if names[t.Name] {
				errors = append(errors, fmt.Errorf("auth.tokens: duplicate name %q", t.Name))
			}
			names[t.Name] = true
		}
	}

	// Проверка crontab
	if err := validatePath(c.Crontab.Path, "crontab.path"); err != nil {
		errors = append(errors, err)
	}
	if c.Crontab.LockTimeoutSeconds < 0 {
		errors = append(errors, fmt.Errorf("crontab.lock_timeout_seconds cannot be negative"))
	}
	if c.Crontab.ScheduleCount < 1 || c.Crontab.ScheduleCount > 100 {
		errors = append(errors, fmt.Errorf("crontab.schedule_count must be between 1 and 100, got %d", c.Crontab.ScheduleCount))
	}

	// Политика проверяется тем же кодом, что строит движок
	if _, err := policy.NewEngine(c.PolicyEngineConfig()); err != nil {
		errors = append(errors, err)
	}

	// Проверка executor
	if c.Executor.TimeoutSeconds < 0 {
		errors = append(errors, fmt.Errorf("executor.timeout_seconds cannot be negative"))
	}
	if c.Executor.MaxOutputBytes < 0 {
		errors = append(errors, fmt.Errorf("executor.max_output_bytes cannot be negative"))
	}
	if c.Executor.WorkingDir != "" {
		if err := validatePath(c.Executor.WorkingDir, "executor.working_dir"); err != nil {
			errors = append(errors, err)
		}
	}
	if c.Executor.PoolSize < 1 {
		errors = append(errors, fmt.Errorf("executor.pool_size must be at least 1"))
	}
	if c.Executor.QueueSize < 0 {
		errors = append(errors, fmt.Errorf("executor.queue_size cannot be negative"))
	}
	if c.Executor.BatchConcurrency < 1 {
		errors = append(errors, fmt.Errorf("executor.batch_concurrency must be at least 1"))
	} else if c.Executor.BatchConcurrency > c.Executor.PoolSize && c.Executor.PoolSize > 0 {
		errors = append(errors, fmt.Errorf("executor.batch_concurrency (%d) cannot exceed executor.pool_size (%d)",
			c.Executor.BatchConcurrency, c.Executor.PoolSize))
	}
	if c.Executor.MaxBatchSize < 1 {
		errors = append(errors, fmt.Errorf("executor.max_batch_size must be at least 1"))
	}
	if c.Executor.KillGraceSeconds < 0 || c.Executor.WaitDelaySeconds < 0 {
		errors = append(errors, fmt.Errorf("executor.kill_grace_seconds and executor.wait_delay_seconds cannot be negative"))
	}

	// Проверка logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errors = append(errors, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errors = append(errors, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
	}

	if c.Metrics.Enabled {
		if !strings.HasPrefix(c.Metrics.Path, "/") || strings.HasPrefix(c.Metrics.Path, "/api/") {
			errors = append(errors, fmt.Errorf("invalid metrics.path %q (must start with / and stay outside /api/)", c.Metrics.Path))
		}
	}

	return errors
}

// PolicyEngineConfig переводит секцию [policy] в конфигурацию движка
func (c *Config) PolicyEngineConfig() policy.Config {
	return policy.Config{
		AliasOverrides:    c.Policy.Aliases,
		PrefixModeEnabled: c.Policy.PrefixModeEnabled,
		Prefixes:          c.Policy.Prefixes,
		DenyPatterns:      c.Policy.DenyPatterns,
	}
}

func validatePath(path, fieldName string) error {
	if path == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}

	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("%s contains potentially dangerous path traversal sequence", fieldName)
		}
	}

	return nil
}

// expandEnvVars расширяет переменные окружения в конфигурации
func expandEnvVars(c *Config) {
	c.Server.Listen = expandEnv(c.Server.Listen)
	c.Server.TLSCertFile = expandHome(expandEnv(c.Server.TLSCertFile))
	c.Server.TLSKeyFile = expandHome(expandEnv(c.Server.TLSKeyFile))

	// Хеши токенов удобно держать в окружении
	for i := range c.Auth.Tokens {
		c.Auth.Tokens[i].Hash = expandEnv(c.Auth.Tokens[i].Hash)
	}

	c.Crontab.Path = expandHome(expandEnv(c.Crontab.Path))
	c.Executor.WorkingDir = expandHome(expandEnv(c.Executor.WorkingDir))
	c.Runtime.PidFile = expandHome(expandEnv(c.Runtime.PidFile))

	if c.Logging.Output != "stdout" && c.Logging.Output != "stderr" {
		c.Logging.Output = expandHome(expandEnv(c.Logging.Output))
	}
}

// expandEnv раскрывает все вхождения ${VAR} и ${VAR:default}.
// Одиночный $ не трогается: он встречается в bcrypt хешах.
func expandEnv(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}

	var b strings.Builder
	for {
		start := strings.Index(s, "${")
		if start == -1 {
			break
		}
		end := strings.Index(s[start:], "}")
		if end == -1 {
			break
		}
		b.WriteString(s[:start])
		b.WriteString(lookupEnv(s[start+2 : start+end]))
		s = s[start+end+1:]
	}
	b.WriteString(s)
	return b.String()
}

func lookupEnv(content string) string {
	key, defaultVal, hasDefault := strings.Cut(content, ":")
	if val := os.Getenv(key); val != "" {
		return val
	}
	if hasDefault {
		return defaultVal
	}
	return ""
}

// expandHome расширяет ~ в пути
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
