package config

import "time"

// Config представляет корневую конфигурацию cronkeeper
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Crontab  CrontabConfig  `toml:"crontab"`
	Policy   PolicyConfig   `toml:"policy"`
	Executor ExecutorConfig `toml:"executor"`
	Logging  LoggingConfig  `toml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Runtime  RuntimeConfig  `toml:"runtime"`
}

// ServerConfig представляет конфигурацию HTTP шлюза
type ServerConfig struct {
	Listen                 string `toml:"listen"`
	ReadTimeoutSeconds     int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `toml:"write_timeout_seconds"`
	IdleTimeoutSeconds     int    `toml:"idle_timeout_seconds"`
	ShutdownTimeoutSeconds int    `toml:"shutdown_timeout_seconds"`
	MaxBodyBytes           int64  `toml:"max_body_bytes"`
	TLSCertFile            string `toml:"tls_cert_file"`
	TLSKeyFile             string `toml:"tls_key_file"`
}

func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

func (c ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// TLSEnabled сообщает, настроены ли сертификат и ключ
func (c ServerConfig) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// AuthConfig представляет список принимаемых bearer токенов
type AuthConfig struct {
	Tokens []TokenConfig `toml:"tokens"`
}

// TokenConfig хранит bcrypt хеш токена, сам токен в конфиг не попадает
type TokenConfig struct {
	Name string `toml:"name"`
	Hash string `toml:"hash"`
}

// CrontabConfig представляет конфигурацию хранилища crontab
type CrontabConfig struct {
	Path               string `toml:"path"`
	LockTimeoutSeconds int    `toml:"lock_timeout_seconds"`
	Backup             bool   `toml:"backup"`
	ScheduleCount      int    `toml:"schedule_count"`
}

func (c CrontabConfig) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutSeconds) * time.Second
}

// PolicyConfig представляет конфигурацию политики команд
type PolicyConfig struct {
	// Aliases переопределяет команду известного алиаса, ключ - имя алиаса
	Aliases           map[string]string `toml:"aliases"`
	PrefixModeEnabled bool              `toml:"prefix_mode_enabled"`
	Prefixes          []string          `toml:"prefixes"`
	DenyPatterns      []string          `toml:"deny_patterns"`
}

// ExecutorConfig представляет конфигурацию запуска команд
type ExecutorConfig struct {
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	MaxOutputBytes   int64  `toml:"max_output_bytes"`
	WorkingDir       string `toml:"working_dir"`
	Shell            string `toml:"shell"`
	WaitDelaySeconds int    `toml:"wait_delay_seconds"`
	KillGraceSeconds int    `toml:"kill_grace_seconds"`
	BatchConcurrency int    `toml:"batch_concurrency"`
	MaxBatchSize     int    `toml:"max_batch_size"`
	PoolSize         int    `toml:"pool_size"`
	QueueSize        int    `toml:"queue_size"`
}

func (c ExecutorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c ExecutorConfig) WaitDelay() time.Duration {
	return time.Duration(c.WaitDelaySeconds) * time.Second
}

func (c ExecutorConfig) KillGrace() time.Duration {
	return time.Duration(c.KillGraceSeconds) * time.Second
}

// LoggingConfig представляет конфигурацию логирования
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// MetricsConfig представляет конфигурацию prometheus эндпоинта
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Path      string `toml:"path"`
	Namespace string `toml:"namespace"`
	Runtime   bool   `toml:"runtime"`
}

// RuntimeConfig представляет файлы процесса
type RuntimeConfig struct {
	PidFile string `toml:"pid_file"`
}
