package config

import "github.com/aatumaykin/cronkeeper/internal/constants"

const (
	DefaultListen             = "127.0.0.1:8080"
	DefaultMaxBodyBytes       = 1 << 20
	DefaultCrontabPath        = "/etc/crontab"
	DefaultLockTimeoutSeconds = 5
	DefaultScheduleCount      = 5
	DefaultTimeoutSeconds     = 30
	DefaultMaxOutputBytes     = 1 << 20
	DefaultShell              = "sh"
	DefaultMaxBatchSize       = 32
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = constants.ProductName
)

// applyDefaults применяет значения по умолчанию
func applyDefaults(c *Config) {
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Server.ReadTimeoutSeconds == 0 {
		c.Server.ReadTimeoutSeconds = 10
	}
	// Запись ответа ждёт выполнения команды, поэтому таймаут больше executor.timeout
	if c.Server.WriteTimeoutSeconds == 0 {
		c.Server.WriteTimeoutSeconds = 120
	}
	if c.Server.IdleTimeoutSeconds == 0 {
		c.Server.IdleTimeoutSeconds = 60
	}
	if c.Server.ShutdownTimeoutSeconds == 0 {
		c.Server.ShutdownTimeoutSeconds = 10
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}

	if c.Crontab.Path == "" {
		c.Crontab.Path = DefaultCrontabPath
	}
	if c.Crontab.LockTimeoutSeconds == 0 {
		c.Crontab.LockTimeoutSeconds = DefaultLockTimeoutSeconds
	}
	if c.Crontab.ScheduleCount == 0 {
		c.Crontab.ScheduleCount = DefaultScheduleCount
	}

	if c.Executor.TimeoutSeconds == 0 {
		c.Executor.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Executor.MaxOutputBytes == 0 {
		c.Executor.MaxOutputBytes = DefaultMaxOutputBytes
	}
	if c.Executor.Shell == "" {
		c.Executor.Shell = DefaultShell
	}
	if c.Executor.WaitDelaySeconds == 0 {
		c.Executor.WaitDelaySeconds = 2
	}
	if c.Executor.BatchConcurrency == 0 {
		c.Executor.BatchConcurrency = 1
	}
	if c.Executor.MaxBatchSize == 0 {
		c.Executor.MaxBatchSize = DefaultMaxBatchSize
	}
	if c.Executor.PoolSize == 0 {
		c.Executor.PoolSize = 4
	}
	if c.Executor.QueueSize == 0 {
		c.Executor.QueueSize = 64
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultMetricsNamespace
	}

	if c.Runtime.PidFile == "" {
		c.Runtime.PidFile = constants.DefaultPidPath
	}
}
