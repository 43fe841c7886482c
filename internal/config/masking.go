package config

import (
	"strings"
)

// maskSecret маскирует секрет, оставляя только первые 4 и последние 4 символа
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}

	// Если секрет слишком короткий, маскируем полностью
	if len(secret) < 8 {
		return "***"
	}

	prefix := secret[:4]
	suffix := secret[len(secret)-4:]
	return prefix + strings.Repeat("*", len(secret)-8) + suffix
}

// Redacted возвращает копию конфигурации с замаскированными хешами токенов
func (c *Config) Redacted() Config {
	out := *c
	out.Auth.Tokens = make([]TokenConfig, len(c.Auth.Tokens))
	for i, t := range c.Auth.Tokens {
		out.Auth.Tokens[i] = TokenConfig{Name: t.Name, Hash: maskSecret(t.Hash)}
	}
	return out
}

// formatValidationError форматирует ошибку валидации с маскированным значением
func formatValidationError(field, message string, secret string) error {
	errorMsg := field + ": " + message
	if masked := maskSecret(secret); masked != "" {
		errorMsg += " (value: " + masked + ")"
	}
	return &ValidationError{Field: field, Message: errorMsg}
}

// ValidationError представляет ошибку валидации с дополнительной информацией
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
