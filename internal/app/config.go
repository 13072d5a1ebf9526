package app

// Config описывает настройки запуска сервиса.
type Config struct {
	// PostgresDSN включает PostgreSQL-хранилище; пустое значение означает
	// in-memory хранилище (dev/demo режим).
	PostgresDSN string

	// KafkaBrokers включает публикацию аудита в Kafka; пустой список
	// оставляет записи в буфере.
	KafkaBrokers []string

	// MetricsAddr — адрес HTTP-сервера метрик и health-проверок.
	MetricsAddr string
}

// DefaultConfig возвращает конфигурацию dev-режима: in-memory хранилище,
// без Kafka, метрики на :9090.
func DefaultConfig() Config {
	return Config{
		MetricsAddr: ":9090",
	}
}
