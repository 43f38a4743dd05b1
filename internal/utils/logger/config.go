// internal/utils/logger/config.go
package logger

import "io"

type Config struct {
	LogFile     string // пустая строка отключает файловый вывод
	MaxSize     int    // мегабайты
	MaxAge      int    // дни
	MaxBackups  int    // количество файлов
	Compress    bool   // сжимать ротированные файлы
	Development bool
	Level       string    // debug, info, warn, error; пусто = по Development
	Console     io.Writer // nil = os.Stdout
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		LogFile:     "pumpsim.log",
		MaxSize:     50,
		MaxAge:      7,
		MaxBackups:  3,
		Compress:    true,
		Development: false,
	}
}
