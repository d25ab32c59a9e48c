package scheduler

import (
	"context"
	"time"
)

// JobFunc выполняет периодическую задачу
type JobFunc func(ctx context.Context) error

// Runner определяет интерфейс планировщика периодических задач
type Runner interface {
	// Every регистрирует задачу name с периодом interval
	Every(name string, interval time.Duration, job JobFunc) error

	// Start запускает планировщик
	Start(ctx context.Context) error

	// Stop останавливает планировщик и ждет завершения задач
	Stop() error
}

// Sweeper удаляет устаревшие записи
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}
