// Точка входа Intake Module — модуля приёма файлов прогнозов GoForecast.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// инициализирует staging-хранилище, верификатор дайджестов, журнал
// загрузок и сигнал downstream-конвейеру, запускает topologymetrics
// и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/goforecast/intake-module/internal/api/handlers"
	"github.com/bigkaa/goforecast/intake-module/internal/config"
	"github.com/bigkaa/goforecast/intake-module/internal/database"
	"github.com/bigkaa/goforecast/intake-module/internal/repository"
	"github.com/bigkaa/goforecast/intake-module/internal/server"
	"github.com/bigkaa/goforecast/intake-module/internal/service"
	"github.com/bigkaa/goforecast/intake-module/internal/storage/staging"
	"github.com/bigkaa/goforecast/intake-module/internal/verify"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Intake Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("staging_dir", cfg.StagingDir),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Staging-хранилище
	store, err := staging.New(cfg.StagingDir)
	if err != nil {
		logger.Error("Ошибка инициализации staging", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Верификатор дайджестов. Секрет читается единожды,
	// дальше используется как неизменяемый.
	verifier := verify.New([]byte(cfg.UploadSecret))

	// 7. Журнал загрузок и сигнал конвейеру
	ledger := repository.NewUploadLedgerRepository(pool)
	notifier := service.NewPGNotifier(pool, cfg.NotifyChannel, logger)

	// 8. Сервис приёма
	intakeSvc := service.NewIntakeService(store, verifier, ledger, notifier, logger)

	// 9. topologymetrics — мониторинг зависимостей
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"intake-module",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		}
	}

	// 10. Handlers
	uploadHandler := handlers.NewUploadHandler(intakeSvc, cfg.MaxFileSize)
	activityHandler := handlers.NewActivityHandler(ledger)
	healthHandler := handlers.NewHealthHandler(cfg.StagingDir, database.NewReadinessChecker(pool))

	// 11. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, uploadHandler, activityHandler, healthHandler)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Graceful shutdown фоновых процессов ---
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Intake Module остановлен")
}
