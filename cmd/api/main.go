package main

import (
	"log/slog"
	"os"

	"foodorder/internal/config"
	"foodorder/internal/domain/model"
	"foodorder/internal/event"
	"foodorder/internal/handler"
	"foodorder/internal/infra/db"
	infraEvent "foodorder/internal/infra/event"
	infraRepo "foodorder/internal/infra/repository"
	"foodorder/internal/server"
	"foodorder/internal/usecase"

	"github.com/joho/godotenv"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	//ローカル開発用。.envが無いのは許す
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		slog.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Restaurant{},
		&model.MenuItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.AuditLog{},
	); err != nil {
		slog.Error("migrate failed", "error", err)
		os.Exit(1)
	}

	//イベント発行先。RABBITMQ_URL未設定なら監査ログだけ残す
	var publisher event.Publisher = event.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		amqpPub, err := infraEvent.ConnectAMQP(cfg.RabbitMQURL)
		if err != nil {
			slog.Error("rabbitmq connect failed", "error", err)
			os.Exit(1)
		}
		defer amqpPub.Close()
		publisher = amqpPub
		slog.Info("connected to rabbitmq")
	}

	//Repository（GORM実装）生成
	txManager := infraRepo.NewTxManagerGorm(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)

	recorder := event.NewRecorder(auditRepo, publisher)

	//Usecase生成
	orderUC := usecase.NewOrderUsecase(txManager, recorder)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager, recorder)
	auditLogUC := usecase.NewAuditLogUsecase(auditRepo)

	//Handler生成
	orderH := handler.NewOrderHandler(orderUC)
	adminH := handler.NewAdminOrderHandler(adminOrderUC)
	auditH := handler.NewAuditLogHandler(auditLogUC)

	//Server起動
	slog.Info("starting server", "port", cfg.Port)
	if err := server.Start(cfg, orderH, adminH, auditH); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
