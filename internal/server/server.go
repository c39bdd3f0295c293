package server

import (
	"foodorder/internal/config"
	"foodorder/internal/handler"

	"github.com/labstack/echo/v4"
)

func Start(cfg config.Config, orderH *handler.OrderHandler, adminH *handler.AdminOrderHandler, auditH *handler.AuditLogHandler) error {
	e := echo.New()
	e.HideBanner = true

	orderH.RegisterRoutes(e, cfg)
	adminH.RegisterRoutes(e, cfg)
	auditH.RegisterRoutes(e, cfg)

	return e.Start(":" + cfg.Port)
}
