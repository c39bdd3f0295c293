package handler

import (
	"net/http"
	"strconv"
	"time"

	"foodorder/internal/config"
	"foodorder/internal/domain/model"
	"foodorder/internal/middleware"
	"foodorder/internal/repository"
	"foodorder/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func getActorFromContext(c echo.Context) (usecase.Actor, bool) {
	v := c.Get(middleware.CtxUserIDKey)
	if v == nil {
		return usecase.Actor{}, false
	}
	id, ok := v.(int64)
	if !ok {
		return usecase.Actor{}, false
	}

	role, _ := c.Get(middleware.CtxUserRoleKey).(string)

	return usecase.Actor{UserID: id, Admin: role == string(model.RoleAdmin)}, true
}

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type OrderItemRequest struct {
	ID         *int64  `json:"id,omitempty"`
	MenuItemID int64   `json:"menu_item_id"`
	Quantity   int64   `json:"quantity"`
	Note       *string `json:"note,omitempty"`
}

type OrderCreateRequest struct {
	RestaurantID int64              `json:"restaurant_id"`
	Items        []OrderItemRequest `json:"items"`
	TableNumber  *int               `json:"table_number,omitempty"`
	Notes        string             `json:"notes,omitempty"`
	Discount     int64              `json:"discount"`
}

type OrderStatusUpdateRequest struct {
	Status string `json:"status"`
}

type OrderPayRequest struct {
	PaymentMethod string `json:"payment_method"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(cfg))

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.detail)
	g.PUT("/:id/status", h.updateStatus)
	g.POST("/:id/pay", h.pay)
	g.POST("/:id/cancel", h.cancel)
}

func (h *OrderHandler) create(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	items := make([]usecase.CreateOrderItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		note := ""
		if it.Note != nil {
			note = *it.Note
		}
		items = append(items, usecase.CreateOrderItemInput{
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			Note:       note,
		})
	}

	out, err := h.uc.CreateOrder(c.Request().Context(), actor, usecase.CreateOrderInput{
		RestaurantID: req.RestaurantID,
		Items:        items,
		TableNumber:  req.TableNumber,
		Notes:        req.Notes,
		Discount:     req.Discount,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	f, err := parseOrderListFilter(c)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ListOrders(c.Request().Context(), actor, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.GetOrder(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) updateStatus(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.UpdateOrderStatus(c.Request().Context(), actor, id, req.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) pay(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req OrderPayRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.PayOrder(c.Request().Context(), actor, id, req.PaymentMethod)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) cancel(c echo.Context) error {
	actor, ok := getActorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.CancelOrder(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func parseOrderListFilter(c echo.Context) (repository.OrderListFilter, error) {
	f := repository.OrderListFilter{Page: 1, Limit: 50}

	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return f, usecase.NewHTTPError(http.StatusBadRequest, "invalid page")
		}
		f.Page = p
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return f, usecase.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		f.Limit = l
	}
	if v := c.QueryParam("restaurant_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, usecase.NewHTTPError(http.StatusBadRequest, "invalid restaurant_id")
		}
		f.RestaurantID = &id
	}
	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, usecase.NewHTTPError(http.StatusBadRequest, "invalid user_id")
		}
		f.UserID = &id
	}
	f.Status = c.QueryParam("status")
	f.PaymentStatus = c.QueryParam("payment_status")
	if v := c.QueryParam("table_number"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, usecase.NewHTTPError(http.StatusBadRequest, "invalid table_number")
		}
		f.TableNumber = &n
	}
	if v := c.QueryParam("from"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, usecase.NewHTTPError(http.StatusBadRequest, "invalid from")
		}
		f.From = &tm
	}
	if v := c.QueryParam("to"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, usecase.NewHTTPError(http.StatusBadRequest, "invalid to")
		}
		f.To = &tm
	}

	return f, nil
}
