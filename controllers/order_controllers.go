package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tablebook/tablebook/models"
	"github.com/tablebook/tablebook/realtime"
	"github.com/tablebook/tablebook/utils"
)

type OrderController struct {
	DB *gorm.DB
}

func NewOrderController(db *gorm.DB) *OrderController {
	return &OrderController{DB: db}
}

// CreateOrder opens a dine-in order against an occupied table.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var req struct {
		TableID       uint  `json:"table_id" binding:"required"`
		ReservationID *uint `json:"reservation_id"`
		Items         []struct {
			MenuID   uint   `json:"menu_id" binding:"required"`
			Quantity int    `json:"quantity" binding:"required,gt=0"`
			Notes    string `json:"notes"`
		} `json:"items" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var order models.Order
	err := oc.DB.Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.First(&table, req.TableID).Error; err != nil {
			return fmt.Errorf("table not found: %w", err)
		}
		if table.Status != models.TableOccupied {
			return fmt.Errorf("table %s is %s, orders need an occupied table", table.TableNumber, table.Status)
		}

		order = models.Order{
			TableID:       req.TableID,
			ReservationID: req.ReservationID,
			Status:        models.OrderOpen,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		var total float64
		for _, item := range req.Items {
			var menu models.Menu
			if err := tx.First(&menu, item.MenuID).Error; err != nil {
				return fmt.Errorf("menu item %d not found: %w", item.MenuID, err)
			}
			if !menu.Available {
				return fmt.Errorf("menu item %s is not available", menu.Name)
			}

			orderItem := models.OrderItem{
				OrderID:   order.ID,
				MenuID:    menu.ID,
				Quantity:  item.Quantity,
				UnitPrice: menu.Price,
				Notes:     item.Notes,
			}
			if err := tx.Create(&orderItem).Error; err != nil {
				return err
			}
			total += menu.Price * float64(item.Quantity)
		}

		return tx.Model(&order).Update("total_amount", total).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusUnprocessableEntity, err)
		return
	}

	oc.DB.Preload("OrderItems.Menu").Preload("Table").First(&order, order.ID)
	realtime.BroadcastOrderUpdate(order)

	utils.InfoLogger.Printf("Order %d opened on table %d (total=%.2f)", order.ID, order.TableID, order.TotalAmount)
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// GetAllOrders lists orders with optional status/table filters.
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	q := oc.DB.Preload("OrderItems.Menu").Preload("Table")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if tid := c.Query("table_id"); tid != "" {
		q = q.Where("table_id = ?", tid)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// GetOrderByID returns one order with items.
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	var order models.Order
	if err := oc.DB.Preload("OrderItems.Menu").Preload("Table").
		First(&order, c.Param("order_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// UpdateOrderStatus moves an order along OPEN -> IN_KITCHEN -> SERVED ->
// CLOSED.
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var order models.Order
	if err := oc.DB.First(&order, c.Param("order_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	next := models.OrderStatus(body.Status)
	if !models.CanTransitionOrder(order.Status, next) {
		utils.RespondError(c, http.StatusUnprocessableEntity,
			fmt.Errorf("cannot transition order from %s to %s", order.Status, next))
		return
	}

	if err := oc.DB.Model(&order).Update("status", next).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	oc.DB.Preload("OrderItems.Menu").Preload("Table").First(&order, order.ID)
	realtime.BroadcastOrderUpdate(order)
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

// AddOrderItems appends items to an order that has not been closed.
func (oc *OrderController) AddOrderItems(c *gin.Context) {
	var req struct {
		Items []struct {
			MenuID   uint   `json:"menu_id" binding:"required"`
			Quantity int    `json:"quantity" binding:"required,gt=0"`
			Notes    string `json:"notes"`
		} `json:"items" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var order models.Order
	if err := oc.DB.First(&order, c.Param("order_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	if order.Status == models.OrderClosed {
		utils.RespondError(c, http.StatusUnprocessableEntity, errors.New("order is closed"))
		return
	}

	err := oc.DB.Transaction(func(tx *gorm.DB) error {
		total := order.TotalAmount
		for _, item := range req.Items {
			var menu models.Menu
			if err := tx.First(&menu, item.MenuID).Error; err != nil {
				return fmt.Errorf("menu item %d not found: %w", item.MenuID, err)
			}
			orderItem := models.OrderItem{
				OrderID:   order.ID,
				MenuID:    menu.ID,
				Quantity:  item.Quantity,
				UnitPrice: menu.Price,
				Notes:     item.Notes,
			}
			if err := tx.Create(&orderItem).Error; err != nil {
				return err
			}
			total += menu.Price * float64(item.Quantity)
		}
		return tx.Model(&order).Update("total_amount", total).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusUnprocessableEntity, err)
		return
	}

	oc.DB.Preload("OrderItems.Menu").Preload("Table").First(&order, order.ID)
	realtime.BroadcastOrderUpdate(order)
	utils.RespondJSON(c, http.StatusOK, "Items added", order)
}
