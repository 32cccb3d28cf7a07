package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tablebook/tablebook/middlewares"
	"github.com/tablebook/tablebook/models"
	"github.com/tablebook/tablebook/utils"
)

type RestaurantController struct {
	DB *gorm.DB
}

func NewRestaurantController(db *gorm.DB) *RestaurantController {
	return &RestaurantController{DB: db}
}

// CreateRestaurant registers a venue owned by the calling user.
func (rc *RestaurantController) CreateRestaurant(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Address  string `json:"address"`
		Phone    string `json:"phone"`
		OpensAt  string `json:"opens_at"`
		ClosesAt string `json:"closes_at"`
		Timezone string `json:"timezone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	ownerID, ok := middlewares.UserIDFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("user id not found in context"))
		return
	}

	restaurant := models.Restaurant{
		OwnerID:  ownerID,
		Name:     req.Name,
		Address:  req.Address,
		Phone:    req.Phone,
		OpensAt:  "10:00",
		ClosesAt: "22:00",
		Timezone: "UTC",
	}
	if req.OpensAt != "" {
		restaurant.OpensAt = req.OpensAt
	}
	if req.ClosesAt != "" {
		restaurant.ClosesAt = req.ClosesAt
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		restaurant.Timezone = req.Timezone
	}

	if err := rc.DB.Create(&restaurant).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Restaurant created: %s (owner=%d)", restaurant.Name, ownerID)
	utils.RespondJSON(c, http.StatusCreated, "Restaurant created", restaurant)
}

// GetAllRestaurants lists venues.
func (rc *RestaurantController) GetAllRestaurants(c *gin.Context) {
	var restaurants []models.Restaurant
	if err := rc.DB.Find(&restaurants).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of restaurants", restaurants)
}

// GetRestaurantByID returns one venue.
func (rc *RestaurantController) GetRestaurantByID(c *gin.Context) {
	var restaurant models.Restaurant
	if err := rc.DB.First(&restaurant, c.Param("restaurant_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Restaurant detail", restaurant)
}

// UpdateRestaurant edits venue details, owner or admin only.
func (rc *RestaurantController) UpdateRestaurant(c *gin.Context) {
	var restaurant models.Restaurant
	if err := rc.DB.First(&restaurant, c.Param("restaurant_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	if !rc.canManage(c, restaurant) {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var body struct {
		Name     *string `json:"name"`
		Address  *string `json:"address"`
		Phone    *string `json:"phone"`
		OpensAt  *string `json:"opens_at"`
		ClosesAt *string `json:"closes_at"`
		Timezone *string `json:"timezone"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if body.Name != nil {
		restaurant.Name = *body.Name
	}
	if body.Address != nil {
		restaurant.Address = *body.Address
	}
	if body.Phone != nil {
		restaurant.Phone = *body.Phone
	}
	if body.OpensAt != nil {
		restaurant.OpensAt = *body.OpensAt
	}
	if body.ClosesAt != nil {
		restaurant.ClosesAt = *body.ClosesAt
	}
	if body.Timezone != nil {
		if _, err := time.LoadLocation(*body.Timezone); err != nil {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		restaurant.Timezone = *body.Timezone
	}

	if err := rc.DB.Save(&restaurant).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Restaurant updated", restaurant)
}

func (rc *RestaurantController) canManage(c *gin.Context, restaurant models.Restaurant) bool {
	role, _ := middlewares.RoleFromContext(c)
	if role == models.RoleAdmin {
		return true
	}
	userID, ok := middlewares.UserIDFromContext(c)
	return ok && role == models.RoleOwner && restaurant.OwnerID == userID
}
