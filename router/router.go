package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tablebook/tablebook/controllers"
	"github.com/tablebook/tablebook/middlewares"
	"github.com/tablebook/tablebook/models"
)

func SetupRouter(db *gorm.DB) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.NewRateLimiter(50, 1).RateLimit())

	userCtrl := controllers.NewUserController(db)
	restaurantCtrl := controllers.NewRestaurantController(db)
	tableCtrl := controllers.NewTableController(db)
	reservationCtrl := controllers.NewReservationController(db)
	availabilityCtrl := controllers.NewAvailabilityController(db)
	categoryCtrl := controllers.NewMenuCategoryController(db)
	menuCtrl := controllers.NewMenuController(db)
	orderCtrl := controllers.NewOrderController(db)
	serviceLogCtrl := controllers.NewServiceLogController(db)
	notificationCtrl := controllers.NewNotificationController(db)
	depositCtrl := controllers.NewDepositController(db)
	adminCtrl := controllers.NewAdminController(db)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	authLimited := r.Group("/")
	authLimited.Use(middlewares.NewStrictRateLimiter())
	{
		authLimited.POST("/register", userCtrl.Register)
		authLimited.POST("/login", userCtrl.Login)
	}

	// Browsing and booking need no account.
	r.GET("/restaurants", restaurantCtrl.GetAllRestaurants)
	r.GET("/restaurants/:restaurant_id", restaurantCtrl.GetRestaurantByID)
	r.GET("/categories", categoryCtrl.GetAllCategories)
	r.GET("/menus", menuCtrl.GetAllMenus)
	r.GET("/menus/:menu_id", menuCtrl.GetMenuByID)
	r.GET("/tables", tableCtrl.GetAllTables)

	r.POST("/reservations/check-availability", availabilityCtrl.CheckAvailability)
	r.POST("/reservations/available-tables", availabilityCtrl.FindAvailableTables)
	r.POST("/reservations", reservationCtrl.CreateReservation)
	r.GET("/reservations/:reservation_id", reservationCtrl.GetReservationByID)

	// Gateway notifications authenticate with a signature, not a JWT.
	r.POST("/deposits/callback", depositCtrl.HandleGatewayCallback)

	ws := r.Group("/ws")
	ws.Use(middlewares.WebSocketAuthMiddleware())
	{
		ws.GET("/dashboard", controllers.DashboardHandler)
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/")
	auth.Use(middlewares.AuthMiddleware())

	auth.POST("/logout", userCtrl.Logout)
	auth.GET("/profile", userCtrl.GetProfile)
	auth.GET("/users", userCtrl.GetAllUsers)

	// Cancellation is open to the booking customer as well as staff.
	auth.POST("/reservations/:reservation_id/cancel", reservationCtrl.CancelReservation)
	auth.POST("/reservations/:reservation_id/deposit", depositCtrl.CreateDeposit)
	auth.GET("/reservations/:reservation_id/deposit", depositCtrl.GetDeposit)

	owner := auth.Group("/")
	owner.Use(middlewares.RequireRoles(models.RoleOwner))
	{
		owner.POST("/restaurants", restaurantCtrl.CreateRestaurant)
		owner.PATCH("/restaurants/:restaurant_id", restaurantCtrl.UpdateRestaurant)

		owner.POST("/categories", categoryCtrl.CreateCategory)
		owner.PATCH("/categories/:cat_id", categoryCtrl.UpdateCategory)
		owner.DELETE("/categories/:cat_id", categoryCtrl.DeleteCategory)
		owner.POST("/menus", menuCtrl.CreateMenu)
		owner.PATCH("/menus/:menu_id", menuCtrl.UpdateMenu)
		owner.DELETE("/menus/:menu_id", menuCtrl.DeleteMenu)
	}

	staff := auth.Group("/")
	staff.Use(middlewares.RequireRoles(models.RoleStaff, models.RoleOwner))
	{
		staff.POST("/tables", tableCtrl.CreateTable)
		staff.GET("/tables/stats", tableCtrl.GetFloorStats)
		staff.GET("/tables/:table_id", tableCtrl.GetTableByID)
		staff.PATCH("/tables/:table_id", tableCtrl.UpdateTable)
		staff.DELETE("/tables/:table_id", tableCtrl.DeleteTable)

		// Table status transitions live under the reservations prefix
		// the floor dashboard already talks to.
		staff.PATCH("/reservations/tables/:table_id", tableCtrl.UpdateTableStatus)

		staff.GET("/reservations", reservationCtrl.GetAllReservations)
		staff.GET("/reservations/restaurant/:restaurant_id/daily", reservationCtrl.GetDailyReservations)
		staff.PATCH("/reservations/:reservation_id", reservationCtrl.UpdateReservation)
		staff.PATCH("/reservations/:reservation_id/status", reservationCtrl.UpdateReservationStatus)
		staff.POST("/reservations/:reservation_id/check-in", reservationCtrl.CheckInReservation)
		staff.POST("/reservations/:reservation_id/assign-table", reservationCtrl.AssignTable)

		staff.GET("/service-logs", serviceLogCtrl.GetAllServiceLogs)
		staff.POST("/service-logs/:log_id/claim", serviceLogCtrl.ClaimServiceLog)
		staff.POST("/service-logs/:log_id/finish", serviceLogCtrl.FinishServiceLog)
		staff.DELETE("/service-logs/:log_id", serviceLogCtrl.DeleteServiceLog)

		staff.POST("/orders", orderCtrl.CreateOrder)
		staff.GET("/orders", orderCtrl.GetAllOrders)
		staff.GET("/orders/:order_id", orderCtrl.GetOrderByID)
		staff.PATCH("/orders/:order_id/status", orderCtrl.UpdateOrderStatus)
		staff.POST("/orders/:order_id/items", orderCtrl.AddOrderItems)

		staff.GET("/notifications", notificationCtrl.GetAllNotifications)
		staff.POST("/notifications", notificationCtrl.CreateNotification)
		staff.POST("/notifications/:notif_id/read", notificationCtrl.MarkNotificationRead)
		staff.DELETE("/notifications/:notif_id", notificationCtrl.DeleteNotification)
	}

	admin := auth.Group("/admin")
	admin.Use(middlewares.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/dashboard/stats", adminCtrl.GetDashboardStats)
		admin.GET("/reports/chart", adminCtrl.GetReservationChart)
		admin.GET("/reports/daily-pdf", adminCtrl.ExportDailyPDF)
	}

	return r
}
