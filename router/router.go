package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-ops/cart"
	"github.com/yeremiapane/restaurant-ops/config"
	"github.com/yeremiapane/restaurant-ops/controllers"
	"github.com/yeremiapane/restaurant-ops/events"
	"github.com/yeremiapane/restaurant-ops/kds"
	"github.com/yeremiapane/restaurant-ops/middlewares"
	"github.com/yeremiapane/restaurant-ops/services"
	"github.com/yeremiapane/restaurant-ops/session"
	"github.com/yeremiapane/restaurant-ops/storage"
)

// Deps is everything the HTTP layer needs. main builds it once.
type Deps struct {
	Config      *config.Config
	Bus         *events.Bus
	Hub         *kds.Hub
	Carts       *cart.Store
	Blobs       storage.BlobStore
	Users       *services.UserService
	Restaurants *services.RestaurantService
	Menu        *services.MenuService
	Tables      *services.TableService
	Orders      *services.OrderService
	Views       *services.ViewService
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Only image files are served from the uploads directory.
	r.Use(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/uploads/") && !storage.IsImagePath(c.Request.URL.Path) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	})
	r.Static("/uploads", d.Config.UploadDir)

	r.Use(middlewares.SecurityHeaders(d.Config.GinMode == gin.ReleaseMode))
	r.Use(middlewares.CORSMiddlewares(d.Config.CORSOrigins))
	r.Use(middlewares.LoggerMiddleware())

	userCtrl := controllers.NewUserController(d.Users)
	restaurantCtrl := controllers.NewRestaurantController(d.Restaurants)
	menuCtrl := controllers.NewMenuController(d.Menu)
	tableCtrl := controllers.NewTableController(d.Tables)
	orderCtrl := controllers.NewOrderController(d.Orders)
	cartCtrl := controllers.NewCartController(d.Carts, d.Restaurants, d.Menu, d.Orders)
	adminCtrl := controllers.NewAdminController(d.Views)
	uploadCtrl := controllers.NewUploadController(d.Blobs)
	kdsCtrl := controllers.NewKDSController(d.Hub, d.Bus, d.Views, d.Orders, d.Config.ViewSyncMode, d.Config.CORSOrigins)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := r.Group("/api")
	api.Use(middlewares.NewRateLimiter(d.Config.RateLimitPerMinute, d.Config.RateLimitPerMinute/4+1).RateLimit())

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	authPublic := api.Group("/auth")
	authPublic.Use(middlewares.NewStrictRateLimiter())
	{
		authPublic.POST("/register", userCtrl.Register)
		authPublic.POST("/login", userCtrl.Login)
	}

	// Customer pages need no login.
	customer := api.Group("/restaurants/:restaurant_id")
	{
		customer.GET("", restaurantCtrl.GetPublic)
		customer.GET("/menu", menuCtrl.Browse)
		customer.GET("/menu/categories", menuCtrl.Categories)
		customer.GET("/tables", tableCtrl.ListPublic)
		customer.POST("/orders", orderCtrl.SubmitPublic)
		customer.POST("/carts", cartCtrl.Create)
	}

	carts := api.Group("/carts/:cart_id")
	{
		carts.GET("", cartCtrl.Get)
		carts.POST("/items", cartCtrl.AddItem)
		carts.DELETE("/items/:menu_item_id", cartCtrl.RemoveItem)
		carts.PUT("/items/:menu_item_id/instructions", cartCtrl.SetInstructions)
		carts.POST("/checkout", cartCtrl.Checkout)
		carts.DELETE("", cartCtrl.Discard)
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := api.Group("")
	auth.Use(middlewares.AuthMiddleware())
	{
		auth.GET("/auth/profile", userCtrl.GetProfile)
		auth.POST("/auth/logout", userCtrl.Logout)
		auth.POST("/restaurants", restaurantCtrl.Register)
	}

	staff := auth.Group("")
	staff.Use(middlewares.RestaurantContext(d.Restaurants))

	staff.GET("/session", restaurantCtrl.Session)
	staff.PUT("/restaurant", middlewares.RequireCapability(session.CapViewAdmin), restaurantCtrl.Update)

	staffMgmt := staff.Group("/staff")
	staffMgmt.Use(middlewares.RequireCapability(session.CapManageStaff))
	{
		staffMgmt.GET("", restaurantCtrl.ListStaff)
		staffMgmt.POST("", restaurantCtrl.AddStaff)
		staffMgmt.PATCH("/:staff_id", restaurantCtrl.UpdateStaff)
	}

	menu := staff.Group("/menu")
	menu.Use(middlewares.RequireCapability(session.CapManageMenu))
	{
		menu.GET("", menuCtrl.Manage)
		menu.POST("", menuCtrl.Create)
		menu.PUT("/:item_id", menuCtrl.Update)
		menu.PATCH("/:item_id/availability", menuCtrl.SetAvailability)
		menu.DELETE("/:item_id", menuCtrl.Delete)
	}

	tables := staff.Group("/tables")
	{
		tables.GET("", tableCtrl.List)
		tables.POST("", middlewares.RequireCapability(session.CapManageTables), tableCtrl.Create)
		tables.DELETE("/:table_id", middlewares.RequireCapability(session.CapManageTables), tableCtrl.Delete)
		tables.PATCH("/:table_id/occupancy", middlewares.RequireCapability(session.CapManageTables, session.CapServe), tableCtrl.SetOccupancy)
	}

	// Transition permissions are checked per target status by the order service.
	orders := staff.Group("/orders")
	{
		orders.POST("", middlewares.RequireCapability(session.CapServe), orderCtrl.SubmitStaff)
		orders.GET("/:order_id", orderCtrl.Get)
		orders.PATCH("/:order_id/status", orderCtrl.UpdateStatus)
		orders.POST("/:order_id/advance", orderCtrl.AdvanceNext)
		orders.POST("/:order_id/start-cooking", orderCtrl.StartCooking)
		orders.POST("/:order_id/mark-ready", orderCtrl.MarkReady)
		orders.POST("/:order_id/deliver", orderCtrl.Deliver)
	}

	staff.GET("/views/:view", adminCtrl.GetView)
	staff.GET("/admin/dashboard", middlewares.RequireCapability(session.CapViewAdmin), adminCtrl.GetDashboardStats)
	staff.POST("/uploads/:folder", middlewares.RequireCapability(session.CapManageMenu), uploadCtrl.UploadImage)

	// ----------------------------------------------------------------
	//                      WEBSOCKETS
	// ----------------------------------------------------------------
	ws := r.Group("/ws")
	ws.Use(middlewares.WebSocketAuthMiddleware(), middlewares.RestaurantContext(d.Restaurants))
	{
		ws.GET("/changes", kdsCtrl.Changes)
		ws.GET("/views/:view", kdsCtrl.View)
	}

	return r
}
