package stubserver

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// buildRouter wires the storefront API routes.
func buildRouter(logger *log.Logger, st *state) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PATCH", "DELETE"},
		AllowHeaders:    []string{"Authorization", "Content-Type"},
		MaxAge:          12 * time.Hour,
	}))

	router.GET("/healthz", healthHandler)

	customer := router.Group("/customer")
	customer.POST("/auth/send-otp", sendOTPHandler(st, logger))
	customer.POST("/auth/verify-otp", verifyOTPHandler(st))

	authed := customer.Group("", requireAuth(st))
	authed.POST("/auth/logout", logoutHandler(st))
	authed.GET("/me", getMeHandler(st))
	authed.PATCH("/me", patchMeHandler(st))
	authed.GET("/me/status", statusHandler(st))
	authed.GET("/settings", settingsHandler(st))
	authed.GET("/addresses", listAddressesHandler(st))
	authed.POST("/addresses", createAddressHandler(st))
	authed.PATCH("/addresses/:id", updateAddressHandler(st))
	authed.DELETE("/addresses/:id", deleteAddressHandler(st))
	authed.GET("/items", listItemsHandler(st))
	authed.GET("/items/search", searchItemsHandler(st))
	authed.GET("/categories", listCategoriesHandler(st))
	authed.GET("/categories/:category/items", categoryItemsHandler(st))
	authed.POST("/orders", createOrderHandler(st))
	authed.GET("/orders", listOrdersHandler(st))

	return router
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// errJSON writes the error body shape the client normalizes.
func errJSON(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code})
}
