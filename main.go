package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"freshcart-backend/internal/checkout"
	"freshcart-backend/internal/config"
	"freshcart-backend/internal/database"
	"freshcart-backend/internal/handlers"
	"freshcart-backend/internal/middleware"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Println("⚠️ order index warning:", err)
	}
	if err := database.EnsureUserIndexes(db); err != nil {
		log.Println("⚠️ user index warning:", err)
	}
	if err := database.EnsureAddressIndexes(db); err != nil {
		log.Println("⚠️ address index warning:", err)
	}

	gateway := checkout.NewStripeGateway(
		config.AppEnv.StripeSecretKey,
		config.AppEnv.StripeWebhookSecret,
		config.AppEnv.FrontendURL,
	)
	coordinator := checkout.NewCoordinator(gateway, database.NewOrderStore(db), database.NewCartStore(db))

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "Server is online at " + config.AppEnv.Port})
	})

	order := r.Group("/api/order")
	// The webhook stays outside auth: the provider signs its deliveries
	// instead of carrying a user token.
	order.POST("/webhook", handlers.StripeWebhook(coordinator))

	orderAuth := order.Group("")
	orderAuth.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		orderAuth.POST("/cash-on-delivery", handlers.CashOnDeliveryOrder(db, coordinator))
		orderAuth.POST("/checkout", handlers.Checkout(db, coordinator))
		orderAuth.POST("/verify-payment", handlers.VerifyPayment(coordinator))
		orderAuth.GET("/order-list", handlers.GetOrderList(db))
	}

	address := r.Group("/api/address")
	address.Use(middleware.UserAuth(config.AppEnv.JWTSecret))
	{
		address.POST("/create", handlers.CreateAddress(db))
		address.GET("/get", handlers.GetAddresses(db))
		address.PUT("/update", handlers.UpdateAddress(db))
		address.DELETE("/disable", handlers.DisableAddress(db))
	}

	r.Run(":" + config.AppEnv.Port)
}

func allowedOrigins() []string {
	origins := []string{"http://localhost:5173", "http://localhost:3000"}
	if config.AppEnv.FrontendURL != "" {
		origins = append([]string{config.AppEnv.FrontendURL}, origins...)
	}
	return origins
}
