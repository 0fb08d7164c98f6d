package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"freshcart-backend/internal/checkout"
	"freshcart-backend/internal/database"
	"freshcart-backend/internal/models"
)

/* =========================
   REQUEST DTOs
========================= */

type orderProductRequest struct {
	ID       string   `json:"_id" binding:"required"`
	Name     string   `json:"name"`
	Image    []string `json:"image"`
	Price    float64  `json:"price"`
	Discount float64  `json:"discount"`
}

type orderLineRequest struct {
	ProductID orderProductRequest `json:"productId" binding:"required"`
	Quantity  int64               `json:"quantity" binding:"required,gt=0"`
}

type checkoutRequest struct {
	ListItems   []orderLineRequest `json:"list_items" binding:"required"`
	AddressID   string             `json:"addressId" binding:"required"`
	SubTotalAmt float64            `json:"subTotalAmt"`
	TotalAmt    float64            `json:"totalAmt"`
}

type verifyPaymentRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

func cartLinesFromRequest(items []orderLineRequest) ([]checkout.CartLine, error) {
	lines := make([]checkout.CartLine, 0, len(items))
	for _, item := range items {
		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(item.ProductID.ID))
		if err != nil {
			return nil, errors.New("invalid productId")
		}
		lines = append(lines, checkout.CartLine{
			ProductID: productID,
			Name:      item.ProductID.Name,
			Image:     item.ProductID.Image,
			Price:     item.ProductID.Price,
			Discount:  item.ProductID.Discount,
			Quantity:  item.Quantity,
		})
	}
	return lines, nil
}

/* =========================
   CASH ON DELIVERY
========================= */

func CashOnDeliveryOrder(db *mongo.Database, co *checkout.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/order/cash-on-delivery"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		addressID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.AddressID))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid addressId")
			return
		}

		lines, err := cartLinesFromRequest(req.ListItems)
		if err != nil {
			respondError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		orders, err := co.PlaceCashOnDelivery(ctx, lines, userID, addressID, req.SubTotalAmt, req.TotalAmt)
		if err != nil {
			var cartErr checkout.InvalidCartError
			if errors.As(err, &cartErr) {
				respondError(c, http.StatusBadRequest, route, cartErr.Error())
				return
			}
			log.Printf("[%s] order creation failed: %v", route, err)
			respondError(c, http.StatusInternalServerError, route, "order creation failed")
			return
		}

		log.Println("[ORDER] [INFO] COD orders created:", len(orders), "for user:", userID.Hex())
		c.JSON(http.StatusOK, gin.H{
			"message": "Order successfully",
			"error":   false,
			"success": true,
			"data":    orders,
		})
	}
}

/* =========================
   STRIPE CHECKOUT
========================= */

func Checkout(db *mongo.Database, co *checkout.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/order/checkout"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		addressID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.AddressID))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "Delivery address is required")
			return
		}

		lines, err := cartLinesFromRequest(req.ListItems)
		if err != nil {
			respondError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			respondError(c, http.StatusNotFound, route, "User not found")
			return
		}

		handle, err := co.StartCheckout(c.Request.Context(), lines, user.Email, userID, addressID)
		if err != nil {
			var cartErr checkout.InvalidCartError
			if errors.As(err, &cartErr) {
				respondError(c, http.StatusBadRequest, route, cartErr.Error())
				return
			}
			log.Printf("[%s] session creation failed: %v", route, err)
			respondError(c, http.StatusBadGateway, route, "Payment processing failed")
			return
		}

		log.Println("[ORDER] [INFO] checkout session created:", handle.ID)
		c.JSON(http.StatusOK, handle)
	}
}

/* =========================
   VERIFY PAYMENT
========================= */

func VerifyPayment(co *checkout.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/order/verify-payment"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req verifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, route, "Session ID is required")
			return
		}

		orders, alreadyProcessed, err := co.Verify(c.Request.Context(), req.SessionID, userID)
		if err != nil {
			var (
				incompleteErr checkout.PaymentIncompleteError
				authErr       checkout.AuthorizationError
				notFoundErr   checkout.NotFoundError
				gatewayErr    checkout.GatewayError
			)
			switch {
			case errors.As(err, &incompleteErr):
				respondError(c, http.StatusBadRequest, route, "Payment not completed")
			case errors.As(err, &authErr):
				respondError(c, http.StatusForbidden, route, "Unauthorized access")
			case errors.As(err, &notFoundErr):
				respondError(c, http.StatusNotFound, route, "Session not found")
			case errors.As(err, &gatewayErr):
				log.Printf("[%s] gateway failure: %v", route, err)
				respondError(c, http.StatusBadGateway, route, "Failed to complete order")
			default:
				log.Printf("[%s] verification failed: %v", route, err)
				respondError(c, http.StatusInternalServerError, route, "Failed to complete order")
			}
			return
		}

		if alreadyProcessed {
			c.JSON(http.StatusOK, gin.H{
				"message": "Order already processed",
				"error":   false,
				"success": false,
				"data":    orders,
			})
			return
		}

		log.Println("[ORDER] [INFO] orders completed:", len(orders), "for user:", userID.Hex())
		c.JSON(http.StatusOK, gin.H{
			"message": "Order completed successfully",
			"error":   false,
			"success": true,
			"data":    orders,
		})
	}
}

/* =========================
   STRIPE WEBHOOK
========================= */

// StripeWebhook receives provider deliveries on the raw body so the
// signature can be verified. Any parsed event is acknowledged with
// received:true even when downstream processing failed.
func StripeWebhook(co *checkout.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/order/webhook"
		defer handlePanic(c, route)

		payload, err := c.GetRawData()
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "unreadable payload")
			return
		}

		if err := co.HandleWebhookEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
			var sigErr checkout.SignatureError
			if errors.As(err, &sigErr) {
				respondError(c, http.StatusBadRequest, route, "webhook signature verification failed")
				return
			}
			respondError(c, http.StatusBadRequest, route, "invalid webhook payload")
			return
		}

		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

/* =========================
   ORDER LIST
========================= */

// orderView is an order with delivery_address resolved to the full record.
type orderView struct {
	models.Order
	DeliveryAddress *models.Address `json:"delivery_address"`
}

func GetOrderList(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/order/order-list"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		orders, err := database.NewOrderStore(db).ListByUser(ctx, userID)
		if err != nil {
			log.Printf("[%s] listing orders failed: %v", route, err)
			respondError(c, http.StatusInternalServerError, route, "Orders could not be fetched")
			return
		}

		addressByID, err := resolveAddresses(ctx, db, orders)
		if err != nil {
			log.Printf("[%s] resolving addresses failed: %v", route, err)
			respondError(c, http.StatusInternalServerError, route, "Orders could not be fetched")
			return
		}

		views := make([]orderView, 0, len(orders))
		for _, order := range orders {
			view := orderView{Order: order}
			if address, exists := addressByID[order.DeliveryAddress]; exists {
				view.DeliveryAddress = &address
			}
			views = append(views, view)
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "order list",
			"error":   false,
			"success": true,
			"data":    views,
		})
	}
}

func resolveAddresses(ctx context.Context, db *mongo.Database, orders []models.Order) (map[primitive.ObjectID]models.Address, error) {
	ids := make([]primitive.ObjectID, 0, len(orders))
	seen := make(map[primitive.ObjectID]struct{}, len(orders))
	for _, order := range orders {
		if order.DeliveryAddress.IsZero() {
			continue
		}
		if _, dup := seen[order.DeliveryAddress]; dup {
			continue
		}
		seen[order.DeliveryAddress] = struct{}{}
		ids = append(ids, order.DeliveryAddress)
	}

	addressByID := make(map[primitive.ObjectID]models.Address, len(ids))
	if len(ids) == 0 {
		return addressByID, nil
	}

	cursor, err := db.Collection("addresses").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var addresses []models.Address
	if err := cursor.All(ctx, &addresses); err != nil {
		return nil, err
	}
	for _, address := range addresses {
		addressByID[address.ID] = address
	}
	return addressByID, nil
}
