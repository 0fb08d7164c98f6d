package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"freshcart-backend/internal/models"
)

type addressRequest struct {
	AddressLine string `json:"address_line" binding:"required"`
	City        string `json:"city" binding:"required"`
	State       string `json:"state" binding:"required"`
	Pincode     string `json:"pincode" binding:"required"`
	Country     string `json:"country" binding:"required"`
	Mobile      string `json:"mobile"`
}

type addressUpdateRequest struct {
	ID string `json:"_id" binding:"required"`
	addressRequest
}

type addressDisableRequest struct {
	ID string `json:"_id" binding:"required"`
}

func CreateAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/address/create"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		now := time.Now()
		address := models.Address{
			AddressLine: strings.TrimSpace(req.AddressLine),
			City:        strings.TrimSpace(req.City),
			State:       strings.TrimSpace(req.State),
			Pincode:     strings.TrimSpace(req.Pincode),
			Country:     strings.TrimSpace(req.Country),
			Mobile:      strings.TrimSpace(req.Mobile),
			Status:      true,
			UserID:      userID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		res, err := db.Collection("addresses").InsertOne(ctx, address)
		if err != nil {
			log.Println("[ADDRESS] [ERROR] insert address failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			address.ID = id
		}

		_, err = db.Collection("users").UpdateByID(ctx, userID, bson.M{
			"$push": bson.M{"address_details": address.ID},
			"$set":  bson.M{"updatedAt": now},
		})
		if err != nil {
			log.Println("[ADDRESS] [ERROR] linking address to user failed:", err)
		}

		log.Println("[ADDRESS] [INFO] address created:", address.ID.Hex())
		c.JSON(http.StatusCreated, gin.H{
			"message": "Address created successfully",
			"error":   false,
			"success": true,
			"data":    address,
		})
	}
}

func GetAddresses(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /api/address/get"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
		cursor, err := db.Collection("addresses").Find(ctx, bson.M{
			"userId": userID,
			"status": true,
		}, opts)
		if err != nil {
			log.Println("[ADDRESS] [ERROR] list addresses failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		addresses := []models.Address{}
		if err := cursor.All(ctx, &addresses); err != nil {
			log.Println("[ADDRESS] [ERROR] decode addresses failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "address list",
			"error":   false,
			"success": true,
			"data":    addresses,
		})
	}
}

func UpdateAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /api/address/update"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req addressUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		addressID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ID))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid address id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("addresses").UpdateOne(ctx,
			bson.M{"_id": addressID, "userId": userID},
			bson.M{"$set": bson.M{
				"address_line": strings.TrimSpace(req.AddressLine),
				"city":         strings.TrimSpace(req.City),
				"state":        strings.TrimSpace(req.State),
				"pincode":      strings.TrimSpace(req.Pincode),
				"country":      strings.TrimSpace(req.Country),
				"mobile":       strings.TrimSpace(req.Mobile),
				"updatedAt":    time.Now(),
			}},
		)
		if err != nil {
			log.Println("[ADDRESS] [ERROR] update address failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondError(c, http.StatusNotFound, route, "address not found")
			return
		}

		log.Println("[ADDRESS] [INFO] address updated:", addressID.Hex())
		c.JSON(http.StatusOK, gin.H{
			"message": "Address updated successfully",
			"error":   false,
			"success": true,
		})
	}
}

// DisableAddress soft-disables an address instead of deleting it so past
// orders keep resolving their delivery address.
func DisableAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /api/address/disable"
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req addressDisableRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		addressID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ID))
		if err != nil {
			respondError(c, http.StatusBadRequest, route, "invalid address id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("addresses").UpdateOne(ctx,
			bson.M{"_id": addressID, "userId": userID},
			bson.M{"$set": bson.M{"status": false, "updatedAt": time.Now()}},
		)
		if err != nil {
			log.Println("[ADDRESS] [ERROR] disable address failed:", err)
			respondError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondError(c, http.StatusNotFound, route, "address not found")
			return
		}

		log.Println("[ADDRESS] [INFO] address disabled:", addressID.Hex())
		c.JSON(http.StatusOK, gin.H{
			"message": "Address removed",
			"error":   false,
			"success": true,
		})
	}
}
