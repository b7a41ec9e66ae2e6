package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrilink/sentinel/internal/paymentrisk"
	"github.com/agrilink/sentinel/internal/routeanomaly"
)

// assessPaymentHandler handles POST /v1/risk/payment
func (s *Server) assessPaymentHandler(c *gin.Context) {
	var order paymentrisk.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain orderId, buyerId and amount",
		})
		return
	}
	if order.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_amount",
			"message": "amount must be positive",
		})
		return
	}

	// Assess never fails: orchestration errors degrade to a conservative
	// manual-review assessment with Error set.
	result := s.paymentSvc.AssessOrder(c.Request.Context(), order)
	c.JSON(http.StatusOK, result)
}

// assessRouteHandler handles POST /v1/risk/route
func (s *Server) assessRouteHandler(c *gin.Context) {
	var shipment routeanomaly.Shipment
	if err := c.ShouldBindJSON(&shipment); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain transportId",
		})
		return
	}

	result := s.routeSvc.AssessShipment(c.Request.Context(), shipment)
	c.JSON(http.StatusOK, result)
}
