package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/019ec6e2/dynamic-nft-generator/internal/domain"
	"github.com/019ec6e2/dynamic-nft-generator/internal/metaplex"
	"github.com/019ec6e2/dynamic-nft-generator/internal/observability"
)

// Webhook ingests externally-pushed events: a single event object or an array.
// Recognized NFT_SALE events trigger a direct metadata update for the sold
// asset. This path intentionally bypasses the transaction store and the
// polling engine's seen-set; concurrent webhook calls for the same asset are
// not serialized.
func (h *Handlers) Webhook(c *gin.Context) {
	requestID := uuid.NewString()[:8]
	receivedAt := time.Now().UTC()
	log := h.logger.WithField("request_id", requestID)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		observability.RecordWebhookEvent("error")
		log.WithError(err).Error("webhook body read failed")
		c.JSON(http.StatusInternalServerError, webhookError(requestID, "Internal server error", err.Error(), receivedAt))
		return
	}

	events, err := decodeWebhookEvents(body)
	if err != nil {
		observability.RecordWebhookEvent("invalid")
		log.WithError(err).Error("webhook payload decode failed")
		c.JSON(http.StatusBadRequest, webhookError(requestID, "Invalid webhook payload", err.Error(), receivedAt))
		return
	}

	for i := range events {
		event := &events[i]
		if event.Type != domain.WebhookTypeNFTSale {
			continue
		}

		if issues := event.ValidateNFTSale(); len(issues) > 0 {
			observability.RecordWebhookEvent("invalid")
			log.WithField("issues", issues).Error("nft sale validation failed")
			c.JSON(http.StatusBadRequest, gin.H{
				"status":    "error",
				"message":   "Invalid NFT sale webhook payload",
				"requestId": requestID,
				"details":   issues,
			})
			return
		}

		sale := event.Events.NFT
		assetID := sale.NFTs[0].Mint

		log.WithFields(logrus.Fields{
			"event_type":  event.Type,
			"asset":       assetID,
			"amount":      sale.Amount,
			"buyer":       sale.Buyer,
			"seller":      sale.Seller,
			"source":      sale.Source,
			"description": sale.Description,
		}).Info("nft sale webhook received")

		result := h.updater.Update(c.Request.Context(), metaplex.UpdateParams{AssetID: assetID})
		if !result.Success {
			observability.RecordWebhookEvent("error")
			log.WithError(result.Err).Error("webhook metadata update failed")
			c.JSON(http.StatusInternalServerError, webhookError(requestID, "Internal server error", result.Err.Error(), receivedAt))
			return
		}

		observability.RecordWebhookEvent("handled")
		c.JSON(http.StatusOK, gin.H{
			"status":    "success",
			"message":   "NFT sale event processed",
			"requestId": requestID,
			"details": gin.H{
				"assetId":   assetID,
				"timestamp": receivedAt,
			},
		})
		return
	}

	// Non-sale webhooks are logged and accepted.
	eventType := "unknown"
	if len(events) > 0 && events[0].Type != "" {
		eventType = events[0].Type
	}
	observability.RecordWebhookEvent("ignored")
	log.WithField("event_type", eventType).Info("webhook received")
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"message":   "Webhook received",
		"requestId": requestID,
		"details": gin.H{
			"type":      eventType,
			"timestamp": receivedAt,
		},
	})
}

// decodeWebhookEvents accepts either a single event object or an array.
func decodeWebhookEvents(body []byte) ([]domain.WebhookEvent, error) {
	var events []domain.WebhookEvent
	if err := json.Unmarshal(body, &events); err == nil {
		return events, nil
	}

	var single domain.WebhookEvent
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, err
	}
	return []domain.WebhookEvent{single}, nil
}

func webhookError(requestID, message, detail string, ts time.Time) gin.H {
	return gin.H{
		"status":    "error",
		"message":   message,
		"requestId": requestID,
		"details": gin.H{
			"error":     detail,
			"timestamp": ts,
		},
	}
}
