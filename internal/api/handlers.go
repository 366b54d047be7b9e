package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/019ec6e2/dynamic-nft-generator/internal/fetcher"
	"github.com/019ec6e2/dynamic-nft-generator/internal/metaplex"
	"github.com/019ec6e2/dynamic-nft-generator/internal/storage"
)

// recentLimit caps the gallery listing.
const recentLimit = 20

// Handlers holds the dependencies of all HTTP handlers.
type Handlers struct {
	store   storage.TransactionStore
	prompts fetcher.PromptSource
	artwork fetcher.ArtifactProducer
	updater fetcher.MetadataUpdater
	logger  logrus.FieldLogger
}

// NewHandlers creates the handler set.
func NewHandlers(
	store storage.TransactionStore,
	prompts fetcher.PromptSource,
	artwork fetcher.ArtifactProducer,
	updater fetcher.MetadataUpdater,
	logger logrus.FieldLogger,
) *Handlers {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handlers{
		store:   store,
		prompts: prompts,
		artwork: artwork,
		updater: updater,
		logger:  logger,
	}
}

// Health reports process liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// transactionView is the gallery listing shape.
type transactionView struct {
	TransactionID string    `json:"transaction_id"`
	Mint          string    `json:"mint"`
	Buyer         string    `json:"buyer"`
	Seller        string    `json:"seller"`
	Timestamp     time.Time `json:"timestamp"`
	ImageURL      *string   `json:"imageUrl"`
}

// RecentTransactions lists the newest sales, newest first.
func (h *Handlers) RecentTransactions(c *gin.Context) {
	txs, err := h.store.ListRecent(c.Request.Context(), recentLimit)
	if err != nil {
		h.logger.WithError(err).Error("list recent transactions failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch transactions",
			"details": err.Error(),
		})
		return
	}

	views := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, transactionView{
			TransactionID: tx.Signature,
			Mint:          tx.Mint,
			Buyer:         tx.Buyer,
			Seller:        tx.Seller,
			Timestamp:     tx.OccurredAt,
			ImageURL:      tx.ImageURL,
		})
	}
	c.JSON(http.StatusOK, views)
}

// GenerateImage produces a fresh artwork from a random prompt.
func (h *Handlers) GenerateImage(c *gin.Context) {
	imageURL, err := h.artwork.Produce(c.Request.Context(), h.prompts.Next())
	if err != nil {
		h.logger.WithError(err).Error("image generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to generate image",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imageUrl": imageURL})
}

// RegenerateImage produces a new artwork for an existing sale and rewrites its
// artifact reference. This is the explicit exception to "image set once".
func (h *Handlers) RegenerateImage(c *gin.Context) {
	signature := c.Param("transactionId")
	ctx := c.Request.Context()

	if _, err := h.store.GetBySignature(ctx, signature); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}
		h.logger.WithError(err).Error("transaction lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to regenerate image",
			"details": err.Error(),
		})
		return
	}

	imageURL, err := h.artwork.Produce(ctx, h.prompts.Next())
	if err != nil {
		h.logger.WithError(err).Error("image regeneration failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to regenerate image",
			"details": err.Error(),
		})
		return
	}

	if err := h.store.SetImageURL(ctx, signature, imageURL); err != nil {
		h.logger.WithError(err).Error("image url update failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to regenerate image",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"imageUrl": imageURL})
}

// UpdateMetadata re-runs the on-chain metadata update for a recorded sale and
// marks it evolved. Safe to repeat: the evolution flag is idempotent.
func (h *Handlers) UpdateMetadata(c *gin.Context) {
	signature := c.Param("transactionId")
	ctx := c.Request.Context()

	tx, err := h.store.GetBySignature(ctx, signature)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}
		h.logger.WithError(err).Error("transaction lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to update metadata",
			"details": err.Error(),
		})
		return
	}

	params := metaplex.UpdateParams{AssetID: tx.Mint}
	if tx.ImageURL != nil {
		params.NewURI = tx.ImageURL
	}

	result := h.updater.Update(ctx, params)
	if !result.Success {
		h.logger.WithError(result.Err).WithField("signature", signature).Error("metadata update failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to update metadata",
			"details": result.Err.Error(),
		})
		return
	}

	if err := h.store.MarkEvolved(ctx, signature); err != nil {
		h.logger.WithError(err).Error("mark evolved failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to update metadata",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Metadata updated successfully",
	})
}
