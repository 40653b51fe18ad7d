package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wikichain/wikichain/internal/contentstore"
	"github.com/wikichain/wikichain/pkg/logger"
)

// RegisterContentRoutes exposes the content store used for article bodies.
// - POST /store              {content}  -> {cid}
// - GET  /retrieve/:cid                 -> raw content
// - POST /checkAvailability  {cids}     -> {missingCids}
func RegisterContentRoutes(r gin.IRouter, store contentstore.Store) {
	log := logger.Named("content")

	r.POST("/store", func(c *gin.Context) {
		var req struct {
			Content *string `json:"content"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Content == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: 'content' must be a string."})
			return
		}
		cid, err := store.Put(c.Request.Context(), []byte(*req.Content))
		if err != nil {
			log.Errorf("store content: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error storing data"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cid": cid})
	})

	r.GET("/retrieve/:cid", func(c *gin.Context) {
		cid := c.Param("cid")
		b, err := store.Get(c.Request.Context(), cid)
		if errors.Is(err, contentstore.ErrNotFound) {
			c.String(http.StatusNotFound, "Content not found")
			return
		}
		if err != nil {
			log.Errorf("retrieve %q: %v", cid, err)
			c.String(http.StatusInternalServerError, "Error retrieving data")
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", b)
	})

	r.POST("/checkAvailability", func(c *gin.Context) {
		var req struct {
			Cids []string `json:"cids"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Cids == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: 'cids' must be an array."})
			return
		}
		missing, err := contentstore.CheckAvailability(c.Request.Context(), store, req.Cids, 0)
		if err != nil {
			log.Errorf("check availability: %v", err)
			c.String(http.StatusInternalServerError, "Error checking availability")
			return
		}
		c.JSON(http.StatusOK, gin.H{"missingCids": missing})
	})
}
