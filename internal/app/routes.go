package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires the thin ops surface. The content CRUD/view API is an
// external collaborator and does not live here.
func (a *App) registerRoutes() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(processStart).String(),
		})
	})

	sched := a.router.Group("/scheduler")
	{
		sched.GET("/jobs", func(c *gin.Context) {
			c.JSON(http.StatusOK, a.sched.List())
		})
		sched.POST("/jobs/:name/run", func(c *gin.Context) {
			if err := a.sched.Run(c.Request.Context(), c.Param("name")); err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"status": "triggered"})
		})
		sched.GET("/pending", func(c *gin.Context) {
			c.JSON(http.StatusOK, a.gateway.Pending())
		})
	}

	pub := a.router.Group("/publishing")
	{
		pub.GET("/ready", func(c *gin.Context) {
			posts, err := a.svc.GetPostsReadyForPublishing(c.Request.Context())
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, posts)
		})
		pub.GET("/history/:id", func(c *gin.Context) {
			entries, err := a.svc.GetPublishingHistory(c.Request.Context(), c.Param("id"))
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, entries)
		})
	}
}
