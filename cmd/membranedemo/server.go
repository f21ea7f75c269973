package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/brinklayer/membrane/internal/cylinder"
	"github.com/brinklayer/membrane/internal/observability"
)

var startedAt = time.Now()

// newRouter builds the admin/introspection HTTP surface: health, readiness,
// prometheus metrics, and a small graphs API layered over the membrane
// (SPEC_FULL.md §6 ADDED admin/introspection surface).
func newRouter(m *membraneApp, logger zerolog.Logger, corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware("membranedemo"))
	if len(corsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: corsOrigins,
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(startedAt).String(),
			"service": "membranedemo",
		})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready", "graphs": m.graphNames()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/graphs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"graphs": m.graphNames()})
	})
	r.POST("/graphs", func(c *gin.Context) {
		var req struct {
			Name  string `json:"name" binding:"required"`
			Token string `json:"token"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := m.m.RegisterGraph(cylinder.GraphName(req.Name), req.Token); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"graph": req.Name})
	})

	r.GET("/demo/record", m.handleDemoRecord)
	r.GET("/demo/greet", m.handleDemoGreet)

	return r
}
