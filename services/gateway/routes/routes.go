// Copyright (C) 2026 Northshore AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/northshore-ai/breakwater/services/gateway/handlers"
	"github.com/northshore-ai/breakwater/services/gateway/middleware"
)

// SetupRoutes registers the gateway's endpoints. Health and metrics stay
// outside the authenticated group so probes and scrapers need no token.
func SetupRoutes(router *gin.Engine, orch handlers.Invoker) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rateLimiter := middleware.NewRateLimiter(60, 10)

	v1 := router.Group("/v1")
	v1.Use(middleware.BearerAuth(middleware.ValidatorFromEnv()), rateLimiter.Middleware())
	{
		v1.POST("/chat", handlers.HandleChat(orch))
		v1.POST("/chat/stream", handlers.HandleChatStream(orch))
	}
}
