/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/blnkfinance/jukebox"
	"github.com/blnkfinance/jukebox/api/middleware"
	"github.com/blnkfinance/jukebox/config"
	"github.com/blnkfinance/jukebox/internal/apierror"
)

type Api struct {
	jukebox *jukebox.Jukebox
	router  *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.POST("/api/initiate-payment", a.InitiatePayment)
	router.GET("/api/check-payment-status", a.CheckPaymentStatus)
	router.POST("/api/submit-song", a.SubmitSong)
	router.GET("/api/songs/queue", a.GetQueue)

	admin := router.Group("/api", middleware.AdminKeyMiddleware())
	admin.GET("/songs", a.GetAllSongs)
	admin.GET("/songs/:id", a.GetSong)
	admin.PUT("/songs/mark-played/:id", a.MarkPlayed)
	admin.GET("/payments/stats", a.GetPaymentStats)

	return a.router
}

func NewAPI(j *jukebox.Jukebox) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.EnableTelemetry {
		r.Use(otelgin.Middleware(conf.ProjectName))
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{jukebox: j, router: r}
}

func respondWithError(c *gin.Context, err error) {
	c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": apierror.MessageOf(err)})
}
