package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/nbtcare/voicescreen/internal/api/handlers"
	"github.com/nbtcare/voicescreen/internal/api/middleware"
)

type Deps struct {
	Session *handlers.SessionHandler
	Profile *handlers.ProfileHandler
	Summary *handlers.SummaryHandler
	WS      *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.POST("/session", d.Session.Create)
	auth.GET("/session", d.Session.History)
	auth.GET("/session/:session_id", d.Session.Get)
	auth.POST("/session/:session_id/start", d.Session.Start)
	auth.POST("/session/:session_id/stop", d.Session.Stop)
	auth.POST("/session/:session_id/mute", d.Session.Mute)
	auth.POST("/session/:session_id/text", d.Session.SendText)
	auth.DELETE("/session/:session_id", d.Session.Delete)

	auth.GET("/profile/me", d.Profile.Me)
	auth.PUT("/profile/update", d.Profile.Update)

	auth.GET("/summary/:call_id", d.Summary.GetByCall)
	auth.POST("/summary/rephrase", d.Summary.Rephrase)
	auth.GET("/assessment/:call_id", d.Summary.GetAssessment)
	auth.GET("/assessments", d.Summary.ListMine)
	auth.GET("/assessments/all", middleware.RequireClinician(), d.Summary.ListAll)

	// WebSocket
	auth.GET("/ws/session/:session_id", d.WS.SessionWS)
}
