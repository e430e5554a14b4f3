package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PittChallenge/pittchallenge.com/internal/analytics"
	"github.com/PittChallenge/pittchallenge.com/internal/checkins"
	"github.com/PittChallenge/pittchallenge.com/internal/confirmations"
	"github.com/PittChallenge/pittchallenge.com/internal/emaillogs"
	"github.com/PittChallenge/pittchallenge.com/internal/exports"
	"github.com/PittChallenge/pittchallenge.com/internal/middleware"
	"github.com/PittChallenge/pittchallenge.com/internal/registrations"
)

// Router builds the HTTP API. Handlers check the method themselves so wrong-method requests get
// their numbered tag instead of a 404.
func (a *App) Router() *gin.Engine {
	cfg := a.Config
	registrationHandler := registrations.NewHandler(a.Registrations, cfg.Keys.Write, a.Logger)
	checkinHandler := checkins.NewHandler(a.CheckIns, a.Logger)
	exportHandler := exports.NewHandler(a.Exporter, cfg.Keys.Read, a.Logger)
	confirmationHandler := confirmations.NewHandler(a.Confirmations, a.Logger)
	emailLogsHandler := emaillogs.NewHandler(a.EmailLogs, a.Logger)
	statsHandler := analytics.NewHandler(a.Store, a.Live, a.Logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.CORSOptions{AllowedOrigins: cfg.Server.CORSAllowedOrigins}))
	router.Use(middleware.Logger(a.Logger))

	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	router.Any("/addRegistrationEntry", registrationHandler.Register)
	router.Any("/changeEmail", registrationHandler.ChangeEmail)
	router.Any("/checkInToEvent", checkinHandler.CheckIn)
	router.Any("/getCSV", exportHandler.GetCSV)

	writeKey := middleware.RequireKey(cfg.Keys.Write)
	router.GET("/convertIDToEmail", writeKey, registrationHandler.ConvertIDToEmail)
	router.POST("/convertIDToEmail", writeKey, registrationHandler.ConvertIDToEmail)
	router.GET("/sendCheckinEmail", writeKey, confirmationHandler.SendCheckinEmail)
	router.POST("/sendCheckinEmail", writeKey, confirmationHandler.SendCheckinEmail)
	readKey := middleware.RequireKey(cfg.Keys.Read)
	router.GET("/getEmailLogs", readKey, emailLogsHandler.List)
	router.GET("/getStats", readKey, statsHandler.GetStats)
	router.GET("/liveCheckins", readKey, a.Live.Serve)

	return router
}
