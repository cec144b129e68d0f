package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MTES-MCT/mobilic-api-sub000/config"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/api/handler"
	"github.com/MTES-MCT/mobilic-api-sub000/internal/api/middleware"
	"github.com/MTES-MCT/mobilic-api-sub000/pkg/jwt"
)

// roleAdmin role required by the back-office routes
const roleAdmin = "admin"

// Setup builds the gin engine. limiter may be nil (Redis unavailable).
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── health ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// public
		v1.POST("/companies/is_company_certified",
			middleware.RateLimit(limiter, cfg.Server.PublicRateLimit, time.Minute),
			h.Certification.IsCompanyCertified,
		)

		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr), middleware.RoleAuth(roleAdmin))
		{
			companies := authorized.Group("/companies/:id")
			{
				companies.GET("/certification", h.Certification.GetCompanyStatus)
				companies.GET("/certification/scores", h.Certification.GetCompanyScores)
			}

			authorized.GET("/certifications", h.Certification.ListCertifications)

			export := authorized.Group("/export")
			{
				export.GET("/certifications", h.Export.ExportCertifications)
			}
		}
	}

	return r
}
