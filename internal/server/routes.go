package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	// Init swagger doc
	_ "github.com/Bunny0602/montalban-job-webapp-sub001/docs"

	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/auth"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/controller/application"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/controller/jobpost"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/controller/overview"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/controller/profile"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/filecodec"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/logger"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/middleware"
	"github.com/Bunny0602/montalban-job-webapp-sub001/internal/model"
)

// profileBodyLimit fits a photo and a resume at the raw upload cap
const profileBodyLimit = 2 * filecodec.MaxRawBytes

// RegisterRoutes will register each http endpoint routes to bound Server instance
func (s *Server) RegisterRoutes() http.Handler {
	r := gin.New()

	gAuth := auth.NewOauthLoginHandler(s.DB, auth.GoogleOauthConfig(s.cfg), auth.GoogleUserInfoEndpoint, s.Tokens, s.Audit)
	lAuth := auth.NewLocalAuthHandler(s.DB, s.Tokens, s.Audit)
	logout := auth.NewLogoutController(s.Blacklist, s.Audit)

	applications := application.NewApplicationController(s.DB, s.Broker, s.Metrics, s.Location)
	s.onStopStreams(applications.StopStreams)
	jobs := jobpost.NewJobPostController(s.DB, s.Broker)
	overviews := overview.NewOverviewController(s.DB)
	profiles := profile.NewProfileController(s.DB, s.Storage, s.Metrics)

	r.Use(
		gin.Recovery(),
		middleware.RequestLogger(logger.Component("http")),
		middleware.Metrics(s.Metrics),
		cors.New(cors.Config{
			AllowOrigins:     s.cfg.Server.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
			AllowHeaders:     []string{"Accept", "Authorization", "Content-Type"},
			ExposeHeaders:    []string{"Content-Disposition", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.SafeHeader(s.cfg.IsProduction()),
	)

	r.GET("/health", s.healthHandler)
	r.GET("/metrics", gin.WrapH(s.Metrics.Handler()))

	requireAuth := []gin.HandlerFunc{
		middleware.RequireAuth(s.DB, s.Tokens),
		middleware.JwtBlacklistCheck(s.Blacklist),
	}

	v1 := r.Group("/api/v1")
	{
		authRoute := v1.Group("/auth", middleware.RateLimiterMiddleware(s.cfg.Server.RateLimit))
		{
			authRoute.POST("google/seeker", gAuth.SeekerGoogleLoginHandler)
			authRoute.POST("google/employer", gAuth.EmployerGoogleLoginHandler)
			authRoute.GET("google/callback", gAuth.Callback)

			authRoute.POST("login", lAuth.LocalLoginHandler)
			authRoute.POST("register", lAuth.LocalRegisterHandler)
			authRoute.POST("logout", append(requireAuth, logout.LogoutHandler)...)
		}

		// Any authenticated role
		needAuth := v1.Group("")
		{
			needAuth.Use(requireAuth...)
			needAuth.Use(middleware.RateLimiterMiddleware(s.cfg.Server.RateLimit))

			needAuth.GET("jobs", jobs.GetPosts)
			needAuth.GET("jobs/:id", jobs.GetPostByID)
			needAuth.GET("files/:userId/:kind", middleware.CheckRole(model.RoleEmployer, model.RoleAdmin), profiles.GetUserFile)

			seekerRoute := needAuth.Group("/seeker", middleware.CheckRole(model.RoleSeeker))
			{
				seekerRoute.GET("profile", profiles.GetProfile)
				seekerRoute.POST("profile", middleware.SizeLimit(profileBodyLimit), profiles.SaveProfile)
				seekerRoute.POST("profile/cancel", profiles.CancelEdit)
				seekerRoute.GET("files/:kind", profiles.GetOwnFile)

				seekerRoute.POST("applications", applications.ApplicationHandler)
				seekerRoute.GET("applications", applications.ListSeekerApplications)
				seekerRoute.GET("applications/stream", applications.SeekerStream)
				seekerRoute.GET("applications/ws", applications.SeekerSocket)
				seekerRoute.DELETE("applications/:id", applications.CancelApplication)
			}

			employerRoute := needAuth.Group("/employer")
			{
				// Admins may remove any posting
				employerRoute.DELETE("jobs/:id", middleware.CheckRole(model.RoleEmployer, model.RoleAdmin), jobs.DeleteJobPost)

				employerRoute.Use(middleware.CheckRole(model.RoleEmployer))
				employerRoute.POST("jobs", jobs.CreateJobPostHandler)
				employerRoute.GET("jobs", jobs.GetOwnPosts)
				employerRoute.PATCH("jobs/:id", jobs.EditJobPost)

				employerRoute.GET("applications", applications.ListEmployerApplications)
				employerRoute.GET("applications/stream", applications.EmployerStream)
				employerRoute.GET("applications/ws", applications.EmployerSocket)
				employerRoute.PATCH("applications/:id/status", applications.UpdateStatus)

				employerRoute.GET("overview", overviews.GetOverview)
			}
		}
	}

	// Swagger UI runs its own scripts and styles
	r.GET("/swagger/*any", func(c *gin.Context) {
		c.Writer.Header().Del("Content-Security-Policy")
	}, ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func (s *Server) healthHandler(c *gin.Context) {
	stats := s.DB.Health()
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			stats["redis"] = "down"
		} else {
			stats["redis"] = "up"
		}
	}

	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}
