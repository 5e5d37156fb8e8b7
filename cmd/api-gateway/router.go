package main

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-booking-api/internal/handler"
	internalmiddleware "github.com/noah-isme/hostel-booking-api/internal/middleware"
	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/service"
	"github.com/noah-isme/hostel-booking-api/pkg/config"
	"github.com/noah-isme/hostel-booking-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/hostel-booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/hostel-booking-api/pkg/middleware/requestid"
)

type routerDeps struct {
	db             *sqlx.DB
	metrics        *service.MetricsService
	tokens         *service.TokenVerifier
	bookings       *service.BookingService
	ledger         *service.LedgerService
	reconciliation *service.ReconciliationService
	capacity       *service.CapacityService
	semesters      *service.SemesterService
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(deps.metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(deps.metrics, deps.db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	bookingHandler := handler.NewBookingHandler(deps.bookings)
	residentHandler := handler.NewResidentHandler(deps.ledger)
	collectionHandler := handler.NewCollectionHandler(deps.reconciliation)
	roomHandler := handler.NewRoomHandler(deps.capacity)
	semesterHandler := handler.NewSemesterHandler(deps.semesters)

	api := r.Group(cfg.APIPrefix)

	public := api.Group("/public", internalmiddleware.OptionalJWT(deps.tokens))
	public.POST("/bookings", bookingHandler.PublicCreate)
	public.GET("/rooms/:id/capacity", roomHandler.Capacity)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(deps.tokens))

	frontDesk := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleWarden, models.RoleAccountant)
	wardens := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleWarden)
	accountants := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleAccountant)

	bookings := secured.Group("/bookings")
	bookings.GET("", frontDesk, bookingHandler.List)
	bookings.POST("", wardens, internalmiddleware.Audit(logr, "booking.create"), bookingHandler.Create)
	bookings.GET("/verify/:code", frontDesk, bookingHandler.Verify)
	bookings.GET("/:id", frontDesk, bookingHandler.Get)
	bookings.GET("/:id/payments", frontDesk, bookingHandler.ListPayments)
	bookings.POST("/:id/payments", frontDesk, internalmiddleware.Audit(logr, "booking.payment"), bookingHandler.ApplyPayment)
	bookings.POST("/:id/room", wardens, internalmiddleware.Audit(logr, "booking.assign_room"), bookingHandler.AssignRoom)
	bookings.POST("/:id/check-in", wardens, internalmiddleware.Audit(logr, "booking.check_in"), bookingHandler.CheckIn)
	bookings.POST("/:id/cancel", wardens, internalmiddleware.Audit(logr, "booking.cancel"), bookingHandler.Cancel)
	bookings.GET("/:id/receipt", frontDesk, bookingHandler.Receipt)

	secured.POST("/residents/:id/payments", frontDesk, internalmiddleware.Audit(logr, "resident.payment"), residentHandler.RecordPayment)
	secured.GET("/rooms/:id/capacity", frontDesk, roomHandler.Capacity)

	collections := secured.Group("/collections", accountants)
	collections.GET("/summary", collectionHandler.Summary)
	collections.GET("/rooms/:id", collectionHandler.Room)
	collections.GET("/students/:id", collectionHandler.Student)
	collections.GET("/export", collectionHandler.Export)

	hostels := secured.Group("/hostels/:id")
	hostels.GET("/current-semester", frontDesk, semesterHandler.Current)
	hostels.PUT("/current-semester", internalmiddleware.RequireRoles(models.RoleAdmin), internalmiddleware.Audit(logr, "semester.set_current"), semesterHandler.SetCurrent)

	return r
}
