package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/opsdesk/internal/audit"
	auditdomain "github.com/smallbiznis/opsdesk/internal/audit/domain"
	"github.com/smallbiznis/opsdesk/internal/auth"
	authdomain "github.com/smallbiznis/opsdesk/internal/auth/domain"
	"github.com/smallbiznis/opsdesk/internal/auth/session"
	"github.com/smallbiznis/opsdesk/internal/authorization"
	"github.com/smallbiznis/opsdesk/internal/calllog"
	calllogdomain "github.com/smallbiznis/opsdesk/internal/calllog/domain"
	"github.com/smallbiznis/opsdesk/internal/category"
	categorydomain "github.com/smallbiznis/opsdesk/internal/category/domain"
	"github.com/smallbiznis/opsdesk/internal/collection"
	collectiondomain "github.com/smallbiznis/opsdesk/internal/collection/domain"
	"github.com/smallbiznis/opsdesk/internal/config"
	"github.com/smallbiznis/opsdesk/internal/exchangerate"
	exchangeratedomain "github.com/smallbiznis/opsdesk/internal/exchangerate/domain"
	"github.com/smallbiznis/opsdesk/internal/inquiry"
	inquirydomain "github.com/smallbiznis/opsdesk/internal/inquiry/domain"
	"github.com/smallbiznis/opsdesk/internal/notification"
	"github.com/smallbiznis/opsdesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/opsdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/opsdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/opsdesk/internal/observability/tracing"
	"github.com/smallbiznis/opsdesk/internal/pricing"
	pricingdomain "github.com/smallbiznis/opsdesk/internal/pricing/domain"
	"github.com/smallbiznis/opsdesk/internal/providers"
	"github.com/smallbiznis/opsdesk/internal/quotation"
	quotationdomain "github.com/smallbiznis/opsdesk/internal/quotation/domain"
	"github.com/smallbiznis/opsdesk/internal/ratelimit"
	"github.com/smallbiznis/opsdesk/internal/task"
	taskdomain "github.com/smallbiznis/opsdesk/internal/task/domain"
	"github.com/smallbiznis/opsdesk/internal/ticket"
	ticketdomain "github.com/smallbiznis/opsdesk/internal/ticket/domain"
	"github.com/smallbiznis/opsdesk/internal/workorder"
	workorderdomain "github.com/smallbiznis/opsdesk/internal/workorder/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	ratelimit.Module,
	providers.Module,
	notification.Module,
	category.Module,
	exchangerate.Module,
	pricing.Module,
	inquiry.Module,
	quotation.Module,
	workorder.Module,
	ticket.Module,
	calllog.Module,
	collection.Module,
	task.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, registry *prometheus.Registry) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics, registry)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	log             *zap.Logger
	cfg             config.Config
	authsvc         authdomain.Service
	sessions        *session.Manager
	loginLimiter    *ratelimit.LoginLimiter
	authzSvc        authorization.Service
	auditSvc        auditdomain.Service
	categorySvc     categorydomain.Service
	exchangeRateSvc exchangeratedomain.Service
	pricingSvc      pricingdomain.Service
	inquirySvc      inquirydomain.Service
	quotationSvc    quotationdomain.Service
	workOrderSvc    workorderdomain.Service
	ticketSvc       ticketdomain.Service
	callLogSvc      calllogdomain.Service
	collectionSvc   collectiondomain.Service
	taskSvc         taskdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Log             *zap.Logger
	Cfg             config.Config
	Authsvc         authdomain.Service
	Sessions        *session.Manager
	LoginLimiter    *ratelimit.LoginLimiter `optional:"true"`
	AuthzSvc        authorization.Service
	AuditSvc        auditdomain.Service
	CategorySvc     categorydomain.Service
	ExchangeRateSvc exchangeratedomain.Service
	PricingSvc      pricingdomain.Service
	InquirySvc      inquirydomain.Service
	QuotationSvc    quotationdomain.Service
	WorkOrderSvc    workorderdomain.Service
	TicketSvc       ticketdomain.Service
	CallLogSvc      calllogdomain.Service
	CollectionSvc   collectiondomain.Service
	TaskSvc         taskdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		log:             p.Log.Named("http.server"),
		cfg:             p.Cfg,
		authsvc:         p.Authsvc,
		sessions:        p.Sessions,
		loginLimiter:    p.LoginLimiter,
		authzSvc:        p.AuthzSvc,
		auditSvc:        p.AuditSvc,
		categorySvc:     p.CategorySvc,
		exchangeRateSvc: p.ExchangeRateSvc,
		pricingSvc:      p.PricingSvc,
		inquirySvc:      p.InquirySvc,
		quotationSvc:    p.QuotationSvc,
		workOrderSvc:    p.WorkOrderSvc,
		ticketSvc:       p.TicketSvc,
		callLogSvc:      p.CallLogSvc,
		collectionSvc:   p.CollectionSvc,
		taskSvc:         p.TaskSvc,
	}

	svc.registerAuthRoutes()
	svc.registerAdminRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	authGroup := s.engine.Group("/auth")

	authGroup.POST("/login", s.LoginRateLimit(), s.Login)
	authGroup.POST("/logout", s.Logout)
	authGroup.GET("/me", s.AuthRequired(), s.Me)
	authGroup.POST("/change-password", s.AuthRequired(), s.ChangePassword)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.AuthRequired())

	// -------- Pricing --------
	admin.POST("/pricing/invoice/calculate", s.authorizeAction(authorization.ObjectPricing, authorization.ActionCalculate), s.CalculateInvoice)
	admin.POST("/pricing/amazon/calculate", s.authorizeAction(authorization.ObjectPricing, authorization.ActionCalculate), s.CalculateAmazon)
	admin.GET("/pricing/amazon/default-markup", s.authorizeAction(authorization.ObjectPricing, authorization.ActionCalculate), s.DefaultAmazonMarkup)

	admin.GET("/pricing/sessions", s.authorizeAction(authorization.ObjectPricingSession, authorization.ActionView), s.ListPricingSessions)
	admin.POST("/pricing/sessions", s.authorizeAction(authorization.ObjectPricingSession, authorization.ActionCreate), s.SavePricingSession)
	admin.GET("/pricing/sessions/:id", s.authorizeAction(authorization.ObjectPricingSession, authorization.ActionView), s.GetPricingSession)
	admin.GET("/pricing/sessions/:id/pdf", s.authorizeAction(authorization.ObjectPricingSession, authorization.ActionExport), s.ExportPricingSessionPDF)
	admin.DELETE("/pricing/sessions/:id", s.authorizeAction(authorization.ObjectPricingSession, authorization.ActionDelete), s.DeletePricingSession)

	// -------- Reference data --------
	admin.GET("/categories", s.authorizeAction(authorization.ObjectCategory, authorization.ActionView), s.ListCategories)
	admin.POST("/categories", s.authorizeAction(authorization.ObjectCategory, authorization.ActionCreate), s.CreateCategory)
	admin.GET("/categories/:id", s.authorizeAction(authorization.ObjectCategory, authorization.ActionView), s.GetCategory)
	admin.PATCH("/categories/:id", s.authorizeAction(authorization.ObjectCategory, authorization.ActionUpdate), s.UpdateCategory)
	admin.POST("/categories/:id/deactivate", s.authorizeAction(authorization.ObjectCategory, authorization.ActionUpdate), s.DeactivateCategory)

	admin.GET("/exchange-rates/current", s.authorizeAction(authorization.ObjectExchangeRate, authorization.ActionView), s.CurrentExchangeRate)
	admin.GET("/exchange-rates", s.authorizeAction(authorization.ObjectExchangeRate, authorization.ActionView), s.ListExchangeRates)
	admin.POST("/exchange-rates", s.authorizeAction(authorization.ObjectExchangeRate, authorization.ActionCreate), s.SetExchangeRate)

	// -------- Records --------
	s.registerRecordRoutes(admin, "/inquiries", authorization.ObjectInquiry, recordHandlers{
		list: s.ListInquiries, create: s.CreateInquiry, get: s.GetInquiry,
		update: s.UpdateInquiry, status: s.ChangeInquiryStatus, delete: s.DeleteInquiry,
	})
	s.registerRecordRoutes(admin, "/quotations", authorization.ObjectQuotation, recordHandlers{
		list: s.ListQuotations, create: s.CreateQuotation, get: s.GetQuotation,
		update: s.UpdateQuotation, status: s.ChangeQuotationStatus, delete: s.DeleteQuotation,
	})
	admin.GET("/quotations/:id/pdf", s.authorizeAction(authorization.ObjectQuotation, authorization.ActionView), s.ExportQuotationPDF)
	s.registerRecordRoutes(admin, "/work-orders", authorization.ObjectWorkOrder, recordHandlers{
		list: s.ListWorkOrders, create: s.CreateWorkOrder, get: s.GetWorkOrder,
		update: s.UpdateWorkOrder, status: s.ChangeWorkOrderStatus, delete: s.DeleteWorkOrder,
	})
	s.registerRecordRoutes(admin, "/tickets", authorization.ObjectTicket, recordHandlers{
		list: s.ListTickets, create: s.CreateTicket, get: s.GetTicket,
		update: s.UpdateTicket, status: s.ChangeTicketStatus, delete: s.DeleteTicket,
	})
	s.registerRecordRoutes(admin, "/call-logs", authorization.ObjectCallLog, recordHandlers{
		list: s.ListCallLogs, create: s.CreateCallLog, get: s.GetCallLog,
		update: s.UpdateCallLog, delete: s.DeleteCallLog,
	})
	s.registerRecordRoutes(admin, "/collections", authorization.ObjectCollection, recordHandlers{
		list: s.ListCollections, create: s.CreateCollection, get: s.GetCollection,
		update: s.UpdateCollection, status: s.ChangeCollectionStatus, delete: s.DeleteCollection,
	})
	s.registerRecordRoutes(admin, "/tasks", authorization.ObjectTask, recordHandlers{
		list: s.ListTasks, create: s.CreateTask, get: s.GetTask,
		update: s.UpdateTask, status: s.ChangeTaskStatus, delete: s.DeleteTask,
	})

	// -------- Administration --------
	admin.GET("/users", s.authorizeAction(authorization.ObjectUser, authorization.ActionView), s.ListUsers)
	admin.POST("/users", s.authorizeAction(authorization.ObjectUser, authorization.ActionCreate), s.CreateUser)
	admin.GET("/users/:id", s.authorizeAction(authorization.ObjectUser, authorization.ActionView), s.GetUser)
	admin.PATCH("/users/:id/role", s.authorizeAction(authorization.ObjectUser, authorization.ActionUpdate), s.UpdateUserRole)
	admin.POST("/users/:id/deactivate", s.authorizeAction(authorization.ObjectUser, authorization.ActionUpdate), s.DeactivateUser)

	admin.GET("/audit-logs", s.authorizeAction(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)
}

type recordHandlers struct {
	list   gin.HandlerFunc
	create gin.HandlerFunc
	get    gin.HandlerFunc
	update gin.HandlerFunc
	status gin.HandlerFunc
	delete gin.HandlerFunc
}

func (s *Server) registerRecordRoutes(group *gin.RouterGroup, path string, object string, h recordHandlers) {
	records := group.Group(path, tagRecordType(object))
	records.GET("", s.authorizeAction(object, authorization.ActionView), h.list)
	records.POST("", s.authorizeAction(object, authorization.ActionCreate), h.create)
	records.GET("/:id", s.authorizeAction(object, authorization.ActionView), h.get)
	records.PATCH("/:id", s.authorizeAction(object, authorization.ActionUpdate), h.update)
	if h.status != nil {
		records.POST("/:id/status", s.authorizeAction(object, authorization.ActionStatus), h.status)
	}
	records.DELETE("/:id", s.authorizeAction(object, authorization.ActionDelete), h.delete)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
