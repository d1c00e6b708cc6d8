package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/analytics"
	"github.com/trezcool/darasa/core/certificate"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/learning"
	"github.com/trezcool/darasa/core/payment"
	"github.com/trezcool/darasa/core/user"
)

type ServerDeps struct {
	Conf           *core.Config
	Logger         core.Logger
	Validate       *validator.Validate
	Translator     ut.Translator
	UserSvc        *user.Service
	CourseSvc      *course.Service
	LearningSvc    *learning.Service
	CertificateSvc *certificate.Service
	PaymentSvc     *payment.Service
	AnalyticsSvc   *analytics.Service
	DisableReqLogs bool
}

type Server struct {
	ServerDeps
	app      *echo.Echo
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.Conf.Debug || s.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{s.Conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator, s.signalShutdown)
	s.app.Debug = s.Conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	auth := []echo.MiddlewareFunc{middleware.JWTWithConfig(jwtConfig(s.Conf)), contextUserMiddleware(s.UserSvc)}

	registerUserAPI(v1, auth, s.Conf, s.UserSvc, s.Validate)
	registerCourseAPI(v1, auth, s.CourseSvc, s.Validate)
	registerLearningAPI(v1, auth, s.LearningSvc, s.CertificateSvc)
	registerCertificateAPI(v1, s.CertificateSvc)
	registerPaymentAPI(v1, auth, s.PaymentSvc, s.Validate)
	registerAnalyticsAPI(v1, auth, s.AnalyticsSvc)
	registerAdminAPI(v1, auth, s.UserSvc, s.CourseSvc, s.AnalyticsSvc, s.Validate)
}

// Start listens on the configured address; listener errors are reported on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.Conf.AppName+" API!")
}
