package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/analytics"
	"github.com/trezcool/darasa/core/certificate"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/learning"
	"github.com/trezcool/darasa/core/payment"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	invoicesvc "github.com/trezcool/darasa/services/invoice"
	logsvc "github.com/trezcool/darasa/services/logger"
	schedulersvc "github.com/trezcool/darasa/services/scheduler"
	"github.com/trezcool/darasa/storage/cache"
	"github.com/trezcool/darasa/storage/database"
	boiledrepos "github.com/trezcool/darasa/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

// newIdempotencyStore uses Redis when configured; webhook redeliveries are then
// deduplicated across API instances.
func newIdempotencyStore(conf *core.Config, logger core.Logger) payment.IdempotencyStore {
	if conf.Redis.Addr == "" {
		return cache.NewMemoryStore()
	}
	client, err := cache.NewRedisClient(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
	}
	return cache.NewRedisStore(client)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

type paymentParams struct {
	dig.In
	Conf        *core.Config
	Logger      core.Logger
	Repo        payment.Repository
	Courses     payment.CourseStore
	Enrollments payment.Enroller
	Users       payment.UserReader
	Invoices    payment.InvoiceProvider
	Idempotency payment.IdempotencyStore
	MailSvc     core.EmailService
	Tx          core.TxRunner
}

func newPaymentService(p paymentParams) *payment.Service {
	return payment.NewService(payment.ServiceDeps{
		Conf:        p.Conf,
		Logger:      p.Logger,
		Repo:        p.Repo,
		Courses:     p.Courses,
		Enrollments: p.Enrollments,
		Users:       p.Users,
		Invoices:    p.Invoices,
		Idempotency: p.Idempotency,
		MailSvc:     p.MailSvc,
		Tx:          p.Tx,
	})
}

type serverParams struct {
	dig.In
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
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:           p.Conf,
		Logger:         p.Logger,
		Validate:       p.Validate,
		Translator:     p.Translator,
		UserSvc:        p.UserSvc,
		CourseSvc:      p.CourseSvc,
		LearningSvc:    p.LearningSvc,
		CertificateSvc: p.CertificateSvc,
		PaymentSvc:     p.PaymentSvc,
		AnalyticsSvc:   p.AnalyticsSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newIdempotencyStore))
	must(c.Provide(newEmailService))
	must(c.Provide(newValidator))

	// repositories
	must(c.Provide(sqlxrepos.NewTxRunner, dig.As(new(core.TxRunner))))
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(
		new(user.Repository),
		new(certificate.UserReader),
		new(payment.UserReader),
	)))
	must(c.Provide(sqlxrepos.NewCourseRepository, dig.As(
		new(course.Repository),
		new(learning.CourseReader),
		new(certificate.CourseReader),
		new(payment.CourseStore),
	)))
	must(c.Provide(sqlxrepos.NewLearningRepository, dig.As(
		new(learning.Repository),
		new(certificate.EnrollmentReader),
		new(payment.Enroller),
	)))
	must(c.Provide(sqlxrepos.NewCertificateRepository, dig.As(new(certificate.Repository))))
	must(c.Provide(sqlxrepos.NewPaymentRepository, dig.As(new(payment.Repository))))
	must(c.Provide(boiledrepos.NewAnalyticsReadModel, dig.As(new(analytics.ReadModel))))
	must(c.Provide(invoicesvc.NewXenditClient, dig.As(new(payment.InvoiceProvider))))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(learning.NewService))
	must(c.Provide(certificate.NewService))
	must(c.Provide(newPaymentService))
	must(c.Provide(analytics.NewService))
	must(c.Provide(schedulersvc.New))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
