package main

import (
	"log"
	"os"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/payment"
	emailsvc "github.com/trezcool/darasa/services/email"
	invoicesvc "github.com/trezcool/darasa/services/invoice"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/cache"
	"github.com/trezcool/darasa/storage/database"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

func main() {
	stdLogger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		stdLogger.Fatal(err)
	}

	// set up services
	usrRepo := sqlxrepos.NewUserRepository(db)
	paymentSvc := payment.NewService(payment.ServiceDeps{
		Conf:        conf,
		Logger:      logger,
		Repo:        sqlxrepos.NewPaymentRepository(db),
		Courses:     sqlxrepos.NewCourseRepository(db),
		Enrollments: sqlxrepos.NewLearningRepository(db),
		Users:       usrRepo,
		Invoices:    invoicesvc.NewXenditClient(conf, logger),
		Idempotency: cache.NewMemoryStore(),
		MailSvc:     emailsvc.NewConsoleService(conf),
		Tx:          sqlxrepos.NewTxRunner(db),
	})

	// start CLI
	cli := commandLine{
		db:         db.DB,
		usrRepo:    usrRepo,
		paymentSvc: paymentSvc,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
