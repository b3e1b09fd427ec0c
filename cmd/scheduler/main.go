package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/finloop/loan-management/internal/config"
	"github.com/finloop/loan-management/internal/mailer"
	"github.com/finloop/loan-management/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logger.Fatal("invalid scheduler timezone", zap.Error(err))
	}

	reminder := &reminderJob{
		loans:  repository.NewLoanRepository(db),
		mail:   mailer.FromConfig(cfg, logger),
		window: time.Duration(cfg.Scheduler.ReminderDays) * 24 * time.Hour,
		logger: logger,
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(loc))

	// Daily payment reminders at 9 AM.
	if _, err := c.AddFunc("0 0 9 * * *", reminder.Run); err != nil {
		logger.Fatal("failed to schedule reminder job", zap.Error(err))
	}

	c.Start()
	logger.Info("scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	logger.Info("scheduler stopped")
}

// reminderJob mails owners about installments falling due inside the
// configured window. It only reads; installments are never mutated after
// creation.
type reminderJob struct {
	loans  repository.LoanRepository
	mail   mailer.Mailer
	window time.Duration
	logger *zap.Logger
}

func (j *reminderJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now().UTC()
	reminders, err := j.loans.ListReminders(ctx, now, now.Add(j.window))
	if err != nil {
		j.logger.Error("failed to load upcoming installments", zap.Error(err))
		return
	}

	sent := 0
	for _, rem := range reminders {
		body := fmt.Sprintf(
			"Hello %s,\n\nInstallment %d of loan %s for %s is due on %s.",
			rem.OwnerUsername, rem.InstallmentNo, rem.LoanID,
			rem.Amount.StringFixed(2), rem.DueDate.Format("2006-01-02"),
		)
		if err := j.mail.Send(ctx, rem.OwnerEmail, "Upcoming loan installment", body); err != nil {
			j.logger.Warn("reminder mail failed",
				zap.String("loan_id", rem.LoanID),
				zap.Int("installment_no", rem.InstallmentNo),
				zap.Error(err),
			)
			continue
		}
		sent++
	}

	j.logger.Info("reminder job finished",
		zap.Int("due_installments", len(reminders)),
		zap.Int("mails_sent", sent),
	)
}
