package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tagihan/internal/advice"
	"tagihan/internal/amqp"
	"tagihan/internal/cli"
	applog "tagihan/internal/log"
	"tagihan/internal/services"
	"tagihan/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentWorker)
	logger.Info("Starting reminder-worker")

	store := cli.OpenStore(logger, cfg)
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc := cfg.Location()
	advisor := advice.NewAdvisor(cli.NewGenerator(ctx, logger, cfg))
	reminders := worker.NewReminderWorker(advisor, cli.NewSender(logger, cfg), worker.Recipient{
		Name:  cfg.ReminderRecipientName,
		Email: cfg.ReminderRecipientEmail,
	}, loc)

	// Without a broker the worker sends e-mails itself.
	var (
		publisher  services.Publisher = reminders
		amqpClient *amqp.Client
	)
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP enabled, reminders are queued before delivery", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, reminders are delivered directly")
	}

	debts := services.NewDebtService(store, services.WithLocation(loc))
	processor := services.NewReminderProcessor(debts, store, publisher)
	scheduler := worker.NewScheduler(processor, cfg.ReminderSchedule, loc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := scheduler.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return scheduler.Stop(stopCtx)
	})
	if amqpClient != nil {
		g.Go(func() error {
			err := amqpClient.ConsumeReminders(gctx, reminders.HandleReminder)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Reminder worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Reminder worker shutdown complete")
}
