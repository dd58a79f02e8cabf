package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chime/bot"
	"chime/dispatch"
	"chime/inference"
	"chime/notifications"
	"chime/platforms"
	"chime/scheduler"
	"chime/state"
	"chime/store"
	"chime/timeparse"
)

func main() {
	state.Setup()
	platforms.Setup()

	reminders := store.NewReminders(state.Pool)
	recipients := store.NewRecipients(state.Pool)

	infClient, err := inference.New(
		state.Config.Inference.APIKey,
		state.Config.Inference.Model,
		time.Duration(state.Config.Inference.TimeoutSeconds)*time.Second,
	)

	if err != nil {
		panic(err)
	}

	resolver := &timeparse.Resolver{
		Inference: infClient,
		Logger:    state.Logger,
	}

	dispatcher := &dispatch.Dispatcher{
		Reminders: reminders,
		Timeout:   time.Duration(state.Config.Meta.PlatformTimeoutSec) * time.Second,
		Logger:    state.Logger,
	}

	handler := &bot.Handler{
		Resolver:   resolver,
		Dispatcher: dispatcher,
		Recipients: recipients,
		Logger:     state.Logger,
	}

	handler.Setup()

	err = state.Discord.Open()

	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(state.Context)

	sched := scheduler.New(
		reminders,
		notifications.DiscordNotifier{},
		time.Duration(state.Config.Scheduler.IntervalSeconds)*time.Second,
		state.Logger,
		state.Redis,
	)

	sched.Start(ctx)

	go func() {
		err := http.ListenAndServe(state.Config.Meta.DiagnosticsPort, diagnosticsRouter(reminders, recipients))

		if err != nil {
			state.Logger.Error("Diagnostics server failed: ", err)
		}
	}()

	state.Logger.Info("Chime is up")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	state.Logger.Info("Shutting down")

	cancel()

	// Let the in-flight sweep finish so no record is left half-processed
	sched.Stop()

	state.Discord.Close()
	state.Pool.Close()
}
