package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"
	"snowalert.app/internal/config"
	"snowalert.app/internal/core/alert"
	"snowalert.app/internal/core/forecast"
	"snowalert.app/internal/ports"
	"snowalert.app/internal/scheduler"
)

type Application struct {
	config *config.Config

	// Use Cases
	forecastUseCase *forecast.UseCase
	alertUseCase    *alert.UseCase

	// Scheduling
	scheduler *scheduler.Scheduler
	clock     clockwork.Clock

	// Infrastructure
	ports *ports.ApplicationPorts
	deps  *DependencyContainer

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	stopped chan struct{}
}

func NewApplication() (*Application, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	deps, err := NewDependencyContainer(DependencyConfigFrom(cfg), cfg)
	if err != nil {
		return nil, fmt.Errorf("create dependency container: %w", err)
	}

	return NewApplicationWithDependencies(cfg, deps, clockwork.NewRealClock())
}

// NewApplicationWithDependencies creates an application with provided dependencies and clock
func NewApplicationWithDependencies(cfg *config.Config, depContainer *DependencyContainer, clock clockwork.Clock) (*Application, error) {
	app := &Application{
		config:  cfg,
		ports:   depContainer.ApplicationPorts(),
		deps:    depContainer,
		clock:   clock,
		stopped: make(chan struct{}),
	}

	if err := app.initializeUseCases(); err != nil {
		return nil, fmt.Errorf("initialize use cases: %w", err)
	}

	if err := app.initializeScheduler(); err != nil {
		return nil, fmt.Errorf("initialize scheduler: %w", err)
	}

	return app, nil
}

func (a *Application) initializeUseCases() error {
	slog.Info("Initializing use cases...")

	forecastUseCase, err := forecast.NewUseCase(forecast.UseCaseDependencies{
		Provider: a.ports.ForecastProvider,
		Config:   a.ports.ConfigProvider,
		Logger:   a.deps.ComponentLogger("forecast"),
	})
	if err != nil {
		return fmt.Errorf("create forecast use case: %w", err)
	}
	a.forecastUseCase = forecastUseCase

	alertUseCase, err := alert.NewUseCase(alert.UseCaseDependencies{
		ForecastUseCase: a.forecastUseCase,
		EmailProvider:   a.ports.EmailProvider,
		Config:          a.ports.ConfigProvider,
		Logger:          a.deps.ComponentLogger("alert"),
		Metrics:         a.ports.Metrics,
		Now:             a.clock.Now,
	})
	if err != nil {
		return fmt.Errorf("create alert use case: %w", err)
	}
	a.alertUseCase = alertUseCase

	slog.Info("Use cases initialized successfully")
	return nil
}

func (a *Application) initializeScheduler() error {
	loc, err := a.config.Scheduler.Location()
	if err != nil {
		return err
	}

	s, err := scheduler.New(scheduler.Params{
		Clock:        a.clock,
		Location:     loc,
		PollInterval: a.config.Scheduler.PollInterval,
		Logger:       a.deps.ComponentLogger("scheduler"),
	})
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	for _, at := range a.config.Scheduler.Times {
		if err := s.EveryDayAt("snow-alert@"+at, at, a.runAlert); err != nil {
			return fmt.Errorf("schedule alert at %s: %w", at, err)
		}
	}

	a.scheduler = s
	return nil
}

func (a *Application) runAlert(ctx context.Context) error {
	report, err := a.alertUseCase.Run(ctx)
	if err != nil {
		return err
	}
	slog.Info("Snow alert sent",
		"run_id", report.RunID,
		"snow", report.Snow,
		"snow_dates", report.SnowDates,
		"days", report.Days,
		"recipients", report.Recipients)
	return nil
}

// Start runs the scheduler loop and blocks until ctx is cancelled or Shutdown is called.
// An application can be started only once.
func (a *Application) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return fmt.Errorf("application already started")
	}
	a.started = true
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	slog.Info("Starting application...")
	defer cancel()
	defer close(a.stopped)

	for _, job := range a.scheduler.Jobs() {
		slog.Info("Snow alert scheduled", "job", job.Name, "next_run", job.NextRun)
	}

	if err := a.scheduler.Run(ctx); err != nil {
		return fmt.Errorf("scheduler error: %w", err)
	}

	return nil
}

// Shutdown cancels the scheduler loop, which also cancels a run in progress,
// and waits for the loop to exit or ctx to expire
func (a *Application) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down application...")

	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel == nil {
		slog.Info("Application shutdown complete")
		return nil
	}
	cancel()

	select {
	case <-a.stopped:
	case <-ctx.Done():
		return fmt.Errorf("shutdown scheduler: %w", ctx.Err())
	}

	slog.Info("Application shutdown complete")
	return nil
}

// Config returns the application configuration
func (a *Application) Config() *config.Config {
	return a.config
}

// Scheduler returns the job scheduler for testing
func (a *Application) Scheduler() *scheduler.Scheduler {
	return a.scheduler
}

// GetAlertUseCase returns the alert use case for testing
func (a *Application) GetAlertUseCase() *alert.UseCase {
	return a.alertUseCase
}
