// Package app wires configuration, storage and services into a runnable application.
// Both the API server and the one-shot cutover command are built from it.
package app

import (
	"alcyxob/exercise-tracker/internal/config"
	"alcyxob/exercise-tracker/internal/domain"
	"alcyxob/exercise-tracker/internal/events"
	"alcyxob/exercise-tracker/internal/repository"
	"alcyxob/exercise-tracker/internal/repository/memory"
	"alcyxob/exercise-tracker/internal/repository/mongo"
	"alcyxob/exercise-tracker/internal/service"
	"alcyxob/exercise-tracker/internal/storage"
	"alcyxob/exercise-tracker/internal/timewindow"
	"context"
	"errors"
	"fmt"
	"time"

	"cdr.dev/slog/v3"
	"github.com/coder/quartz"
)

// indexTimeout bounds index creation at startup.
const indexTimeout = time.Minute

// Repositories groups every store the services need.
type Repositories struct {
	Members    repository.MemberRepository
	Exercises  repository.ExerciseRepository
	Sessions   repository.SessionRepository
	History    repository.HistoryRepository
	Teams      repository.TeamRepository
	Transactor repository.Transactor
}

// App holds the wired services.
type App struct {
	Config    config.Config
	Logger    slog.Logger
	Clock     quartz.Clock
	Calc      timewindow.Calculator
	Repos     Repositories
	Auth      service.AuthService // nil without a JWT secret
	Exercises service.ExerciseService
	Teams     service.TeamService
	Ranking   *service.RankingEngine
	Archiver  *service.Archiver
	Cutover   *service.CutoverJob

	closers []func() error
}

// New builds the application from cfg.
func New(ctx context.Context, cfg config.Config, logger slog.Logger, clock quartz.Clock) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Clock: clock}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	a.Calc, err = timewindow.New(cfg.Cutover.Hour, loc)
	if err != nil {
		return nil, err
	}

	a.Repos, err = a.openRepositories(ctx)
	if err != nil {
		return nil, err
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		a.closers = append(a.closers, kafkaPublisher.Close)
		publisher = kafkaPublisher
		logger.Info(ctx, "publishing archived events", slog.F("brokers", cfg.Kafka.Brokers), slog.F("topic", cfg.Kafka.Topic))
	}

	var reports storage.ReportStore
	if cfg.S3.BucketName != "" {
		reports, err = storage.NewS3ReportStore(ctx, cfg.S3, logger)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("init report storage: %w", err)
		}
	}

	policy := domain.LimitPolicy{MaxSession: cfg.Limits.MaxSession, MaxDaily: cfg.Limits.MaxDaily}
	r := a.Repos

	a.Archiver = service.NewArchiver(r.Sessions, r.History, r.Transactor, policy, publisher, clock, logger)
	a.Exercises = service.NewExerciseService(r.Exercises, r.Sessions, r.History, r.Transactor, a.Archiver, policy, a.Calc, clock, logger)
	a.Ranking = service.NewRankingEngine(r.Members, r.Sessions, r.History, r.Transactor, a.Calc, clock)
	a.Teams = service.NewTeamService(r.Teams, r.Members, a.Ranking, a.Calc, clock)
	a.Cutover = service.NewCutoverJob(r.Exercises, r.Members, a.Archiver, a.Calc, reports, clock, logger)
	if cfg.JWT.Secret != "" {
		a.Auth = service.NewAuthService(r.Members, cfg.JWT.Secret, cfg.JWT.Expiration, clock)
	}
	return a, nil
}

func (a *App) openRepositories(ctx context.Context) (Repositories, error) {
	cfg := a.Config.Database
	if cfg.Driver == config.DriverMemory {
		a.Logger.Warn(ctx, "using in-memory storage, data is lost on exit")
		store := memory.NewStore()
		return Repositories{
			Members:    store.Members(),
			Exercises:  store.Exercises(),
			Sessions:   store.Sessions(),
			History:    store.History(),
			Teams:      store.Teams(),
			Transactor: store,
		}, nil
	}

	client, err := mongo.ConnectDB(cfg.URI)
	if err != nil {
		return Repositories{}, fmt.Errorf("connect to mongodb: %w", err)
	}
	a.closers = append(a.closers, func() error { return mongo.DisconnectDB(client) })
	db := client.Database(cfg.Name)
	a.Logger.Info(ctx, "database connection established", slog.F("database", cfg.Name))

	indexCtx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()
	if err := mongo.EnsureIndexes(indexCtx, db); err != nil {
		a.Logger.Warn(ctx, "ensure indexes", slog.Error(err))
	}

	transactor := mongo.NewPassthroughTransactor()
	if cfg.Transactions {
		transactor = mongo.NewMongoTransactor(client)
	} else {
		a.Logger.Warn(ctx, "mongodb transactions disabled, archives are not atomic")
	}

	return Repositories{
		Members:    mongo.NewMongoMemberRepository(db),
		Exercises:  mongo.NewMongoExerciseRepository(db),
		Sessions:   mongo.NewMongoSessionRepository(db),
		History:    mongo.NewMongoHistoryRepository(db),
		Teams:      mongo.NewMongoTeamRepository(db),
		Transactor: transactor,
	}, nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
