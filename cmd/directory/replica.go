package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/gophdir/internal/bus"
	clientapi "github.com/iudanet/gophdir/internal/client/api"
	"github.com/iudanet/gophdir/internal/config"
	"github.com/iudanet/gophdir/internal/coord"
	"github.com/iudanet/gophdir/internal/directory"
	"github.com/iudanet/gophdir/internal/election"
	"github.com/iudanet/gophdir/internal/nodes"
	"github.com/iudanet/gophdir/internal/replication"
	"github.com/iudanet/gophdir/internal/server"
	"github.com/iudanet/gophdir/internal/server/handlers"
	"github.com/iudanet/gophdir/internal/server/jwt"
	"github.com/iudanet/gophdir/internal/server/middleware"
	"github.com/iudanet/gophdir/internal/token"
	"github.com/iudanet/gophdir/pkg/api"
)

// usersTimeout ограничивает один запрос к сервису пользователей
const usersTimeout = 5 * time.Second

// replica собранная реплика каталога
type replica struct {
	cfg        *config.Directory
	build      server.BuildInfo
	logger     *slog.Logger
	election   *election.Election
	registry   *nodes.Registry
	users      *clientapi.UsersClient
	state      *directory.State
	manager    *replication.Manager
	service    *directory.Service
	tokens     *jwt.Service
	subscriber bus.Subscriber
	onFatal    func(error)
}

func newReplica(cfg *config.Directory, co coord.Coordinator, build server.BuildInfo, logger *slog.Logger) (*replica, error) {
	subscriber, err := server.NewSubscriber(cfg.Bus, logger)
	if err != nil {
		return nil, err
	}

	r := &replica{
		cfg:        cfg,
		build:      build,
		logger:     logger,
		subscriber: subscriber,
		tokens:     jwt.NewService(cfg.Secret, jwt.DefaultTTL),
	}

	self := election.Candidate{ReplicaID: cfg.ReplicaID, URL: cfg.AdvertiseURL}
	r.election = election.New(co, cfg.Coordinator.Election, self, logger)

	issuer := token.NewIssuer(cfg.Secret, cfg.TokenTTL)
	storage := clientapi.NewStorageClient(issuer, clientapi.DefaultTimeout)
	r.registry = nodes.NewRegistry(cfg.Nodes.URLs, storage, cfg.Nodes.ProbeInterval, cfg.Nodes.ProbeTimeout, logger)
	r.users = clientapi.NewUsersClient(cfg.UsersURL, usersTimeout, cfg.UserCacheTTL)

	r.state = directory.NewState(r.registry, r.users, storage, directory.Options{
		Candidates: cfg.Placement.Candidates,
		Replicas:   cfg.Placement.Replicas,
	}, logger)

	r.manager = replication.NewManager(replication.Config{
		ReplicaID:     cfg.ReplicaID,
		WriteQuorum:   cfg.Replication.WriteQuorum,
		QuorumTimeout: cfg.Replication.QuorumTimeout,
		VersionWait:   cfg.Replication.VersionWait,
		HistorySize:   cfg.Replication.HistorySize,
		QueueSize:     cfg.Replication.QueueSize,
	}, r.state, r.election, clientapi.NewPeerDialer(cfg.ReplicaID, r.tokens, clientapi.DefaultTimeout), r.fatal, logger)

	r.service = directory.NewService(r.state, r.manager, r.election, issuer, logger)
	return r, nil
}

func (r *replica) fatal(err error) {
	if r.onFatal != nil {
		r.onFatal(err)
	}
}

// start запускает опрос узлов, репликацию, выборы и подписку на шину.
// Менеджер подписывается на выборы до регистрации, чтобы не пропустить
// первое назначение лидера.
func (r *replica) start(ctx context.Context) error {
	r.registry.ProbeAll(ctx)
	go r.registry.Run(ctx)

	r.manager.Start(ctx)
	r.election.OnLeaderChange(r.manager.OnLeaderChange)
	r.election.OnNewCandidate(r.manager.OnNewCandidate)
	r.election.OnCandidateGone(r.manager.OnCandidateGone)
	r.election.OnLeaderChange(func(leader election.Candidate, amLeader bool) {
		r.logger.Info("leader changed",
			slog.String("leader", leader.ReplicaID),
			slog.Bool("am_leader", amLeader),
		)
	})

	if _, err := r.election.Register(ctx); err != nil {
		return fmt.Errorf("failed to join election: %w", err)
	}
	go func() {
		if err := r.election.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("election stopped", slog.Any("error", err))
		}
	}()

	go func() {
		err := r.subscriber.Subscribe(ctx, bus.OnUserDeleted(r.logger, r.userDeleted))
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, bus.ErrClosed) {
			r.logger.Error("announcement subscription stopped", slog.Any("error", err))
		}
	}()
	return nil
}

// userDeleted лидер удаляет файлы пользователя, остальные реплики только
// сбрасывают кэш; удаление дойдет до них дельтами
func (r *replica) userDeleted(ctx context.Context, userID string) error {
	r.state.ForgetUser(userID)
	if !r.election.AmLeader() {
		return nil
	}
	res, err := r.service.Purge(ctx, userID)
	if err != nil {
		return fmt.Errorf("purge %s: %w", userID, err)
	}
	r.logger.InfoContext(ctx, "purged deleted user",
		slog.String("user_id", userID),
		slog.String("version", res.Version.String()),
	)
	return nil
}

// handler собирает маршруты реплики
func (r *replica) handler() http.Handler {
	mux := http.NewServeMux()
	handlers.NewDirectoryHandler(r.logger, r.service, token.NewValidator(r.cfg.Secret)).Register(mux)

	replicaMux := http.NewServeMux()
	handlers.NewReplicaHandler(r.logger, r.manager).Register(replicaMux)
	mux.Handle("/replica/", middleware.ReplicaAuth(r.logger, r.tokens)(replicaMux))

	health := handlers.NewHealthHandler(r.logger, r.build.Version, r.status)
	mux.HandleFunc("GET /health", health.Health)

	return middleware.Chain(mux,
		middleware.RecoveryMiddleware(r.logger),
		middleware.LoggingWithSkip(r.logger, []string{"/health"}),
		middleware.FailGuard(r.logger, r.manager.Failed),
	)
}

func (r *replica) status(resp *api.HealthResponse) {
	resp.ReplicaID = r.cfg.ReplicaID
	resp.Role = "follower"
	if r.election.AmLeader() {
		resp.Role = "leader"
	}
	if leader, ok := r.election.Leader(); ok {
		resp.Leader = leader.URL
	}
	current := r.manager.CurrentVersion()
	resp.Current = &current
}

func (r *replica) close() {
	if err := r.subscriber.Close(); err != nil {
		r.logger.Warn("failed to close subscriber", slog.Any("error", err))
	}
}
