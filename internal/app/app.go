package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/image-catalog/internal/cfg"
	v1Http "github.com/DRSN-tech/image-catalog/internal/delivery/v1/http"
	firestoreRepo "github.com/DRSN-tech/image-catalog/internal/repository/firestore"
	"github.com/DRSN-tech/image-catalog/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/image-catalog/internal/repository/pgdb/converter"
	qdrantRepo "github.com/DRSN-tech/image-catalog/internal/repository/qdrant"
	"github.com/DRSN-tech/image-catalog/internal/repository/redis"
	redisConv "github.com/DRSN-tech/image-catalog/internal/repository/redis/converter"
	"github.com/DRSN-tech/image-catalog/internal/usecase"
	"github.com/DRSN-tech/image-catalog/pkg/closer"
	"github.com/DRSN-tech/image-catalog/pkg/clients"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
	"github.com/DRSN-tech/image-catalog/pkg/postgres"
	"github.com/DRSN-tech/image-catalog/pkg/tr"
	"github.com/jimlawless/whereami"
)

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 15 * time.Second
)

// documentStore - выбранное документное хранилище и связанные с ним зависимости.
type documentStore struct {
	metadata   usecase.MetadataRepository
	outbox     usecase.OutboxRepository // nil для Firestore
	transactor usecase.Transactor
	db         *postgres.PgDatabase // nil для Firestore
}

// initDocumentStore подключает Postgres (с миграциями) или Firestore в зависимости от DOCUMENT_STORE.
func initDocumentStore(ctx context.Context, cfg *config.Config, cl *closer.Closer, logger logger.Logger) (*documentStore, error) {
	switch cfg.Documents.Kind {
	case config.DocumentStorePostgres:
		db, err := initPGDB(ctx, logger, cfg.Db)
		if err != nil {
			return nil, err
		}
		cl.AddFunc("postgres", db.Close)

		return &documentStore{
			metadata:   pgdb.NewImageMetadataRepo(db.Pool, pgdbConv.NewImageMetadataConverterImpl()),
			outbox:     pgdb.NewOutboxEventRepo(db.Pool, pgdbConv.NewOutboxEventConverterImpl()),
			transactor: tr.NewPgTransactor(db.Pool),
			db:         db,
		}, nil

	case config.DocumentStoreFirestore:
		client, err := clients.NewFirestoreClient(ctx, cfg.Documents)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		cl.Add("firestore", func(context.Context) error { return client.Close() })

		return &documentStore{
			metadata:   firestoreRepo.NewImageMetadataRepo(client, cfg.Documents.FirestoreCollection),
			transactor: tr.NopTransactor{},
		}, nil

	default:
		return nil, e.Wrap(cfg.Documents.Kind, e.ErrUnknownDocumentStore)
	}
}

func initPGDB(ctx context.Context, logger logger.Logger, cfg *config.PGDBCfg) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(ctx, cfg)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(cfg.MigrationsDir, logger); err != nil {
		db.Close()
		logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}

func initQdrant(ctx context.Context, cfg *config.QdrantCfg, cl *closer.Closer) (*qdrantRepo.EmbeddingRepo, error) {
	qdrantClient, err := clients.NewQdrantClient(cfg)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add("qdrant", func(context.Context) error { return qdrantClient.Close() })

	if err := clients.EnsureCollection(ctx, qdrantClient); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return qdrantRepo.NewEmbeddingRepo(qdrantClient.Client, cfg), nil
}

func initCache(ctx context.Context, cfg *config.RedisCfg, cl *closer.Closer, logger logger.Logger) (*redis.CacheRepo, error) {
	redisClient := clients.NewRedisClient(cfg)
	cl.Add("redis", func(context.Context) error { return redisClient.Close() })

	if err := redisClient.Ping(ctx); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return redis.NewCacheRepo(redisClient, redisConv.NewLocationConverterImpl(), cfg, logger), nil
}

// serveHTTP запускает сервер, регистрирует его остановку в closer и возвращает канал фатальных ошибок.
func serveHTTP(srv *v1Http.Server, port string, cl *closer.Closer, logger logger.Logger) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server started on port %s", port)
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf(err, "HTTP server failed")
			errCh <- err
		}
	}()
	cl.Add("http server", srv.Stop)

	return errCh
}

// waitForShutdown блокируется до сигнала, фатальной ошибки или остановки ctx и закрывает ресурсы.
func waitForShutdown(ctx context.Context, cl *closer.Closer, logger logger.Logger, errChs ...<-chan error) error {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	fatal := make(chan error, len(errChs))
	for _, ch := range errChs {
		go func() {
			if err, ok := <-ch; ok {
				fatal <- err
			}
		}()
	}

	var appErr error
	select {
	case appErr = <-fatal:
		logger.Errorf(appErr, "fatal error, stopping")
	case <-shutdown:
		logger.Infof("Received shutdown signal, stopping gracefully...")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := cl.Close(shutdownCtx); err != nil {
		logger.Errorf(err, "shutdown finished with errors")
	}

	logger.Infof("Application shutdown complete")
	return appErr
}
