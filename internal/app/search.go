package app

import (
	"context"

	config "github.com/DRSN-tech/image-catalog/internal/cfg"
	v1Http "github.com/DRSN-tech/image-catalog/internal/delivery/v1/http"
	"github.com/DRSN-tech/image-catalog/internal/infrastructure/embedding"
	"github.com/DRSN-tech/image-catalog/internal/usecase"
	"github.com/DRSN-tech/image-catalog/pkg/closer"
	"github.com/DRSN-tech/image-catalog/pkg/clients"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
	"golang.org/x/time/rate"
)

// Search - HTTP API семантического поиска по каталогу.
type Search struct {
	cfg     *config.Config
	logger  logger.Logger
	closer  *closer.Closer
	httpSrv *v1Http.Server
}

func NewSearch(ctx context.Context, cfg *config.Config, logger logger.Logger) (*Search, error) {
	cl := closer.NewCloser(0)
	s, err := buildSearch(ctx, cfg, cl, logger)
	if err != nil {
		if closeErr := cl.Close(context.Background()); closeErr != nil {
			logger.Warnf("cleanup after failed start: %v", closeErr)
		}
		return nil, err
	}

	return s, nil
}

func buildSearch(ctx context.Context, cfg *config.Config, cl *closer.Closer, logger logger.Logger) (*Search, error) {
	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	docs, err := initDocumentStore(startCtx, cfg, cl, logger)
	if err != nil {
		return nil, err
	}

	embRepo, err := initQdrant(startCtx, cfg.Qdrant, cl)
	if err != nil {
		return nil, err
	}

	cacheRepo, err := initCache(startCtx, cfg.Redis, cl, logger)
	if err != nil {
		return nil, err
	}

	predictor, err := clients.NewPredictionClient(startCtx, cfg.Embedding)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add("vertex prediction", func(context.Context) error { return predictor.Close() })
	embedder := embedding.NewVertexEmbedder(predictor, cfg.Embedding, logger.With("component", "embedding"))

	limiter := rate.NewLimiter(rate.Limit(cfg.Search.EmbedRatePerSec), cfg.Search.EmbedBurst)
	searchUC := usecase.NewSearchUC(embedder, embRepo, docs.metadata, cacheRepo, limiter, cfg.Search.MaxNumResults, logger.With("component", "search"))

	r := chi.NewRouter()
	v1Http.NewRouter(r, logger).InitSearch(searchUC, cfg.Search)

	return &Search{
		cfg:     cfg,
		logger:  logger,
		closer:  cl,
		httpSrv: v1Http.NewServer(r, cfg.Http),
	}, nil
}

func (s *Search) Run(ctx context.Context) error {
	httpErrCh := serveHTTP(s.httpSrv, s.cfg.Http.Port, s.closer, s.logger)

	return waitForShutdown(ctx, s.closer, s.logger, httpErrCh)
}
