package app

import (
	"context"

	config "github.com/DRSN-tech/image-catalog/internal/cfg"
	v1Http "github.com/DRSN-tech/image-catalog/internal/delivery/v1/http"
	"github.com/DRSN-tech/image-catalog/internal/infrastructure"
	"github.com/DRSN-tech/image-catalog/internal/infrastructure/embedding"
	"github.com/DRSN-tech/image-catalog/internal/infrastructure/gemini"
	"github.com/DRSN-tech/image-catalog/internal/infrastructure/geocoding"
	"github.com/DRSN-tech/image-catalog/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/image-catalog/internal/infrastructure/minio"
	s3Repo "github.com/DRSN-tech/image-catalog/internal/repository/minio"
	"github.com/DRSN-tech/image-catalog/internal/usecase"
	"github.com/DRSN-tech/image-catalog/pkg/closer"
	"github.com/DRSN-tech/image-catalog/pkg/clients"
	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

// Processor - сервис обогащения: Kafka-консьюмер уведомлений хранилища, HTTP push-эндпоинт
// и outbox-воркер событий каталога.
type Processor struct {
	cfg      *config.Config
	logger   logger.Logger
	closer   *closer.Closer
	consumer *kafka.Consumer
	worker   *kafka.OutboxWorker
	httpSrv  *v1Http.Server
}

func NewProcessor(ctx context.Context, cfg *config.Config, logger logger.Logger) (*Processor, error) {
	cl := closer.NewCloser(0)
	p, err := buildProcessor(ctx, cfg, cl, logger)
	if err != nil {
		if closeErr := cl.Close(context.Background()); closeErr != nil {
			logger.Warnf("cleanup after failed start: %v", closeErr)
		}
		return nil, err
	}

	return p, nil
}

func buildProcessor(ctx context.Context, cfg *config.Config, cl *closer.Closer, logger logger.Logger) (*Processor, error) {
	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	docs, err := initDocumentStore(startCtx, cfg, cl, logger)
	if err != nil {
		return nil, err
	}

	minioClient, err := clients.NewMinIOClient(cfg.Minio)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if err := clients.EnsureBuckets(startCtx, minioClient, cfg.Minio); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	blobInfra := minioInfra.NewBlobInfrastructure(s3Repo.NewObjectRepo(minioClient), cfg.Minio, cfg.ScratchDir, logger)

	embRepo, err := initQdrant(startCtx, cfg.Qdrant, cl)
	if err != nil {
		return nil, err
	}

	cacheRepo, err := initCache(startCtx, cfg.Redis, cl, logger)
	if err != nil {
		return nil, err
	}

	mapsClient, err := clients.NewMapsClient(cfg.Geocoding)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	resolver := geocoding.NewResolver(mapsClient, cacheRepo, logger.With("component", "geocoding"))

	invoker := gemini.NewInvoker(func(ctx context.Context, region string) (gemini.ModelClient, error) {
		client, err := clients.NewGenAIClient(ctx, cfg.GenAI.ProjectID, region)
		if err != nil {
			return nil, err
		}
		return client.Models, nil
	}, cfg.GenAI, logger.With("component", "invoker"))
	analyzer := gemini.NewAnalyzer(invoker, cfg.GenAI.MaxOutputTokens, logger.With("component", "analyzer"))

	predictor, err := clients.NewPredictionClient(startCtx, cfg.Embedding)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add("vertex prediction", func(context.Context) error { return predictor.Close() })
	embedder := embedding.NewVertexEmbedder(predictor, cfg.Embedding, logger.With("component", "embedding"))

	sink := usecase.NewCatalogSink(blobInfra, docs.metadata, docs.outbox, embRepo, docs.transactor, logger.With("component", "sink"))
	enrichmentUC := usecase.NewEnrichmentUC(
		blobInfra,
		infrastructure.NewPNGEncoder(),
		resolver,
		analyzer,
		embedder,
		sink,
		logger.With("component", "pipeline"),
	)

	producer := kafka.NewProducer(logger, cfg.Kafka)
	if err := producer.EnsureTopics(startupTimeout); err != nil {
		logger.Warnf("failed to ensure kafka topics: %v", err)
	}
	cl.Add("kafka producer", func(context.Context) error { return producer.Close() })

	reader := kafka.NewReader(cfg.Kafka)
	consumer := kafka.NewConsumer(reader, enrichmentUC, producer, cfg.Kafka.MaxDeliveryAttempts, logger.With("component", "consumer"))
	cl.Add("kafka consumer", func(context.Context) error { return consumer.Close() })

	var worker *kafka.OutboxWorker
	if docs.outbox != nil {
		worker = kafka.NewOutboxWorker(docs.outbox, logger.With("component", "outbox"), producer, docs.db.Dsn)
	}

	r := chi.NewRouter()
	v1Http.NewRouter(r, logger).InitProcessor(enrichmentUC)

	return &Processor{
		cfg:      cfg,
		logger:   logger,
		closer:   cl,
		consumer: consumer,
		worker:   worker,
		httpSrv:  v1Http.NewServer(r, cfg.Http),
	}, nil
}

// Run запускает все входы пайплайна и блокируется до сигнала остановки или фатальной ошибки.
func (p *Processor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	if p.worker != nil {
		p.worker.Start(ctx)
		// closer работает в LIFO: воркер останавливается раньше продюсера
		p.closer.AddFunc("outbox worker", p.worker.Stop)
	}

	consumerErrCh := make(chan error, 1)
	go func() {
		if err := p.consumer.Run(ctx); err != nil {
			p.logger.Errorf(err, "kafka consumer failed")
			consumerErrCh <- err
		}
	}()
	p.closer.AddFunc("pipeline context", cancel)

	httpErrCh := serveHTTP(p.httpSrv, p.cfg.Http.Port, p.closer, p.logger)

	return waitForShutdown(ctx, p.closer, p.logger, httpErrCh, consumerErrCh)
}
