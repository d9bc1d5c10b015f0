package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/product-matcher/internal/cfg"
	v1Grpc "github.com/DRSN-tech/product-matcher/internal/delivery/v1/grpc"
	v1Http "github.com/DRSN-tech/product-matcher/internal/delivery/v1/http"
	"github.com/DRSN-tech/product-matcher/internal/infrastructure/images"
	"github.com/DRSN-tech/product-matcher/internal/infrastructure/kafka"
	ml_service "github.com/DRSN-tech/product-matcher/internal/infrastructure/ml-service"
	"github.com/DRSN-tech/product-matcher/internal/infrastructure/openai"
	fsRepo "github.com/DRSN-tech/product-matcher/internal/repository/fs"
	s3Repo "github.com/DRSN-tech/product-matcher/internal/repository/minio"
	"github.com/DRSN-tech/product-matcher/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/product-matcher/internal/repository/pgdb/converter"
	qdrantRepo "github.com/DRSN-tech/product-matcher/internal/repository/qdrant"
	"github.com/DRSN-tech/product-matcher/internal/repository/redis"
	redisConv "github.com/DRSN-tech/product-matcher/internal/repository/redis/converter"
	"github.com/DRSN-tech/product-matcher/internal/usecase"
	"github.com/DRSN-tech/product-matcher/pkg/clients"
	"github.com/DRSN-tech/product-matcher/pkg/closer"
	"github.com/DRSN-tech/product-matcher/pkg/e"
	"github.com/DRSN-tech/product-matcher/pkg/logger"
	"github.com/DRSN-tech/product-matcher/pkg/postgres"
	"github.com/DRSN-tech/product-matcher/pkg/tr"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	initTimeout     = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

// App собирает зависимости каталога. Серверы и outbox-воркер поднимаются только в Run,
// поэтому CLI использует тот же App без сетевых интерфейсов.
type App struct {
	cfg    *config.Config
	logger logger.Logger
	closer *closer.Closer

	db         *postgres.PgDatabase
	outboxRepo *pgdb.OutboxEventRepo

	catalogUC     *usecase.CatalogUseCase
	matcherUC     *usecase.MatcherUseCase
	maintenanceUC *usecase.MaintenanceUseCase
}

func NewApp(cfg *config.Config, logger logger.Logger) (_ *App, err error) {
	a := &App{
		cfg:    cfg,
		logger: logger,
		closer: closer.NewCloser(0),
	}

	defer func() {
		if err == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := a.closer.Close(ctx); cerr != nil {
			logger.Warnf("failed to release resources after init error: %v", cerr)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	a.db, err = initPGDB(ctx, logger, cfg)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.AddSimple("postgres", func() error {
		a.db.Close()
		return nil
	})

	productRepo := pgdb.NewProductRepo(a.db.Pool, pgdbConv.NewProductConverter())
	a.outboxRepo = pgdb.NewOutboxEventRepo(a.db.Pool, pgdbConv.NewOutboxEventConverter())

	imageRepo, err := a.initImageRepo(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	vectorIndex, err := a.initVectorIndex(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redisClient := clients.NewRedisClient(cfg.Redis)
	if err := redisClient.Ping(ctx); err != nil {
		// Кэш необязателен: промахи и ошибки кэша уходят в PostgreSQL
		logger.Warnf("redis is unavailable, barcode cache disabled until it recovers: %v", err)
	}
	a.closer.AddSimple("redis", redisClient.Close)
	cacheRepo := redis.NewCacheRepo(redisClient, redisConv.NewProductConverter(), cfg.Redis, logger)

	conn, err := grpc.NewClient(
		cfg.Ml.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()), // явное указание gRPC-клиенту использовать НЕзащищённое соединение (без TLS).
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.AddSimple("ml-service", conn.Close)
	ml := ml_service.NewMLService(conn, cfg.Ml.MaxRetries, cfg.Ml.CallTimeout, logger)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	imagesInfra := images.NewImagesInfrastructure(imageRepo, cfg.Storage.MaxImageSize, logger, cleanupCtx)
	a.closer.Add("image-cleanup", func(ctx context.Context) error {
		defer cleanupCancel()
		return imagesInfra.WaitForCleanup(ctx)
	})

	txManager := tr.NewManager(a.db.Pool)

	a.catalogUC = usecase.NewCatalogUC(
		productRepo,
		vectorIndex,
		imageRepo,
		imagesInfra,
		ml,
		cacheRepo,
		a.outboxRepo,
		txManager,
		logger,
		cfg.Catalog,
	)
	a.matcherUC = usecase.NewMatcherUC(a.catalogUC, openai.NewSuggestionClient(cfg.OpenAI), logger, cfg.Catalog)
	a.maintenanceUC = usecase.NewMaintenanceUC(a.catalogUC, productRepo, vectorIndex, imageRepo, logger, cfg.Catalog)

	return a, nil
}

func (a *App) Catalog() usecase.CatalogUC {
	return a.catalogUC
}

func (a *App) Matcher() usecase.MatcherUC {
	return a.matcherUC
}

func (a *App) Maintenance() usecase.MaintenanceUC {
	return a.maintenanceUC
}

// Close освобождает ресурсы в порядке, обратном инициализации.
func (a *App) Close(ctx context.Context) error {
	return a.closer.Close(ctx)
}

// Run поднимает gRPC и HTTP серверы и outbox-воркер, ждёт сигнала и корректно завершает работу.
func (a *App) Run() error {
	grpcSrv := v1Grpc.NewGRPCServer(a.cfg.Grpc, a.logger)
	grpcSrv.RegisterServices(a.catalogUC, a.maintenanceUC)

	errCh := make(chan error, 2)
	go func() {
		a.logger.Infof("gRPC server starting on %s:%s", a.cfg.Grpc.NetworkMode, a.cfg.Grpc.Port)
		if err := grpcSrv.Start(); err != nil {
			errCh <- e.Wrap("gRPC server", err)
		}
	}()

	r := chi.NewRouter()
	v1Http.NewRouter(r, a.logger, a.cfg.Storage.MaxImageSize).Init(a.catalogUC, a.matcherUC, a.maintenanceUC)
	httpSrv := v1Http.NewServer(r, a.cfg.Http)

	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := httpSrv.Run(); err != nil {
			errCh <- e.Wrap("HTTP server", err)
		}
	}()

	if a.cfg.Kafka.Enabled() {
		if err := a.startOutboxWorker(); err != nil {
			// Публикация событий отложена: строки остаются в outbox до следующего запуска
			a.logger.Errorf(err, "outbox worker is not started")
		}
	} else {
		a.logger.Infof("KAFKA_BROKERS is empty, catalog events stay in outbox")
	}

	// Серверы останавливаются первыми: закрытие идёт в обратном порядке регистрации
	a.closer.Add("grpc-server", grpcSrv.Stop)
	a.closer.Add("http-server", httpSrv.Stop)

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	// === Graceful shutdown ===
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.Close(ctx); err != nil {
		a.logger.Errorf(err, "shutdown finished with errors")
		appErr = errors.Join(appErr, err)
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}

func (a *App) startOutboxWorker() error {
	producer, err := kafka.NewProducer(a.logger, a.cfg.Kafka)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := producer.EnsureTopic(initTimeout); err != nil {
		producer.Close()
		return e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.AddSimple("kafka-producer", producer.Close)

	worker := kafka.NewOutboxWorker(a.outboxRepo, a.logger, producer, a.db.Dsn)
	worker.Start(context.Background())
	a.closer.AddSimple("outbox-worker", func() error {
		worker.Stop()
		return nil
	})

	return nil
}

func (a *App) initImageRepo(ctx context.Context) (usecase.ImageRepository, error) {
	switch a.cfg.Storage.Backend {
	case config.ImageStorageMinio:
		minioClient, err := clients.NewMinIOClient(a.cfg.Minio)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		if err := clients.EnsureBucket(ctx, minioClient, a.cfg.Minio.BucketName); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		return s3Repo.NewImageRepo(minioClient, a.cfg.Minio), nil
	default:
		repo, err := fsRepo.NewImageRepo(a.cfg.Storage.UploadDir)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		return repo, nil
	}
}

func (a *App) initVectorIndex(ctx context.Context) (usecase.VectorIndex, error) {
	if a.cfg.Catalog.VectorIndex != config.VectorIndexQdrant {
		return pgdb.NewPgvectorIndex(a.db.Pool), nil
	}

	qdrantClient, err := clients.NewQdrantClient(a.cfg.Qdrant)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.AddSimple("qdrant", qdrantClient.Close)

	if err := clients.EnsureCollection(ctx, qdrantClient); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return qdrantRepo.NewEmbeddingRepo(qdrantClient.Client, a.cfg.Qdrant), nil
}

func initPGDB(ctx context.Context, logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		db.Close()
		logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	// После миграции тип vector существует: пересоздаём соединения, чтобы зарегистрировать его
	db.Pool.Reset()

	if err := db.Ping(ctx); err != nil {
		db.Close()
		logger.Errorf(err, "failed to ping database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
