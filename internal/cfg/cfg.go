package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/image-catalog/pkg/e"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
	"github.com/jimlawless/whereami"
)

const (
	DocumentStorePostgres  = "postgres"
	DocumentStoreFirestore = "firestore"
)

type Config struct {
	Minio      *MinIOCfg
	Http       *HTTPConfig
	Db         *PGDBCfg
	Qdrant     *QdrantCfg
	Redis      *RedisCfg
	Kafka      *KafkaCfg
	GenAI      *GenAICfg
	Embedding  *EmbeddingCfg
	Geocoding  *GeocodingCfg
	Search     *SearchCfg
	Documents  *DocumentStoreCfg
	ScratchDir string
}

type KafkaCfg struct {
	Topic             string
	RedeliveryTopic   string
	OutboxTopic       string
	GroupID           string
	Brokers           []string
	NetworkMode       string
	Partitions        int
	ReplicationFactor int
	// MaxDeliveryAttempts - сколько раз событие обрабатывается, прежде чем его отбросят
	MaxDeliveryAttempts int
}

type MinIOCfg struct {
	MinioEndpoint     string // Адрес конечной точки Minio
	SourceBucket      string // Бакет, в который загружаются исходные изображения
	ProcessedBucket   string // Бакет для обработанных изображений
	BackupBucket      string // Бакет для JSON-копий записей индекса
	BackupPrefix      string // Префикс ключей резервных копий
	MinioRootUser     string // Имя пользователя для доступа к Minio
	MinioRootPassword string // Пароль для доступа к Minio
	MinioUseSSL       bool
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PGDBCfg struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	// MigrationsDir - директория SQL-миграций golang-migrate
	MigrationsDir string
}

// DSN собирает строку подключения к PostgreSQL.
func (c *PGDBCfg) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type QdrantCfg struct {
	Port                 int
	Host                 string
	ApiKey               string
	QdrantCollectionName string // имя коллекции в Qdrant
	UseTLS               bool
	VectorSize           uint64
}

type RedisCfg struct {
	Addr        string
	Password    string
	User        string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
	LocationTTL time.Duration // TTL результатов геокодинга
	MetadataTTL time.Duration // TTL метаданных в поисковом сервисе
}

// GenAICfg - параметры генеративной модели и обхода регионов.
type GenAICfg struct {
	ProjectID       string
	Regions         []string // порядок важен: это приоритет fallback
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	MaxAttempts     int
	BackoffBase     time.Duration
	BackoffMax      time.Duration
}

type EmbeddingCfg struct {
	ProjectID string
	Region    string
	Model     string
	Dimension int
}

type GeocodingCfg struct {
	ApiKey string
}

type SearchCfg struct {
	DefaultNumResults int
	MaxNumResults     int
	DefaultThreshold  float64
	EmbedRatePerSec   float64
	EmbedBurst        int
}

type DocumentStoreCfg struct {
	Kind                string // postgres | firestore
	FirestoreProjectID  string
	FirestoreCollection string
}

// Load безопасно загружает конфигурацию сервиса обработки и возвращает ошибку в случае неудачи.
func Load(log logger.Logger) (*Config, error) {
	cfg, err := loadCommon(log)
	if err != nil {
		return nil, err
	}

	if cfg.Minio, err = loadMinIOCfg(log); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if cfg.Kafka, err = loadKafkaCfg(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if cfg.GenAI, err = loadGenAICfg(log); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	cfg.Geocoding = &GeocodingCfg{ApiKey: getEnv("GOOGLE_MAPS_API_KEY")}
	cfg.ScratchDir = getEnvOrDefault("SCRATCH_DIR", os.TempDir())

	return cfg, nil
}

// LoadSearch загружает конфигурацию сервиса поиска: MinIO, Kafka и генеративная модель ему не нужны.
func LoadSearch(log logger.Logger) (*Config, error) {
	cfg, err := loadCommon(log)
	if err != nil {
		return nil, err
	}

	if cfg.Search, err = loadSearchCfg(log); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return cfg, nil
}

func loadCommon(log logger.Logger) (*Config, error) {
	documents, err := loadDocumentStoreCfg()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var db *PGDBCfg
	if documents.Kind == DocumentStorePostgres {
		db, err = loadPGDBCfg(log)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
	}

	http, err := loadHTTPConfig(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	redis, err := loadRedisCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	embedding, err := loadEmbeddingCfg(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	qdrant, err := loadQdrantCfg(log, embedding.Dimension)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &Config{
		Http:      http,
		Db:        db,
		Qdrant:    qdrant,
		Redis:     redis,
		Embedding: embedding,
		Documents: documents,
	}, nil
}

func loadKafkaCfg() (*KafkaCfg, error) {
	const (
		defaultPartitions        = 3
		defaultReplicationFactor = 1
		defaultNetworkMode       = "tcp"
		defaultGroupID           = "image-processor"
		defaultMaxAttempts       = 5
	)

	brokerStr := os.Getenv("KAFKA_BROKERS")
	if brokerStr == "" {
		return nil, fmt.Errorf("KAFKA_BROKERS environment variable is required")
	}
	brokers := splitList(brokerStr)

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		return nil, fmt.Errorf("KAFKA_TOPIC environment variable is required")
	}

	partitions, err := parseIntEnv("KAFKA_PARTITIONS", defaultPartitions)
	if err != nil {
		return nil, e.Wrap("KAFKA_PARTITIONS", err)
	}

	replicationFactor, err := parseIntEnv("REPLICATION_FACTOR", defaultReplicationFactor)
	if err != nil {
		return nil, e.Wrap("REPLICATION_FACTOR", err)
	}

	maxAttempts, err := parseIntEnv("KAFKA_MAX_DELIVERY_ATTEMPTS", defaultMaxAttempts)
	if err != nil {
		return nil, e.Wrap("KAFKA_MAX_DELIVERY_ATTEMPTS", err)
	}

	return &KafkaCfg{
		Brokers:           brokers,
		Topic:             topic,
		RedeliveryTopic:   getEnvOrDefault("KAFKA_REDELIVERY_TOPIC", topic+".redelivery"),
		OutboxTopic:       getEnvOrDefault("KAFKA_OUTBOX_TOPIC", "image.catalogued"),
		GroupID:           getEnvOrDefault("KAFKA_GROUP_ID", defaultGroupID),
		Partitions:        partitions,
		ReplicationFactor: replicationFactor,
		NetworkMode:       getEnvOrDefault("KAFKA_NETWORK_MODE", defaultNetworkMode),

		MaxDeliveryAttempts: maxAttempts,
	}, nil
}

func loadMinIOCfg(log logger.Logger) (*MinIOCfg, error) {
	const (
		defaultUseSSL       = false
		defaultEndpoint     = "minio:9000"
		defaultBackupPrefix = "embeddings"
	)

	useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", strconv.FormatBool(defaultUseSSL)))
	if err != nil {
		log.Errorf(err, "invalid MINIO_USE_SSL")
		return nil, err
	}

	processed := getEnv("PROCESSED_BUCKET")
	if processed == "" {
		err := fmt.Errorf("PROCESSED_BUCKET is required")
		log.Errorf(err, "missing PROCESSED_BUCKET")
		return nil, err
	}

	return &MinIOCfg{
		MinioEndpoint:     getEnvOrDefault("MINIO_ENDPOINT", defaultEndpoint),
		SourceBucket:      getEnv("SOURCE_BUCKET"),
		ProcessedBucket:   processed,
		BackupBucket:      getEnvOrDefault("BACKUP_BUCKET", processed),
		BackupPrefix:      getEnvOrDefault("BACKUP_PREFIX", defaultBackupPrefix),
		MinioRootUser:     getEnv("MINIO_ROOT_USER"),
		MinioRootPassword: getEnv("MINIO_ROOT_PASSWORD"),
		MinioUseSSL:       useSSL,
	}, nil
}

func loadHTTPConfig(log logger.Logger) (*HTTPConfig, error) {
	const (
		defaultPort         = "8080"
		defaultReadTimeout  = 5 * time.Second
		defaultWriteTimeout = 5 * time.Minute // пайплайн обрабатывает событие синхронно
		defaultIdleTimeout  = 60 * time.Second
	)

	port := getEnvOrDefault("PORT", getEnvOrDefault("HTTP_PORT", defaultPort))

	readTimeout, err := parseDurationEnv("HTTP_READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("HTTP_WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid HTTP_WRITE_TIMEOUT")
		return nil, err
	}

	idleTimeout, err := parseDurationEnv("KEEP_ALIVE", defaultIdleTimeout)
	if err != nil {
		log.Errorf(err, "invalid KEEP_ALIVE")
		return nil, err
	}

	return &HTTPConfig{
		Port:         port,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}, nil
}

func loadPGDBCfg(log logger.Logger) (*PGDBCfg, error) {
	const (
		defaultHost    = "localhost"
		defaultPort    = "5432"
		defaultSSLMode = "disable"
		defaultMigDir  = "db/migrations"
	)

	user := getEnv("POSTGRES_USER")
	if user == "" {
		err := fmt.Errorf("POSTGRES_USER is required")
		log.Errorf(err, "missing POSTGRES_USER")
		return nil, err
	}

	password := getEnv("POSTGRES_PASSWORD")
	if password == "" {
		err := fmt.Errorf("POSTGRES_PASSWORD is required")
		log.Errorf(err, "missing POSTGRES_PASSWORD")
		return nil, err
	}

	dbName := getEnv("POSTGRES_DB")
	if dbName == "" {
		err := fmt.Errorf("POSTGRES_DB is required")
		log.Errorf(err, "missing POSTGRES_DB")
		return nil, err
	}

	return &PGDBCfg{
		Host:     getEnvOrDefault("POSTGRES_HOST", defaultHost),
		Port:     getEnvOrDefault("POSTGRES_PORT", defaultPort),
		User:     user,
		Password: password,
		DBName:   dbName,
		SSLMode:  getEnvOrDefault("SSL_MODE", defaultSSLMode),

		MigrationsDir: getEnvOrDefault("MIGRATIONS_DIR", defaultMigDir),
	}, nil
}

// loadQdrantCfg берёт размер вектора коллекции из размерности эмбеддинга.
// VECTOR_SIZE, если задан, обязан с ней совпадать.
func loadQdrantCfg(logger logger.Logger, dimension int) (*QdrantCfg, error) {
	const (
		defaultQdrantGRPCPort = "6334"
		defaultUseTLS         = false
		defaultCollection     = "image_embeddings"
	)

	strPort := getEnvOrDefault("QDRANT_GRPC_PORT", defaultQdrantGRPCPort)
	port, err := strconv.Atoi(strPort)
	if err != nil {
		logger.Errorf(err, "invalid QDRANT_PORT")
		return nil, err
	}

	useTLS, err := strconv.ParseBool(getEnvOrDefault("QDRANT_USE_TLS", strconv.FormatBool(defaultUseTLS)))
	if err != nil {
		logger.Errorf(err, "invalid QDRANT_USE_TLS")
		return nil, err
	}

	strVectorSize := getEnvOrDefault("VECTOR_SIZE", strconv.Itoa(dimension))
	vectorSize, err := strconv.ParseUint(strVectorSize, 10, 64)
	if err != nil {
		logger.Errorf(err, "invalid VECTOR_SIZE")
		return nil, err
	}
	if vectorSize != uint64(dimension) {
		err := fmt.Errorf("%w: VECTOR_SIZE=%d, EMBEDDING_DIMENSION=%d", e.ErrVectorSizeMismatch, vectorSize, dimension)
		logger.Errorf(err, "invalid VECTOR_SIZE")
		return nil, err
	}

	return &QdrantCfg{
		Host:                 getEnvOrDefault("QDRANT_HOST", "localhost"),
		Port:                 port,
		ApiKey:               getEnv("QDRANT__SERVICE__API_KEY"),
		QdrantCollectionName: getEnvOrDefault("COLLECTION_NAME", defaultCollection),
		UseTLS:               useTLS,
		VectorSize:           vectorSize,
	}, nil
}

func loadRedisCfg(log logger.Logger) (*RedisCfg, error) {
	const (
		defaultAddr         = "localhost:6379"
		defaultDB           = 0
		defaultMaxRetries   = 3
		defaultDialTimeout  = 5 * time.Second
		defaultReadTimeout  = 3 * time.Second
		defaultWriteTimeout = 3 * time.Second
		defaultLocationTTL  = 24 * time.Hour
		defaultMetadataTTL  = 5 * time.Minute
	)

	dbStr := getEnvOrDefault("REDIS_DB_ID", strconv.Itoa(defaultDB))
	db, err := strconv.Atoi(dbStr)
	if err != nil {
		log.Errorf(err, "invalid REDIS_DB_ID")
		return nil, err
	}

	maxRetries, err := parseIntEnv("MAX_RETRIES", defaultMaxRetries)
	if err != nil {
		log.Errorf(err, "invalid MAX_RETRIES")
		return nil, err
	}

	dialTimeout, err := parseDurationEnv("DIAL_TIMEOUT", defaultDialTimeout)
	if err != nil {
		log.Errorf(err, "invalid DIAL_TIMEOUT")
		return nil, err
	}

	readTimeout, err := parseDurationEnv("READ_TIMEOUT", defaultReadTimeout)
	if err != nil {
		log.Errorf(err, "invalid READ_TIMEOUT")
		return nil, err
	}

	writeTimeout, err := parseDurationEnv("WRITE_TIMEOUT", defaultWriteTimeout)
	if err != nil {
		log.Errorf(err, "invalid WRITE_TIMEOUT")
		return nil, err
	}

	locationTTL, err := parseDurationEnv("LOCATION_TTL", defaultLocationTTL)
	if err != nil {
		log.Errorf(err, "invalid LOCATION_TTL")
		return nil, err
	}

	metadataTTL, err := parseDurationEnv("METADATA_TTL", defaultMetadataTTL)
	if err != nil {
		log.Errorf(err, "invalid METADATA_TTL")
		return nil, err
	}

	timeout := readTimeout
	if writeTimeout > timeout {
		timeout = writeTimeout
	}

	return &RedisCfg{
		Addr:        getEnvOrDefault("REDIS_ADDR", defaultAddr),
		Password:    getEnv("REDIS_PASSWORD"),
		User:        getEnv("REDIS_USER"),
		DB:          db,
		MaxRetries:  maxRetries,
		DialTimeout: dialTimeout,
		Timeout:     timeout,
		LocationTTL: locationTTL,
		MetadataTTL: metadataTTL,
	}, nil
}

func loadGenAICfg(log logger.Logger) (*GenAICfg, error) {
	const (
		defaultRegions         = "us-central1,us-east4,us-west1,europe-west4,asia-northeast1"
		defaultModel           = "gemini-2.0-flash-001"
		defaultTemperature     = 0.2
		defaultMaxOutputTokens = 50
		defaultMaxAttempts     = 3
		defaultBackoffBase     = 1 * time.Second
		defaultBackoffMax      = 10 * time.Second
	)

	project := getEnv("PROJECT_ID")
	if project == "" {
		err := fmt.Errorf("PROJECT_ID is required")
		log.Errorf(err, "missing PROJECT_ID")
		return nil, err
	}

	regions := splitList(getEnvOrDefault("GENAI_REGIONS", defaultRegions))
	if len(regions) == 0 {
		return nil, e.ErrNoRegions
	}

	temperature, err := strconv.ParseFloat(getEnvOrDefault("GENAI_TEMPERATURE", strconv.FormatFloat(defaultTemperature, 'f', -1, 32)), 32)
	if err != nil {
		log.Errorf(err, "invalid GENAI_TEMPERATURE")
		return nil, err
	}

	maxTokens, err := parseIntEnv("GENAI_MAX_OUTPUT_TOKENS", defaultMaxOutputTokens)
	if err != nil {
		log.Errorf(err, "invalid GENAI_MAX_OUTPUT_TOKENS")
		return nil, err
	}

	maxAttempts, err := parseIntEnv("GENAI_MAX_ATTEMPTS", defaultMaxAttempts)
	if err != nil {
		log.Errorf(err, "invalid GENAI_MAX_ATTEMPTS")
		return nil, err
	}

	backoffBase, err := parseDurationEnv("GENAI_BACKOFF_BASE", defaultBackoffBase)
	if err != nil {
		log.Errorf(err, "invalid GENAI_BACKOFF_BASE")
		return nil, err
	}

	backoffMax, err := parseDurationEnv("GENAI_BACKOFF_MAX", defaultBackoffMax)
	if err != nil {
		log.Errorf(err, "invalid GENAI_BACKOFF_MAX")
		return nil, err
	}

	return &GenAICfg{
		ProjectID:       project,
		Regions:         regions,
		Model:           getEnvOrDefault("GENAI_MODEL", defaultModel),
		Temperature:     float32(temperature),
		MaxOutputTokens: int32(maxTokens),
		MaxAttempts:     maxAttempts,
		BackoffBase:     backoffBase,
		BackoffMax:      backoffMax,
	}, nil
}

func loadEmbeddingCfg(log logger.Logger) (*EmbeddingCfg, error) {
	const (
		defaultRegion    = "us-central1"
		defaultModel     = "multimodalembedding@001"
		defaultDimension = 1408
	)

	dimension, err := parseIntEnv("EMBEDDING_DIMENSION", defaultDimension)
	if err != nil {
		log.Errorf(err, "invalid EMBEDDING_DIMENSION")
		return nil, err
	}

	return &EmbeddingCfg{
		ProjectID: getEnv("PROJECT_ID"),
		Region:    getEnvOrDefault("REGION", defaultRegion),
		Model:     getEnvOrDefault("EMBEDDING_MODEL", defaultModel),
		Dimension: dimension,
	}, nil
}

func loadSearchCfg(log logger.Logger) (*SearchCfg, error) {
	const (
		defaultNumResults = 10
		maxNumResults     = 100
		defaultThreshold  = 0.5
		defaultRatePerSec = 5
		defaultBurst      = 1
	)

	ratePerSec, err := strconv.ParseFloat(getEnvOrDefault("SEARCH_EMBED_RATE", strconv.Itoa(defaultRatePerSec)), 64)
	if err != nil {
		log.Errorf(err, "invalid SEARCH_EMBED_RATE")
		return nil, err
	}

	burst, err := parseIntEnv("SEARCH_EMBED_BURST", defaultBurst)
	if err != nil {
		log.Errorf(err, "invalid SEARCH_EMBED_BURST")
		return nil, err
	}

	return &SearchCfg{
		DefaultNumResults: defaultNumResults,
		MaxNumResults:     maxNumResults,
		DefaultThreshold:  defaultThreshold,
		EmbedRatePerSec:   ratePerSec,
		EmbedBurst:        burst,
	}, nil
}

func loadDocumentStoreCfg() (*DocumentStoreCfg, error) {
	const defaultCollection = "index_metadata"

	kind := strings.ToLower(getEnvOrDefault("DOCUMENT_STORE", DocumentStorePostgres))
	if kind != DocumentStorePostgres && kind != DocumentStoreFirestore {
		return nil, e.Wrap(kind, e.ErrUnknownDocumentStore)
	}

	return &DocumentStoreCfg{
		Kind:                kind,
		FirestoreProjectID:  getEnvOrDefault("FIRESTORE_PROJECT_ID", getEnv("PROJECT_ID")),
		FirestoreCollection: getEnvOrDefault("FIRESTORE_COLLECTION", defaultCollection),
	}, nil
}

// getEnv возвращает значение переменной окружения.
// Возвращает пустую строку, если переменная не задана.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// parseDurationEnv считывает длительность или возвращает значение по умолчанию.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		return time.ParseDuration(v)
	}

	return defaultValue, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue, e.ErrIncorrectEnvVariable
	}

	return intValue, nil
}

// splitList разбивает список через запятую, отбрасывая пустые элементы.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
