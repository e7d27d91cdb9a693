package container

import (
	"context"
	"database/sql"
	"time"

	"netif-recorder/internal/application/polling"
	"netif-recorder/internal/application/usecases"
	"netif-recorder/internal/domain/constants"
	"netif-recorder/internal/domain/entities"
	"netif-recorder/internal/domain/errors"
	"netif-recorder/internal/domain/interfaces"
	"netif-recorder/internal/domain/services"
	"netif-recorder/internal/infrastructure/adapters"
	"netif-recorder/internal/infrastructure/api"
	"netif-recorder/internal/infrastructure/config"
	"netif-recorder/internal/infrastructure/health"
	"netif-recorder/internal/infrastructure/metrics"
	"netif-recorder/internal/infrastructure/network"
	"netif-recorder/internal/infrastructure/persistence"
	infraServices "netif-recorder/internal/infrastructure/services"
	"netif-recorder/internal/infrastructure/watcher"
	"netif-recorder/pkg/db"
	"netif-recorder/pkg/utils"

	"github.com/sirupsen/logrus"
)

// 데이터베이스 연결과 스키마 준비에 허용되는 시간
const startupTimeout = 2 * time.Minute

// Container는 의존성 주입을 관리하는 컨테이너입니다
type Container struct {
	config *config.Config
	logger *logrus.Logger

	// 인프라스트럭처 어댑터들
	fileSystem      interfaces.FileSystem
	commandExecutor interfaces.CommandExecutor
	clock           interfaces.Clock
	osDetector      interfaces.OSDetector
	linkLister      interfaces.LinkLister
	routeQuerier    interfaces.RouteQuerier
	resolver        interfaces.ResolverQuerier

	// 서비스들
	healthService   *health.HealthService
	snapshotBuilder *services.SnapshotBuilder

	// 레포지토리
	repository interfaces.RecordRepository

	// 유스케이스
	store                  *usecases.ReconciliationStore
	refreshSnapshotUseCase *usecases.RefreshSnapshotUseCase

	// 외부 표면
	commandHandler *api.CommandHandler
	eventHub       *api.EventHub
	storeWatcher   *watcher.StoreWatcher

	// 데이터베이스
	db *sql.DB
}

// NewContainer는 새로운 Container를 생성합니다
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	container := &Container{
		config: cfg,
		logger: logger,
	}

	if err := container.initializeInfrastructure(); err != nil {
		return nil, err
	}

	if err := container.initializeRepository(); err != nil {
		container.Close()
		return nil, err
	}

	container.initializeServices()
	container.initializeUseCases()
	container.initializeSurfaces()

	return container, nil
}

// initializeInfrastructure는 인프라스트럭처 컴포넌트들을 초기화합니다
func (c *Container) initializeInfrastructure() error {
	c.fileSystem = adapters.NewRealFileSystem()
	c.commandExecutor = adapters.NewRealCommandExecutor(c.config.Recorder.CommandTimeout)
	c.clock = adapters.NewRealClock()
	c.osDetector = adapters.NewRealOSDetector(c.fileSystem, c.config.Recorder.OSRelease)
	c.linkLister = adapters.NewNetLinkLister(c.logger)
	c.routeQuerier = network.NewRouteQuerier(c.commandExecutor, c.config.Recorder.CommandTimeout, c.logger)
	c.resolver = network.NewResolvConfQuerier(c.config.Recorder.ResolvConf, c.logger)

	return nil
}

// initializeRepository는 설정된 백엔드의 레포지토리를 초기화합니다
func (c *Container) initializeRepository() error {
	switch c.config.Store.Backend {
	case constants.StoreBackendFile:
		repo, err := c.newFileRepository(c.newBackupService())
		if err != nil {
			return err
		}
		c.repository = repo
		return nil

	case constants.StoreBackendMySQL:
		return c.initializeMySQL()

	default:
		return errors.NewValidationError("unknown store backend: "+c.config.Store.Backend, nil)
	}
}

func (c *Container) newBackupService() interfaces.BackupService {
	if c.config.Store.BackupDir == "" {
		return nil
	}
	return infraServices.NewBackupService(
		c.fileSystem,
		c.clock,
		c.logger,
		c.config.Store.BackupDir,
		c.config.Store.MaxBackups,
	)
}

func (c *Container) newFileRepository(backup interfaces.BackupService) (*persistence.FileRepository, error) {
	codec, err := persistence.CodecForPath(c.config.Store.Path)
	if err != nil {
		return nil, errors.NewValidationError("unsupported store file format", err)
	}
	return persistence.NewFileRepository(c.config.Store.Path, codec, c.fileSystem, backup, c.logger), nil
}

// initializeMySQL은 데이터베이스에 연결하고, 기록 파일이 있으면 테이블에 없는 레코드를 옮겨 담습니다
func (c *Container) initializeMySQL() error {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	dbCfg := c.config.Database
	conn, err := db.Open(ctx, db.Config{
		Host:         dbCfg.Host,
		Port:         dbCfg.Port,
		User:         dbCfg.User,
		Password:     dbCfg.Password,
		Database:     dbCfg.Database,
		MaxOpenConns: dbCfg.MaxOpenConns,
		MaxIdleConns: dbCfg.MaxIdleConns,
		MaxLifetime:  dbCfg.MaxLifetime,
	}, utils.DefaultRetryConfig, c.logger)
	if err != nil {
		return errors.NewPersistenceError("failed to connect to database", err)
	}
	c.db = conn

	repo := persistence.NewMySQLRepository(conn, c.logger)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	c.repository = repo

	if c.config.Store.Path == "" || !c.fileSystem.Exists(c.config.Store.Path) {
		return nil
	}

	document, err := c.newFileRepository(nil)
	if err != nil {
		return err
	}
	inserted, err := persistence.SyncFromDocument(ctx, document, repo, c.logger)
	if err != nil {
		return errors.NewPersistenceError("failed to import record file", err)
	}
	if inserted > 0 {
		c.logger.WithFields(logrus.Fields{
			"path":     c.config.Store.Path,
			"inserted": inserted,
		}).Info("기록 파일의 레코드를 데이터베이스로 가져옴")
	}

	return nil
}

// initializeServices는 서비스들을 초기화합니다
func (c *Container) initializeServices() {
	c.healthService = health.NewHealthService(c.clock, c.config.Store.Backend, c.logger)
	c.healthService.UpdateStoreHealth(true, nil)

	c.snapshotBuilder = services.NewSnapshotBuilder(c.linkLister, c.routeQuerier, c.resolver, c.logger)
	c.snapshotBuilder.OnDegrade(func(query string, err error) {
		metrics.RecordExternalQueryFailure(query)
		c.healthService.RecordDegradedQuery(query, err)
	})
}

// initializeUseCases는 유스케이스들을 초기화합니다
// 파일 감시가 켜져 있으면 저장소는 감시기를 거쳐 써서 자신의 쓰기가 외부 변경으로 보고되지 않습니다
func (c *Container) initializeUseCases() {
	repo := c.repository
	if c.config.Store.Watch && c.config.Store.Backend == constants.StoreBackendFile {
		c.storeWatcher = watcher.NewStoreWatcher(
			c.config.Store.Path,
			c.repository,
			c.logger,
			func(records entities.RecordSet) { c.eventHub.RecordsChangedExternally(records) },
			func(entities.RecordSet) { c.healthService.RecordExternalChange() },
		)
		repo = c.storeWatcher.Guard(c.repository)
	}

	c.store = usecases.NewReconciliationStore(repo, c.logger)
	c.refreshSnapshotUseCase = usecases.NewRefreshSnapshotUseCase(
		observedSource{builder: c.snapshotBuilder, health: c.healthService},
		c.store,
		c.logger,
	)
}

// initializeSurfaces는 명령 핸들러와 이벤트 허브를 초기화합니다
func (c *Container) initializeSurfaces() {
	c.eventHub = api.NewEventHub(c.store.Load, c.logger)
	c.commandHandler = api.NewCommandHandler(c.store, c.refreshSnapshotUseCase, c.healthService, c.logger)

	c.store.SetNotifier(c.eventHub)
}

// NewReconcileTask는 주기 병합 작업을 반환합니다
func (c *Container) NewReconcileTask() polling.Task {
	return func(ctx context.Context) (polling.CycleResult, error) {
		output, err := c.refreshSnapshotUseCase.Execute(ctx, usecases.RefreshSnapshotInput{Reconcile: true})
		c.healthService.ObserveOperation(err)
		if err != nil {
			return polling.CycleResult{}, err
		}

		changed := len(output.Reconcile.Filled) > 0 || len(output.Reconcile.Appended) > 0
		return polling.CycleResult{Changed: changed}, nil
	}
}

// NewPollingStrategy는 설정된 주기 병합 전략을 생성합니다
func (c *Container) NewPollingStrategy() polling.Strategy {
	rc := c.config.Recorder
	switch rc.Strategy {
	case polling.StrategyBackoff:
		return polling.NewExponentialBackoffStrategy(rc.ReconcileInterval, rc.MaxInterval, rc.BackoffMultiplier, c.logger)
	case polling.StrategyAdaptive:
		return polling.NewAdaptiveStrategy(rc.ReconcileInterval, rc.MaxInterval, rc.IdleInterval, c.logger)
	default:
		return polling.NewFixedIntervalStrategy(rc.ReconcileInterval)
	}
}

// GetConfig는 설정을 반환합니다
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetOSDetector는 OS 감지기를 반환합니다
func (c *Container) GetOSDetector() interfaces.OSDetector {
	return c.osDetector
}

// GetHealthService는 헬스 서비스를 반환합니다
func (c *Container) GetHealthService() *health.HealthService {
	return c.healthService
}

// GetStore는 기록 저장소를 반환합니다
func (c *Container) GetStore() *usecases.ReconciliationStore {
	return c.store
}

// GetRefreshSnapshotUseCase는 스냅샷 유스케이스를 반환합니다
func (c *Container) GetRefreshSnapshotUseCase() *usecases.RefreshSnapshotUseCase {
	return c.refreshSnapshotUseCase
}

// GetCommandHandler는 명령 핸들러를 반환합니다
func (c *Container) GetCommandHandler() *api.CommandHandler {
	return c.commandHandler
}

// GetEventHub는 이벤트 허브를 반환합니다
func (c *Container) GetEventHub() *api.EventHub {
	return c.eventHub
}

// GetStoreWatcher는 파일 감시기를 반환합니다. 감시가 꺼져 있으면 nil입니다
func (c *Container) GetStoreWatcher() *watcher.StoreWatcher {
	return c.storeWatcher
}

// Close는 컨테이너를 정리합니다
func (c *Container) Close() error {
	if c.storeWatcher != nil {
		c.storeWatcher.Stop()
	}
	if c.eventHub != nil {
		c.eventHub.Close()
	}
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// observedSource는 성공한 스냅샷 생성을 헬스 서비스에 기록합니다
type observedSource struct {
	builder *services.SnapshotBuilder
	health  *health.HealthService
}

func (s observedSource) Build(ctx context.Context) (entities.RecordSet, error) {
	snapshot, err := s.builder.Build(ctx)
	if err == nil {
		s.health.RecordSnapshot()
	}
	return snapshot, err
}
