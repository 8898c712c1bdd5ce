package services

import (
	appContext "github.com/alphabatem/common/context"
	"github.com/lac-hong-legacy/ecotale_api/services/repositories"
	log "github.com/sirupsen/logrus"
)

// StoreService selects the document store backend and hands out the
// repositories built on it.
type StoreService struct {
	appContext.DefaultService

	store   repositories.Store
	users   *repositories.UserRepository
	reports *repositories.ReportRepository
	system  *repositories.SystemRepository
}

const STORE_SVC = "store_svc"

// NewStoreService wires the repositories over a given store, used by tests.
func NewStoreService(store repositories.Store) *StoreService {
	svc := &StoreService{}
	svc.use(store)
	return svc
}

func (svc StoreService) Id() string {
	return STORE_SVC
}

func (svc *StoreService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *StoreService) Start() error {
	firebaseSvc := svc.Service(FIREBASE_SVC).(*FirebaseService)
	redisSvc := svc.Service(REDIS_SVC).(*RedisService)

	if firebaseSvc.Enabled() {
		feed := repositories.NewRedisChangeFeed(redisSvc.GetClient(), "")
		svc.use(repositories.NewFirebaseStore(firebaseSvc.Database(), feed))
		log.Info("Using Firebase Realtime Database store")
		return nil
	}

	svc.use(repositories.NewMemoryStore())
	log.Warn("Using in-memory store, data is lost on restart")
	return nil
}

func (svc *StoreService) use(store repositories.Store) {
	svc.store = store
	svc.users = repositories.NewUserRepository(store)
	svc.reports = repositories.NewReportRepository(store)
	svc.system = repositories.NewSystemRepository(store)
}

func (svc *StoreService) Store() repositories.Store {
	return svc.store
}

func (svc *StoreService) Users() *repositories.UserRepository {
	return svc.users
}

func (svc *StoreService) Reports() *repositories.ReportRepository {
	return svc.reports
}

func (svc *StoreService) System() *repositories.SystemRepository {
	return svc.system
}
