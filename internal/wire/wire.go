package wire

import (
	"Leadnest/internal/api"
	"Leadnest/internal/api/config"
	"Leadnest/internal/api/handler"
	"Leadnest/internal/job"
	"Leadnest/internal/pkg/bant"
	"Leadnest/internal/pkg/cron"
	"Leadnest/internal/pkg/intent"
	"Leadnest/internal/pkg/kafka"
	"Leadnest/internal/pkg/llm"
	"Leadnest/internal/pkg/meter"
	pkgmongo "Leadnest/internal/pkg/mongo"
	"Leadnest/internal/repository"
	"Leadnest/internal/service"
	"time"

	"github.com/gin-gonic/gin"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router       *gin.Engine
	DB           *gorm.DB
	KafkaManager *kafka.ConsumerManager
	CronManager  *cron.Manager
	UsageMeter   *meter.KafkaMeter
}

func BuildApplication(db *gorm.DB, mongoDB *mongodriver.Database, cfg *config.Config) (*ApplicationContainer, error) {
	usageRepo := repository.NewUsageRecordRepo(db)

	producer, err := kafka.NewUsageProducer(cfg.Kafka)
	if err != nil {
		return nil, err
	}
	usageMeter := meter.NewKafkaMeter(producer, cfg.Kafka.UsageTopic)

	client, err := llm.InitClient()
	if err != nil {
		return nil, err
	}
	gateway := llm.NewGateway(
		client,
		usageMeter,
		cfg.LLM.PrimaryModel,
		cfg.LLM.FallbackModel,
		time.Duration(cfg.LLM.Timeout)*time.Second,
	)

	classifier := intent.NewClassifier(gateway, llm.ReadPrompt(cfg.LLM.PromptsPath.IntentClassify))
	dedupCache := bant.NewDedupCache(bant.DefaultDedupTTL)
	extractor := bant.NewExtractor(gateway, dedupCache, llm.ReadPrompt(cfg.LLM.PromptsPath.BantExtract))

	msgRepo := pkgmongo.NewTurnMessageRepo(mongoDB)
	turnService := service.NewTurnService(
		classifier,
		extractor,
		gateway,
		service.NewBANTStateStore(),
		service.NewConversationLocker(),
		service.NewLeadNotifier(cfg.Lead),
		msgRepo,
		llm.ReadPrompt(cfg.LLM.PromptsPath.Reply),
	)

	handlers := &api.HandlersGroup{
		TurnHandler: handler.NewTurnHandler(turnService),
	}
	router := api.SetupRouter(handlers)

	kafkaMgr, err := kafka.NewConsumerManager(cfg, usageRepo)
	if err != nil {
		return nil, err
	}

	cronMgr := cron.NewCronManager(
		job.NewDedupSweepJob(dedupCache),
		job.NewUsageRollupJob(usageRepo),
	)

	return &ApplicationContainer{
		Router:       router,
		DB:           db,
		KafkaManager: kafkaMgr,
		CronManager:  cronMgr,
		UsageMeter:   usageMeter,
	}, nil
}
