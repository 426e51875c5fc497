package autofillService

import (
	"FormFlowGolang/internal/api/autofill"
	autofillRepository "FormFlowGolang/internal/api/autofill/repository"
	"FormFlowGolang/pkg/redis"
	"FormFlowGolang/pkg/utils"
	"context"

	"github.com/sirupsen/logrus"
)

type IAutofillService interface {
	GetSuggestions(ctx context.Context, req autofill.SuggestionsRequest) (*autofill.SuggestionsResponse, error)
	RecordUsage(ctx context.Context, event autofill.UsageEvent) error
}

type autofillService struct {
	log          *logrus.Logger
	autofillRepo autofillRepository.Repository
	redisClient  redis.IRedis
	utils        utils.IUtils
}

func NewAutofillService(
	log *logrus.Logger,
	autofillRepo autofillRepository.Repository,
	redisClient redis.IRedis,
	utils utils.IUtils,
) IAutofillService {
	return &autofillService{
		log:          log,
		autofillRepo: autofillRepo,
		redisClient:  redisClient,
		utils:        utils,
	}
}
