package app

import (
	"github.com/atelierhq/atelier-backend/internal/docgen"
	"github.com/atelierhq/atelier-backend/internal/logger"
	"github.com/atelierhq/atelier-backend/internal/utils"
)

type Config struct {
	Port         string
	Environment  string
	Version      string
	AllowOrigins string

	// Docgen carries the token budgets; validated once at startup so a bad
	// deployment fails before it can serve a request.
	Docgen docgen.Config

	ExtractionWorkerEnabled bool
	RedisEnabled            bool
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:         utils.GetEnv("PORT", "8080", log),
		Environment:  utils.GetEnv("APP_ENV", "development", log),
		Version:      utils.GetEnv("APP_VERSION", "dev", log),
		AllowOrigins: utils.GetEnv("CORS_ALLOW_ORIGINS", "", log),
		Docgen: docgen.Config{
			ContextLimit:          utils.GetEnvAsInt("DOCGEN_CONTEXT_LIMIT_TOKENS", 100_000, log),
			HierarchicalThreshold: utils.GetEnvAsInt("DOCGEN_HIERARCHICAL_THRESHOLD_TOKENS", 260_000, log),
			GroundingBudget:       utils.GetEnvAsInt("DOCGEN_GROUNDING_BUDGET_TOKENS", 0, log),
			GroundingTargetTokens: utils.GetEnvAsInt("DOCGEN_GROUNDING_TARGET_TOKENS", 2_000, log),
			MergeWithModel:        utils.GetEnvAsBool("DOCGEN_MERGE_WITH_MODEL", true, log),
		},
		ExtractionWorkerEnabled: utils.GetEnvAsBool("EXTRACTION_WORKER_ENABLED", true, log),
		RedisEnabled:            utils.GetEnvAsBool("REDIS_ENABLED", false, log),
	}
}
