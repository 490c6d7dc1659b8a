package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/wrinkle/pkg/adapter"
	"github.com/m-mizutani/wrinkle/pkg/heuristic"
	"github.com/m-mizutani/wrinkle/pkg/interfaces"
	"github.com/m-mizutani/wrinkle/pkg/metrics"
	"github.com/m-mizutani/wrinkle/pkg/policy"
	"github.com/m-mizutani/wrinkle/pkg/repository"
	"github.com/m-mizutani/wrinkle/pkg/service/assistant"
	"github.com/m-mizutani/wrinkle/pkg/usecase/conversation"
	"github.com/m-mizutani/wrinkle/pkg/usecase/market"
	"github.com/m-mizutani/wrinkle/pkg/usecase/validation"
	"github.com/m-mizutani/wrinkle/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	// Repository
	project  string
	database string

	// Storage
	bucket        string
	storagePrefix string

	// Adapters
	geminiProject  string
	geminiLocation string
	geminiAPIKey   string
	geminiModel    string

	// Gate
	policy          string
	heuristicConfig string

	// Market dashboard
	bigqueryProject  string
	bigqueryDataset  string
	bigqueryMaxBytes int64
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID for Firestore. Sessions are kept in memory when empty",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for message logs. Logs are kept in memory when empty",
			Sources:     cli.EnvVars("WRINKLE_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "storage-prefix",
			Usage:       "Object key prefix inside the bucket",
			Sources:     cli.EnvVars("WRINKLE_STORAGE_PREFIX"),
			Destination: &cfg.storagePrefix,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini on Vertex AI",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key. Takes precedence over Vertex AI settings",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model name",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
	}
}

// gateFlags returns flags for the idea gate
func gateFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "policy",
			Usage:       "Acceptance policy: conjunction, lenient, rego, or a path to a .rego file",
			Value:       "conjunction",
			Sources:     cli.EnvVars("WRINKLE_POLICY"),
			Destination: &cfg.policy,
		},
		&cli.StringFlag{
			Name:        "heuristic-config",
			Usage:       "YAML file overriding the heuristic length floor, keywords and trickery patterns",
			Sources:     cli.EnvVars("WRINKLE_HEURISTIC_CONFIG"),
			Destination: &cfg.heuristicConfig,
		},
	}
}

// marketFlags returns flags for the market dashboard
func marketFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "bigquery-project",
			Usage:       "Google Cloud project running market queries",
			Sources:     cli.EnvVars("WRINKLE_BIGQUERY_PROJECT"),
			Destination: &cfg.bigqueryProject,
		},
		&cli.StringFlag{
			Name:        "bigquery-dataset",
			Usage:       "Market dataset as project.dataset. The dashboard is disabled when empty",
			Sources:     cli.EnvVars("WRINKLE_BIGQUERY_DATASET"),
			Destination: &cfg.bigqueryDataset,
		},
		&cli.IntFlag{
			Name:        "bigquery-max-bytes",
			Usage:       "Refuse market queries scanning more bytes than this (0 disables the check)",
			Value:       1 << 30,
			Sources:     cli.EnvVars("WRINKLE_BIGQUERY_MAX_BYTES"),
			Destination: &cfg.bigqueryMaxBytes,
		},
	}
}

// newRepository creates the session repository. Without a project the
// sessions only live as long as the process.
func (cfg *config) newRepository(ctx context.Context) (interfaces.SessionRepository, error) {
	if cfg.project == "" {
		logging.From(ctx).Warn("no project configured, sessions are kept in memory")
		return repository.NewMemory(), nil
	}
	if cfg.database == "" {
		return nil, goerr.New("database is required")
	}

	repo, err := repository.New(ctx, cfg.project, cfg.database)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

// newStorage creates a new Storage adapter instance
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, error) {
	if cfg.bucket == "" {
		logging.From(ctx).Warn("no bucket configured, message logs are kept in memory")
		return adapter.NewMemoryStorage(), nil
	}

	storage, err := adapter.NewStorage(ctx, cfg.bucket, adapter.WithPrefix(cfg.storagePrefix))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return storage, nil
}

func (cfg *config) newStore(ctx context.Context) (*conversation.Store, error) {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, err
	}
	storage, err := cfg.newStorage(ctx)
	if err != nil {
		return nil, err
	}
	return conversation.NewStore(repo, storage), nil
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiAPIKey == "" {
		if cfg.geminiProject == "" {
			return nil, goerr.New("gemini-project or gemini-api-key is required")
		}
		if cfg.geminiLocation == "" {
			return nil, goerr.New("gemini-location is required")
		}
	}

	gemini, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, cfg.geminiAPIKey,
		adapter.WithGenerativeModel(cfg.geminiModel))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini client")
	}
	return gemini, nil
}

func (cfg *config) newAssistant(ctx context.Context) (*assistant.Assistant, error) {
	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, err
	}
	return assistant.New(gemini), nil
}

// gate bundles the local heuristics and the orchestrator built on them
type gate struct {
	classifier   *heuristic.Classifier
	trickery     *heuristic.TrickeryDetector
	orchestrator *validation.Orchestrator
}

// newGate builds the idea gate. validator may be nil for heuristic-only runs.
func (cfg *config) newGate(ctx context.Context, validator interfaces.IdeaValidator, m *metrics.Metrics) (*gate, error) {
	hcfg, err := heuristic.LoadConfig(cfg.heuristicConfig)
	if err != nil {
		return nil, err
	}

	trickery, err := heuristic.NewTrickeryDetector(hcfg)
	if err != nil {
		return nil, err
	}

	p, err := policy.ByName(ctx, cfg.policy)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load acceptance policy")
	}

	classifier := heuristic.NewClassifier(hcfg)
	return &gate{
		classifier: classifier,
		trickery:   trickery,
		orchestrator: validation.New(classifier, validator,
			validation.WithPolicy(p),
			validation.WithMetrics(m),
		),
	}, nil
}

// newDashboard returns nil when no dataset is configured
func (cfg *config) newDashboard(ctx context.Context, m *metrics.Metrics) (*market.Dashboard, error) {
	if cfg.bigqueryDataset == "" {
		return nil, nil
	}

	project := cfg.bigqueryProject
	if project == "" {
		project = cfg.project
	}
	if project == "" {
		return nil, goerr.New("bigquery-project is required for the market dashboard")
	}

	bq, err := adapter.NewBigQuery(ctx, project)
	if err != nil {
		return nil, err
	}

	return market.New(bq, cfg.bigqueryDataset,
		market.WithMaxBytes(cfg.bigqueryMaxBytes),
		market.WithMetrics(m),
	), nil
}
