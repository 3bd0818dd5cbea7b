// Package commands is the command line of the terminal registration wizard.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/storage"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/planregistration/internal/catalog"
	"github.com/Lllllllleong/planregistration/internal/config"
	"github.com/Lllllllleong/planregistration/internal/document"
	"github.com/Lllllllleong/planregistration/internal/gcp"
	"github.com/Lllllllleong/planregistration/internal/services"
	"github.com/Lllllllleong/planregistration/internal/tui"
	"github.com/Lllllllleong/planregistration/internal/wizard"
)

// WizardConfig is read from the environment; flags override it.
type WizardConfig struct {
	ProjectID       string        `env:"PROJECT_ID"`
	CollectionName  string        `env:"FIRESTORE_COLLECTION" envDefault:"registrations"`
	PhotoBucket     string        `env:"HOUSE_PHOTO_BUCKET"`
	PlanCatalogPath string        `env:"PLAN_CATALOG_PATH"`
	OutputDir       string        `env:"REGISTRATION_OUTPUT_DIR" envDefault:"."`
	LogFile         string        `env:"REGISTRATION_LOG_FILE"`
	SimulatedDelay  time.Duration `env:"SIMULATED_SUBMIT_DELAY" envDefault:"2s"`
}

// Execute parses flags and runs the wizard until the customer quits.
func Execute() error {
	var cfg WizardConfig
	if err := config.ParseEnv(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	root := &cobra.Command{
		Use:           "registration-wizard",
		Short:         "Register for an internet service plan from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfg.PlanCatalogPath, "catalog", cfg.PlanCatalogPath, "plan catalog YAML (default: built-in plans)")
	flags.StringVarP(&cfg.OutputDir, "output-dir", "o", cfg.OutputDir, "directory for the downloaded registration PDF")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "append JSON logs to this file (default: discard)")
	flags.StringVar(&cfg.ProjectID, "project", cfg.ProjectID, "Google Cloud project for recommendations and registration storage")
	flags.StringVar(&cfg.PhotoBucket, "photo-bucket", cfg.PhotoBucket, "bucket for house photos; without it submissions are simulated")
	flags.DurationVar(&cfg.SimulatedDelay, "simulated-delay", cfg.SimulatedDelay, "latency of the simulated registration backend")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func run(ctx context.Context, cfg WizardConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}

	closeLog, err := setupLogging(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	cat, err := catalog.Load(cfg.PlanCatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load plan catalog: %w", err)
	}

	recCfg, err := services.LoadRecommenderConfig()
	if err != nil {
		return fmt.Errorf("failed to load recommender configuration: %w", err)
	}
	recCfg.ProjectID = cfg.ProjectID
	recommender, closeRecommender, err := services.NewRecommenderFromConfig(ctx, *recCfg, cat)
	if err != nil {
		return err
	}
	defer closeRecommender()

	submitter, closeBackend, err := newSubmitter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	ctrl := wizard.NewController(cat, submitter)
	app := tui.NewApp(ctx, ctrl, recommender, document.NewRenderer(), cfg.OutputDir)
	slog.Info("Registration wizard started.", "plans", cat.Len(), "recommendations", recommender.Configured())

	if _, err := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("wizard exited: %w", err)
	}
	return nil
}

// newSubmitter returns the Firestore and Cloud Storage backend when a project
// and photo bucket are configured, and the simulated backend otherwise.
func newSubmitter(ctx context.Context, cfg WizardConfig) (wizard.Submitter, func(), error) {
	if cfg.ProjectID == "" || cfg.PhotoBucket == "" {
		slog.Warn("No registration backend configured; submissions are simulated.", "delay", cfg.SimulatedDelay)
		return services.SimulatedRegistrar{Delay: cfg.SimulatedDelay}, func() {}, nil
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		firestoreClient.Close()
		return nil, nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	registrar := services.NewRegistrar(
		gcp.NewRegistrationStore(firestoreClient, cfg.CollectionName),
		gcp.NewObjectStore(storageClient),
		cfg.PhotoBucket,
	)
	return registrar, func() {
		storageClient.Close()
		firestoreClient.Close()
	}, nil
}

// setupLogging keeps log output off the terminal the wizard draws on.
func setupLogging(path string) (func(), error) {
	var w io.Writer = io.Discard
	closeFn := func() {}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, nil)))
	return closeFn, nil
}
