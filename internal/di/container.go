package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-scam-scanner/internal/adapters/alert"
	"github.com/mikey/llm-scam-scanner/internal/adapters/source"
	"github.com/mikey/llm-scam-scanner/internal/adapters/store"
	"github.com/mikey/llm-scam-scanner/internal/config"
	"github.com/mikey/llm-scam-scanner/internal/core"
	"github.com/mikey/llm-scam-scanner/internal/factory"
	"github.com/mikey/llm-scam-scanner/internal/logging"
	"github.com/mikey/llm-scam-scanner/internal/ports"
	"github.com/mikey/llm-scam-scanner/internal/utils"
)

// BuildContainer creates and configures the dependency injection container
// of the scanner daemon. configFile may be empty.
func BuildContainer(configFile string) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.NewWithFile(configFile)
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideComponents(container); err != nil {
		return nil, err
	}
	return container, nil
}

// provideComponents registers the factories and the components they create.
// Both containers share it; they differ only in how config and logger are built.
func provideComponents(container *dig.Container) error {
	// Register factories
	for _, constructor := range []interface{}{
		factory.NewTextProcessorFactory,
		factory.NewClassifierFactory,
		factory.NewStoreFactory,
		factory.NewSourceFactory,
		factory.NewAlertFactory,
		factory.NewCoordinatorFactory,
	} {
		if err := container.Provide(constructor); err != nil {
			return err
		}
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register classifier
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier(context.Background())
	}); err != nil {
		return err
	}

	// Register result store
	if err := container.Provide(func(f *factory.StoreFactory) (store.Store, error) {
		return f.CreateResultStore(context.Background())
	}); err != nil {
		return err
	}

	// Register conversation session
	if err := container.Provide(func(f *factory.SourceFactory) (*source.Session, error) {
		return f.CreateSession()
	}); err != nil {
		return err
	}

	// Register alert dispatcher
	if err := container.Provide(func(f *factory.AlertFactory) (*alert.AsyncDispatcher, error) {
		return f.CreateAlertDispatcher()
	}); err != nil {
		return err
	}

	// Register coordinator
	if err := container.Provide(func(
		f *factory.CoordinatorFactory,
		session *source.Session,
		classifier core.Classifier,
		resultStore store.Store,
		alerts *alert.AsyncDispatcher,
	) (*core.Coordinator, error) {
		return f.CreateCoordinator(session, classifier, resultStore, alerts)
	}); err != nil {
		return err
	}

	// Register scanner
	if err := container.Provide(func(c *core.Coordinator, logger *zap.Logger) ports.Scanner {
		logger.Debug("Scanner ready", zap.Duration("interval", c.Interval()))
		return c
	}); err != nil {
		return err
	}

	return nil
}
