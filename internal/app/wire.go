//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"github.com/poetry-royal/mefil/internal/config"
	"github.com/poetry-royal/mefil/internal/http/handler"
	"github.com/poetry-royal/mefil/internal/observability"
	"github.com/poetry-royal/mefil/internal/repository"
	"github.com/poetry-royal/mefil/internal/service"
)

// Initialize builds the whole application from the environment. The returned
// cleanup closes the redis and database connections.
func Initialize(ctx context.Context) (*App, func(), error) {
	wire.Build(
		config.Load,
		provideLogging,
		wire.FieldsOf(new(*loggingSetup), "Logger", "Provider"),
		observability.InitRuntime,
		provideRedisClient,
		provideDatabase,
		provideDocumentDefaults,
		provideDocumentRepository,
		repository.NewEventRepository,
		repository.NewNoteRepository,
		provideNotifier,
		provideTokenAuthority,
		provideAuthService,
		provideMefilService,
		service.NewChatService,
		provideAuthHandler,
		handler.NewMefilHandler,
		handler.NewChatHandler,
		provideReadiness,
		provideServer,
		New,
	)
	return nil, nil, nil
}
