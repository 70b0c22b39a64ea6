package service

import (
	"log/slog"

	"ticketdesk.app/portal/core/config"
	"ticketdesk.app/portal/internal/queue"
	"ticketdesk.app/portal/internal/store"
)

type Services struct {
	stores      *store.Stores
	txRunner    TxRunner
	gateway     ChatwootGateway
	producer    queue.Producer
	chatwootCfg config.ChatwootConfig
	logger      *slog.Logger
}

func NewServices(
	stores *store.Stores,
	txRunner TxRunner,
	gateway ChatwootGateway,
	producer queue.Producer,
	chatwootCfg config.ChatwootConfig,
	logger *slog.Logger,
) *Services {
	if logger == nil {
		logger = slog.Default()
	}
	return &Services{
		stores:      stores,
		txRunner:    txRunner,
		gateway:     gateway,
		producer:    producer,
		chatwootCfg: chatwootCfg,
		logger:      logger,
	}
}

func (s *Services) Sync() TicketSyncService {
	return NewTicketSyncService(s.stores.Messages(), s.stores.Events(), s.txRunner, s.logger)
}

func (s *Services) Conversations() ConversationService {
	return NewConversationService(
		s.stores.Conversations(),
		s.stores.ContactLinks(),
		s.stores.Events(),
		s.txRunner,
		s.gateway,
		s.Sync(),
		s.producer,
		s.chatwootCfg,
		s.logger,
	)
}

func (s *Services) Messages() MessageService {
	return NewMessageService(s.gateway, s.Sync(), s.logger)
}
