package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"ticketdesk.app/portal/common/id"
	"ticketdesk.app/portal/core/config"
	"ticketdesk.app/portal/internal/chatwoot"
	"ticketdesk.app/portal/internal/mapper"
	"ticketdesk.app/portal/internal/model"
	"ticketdesk.app/portal/internal/queue"
	"ticketdesk.app/portal/internal/store"
)

// ChatwootGateway is the slice of the Chatwoot client the services need.
// *chatwoot.Client satisfies it.
type ChatwootGateway interface {
	GetOrCreateContact(ctx context.Context, identifier, name, email string, attributes map[string]any) (chatwoot.Contact, error)
	CreateConversation(ctx context.Context, contactIdentifier string, attributes map[string]any) (chatwoot.ConversationSummary, error)
	SendMessage(ctx context.Context, contactIdentifier string, conversationID int64, params chatwoot.SendMessageParams) (json.RawMessage, error)
	ListMessages(ctx context.Context, contactIdentifier string, conversationID int64) ([]json.RawMessage, error)
}

type CreateConversationParams struct {
	UserID          int64
	UserName        string
	UserEmail       string
	Title           string
	Description     string
	Complexity      model.Complexity
	Sector          string
	RequestTarget   model.RequestTarget
	RequestForName  *string
	RequestForEmail *string
}

type ConversationService interface {
	Create(ctx context.Context, params CreateConversationParams) (*model.Conversation, error)
	ListForUser(ctx context.Context, userID int64) ([]model.Conversation, error)
	Get(ctx context.Context, conversationID int64) (*model.Conversation, error)
	GetForUser(ctx context.Context, conversationID, userID int64) (*model.Conversation, error)
	GetByChatwootID(ctx context.Context, chatwootConversationID int64) (*model.Conversation, error)
	Timeline(ctx context.Context, conversationID int64, limit int32) ([]model.Event, error)
}

type conversationService struct {
	conversations store.ConversationStore
	contactLinks  store.ContactLinkStore
	events        store.EventStore
	txRunner      TxRunner
	gateway       ChatwootGateway
	sync          TicketSyncService
	producer      queue.Producer
	cfg           config.ChatwootConfig
	logger        *slog.Logger
}

func NewConversationService(
	conversations store.ConversationStore,
	contactLinks store.ContactLinkStore,
	events store.EventStore,
	txRunner TxRunner,
	gateway ChatwootGateway,
	sync TicketSyncService,
	producer queue.Producer,
	cfg config.ChatwootConfig,
	logger *slog.Logger,
) ConversationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &conversationService{
		conversations: conversations,
		contactLinks:  contactLinks,
		events:        events,
		txRunner:      txRunner,
		gateway:       gateway,
		sync:          sync,
		producer:      producer,
		cfg:           cfg,
		logger:        logger,
	}
}

func (s *conversationService) Create(ctx context.Context, params CreateConversationParams) (*model.Conversation, error) {
	identifier := fmt.Sprintf("portal-user:%d", params.UserID)

	link, err := s.contactLinks.GetByUserAndInbox(ctx, params.UserID, s.cfg.InboxIdentifier)
	if err != nil && err != store.ErrNotFound {
		return nil, fmt.Errorf("fetching contact link: %w", err)
	}
	if link != nil && link.ContactIdentifier != "" {
		identifier = link.ContactIdentifier
	}

	contact, err := s.gateway.GetOrCreateContact(ctx, identifier, params.UserName, params.UserEmail, map[string]any{
		"portal_user_id":    params.UserID,
		"portal_user_email": params.UserEmail,
		"portal_user_name":  params.UserName,
		"source":            "tickets-portal",
	})
	if err != nil {
		return nil, fmt.Errorf("resolving chatwoot contact: %w", err)
	}

	if _, err := s.contactLinks.Upsert(ctx, &model.ContactLink{
		ID:                id.New(),
		UserID:            params.UserID,
		InboxIdentifier:   s.cfg.InboxIdentifier,
		ContactIdentifier: contact.Identifier,
		SourceID:          contact.SourceID,
		PubsubToken:       contact.PubsubToken,
	}); err != nil {
		return nil, fmt.Errorf("upserting contact link: %w", err)
	}

	summary, err := s.gateway.CreateConversation(ctx, contact.Identifier, map[string]any{
		"title":             params.Title,
		"complexity":        string(params.Complexity),
		"sector":            params.Sector,
		"request_target":    string(params.RequestTarget),
		"request_for_name":  derefOrEmpty(params.RequestForName),
		"request_for_email": derefOrEmpty(params.RequestForEmail),
		"opened_via":        "tickets-portal",
	})
	if err != nil {
		return nil, fmt.Errorf("creating chatwoot conversation: %w", err)
	}
	if summary.ID == 0 {
		return nil, fmt.Errorf("chatwoot returned no conversation id")
	}

	chatwootID := summary.ID
	conv := &model.Conversation{
		ID:                     id.New(),
		UserID:                 params.UserID,
		Title:                  params.Title,
		Description:            params.Description,
		Complexity:             params.Complexity,
		Sector:                 params.Sector,
		RequestTarget:          params.RequestTarget,
		RequestForName:         params.RequestForName,
		RequestForEmail:        params.RequestForEmail,
		Status:                 model.StatusOpen,
		ChatwootConversationID: &chatwootID,
		ChatwootContactID:      contact.Identifier,
		ChatwootSourceID:       contact.SourceID,
		ChatwootInbox:          s.cfg.InboxIdentifier,
		ChatwootPubsubToken:    contact.PubsubToken,
		Metadata:               summary.Raw,
	}

	if err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		if err := sp.Conversations().Create(ctx, conv); err != nil {
			return fmt.Errorf("persisting conversation: %w", err)
		}

		description := "Conversa criada no Chatwoot"
		if err := sp.Events().Create(ctx, &model.Event{
			ID:             id.New(),
			ConversationID: conv.ID,
			Event:          model.EventConversationCreated,
			Title:          "Conversa aberta",
			Description:    &description,
			Payload:        summary.Raw,
		}); err != nil {
			return fmt.Errorf("recording creation event: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	s.sendInitialContext(ctx, conv, contact)

	if s.producer != nil && contact.PubsubToken != "" {
		if err := s.producer.Enqueue(ctx, queue.SubscriptionNotice{
			ConversationID:         conv.ID,
			ChatwootConversationID: chatwootID,
			PubsubToken:            contact.PubsubToken,
		}); err != nil {
			s.logger.ErrorContext(ctx, "failed to enqueue subscription notice", "error", err, "conversation_id", conv.ID)
		}
	}

	return conv, nil
}

// sendInitialContext mirrors the ticket form into the conversation so agents
// see the full request without opening the portal. Failures are logged, not
// returned: the ticket already exists on both sides.
func (s *conversationService) sendInitialContext(ctx context.Context, conv *model.Conversation, contact chatwoot.Contact) {
	lines := []string{
		"Ticket aberto via portal Tickets.",
		fmt.Sprintf("Titulo: %s", conv.Title),
		fmt.Sprintf("Complexidade: %s", complexityLabel(conv.Complexity)),
		fmt.Sprintf("Setor: %s", conv.Sector),
		fmt.Sprintf("Solicitacao: %s", requestTargetLabel(conv.RequestTarget)),
	}
	if conv.RequestTarget == model.RequestTargetOther {
		if conv.RequestForName != nil {
			lines = append(lines, fmt.Sprintf("Solicitante: %s", *conv.RequestForName))
		}
		if conv.RequestForEmail != nil {
			lines = append(lines, fmt.Sprintf("Email do solicitante: %s", *conv.RequestForEmail))
		}
	}
	lines = append(lines, "", "Descricao:", conv.Description)

	raw, err := s.gateway.SendMessage(ctx, contact.Identifier, *conv.ChatwootConversationID, chatwoot.SendMessageParams{
		Content: strings.Join(lines, "\n"),
		EchoID:  fmt.Sprintf("initial-%d", conv.ID),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to send initial context message", "error", err, "conversation_id", conv.ID)
		return
	}

	if _, err := s.sync.PersistMessage(ctx, conv.ID, mapper.FromJSON(raw)); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist initial context message", "error", err, "conversation_id", conv.ID)
	}
}

func (s *conversationService) ListForUser(ctx context.Context, userID int64) ([]model.Conversation, error) {
	return s.conversations.ListByUser(ctx, userID)
}

func (s *conversationService) Get(ctx context.Context, conversationID int64) (*model.Conversation, error) {
	return s.conversations.GetByID(ctx, conversationID)
}

func (s *conversationService) GetForUser(ctx context.Context, conversationID, userID int64) (*model.Conversation, error) {
	return s.conversations.GetForUser(ctx, conversationID, userID)
}

func (s *conversationService) GetByChatwootID(ctx context.Context, chatwootConversationID int64) (*model.Conversation, error) {
	return s.conversations.GetByChatwootID(ctx, chatwootConversationID)
}

func (s *conversationService) Timeline(ctx context.Context, conversationID int64, limit int32) ([]model.Event, error) {
	if limit <= 0 {
		limit = 15
	}
	return s.events.ListRecent(ctx, conversationID, limit)
}

func complexityLabel(c model.Complexity) string {
	switch c {
	case model.ComplexityLow:
		return "Baixa"
	case model.ComplexityMedium:
		return "Media"
	case model.ComplexityHigh:
		return "Alta"
	case model.ComplexityCritical:
		return "Critica"
	default:
		return string(c)
	}
}

func requestTargetLabel(t model.RequestTarget) string {
	if t == model.RequestTargetOther {
		return "Para outra pessoa"
	}
	return "Para mim"
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
