package service_test

import (
	"context"
	"encoding/json"

	"ticketdesk.app/portal/internal/chatwoot"
	"ticketdesk.app/portal/internal/model"
	"ticketdesk.app/portal/internal/queue"
	"ticketdesk.app/portal/internal/service"
	"ticketdesk.app/portal/internal/store"
)

type mockConversationStore struct {
	getByIDFn        func(ctx context.Context, id int64) (*model.Conversation, error)
	getByChatwootFn  func(ctx context.Context, chatwootConversationID int64) (*model.Conversation, error)
	createFn         func(ctx context.Context, conversation *model.Conversation) error
	applySyncFn      func(ctx context.Context, params store.ApplySyncParams) error
	listLinkedFn     func(ctx context.Context) ([]model.Conversation, error)
	capturedCreate   *model.Conversation
	capturedApplySync *store.ApplySyncParams
}

func (m *mockConversationStore) GetByID(ctx context.Context, id int64) (*model.Conversation, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, store.ErrNotFound
}

func (m *mockConversationStore) GetForUser(ctx context.Context, id int64, userID int64) (*model.Conversation, error) {
	return nil, store.ErrNotFound
}

func (m *mockConversationStore) GetByChatwootID(ctx context.Context, chatwootConversationID int64) (*model.Conversation, error) {
	if m.getByChatwootFn != nil {
		return m.getByChatwootFn(ctx, chatwootConversationID)
	}
	return nil, store.ErrNotFound
}

func (m *mockConversationStore) Create(ctx context.Context, conversation *model.Conversation) error {
	m.capturedCreate = conversation
	if m.createFn != nil {
		return m.createFn(ctx, conversation)
	}
	return nil
}

func (m *mockConversationStore) ApplySync(ctx context.Context, params store.ApplySyncParams) error {
	m.capturedApplySync = &params
	if m.applySyncFn != nil {
		return m.applySyncFn(ctx, params)
	}
	return nil
}

func (m *mockConversationStore) ListByUser(ctx context.Context, userID int64) ([]model.Conversation, error) {
	return nil, nil
}

func (m *mockConversationStore) ListLinked(ctx context.Context) ([]model.Conversation, error) {
	if m.listLinkedFn != nil {
		return m.listLinkedFn(ctx)
	}
	return nil, nil
}

type mockMessageStore struct {
	createFn        func(ctx context.Context, message *model.Message) (*model.Message, error)
	upsertFn        func(ctx context.Context, message *model.Message) (*model.Message, error)
	createCalls     int
	upsertCalls     int
	capturedMessage *model.Message
}

func (m *mockMessageStore) Create(ctx context.Context, message *model.Message) (*model.Message, error) {
	m.createCalls++
	m.capturedMessage = message
	if m.createFn != nil {
		return m.createFn(ctx, message)
	}
	return message, nil
}

func (m *mockMessageStore) UpsertByExternalID(ctx context.Context, message *model.Message) (*model.Message, error) {
	m.upsertCalls++
	m.capturedMessage = message
	if m.upsertFn != nil {
		return m.upsertFn(ctx, message)
	}
	return message, nil
}

func (m *mockMessageStore) LatestByConversation(ctx context.Context, conversationID int64) (*model.Message, error) {
	return nil, store.ErrNotFound
}

type mockEventStore struct {
	createIfMissingFn func(ctx context.Context, event *model.Event) (bool, error)
	createdEvents     []*model.Event
	dedupedEvents     []*model.Event
}

func (m *mockEventStore) Create(ctx context.Context, event *model.Event) error {
	m.createdEvents = append(m.createdEvents, event)
	return nil
}

func (m *mockEventStore) CreateIfMissing(ctx context.Context, event *model.Event) (bool, error) {
	m.dedupedEvents = append(m.dedupedEvents, event)
	if m.createIfMissingFn != nil {
		return m.createIfMissingFn(ctx, event)
	}
	return true, nil
}

func (m *mockEventStore) ListRecent(ctx context.Context, conversationID int64, limit int32) ([]model.Event, error) {
	return nil, nil
}

func (m *mockEventStore) LatestByConversation(ctx context.Context, conversationID int64) (*model.Event, error) {
	return nil, store.ErrNotFound
}

type mockContactLinkStore struct {
	getFn        func(ctx context.Context, userID int64, inboxIdentifier string) (*model.ContactLink, error)
	capturedLink *model.ContactLink
}

func (m *mockContactLinkStore) GetByUserAndInbox(ctx context.Context, userID int64, inboxIdentifier string) (*model.ContactLink, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, inboxIdentifier)
	}
	return nil, store.ErrNotFound
}

func (m *mockContactLinkStore) Upsert(ctx context.Context, link *model.ContactLink) (*model.ContactLink, error) {
	m.capturedLink = link
	return link, nil
}

// mockStoreProvider hands the same mocks out inside and outside transactions.
type mockStoreProvider struct {
	conversations *mockConversationStore
	messages      *mockMessageStore
	events        *mockEventStore
	contactLinks  *mockContactLinkStore
}

func (m *mockStoreProvider) Conversations() store.ConversationStore { return m.conversations }
func (m *mockStoreProvider) Messages() store.MessageStore           { return m.messages }
func (m *mockStoreProvider) Events() store.EventStore               { return m.events }
func (m *mockStoreProvider) ContactLinks() store.ContactLinkStore   { return m.contactLinks }

type mockTxRunner struct {
	withTxFn func(ctx context.Context, fn func(stores service.StoreProvider) error) error
}

func (m *mockTxRunner) WithTx(ctx context.Context, fn func(stores service.StoreProvider) error) error {
	if m.withTxFn != nil {
		return m.withTxFn(ctx, fn)
	}
	return nil
}

type mockGateway struct {
	getOrCreateContactFn func(ctx context.Context, identifier, name, email string, attributes map[string]any) (chatwoot.Contact, error)
	createConversationFn func(ctx context.Context, contactIdentifier string, attributes map[string]any) (chatwoot.ConversationSummary, error)
	sendMessageFn        func(ctx context.Context, contactIdentifier string, conversationID int64, params chatwoot.SendMessageParams) (json.RawMessage, error)
	listMessagesFn       func(ctx context.Context, contactIdentifier string, conversationID int64) ([]json.RawMessage, error)

	sentMessages []chatwoot.SendMessageParams
}

func (m *mockGateway) GetOrCreateContact(ctx context.Context, identifier, name, email string, attributes map[string]any) (chatwoot.Contact, error) {
	if m.getOrCreateContactFn != nil {
		return m.getOrCreateContactFn(ctx, identifier, name, email, attributes)
	}
	return chatwoot.Contact{Identifier: identifier, SourceID: identifier}, nil
}

func (m *mockGateway) CreateConversation(ctx context.Context, contactIdentifier string, attributes map[string]any) (chatwoot.ConversationSummary, error) {
	if m.createConversationFn != nil {
		return m.createConversationFn(ctx, contactIdentifier, attributes)
	}
	return chatwoot.ConversationSummary{ID: 1}, nil
}

func (m *mockGateway) SendMessage(ctx context.Context, contactIdentifier string, conversationID int64, params chatwoot.SendMessageParams) (json.RawMessage, error) {
	m.sentMessages = append(m.sentMessages, params)
	if m.sendMessageFn != nil {
		return m.sendMessageFn(ctx, contactIdentifier, conversationID, params)
	}
	return json.RawMessage(`{"id": 1, "content": "ok", "message_type": 0, "created_at": 1700000000}`), nil
}

func (m *mockGateway) ListMessages(ctx context.Context, contactIdentifier string, conversationID int64) ([]json.RawMessage, error) {
	if m.listMessagesFn != nil {
		return m.listMessagesFn(ctx, contactIdentifier, conversationID)
	}
	return nil, nil
}

type mockProducer struct {
	enqueueFn func(ctx context.Context, msg queue.SubscriptionNotice) error
	notices   []queue.SubscriptionNotice
}

func (m *mockProducer) Enqueue(ctx context.Context, msg queue.SubscriptionNotice) error {
	m.notices = append(m.notices, msg)
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, msg)
	}
	return nil
}

func (m *mockProducer) Close() error { return nil }
