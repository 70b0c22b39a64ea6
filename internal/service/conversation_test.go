package service_test

import (
	"context"
	"encoding/json"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"ticketdesk.app/portal/common/id"
	"ticketdesk.app/portal/core/config"
	"ticketdesk.app/portal/internal/chatwoot"
	"ticketdesk.app/portal/internal/model"
	"ticketdesk.app/portal/internal/service"
	"ticketdesk.app/portal/internal/store"
)

var _ = Describe("ConversationService", func() {
	var (
		svc           service.ConversationService
		conversations *mockConversationStore
		contactLinks  *mockContactLinkStore
		messages      *mockMessageStore
		events        *mockEventStore
		gateway       *mockGateway
		producer      *mockProducer
		ctx           context.Context
	)

	cfg := config.ChatwootConfig{
		BaseURL:         "https://chat.example.com",
		InboxIdentifier: "inbox-1",
	}

	BeforeEach(func() {
		ctx = context.Background()
		Expect(id.Init(1)).To(Succeed())

		conversations = &mockConversationStore{}
		contactLinks = &mockContactLinkStore{}
		messages = &mockMessageStore{}
		events = &mockEventStore{}
		gateway = &mockGateway{}
		producer = &mockProducer{}

		txRunner := &mockTxRunner{
			withTxFn: func(ctx context.Context, fn func(stores service.StoreProvider) error) error {
				return fn(&mockStoreProvider{
					conversations: conversations,
					messages:      messages,
					events:        events,
					contactLinks:  contactLinks,
				})
			},
		}

		sync := service.NewTicketSyncService(messages, events, txRunner, nil)
		svc = service.NewConversationService(conversations, contactLinks, events, txRunner, gateway, sync, producer, cfg, nil)
	})

	Describe("Create", func() {
		params := service.CreateConversationParams{
			UserID:        7,
			UserName:      "Joana Dias",
			UserEmail:     "joana@example.com",
			Title:         "Acesso ao ERP",
			Description:   "Nao consigo acessar o ERP desde ontem.",
			Complexity:    model.ComplexityHigh,
			Sector:        "TI",
			RequestTarget: model.RequestTargetSelf,
		}

		BeforeEach(func() {
			gateway.getOrCreateContactFn = func(ctx context.Context, identifier, name, email string, attributes map[string]any) (chatwoot.Contact, error) {
				return chatwoot.Contact{Identifier: identifier, SourceID: "src-1", PubsubToken: "tok-1"}, nil
			}
			gateway.createConversationFn = func(ctx context.Context, contactIdentifier string, attributes map[string]any) (chatwoot.ConversationSummary, error) {
				return chatwoot.ConversationSummary{ID: 55, Raw: json.RawMessage(`{"id":55}`)}, nil
			}
		})

		It("links the contact, creates both records and notifies the listener", func() {
			var contactIdentifier string
			gateway.getOrCreateContactFn = func(ctx context.Context, identifier, name, email string, attributes map[string]any) (chatwoot.Contact, error) {
				contactIdentifier = identifier
				Expect(name).To(Equal("Joana Dias"))
				Expect(email).To(Equal("joana@example.com"))
				Expect(attributes).To(HaveKeyWithValue("source", "tickets-portal"))
				return chatwoot.Contact{Identifier: identifier, SourceID: "src-1", PubsubToken: "tok-1"}, nil
			}

			conv, err := svc.Create(ctx, params)

			Expect(err).NotTo(HaveOccurred())
			Expect(contactIdentifier).To(Equal("portal-user:7"))

			Expect(contactLinks.capturedLink).NotTo(BeNil())
			Expect(contactLinks.capturedLink.InboxIdentifier).To(Equal("inbox-1"))
			Expect(contactLinks.capturedLink.PubsubToken).To(Equal("tok-1"))

			Expect(conv.ChatwootConversationID).To(HaveValue(Equal(int64(55))))
			Expect(conv.Status).To(Equal(model.StatusOpen))
			Expect(conversations.capturedCreate).NotTo(BeNil())

			Expect(events.createdEvents).To(HaveLen(1))
			Expect(events.createdEvents[0].Event).To(Equal(model.EventConversationCreated))
			Expect(events.createdEvents[0].Title).To(Equal("Conversa aberta"))
			Expect(events.createdEvents[0].Description).To(HaveValue(Equal("Conversa criada no Chatwoot")))

			Expect(producer.notices).To(HaveLen(1))
			Expect(producer.notices[0].ChatwootConversationID).To(Equal(int64(55)))
			Expect(producer.notices[0].PubsubToken).To(Equal("tok-1"))
		})

		It("sends the ticket form as the initial context message", func() {
			conv, err := svc.Create(ctx, params)

			Expect(err).NotTo(HaveOccurred())
			Expect(gateway.sentMessages).To(HaveLen(1))

			initial := gateway.sentMessages[0]
			Expect(initial.EchoID).To(Equal(fmt.Sprintf("initial-%d", conv.ID)))
			Expect(initial.Content).To(ContainSubstring("Ticket aberto via portal Tickets."))
			Expect(initial.Content).To(ContainSubstring("Titulo: Acesso ao ERP"))
			Expect(initial.Content).To(ContainSubstring("Complexidade: Alta"))
			Expect(initial.Content).To(ContainSubstring("Setor: TI"))
			Expect(initial.Content).To(ContainSubstring("Solicitacao: Para mim"))
			Expect(initial.Content).To(ContainSubstring("Descricao:\nNao consigo acessar o ERP desde ontem."))
		})

		It("includes the requester lines when opening for someone else", func() {
			name := "Marcos Lima"
			email := "marcos@example.com"
			other := params
			other.RequestTarget = model.RequestTargetOther
			other.RequestForName = &name
			other.RequestForEmail = &email

			_, err := svc.Create(ctx, other)

			Expect(err).NotTo(HaveOccurred())
			Expect(gateway.sentMessages).To(HaveLen(1))
			content := gateway.sentMessages[0].Content
			Expect(content).To(ContainSubstring("Solicitacao: Para outra pessoa"))
			Expect(content).To(ContainSubstring("Solicitante: Marcos Lima"))
			Expect(content).To(ContainSubstring("Email do solicitante: marcos@example.com"))
		})

		It("reuses the identifier of an existing contact link", func() {
			contactLinks.getFn = func(ctx context.Context, userID int64, inboxIdentifier string) (*model.ContactLink, error) {
				return &model.ContactLink{UserID: userID, InboxIdentifier: inboxIdentifier, ContactIdentifier: "legacy-id"}, nil
			}
			var contactIdentifier string
			gateway.getOrCreateContactFn = func(ctx context.Context, identifier, name, email string, attributes map[string]any) (chatwoot.Contact, error) {
				contactIdentifier = identifier
				return chatwoot.Contact{Identifier: identifier}, nil
			}

			_, err := svc.Create(ctx, params)

			Expect(err).NotTo(HaveOccurred())
			Expect(contactIdentifier).To(Equal("legacy-id"))
		})

		It("fails when chatwoot returns no conversation id", func() {
			gateway.createConversationFn = func(ctx context.Context, contactIdentifier string, attributes map[string]any) (chatwoot.ConversationSummary, error) {
				return chatwoot.ConversationSummary{ID: 0}, nil
			}

			_, err := svc.Create(ctx, params)

			Expect(err).To(MatchError(ContainSubstring("no conversation id")))
			Expect(conversations.capturedCreate).To(BeNil())
		})

		It("still succeeds when the initial context message fails", func() {
			gateway.sendMessageFn = func(ctx context.Context, contactIdentifier string, conversationID int64, params chatwoot.SendMessageParams) (json.RawMessage, error) {
				return nil, fmt.Errorf("chatwoot down")
			}

			conv, err := svc.Create(ctx, params)

			Expect(err).NotTo(HaveOccurred())
			Expect(conv).NotTo(BeNil())
		})

		It("skips the subscription notice when the contact has no pubsub token", func() {
			gateway.getOrCreateContactFn = func(ctx context.Context, identifier, name, email string, attributes map[string]any) (chatwoot.Contact, error) {
				return chatwoot.Contact{Identifier: identifier, SourceID: "src-1"}, nil
			}

			_, err := svc.Create(ctx, params)

			Expect(err).NotTo(HaveOccurred())
			Expect(producer.notices).To(BeEmpty())
		})
	})

	Describe("GetForUser", func() {
		It("propagates not found", func() {
			_, err := svc.GetForUser(ctx, 1, 7)
			Expect(err).To(MatchError(store.ErrNotFound))
		})
	})
})
