package service_test

import (
	"context"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"ticketdesk.app/portal/common/id"
	"ticketdesk.app/portal/internal/chatwoot"
	"ticketdesk.app/portal/internal/model"
	"ticketdesk.app/portal/internal/service"
)

var _ = Describe("MessageService", func() {
	var (
		svc      service.MessageService
		messages *mockMessageStore
		events   *mockEventStore
		gateway  *mockGateway
		conv     *model.Conversation
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		Expect(id.Init(1)).To(Succeed())

		messages = &mockMessageStore{}
		events = &mockEventStore{}
		gateway = &mockGateway{}

		txRunner := &mockTxRunner{
			withTxFn: func(ctx context.Context, fn func(stores service.StoreProvider) error) error {
				return fn(&mockStoreProvider{messages: messages, events: events})
			},
		}
		sync := service.NewTicketSyncService(messages, events, txRunner, nil)
		svc = service.NewMessageService(gateway, sync, nil)

		chatwootID := int64(55)
		conv = &model.Conversation{
			ID:                     100,
			ChatwootConversationID: &chatwootID,
			ChatwootContactID:      "contact-1",
		}
	})

	Describe("ListForConversation", func() {
		It("persists every message and maps the sender side", func() {
			gateway.listMessagesFn = func(ctx context.Context, contactIdentifier string, conversationID int64) ([]json.RawMessage, error) {
				Expect(contactIdentifier).To(Equal("contact-1"))
				Expect(conversationID).To(Equal(int64(55)))
				return []json.RawMessage{
					json.RawMessage(`{"id": 10, "content": "oi", "message_type": 0, "created_at": 1700000000}`),
					json.RawMessage(`{"id": 11, "content": "ola, em que posso ajudar?", "message_type": 1, "created_at": 1700000100, "sender": {"name": "Ana", "type": "user"}}`),
				}, nil
			}

			views, err := svc.ListForConversation(ctx, conv)

			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(2))
			Expect(views[0].IsFromAgent).To(BeFalse())
			Expect(views[1].IsFromAgent).To(BeTrue())
			Expect(views[1].SenderName).To(HaveValue(Equal("Ana")))
			Expect(messages.upsertCalls).To(Equal(2))
		})

		It("skips messages with no content or attachments", func() {
			gateway.listMessagesFn = func(ctx context.Context, contactIdentifier string, conversationID int64) ([]json.RawMessage, error) {
				return []json.RawMessage{
					json.RawMessage(`{"id": 10, "content": "", "message_type": 2}`),
					json.RawMessage(`{"id": 11, "content": "visivel", "message_type": 0, "created_at": 1700000000}`),
				}, nil
			}

			views, err := svc.ListForConversation(ctx, conv)

			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(HaveLen(1))
			Expect(views[0].Content).To(Equal("visivel"))
		})

		It("returns an empty list for conversations not linked to chatwoot", func() {
			views, err := svc.ListForConversation(ctx, &model.Conversation{ID: 1})

			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(BeEmpty())
			Expect(messages.upsertCalls).To(BeZero())
		})
	})

	Describe("Send", func() {
		It("relays the message to chatwoot with an echo id", func() {
			view, err := svc.Send(ctx, conv, "  preciso de ajuda  ")

			Expect(err).NotTo(HaveOccurred())
			Expect(view).NotTo(BeNil())
			Expect(gateway.sentMessages).To(HaveLen(1))
			Expect(gateway.sentMessages[0].Content).To(Equal("preciso de ajuda"))
			Expect(gateway.sentMessages[0].EchoID).To(HavePrefix("msg-"))
		})

		It("rejects blank content", func() {
			_, err := svc.Send(ctx, conv, "   ")

			Expect(err).To(MatchError(ContainSubstring("content is required")))
			Expect(gateway.sentMessages).To(BeEmpty())
		})

		It("fails when chatwoot echoes an empty message back", func() {
			gateway.sendMessageFn = func(ctx context.Context, contactIdentifier string, conversationID int64, params chatwoot.SendMessageParams) (json.RawMessage, error) {
				return json.RawMessage(`{"id": 1, "content": ""}`), nil
			}

			_, err := svc.Send(ctx, conv, "oi")

			Expect(err).To(MatchError(ContainSubstring("empty message")))
		})
	})
})
