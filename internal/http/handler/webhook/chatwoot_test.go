package webhook_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"ticketdesk.app/portal/common/id"
	"ticketdesk.app/portal/core/config"
	"ticketdesk.app/portal/internal/http/handler/webhook"
	"ticketdesk.app/portal/internal/mapper"
	"ticketdesk.app/portal/internal/model"
	"ticketdesk.app/portal/internal/service"
	"ticketdesk.app/portal/internal/store"
)

type fakeConversationService struct {
	getByChatwootFn func(ctx context.Context, chatwootConversationID int64) (*model.Conversation, error)
}

func (f *fakeConversationService) Create(ctx context.Context, params service.CreateConversationParams) (*model.Conversation, error) {
	return nil, nil
}

func (f *fakeConversationService) ListForUser(ctx context.Context, userID int64) ([]model.Conversation, error) {
	return nil, nil
}

func (f *fakeConversationService) Get(ctx context.Context, conversationID int64) (*model.Conversation, error) {
	return nil, store.ErrNotFound
}

func (f *fakeConversationService) GetForUser(ctx context.Context, conversationID, userID int64) (*model.Conversation, error) {
	return nil, store.ErrNotFound
}

func (f *fakeConversationService) GetByChatwootID(ctx context.Context, chatwootConversationID int64) (*model.Conversation, error) {
	if f.getByChatwootFn != nil {
		return f.getByChatwootFn(ctx, chatwootConversationID)
	}
	return nil, store.ErrNotFound
}

func (f *fakeConversationService) Timeline(ctx context.Context, conversationID int64, limit int32) ([]model.Event, error) {
	return nil, nil
}

type fakeSyncService struct {
	applyFn       func(ctx context.Context, conversationID int64, newStatus model.Status, payload mapper.Record) (*service.SyncResult, error)
	persistFn     func(ctx context.Context, conversationID int64, raw mapper.Record) (*model.Message, error)
	recordEventFn func(ctx context.Context, conversationID int64, raw mapper.Record) error

	appliedStatuses []model.Status
	persistedCount  int
	recordedCount   int
}

func (f *fakeSyncService) ApplyConversationStatus(ctx context.Context, conversationID int64, newStatus model.Status, payload mapper.Record) (*service.SyncResult, error) {
	f.appliedStatuses = append(f.appliedStatuses, newStatus)
	if f.applyFn != nil {
		return f.applyFn(ctx, conversationID, newStatus, payload)
	}
	return &service.SyncResult{Status: newStatus}, nil
}

func (f *fakeSyncService) PersistMessage(ctx context.Context, conversationID int64, raw mapper.Record) (*model.Message, error) {
	f.persistedCount++
	if f.persistFn != nil {
		return f.persistFn(ctx, conversationID, raw)
	}
	return &model.Message{ID: id.New(), ConversationID: conversationID}, nil
}

func (f *fakeSyncService) RecordMessageEvent(ctx context.Context, conversationID int64, raw mapper.Record) error {
	f.recordedCount++
	if f.recordEventFn != nil {
		return f.recordEventFn(ctx, conversationID, raw)
	}
	return nil
}

type fakeDeliveryStore struct {
	createFn   func(ctx context.Context, delivery *model.WebhookDelivery) error
	deliveries []*model.WebhookDelivery
}

func (f *fakeDeliveryStore) Create(ctx context.Context, delivery *model.WebhookDelivery) error {
	f.deliveries = append(f.deliveries, delivery)
	if f.createFn != nil {
		return f.createFn(ctx, delivery)
	}
	return nil
}

var _ = Describe("ChatwootWebhookHandler", func() {
	var (
		router        *gin.Engine
		conversations *fakeConversationService
		sync          *fakeSyncService
		deliveries    *fakeDeliveryStore
		cfg           config.ChatwootConfig
	)

	matched := &model.Conversation{ID: 100, Status: model.StatusOpen}

	newRequest := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	JustBeforeEach(func() {
		gin.SetMode(gin.TestMode)
		Expect(id.Init(1)).To(Succeed())

		handler := webhook.NewChatwootWebhookHandler(conversations, sync, deliveries, cfg)
		router = gin.New()
		router.POST("/webhook", handler.HandleEvent)
	})

	BeforeEach(func() {
		conversations = &fakeConversationService{
			getByChatwootFn: func(ctx context.Context, chatwootConversationID int64) (*model.Conversation, error) {
				if chatwootConversationID == 55 {
					return matched, nil
				}
				return nil, store.ErrNotFound
			},
		}
		sync = &fakeSyncService{}
		deliveries = &fakeDeliveryStore{}
		cfg = config.ChatwootConfig{}
	})

	Context("when a webhook token is configured", func() {
		BeforeEach(func() {
			cfg.WebhookToken = "secret"
		})

		It("rejects deliveries without the token", func() {
			rec := newRequest(`{"event": "message_created", "id": 55}`)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(deliveries.deliveries).To(BeEmpty())
		})

		It("accepts the token via query parameter", func() {
			req := httptest.NewRequest(http.MethodPost, "/webhook?token=secret",
				strings.NewReader(`{"event": "message_created", "id": 55, "content": "oi"}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(sync.persistedCount).To(Equal(1))
		})

		It("accepts the token via header", func() {
			req := httptest.NewRequest(http.MethodPost, "/webhook",
				strings.NewReader(`{"event": "message_created", "id": 55, "content": "oi"}`))
			req.Header.Set("X-Chatwoot-Token", "secret")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("accepts a matching header even when the query token is wrong", func() {
			req := httptest.NewRequest(http.MethodPost, "/webhook?token=stale",
				strings.NewReader(`{"event": "message_created", "id": 55, "content": "oi"}`))
			req.Header.Set("X-Chatwoot-Token", "secret")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})

	It("rejects an empty body", func() {
		rec := newRequest("")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("rejects malformed JSON", func() {
		rec := newRequest(`{"event": `)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("acknowledges and audits deliveries for unmatched conversations", func() {
		rec := newRequest(`{"event": "message_created", "id": 99, "content": "oi"}`)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"received":true`))
		Expect(deliveries.deliveries).To(HaveLen(1))
		Expect(deliveries.deliveries[0].ConversationID).To(BeNil())
		Expect(deliveries.deliveries[0].ChatwootConversationID).To(HaveValue(Equal(int64(99))))
		Expect(sync.persistedCount).To(BeZero())
	})

	It("persists the message and records the timeline event for message_created", func() {
		rec := newRequest(`{"event": "message_created", "id": 55, "content": "precisamos de mais detalhes"}`)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(sync.persistedCount).To(Equal(1))
		Expect(sync.recordedCount).To(Equal(1))
		Expect(deliveries.deliveries).To(HaveLen(1))
		Expect(deliveries.deliveries[0].ConversationID).To(HaveValue(Equal(int64(100))))
	})

	It("applies the resolved status for conversation_status_changed", func() {
		rec := newRequest(`{"event": "conversation_status_changed", "id": 55, "status": "resolved"}`)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(sync.appliedStatuses).To(Equal([]model.Status{model.StatusResolved}))
	})

	It("keeps the current status when conversation_updated carries none", func() {
		rec := newRequest(`{"event": "conversation_updated", "id": 55, "meta": {"assignee": {"id": 42, "name": "Ana"}}}`)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(sync.appliedStatuses).To(Equal([]model.Status{model.StatusOpen}))
	})

	It("returns 500 when the sync engine fails", func() {
		sync.applyFn = func(ctx context.Context, conversationID int64, newStatus model.Status, payload mapper.Record) (*service.SyncResult, error) {
			return nil, context.DeadlineExceeded
		}

		rec := newRequest(`{"event": "conversation_status_changed", "id": 55, "status": "resolved"}`)

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
	})

	It("acknowledges unsupported events without touching the sync engine", func() {
		rec := newRequest(`{"event": "webwidget_triggered", "id": 55}`)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(sync.persistedCount).To(BeZero())
		Expect(sync.appliedStatuses).To(BeEmpty())
	})
})
