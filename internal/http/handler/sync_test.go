package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"ticketdesk.app/portal/internal/http/handler"
	"ticketdesk.app/portal/internal/http/middleware"
	"ticketdesk.app/portal/internal/mapper"
	"ticketdesk.app/portal/internal/model"
	"ticketdesk.app/portal/internal/service"
	"ticketdesk.app/portal/internal/store"
)

type fakeConversationService struct {
	getFn func(ctx context.Context, conversationID int64) (*model.Conversation, error)
}

func (f *fakeConversationService) Create(ctx context.Context, params service.CreateConversationParams) (*model.Conversation, error) {
	return nil, nil
}

func (f *fakeConversationService) ListForUser(ctx context.Context, userID int64) ([]model.Conversation, error) {
	return nil, nil
}

func (f *fakeConversationService) Get(ctx context.Context, conversationID int64) (*model.Conversation, error) {
	if f.getFn != nil {
		return f.getFn(ctx, conversationID)
	}
	return nil, store.ErrNotFound
}

func (f *fakeConversationService) GetForUser(ctx context.Context, conversationID, userID int64) (*model.Conversation, error) {
	return nil, store.ErrNotFound
}

func (f *fakeConversationService) GetByChatwootID(ctx context.Context, chatwootConversationID int64) (*model.Conversation, error) {
	return nil, store.ErrNotFound
}

func (f *fakeConversationService) Timeline(ctx context.Context, conversationID int64, limit int32) ([]model.Event, error) {
	return nil, nil
}

type fakeSyncService struct {
	applyFn   func(ctx context.Context, conversationID int64, newStatus model.Status, payload mapper.Record) (*service.SyncResult, error)
	persistFn func(ctx context.Context, conversationID int64, raw mapper.Record) (*model.Message, error)

	appliedStatuses []model.Status
	persistedCount  int
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
	return &model.Message{ID: 1, ConversationID: conversationID}, nil
}

func (f *fakeSyncService) RecordMessageEvent(ctx context.Context, conversationID int64, raw mapper.Record) error {
	return nil
}

type fakeSessionStore struct {
	sessions map[string]*model.Session
}

func (f *fakeSessionStore) GetValidByToken(ctx context.Context, token string) (*model.Session, error) {
	if session, ok := f.sessions[token]; ok {
		return session, nil
	}
	return nil, store.ErrNotFound
}

var _ = Describe("SyncHandler", func() {
	var (
		router        *gin.Engine
		conversations *fakeConversationService
		sync          *fakeSyncService
	)

	sessions := &fakeSessionStore{sessions: map[string]*model.Session{
		"owner-token":    {ID: 1, UserID: 7, Token: "owner-token"},
		"intruder-token": {ID: 2, UserID: 9, Token: "intruder-token"},
	}}

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Admin-API-Key", "admin-key")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	postAsSession := func(path, body, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)

		conversations = &fakeConversationService{
			getFn: func(ctx context.Context, conversationID int64) (*model.Conversation, error) {
				if conversationID == 100 {
					return &model.Conversation{ID: 100, UserID: 7, Status: model.StatusOpen}, nil
				}
				return nil, store.ErrNotFound
			},
		}
		sync = &fakeSyncService{}

		router = gin.New()
		router.POST("/api/v1/conversations/:id/sync",
			middleware.RequireAdminAPIKeyOrSession("admin-key", sessions),
			handler.NewSyncHandler(conversations, sync).Sync)
	})

	It("rejects a non-numeric conversation id", func() {
		rec := post("/api/v1/conversations/abc/sync", `{"event": "message.created", "data": {}}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("rejects a body without an event", func() {
		rec := post("/api/v1/conversations/100/sync", `{"data": {}}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("applies a status event that carries no data", func() {
		rec := post("/api/v1/conversations/100/sync", `{"event": "conversation.status_changed"}`)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(sync.appliedStatuses).To(Equal([]model.Status{model.StatusOpen}))
	})

	It("returns 404 for unknown conversations", func() {
		rec := post("/api/v1/conversations/999/sync", `{"event": "message.created", "data": {"id": 10}}`)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("persists message.created payloads", func() {
		rec := post("/api/v1/conversations/100/sync", `{"event": "message.created", "data": {"id": 10, "content": "oi"}}`)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"success":true`))
		Expect(sync.persistedCount).To(Equal(1))
	})

	It("applies the payload status for conversation.status_changed", func() {
		rec := post("/api/v1/conversations/100/sync", `{"event": "conversation.status_changed", "data": {"status": "resolved"}}`)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(sync.appliedStatuses).To(Equal([]model.Status{model.StatusResolved}))
	})

	It("keeps the current status for assignee.changed payloads without one", func() {
		rec := post("/api/v1/conversations/100/sync", `{"event": "assignee.changed", "data": {"meta": {"assignee": {"id": 42, "name": "Ana"}}}}`)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(sync.appliedStatuses).To(Equal([]model.Status{model.StatusOpen}))
	})

	It("acknowledges unsupported events without applying anything", func() {
		rec := post("/api/v1/conversations/100/sync", `{"event": "typing.on", "data": {}}`)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(sync.appliedStatuses).To(BeEmpty())
		Expect(sync.persistedCount).To(BeZero())
	})

	It("lets the owner's session sync their conversation", func() {
		rec := postAsSession("/api/v1/conversations/100/sync", `{"event": "message.created", "data": {"id": 10, "content": "oi"}}`, "owner-token")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(sync.persistedCount).To(Equal(1))
	})

	It("hides other users' conversations from session callers", func() {
		rec := postAsSession("/api/v1/conversations/100/sync", `{"event": "message.created", "data": {"id": 10, "content": "oi"}}`, "intruder-token")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(sync.persistedCount).To(BeZero())
	})

	It("rejects callers with neither credential", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/100/sync", strings.NewReader(`{"event": "message.created", "data": {}}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})
})
