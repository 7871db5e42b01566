package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fetchgo/admin-backend/internal/middleware"
	"github.com/fetchgo/admin-backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func newChatRequest(method, target, phone, body string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("phone", phone)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, middleware.AdminEmailKey, "admin@fetchgo.com")
	return r.WithContext(ctx)
}

func TestChatService_ListConversations(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewChatService(db, nil)

	t.Run("threads with unread counts", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery("FROM chat_messages").
			WillReturnRows(sqlmock.NewRows([]string{"rider_phone", "full_name", "text", "sender", "sent_at", "unread"}).
				AddRow("09171234567", "Juan Dela Cruz", "Nasaan na order ko?", models.ChatSenderRider, now, 2).
				AddRow("09179876543", "Maria Santos", "Salamat po", models.ChatSenderRider, now.Add(-time.Hour), 0))

		w := httptest.NewRecorder()
		service.ListConversations(w, newChatRequest(http.MethodGet, "/chat/conversations", "", ""))

		assert.Equal(t, http.StatusOK, w.Code)

		var conversations []models.Conversation
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&conversations))
		assert.Len(t, conversations, 2)
		assert.Equal(t, 2, conversations[0].UnreadCount)
		assert.Equal(t, "Juan Dela Cruz", conversations[0].RiderName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no threads yet", func(t *testing.T) {
		mock.ExpectQuery("FROM chat_messages").
			WillReturnRows(sqlmock.NewRows([]string{"rider_phone", "full_name", "text", "sender", "sent_at", "unread"}))

		w := httptest.NewRecorder()
		service.ListConversations(w, newChatRequest(http.MethodGet, "/chat/conversations", "", ""))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "[]\n", w.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestChatService_GetMessages(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewChatService(db, nil)

	t.Run("thread in send order marks rider messages read", func(t *testing.T) {
		phone := "09171234567"
		now := time.Now()

		mock.ExpectQuery("SELECT id, rider_phone, sender, sender_name, text, read, sent_at").
			WithArgs(phone).
			WillReturnRows(sqlmock.NewRows([]string{"id", "rider_phone", "sender", "sender_name", "text", "read", "sent_at"}).
				AddRow("m1", phone, models.ChatSenderRider, "Juan Dela Cruz", "Hello po", false, now.Add(-time.Minute)).
				AddRow("m2", phone, models.ChatSenderAdmin, "admin@fetchgo.com", "Hi, how can we help?", true, now))
		mock.ExpectExec("UPDATE chat_messages SET read").
			WithArgs(phone).
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := httptest.NewRecorder()
		service.GetMessages(w, newChatRequest(http.MethodGet, "/chat/conversations/"+phone+"/messages", phone, ""))

		assert.Equal(t, http.StatusOK, w.Code)

		var messages []models.ChatMessage
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&messages))
		assert.Len(t, messages, 2)
		assert.Equal(t, "m1", messages[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestChatService_SendMessage(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewChatService(db, nil)

	t.Run("admin reply is stored read", func(t *testing.T) {
		phone := "09171234567"

		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(phone).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectExec("INSERT INTO chat_messages").
			WithArgs(sqlmock.AnyArg(), phone, models.ChatSenderAdmin, "admin@fetchgo.com",
				"On the way na po", true, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := httptest.NewRecorder()
		service.SendMessage(w, newChatRequest(http.MethodPost, "/chat/conversations/"+phone+"/messages", phone,
			`{"text": "On the way na po"}`))

		assert.Equal(t, http.StatusCreated, w.Code)

		var msg models.ChatMessage
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&msg))
		assert.Equal(t, models.ChatSenderAdmin, msg.Sender)
		assert.True(t, msg.Read)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown rider", func(t *testing.T) {
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("09990000000").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		w := httptest.NewRecorder()
		service.SendMessage(w, newChatRequest(http.MethodPost, "/chat/conversations/09990000000/messages", "09990000000",
			`{"text": "hello"}`))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty message rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		service.SendMessage(w, newChatRequest(http.MethodPost, "/chat/conversations/09171234567/messages", "09171234567",
			`{"text": ""}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestChatService_ReceiveMessage(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewChatService(db, nil)

	t.Run("rider message is stored unread", func(t *testing.T) {
		phone := "09171234567"

		mock.ExpectQuery("SELECT full_name FROM riders").
			WithArgs(phone).
			WillReturnRows(sqlmock.NewRows([]string{"full_name"}).AddRow("Juan Dela Cruz"))
		mock.ExpectExec("INSERT INTO chat_messages").
			WithArgs(sqlmock.AnyArg(), phone, models.ChatSenderRider, "Juan Dela Cruz",
				"Nasaan na order ko?", false, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := httptest.NewRecorder()
		service.ReceiveMessage(w, newChatRequest(http.MethodPost, "/chat/conversations/"+phone+"/rider-messages", phone,
			`{"text": "Nasaan na order ko?"}`))

		assert.Equal(t, http.StatusCreated, w.Code)

		var msg models.ChatMessage
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&msg))
		assert.Equal(t, models.ChatSenderRider, msg.Sender)
		assert.False(t, msg.Read)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
