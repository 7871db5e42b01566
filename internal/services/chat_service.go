package services

import (
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/fetchgo/admin-backend/internal/middleware"
	"github.com/fetchgo/admin-backend/internal/models"
	"github.com/fetchgo/admin-backend/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ChatService backs the support-chat screen. Messages are stored per rider
// thread; new messages are pushed to connected consoles through the hub so
// the sidebar updates without a reload.
type ChatService struct {
	db        *sql.DB
	hub       *ws.ChatHub
	validator *ValidationHelper
}

func NewChatService(db *sql.DB, hub *ws.ChatHub) *ChatService {
	return &ChatService{
		db:        db,
		hub:       hub,
		validator: NewValidationHelper(),
	}
}

type sendMessagePayload struct {
	Text string `json:"text" validate:"required,min=1,max=2000"`
}

// ListConversations lists chat threads
// @Summary List support conversations
// @Description One row per rider thread with the latest message and unread count, most recent first.
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Conversation
// @Router /chat/conversations [get]
func (s *ChatService) ListConversations(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.Query(
		`SELECT m.rider_phone,
		        COALESCE(rd.full_name, ''),
		        m.text,
		        m.sender,
		        m.sent_at,
		        u.unread
		 FROM chat_messages m
		 JOIN (
		     SELECT rider_phone,
		            MAX(sent_at) AS last_at,
		            COUNT(*) FILTER (WHERE sender = 'rider' AND NOT read) AS unread
		     FROM chat_messages
		     GROUP BY rider_phone
		 ) u ON u.rider_phone = m.rider_phone AND u.last_at = m.sent_at
		 LEFT JOIN riders rd ON rd.phone_number = m.rider_phone
		 ORDER BY m.sent_at DESC`)
	if err != nil {
		log.Printf("[CHAT] list conversations error: %v", err)
		SendErrorResponse(w, "Failed to load conversations", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	conversations := []models.Conversation{}
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.RiderPhone, &c.RiderName, &c.LastMessage, &c.LastSender, &c.LastMessageAt, &c.UnreadCount); err != nil {
			log.Printf("[CHAT] conversation scan error: %v", err)
			SendErrorResponse(w, "Failed to load conversations", http.StatusInternalServerError, nil)
			return
		}
		conversations = append(conversations, c)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conversations)
}

// GetMessages loads one thread
// @Summary Get conversation messages
// @Description All messages of a rider thread in send order. Opening the thread marks the rider's messages as read.
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Param phone path string true "Rider phone number"
// @Success 200 {array} models.ChatMessage
// @Router /chat/conversations/{phone}/messages [get]
func (s *ChatService) GetMessages(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")

	rows, err := s.db.Query(
		`SELECT id, rider_phone, sender, sender_name, text, read, sent_at
		 FROM chat_messages
		 WHERE rider_phone = $1
		 ORDER BY sent_at ASC`, phone)
	if err != nil {
		log.Printf("[CHAT] list messages error: %v", err)
		SendErrorResponse(w, "Failed to load messages", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	messages := []models.ChatMessage{}
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.RiderPhone, &m.Sender, &m.SenderName, &m.Text, &m.Read, &m.SentAt); err != nil {
			log.Printf("[CHAT] message scan error: %v", err)
			SendErrorResponse(w, "Failed to load messages", http.StatusInternalServerError, nil)
			return
		}
		messages = append(messages, m)
	}

	if _, err := s.db.Exec(
		`UPDATE chat_messages SET read = TRUE WHERE rider_phone = $1 AND sender = 'rider' AND NOT read`, phone); err != nil {
		log.Printf("[CHAT] mark read error: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}

// SendMessage sends an admin reply
// @Summary Send a chat message
// @Description Append an admin message to a rider thread and push it to connected consoles.
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param phone path string true "Rider phone number"
// @Param payload body sendMessagePayload true "Message"
// @Success 201 {object} models.ChatMessage
// @Router /chat/conversations/{phone}/messages [post]
func (s *ChatService) SendMessage(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var payload sendMessagePayload
	if err := decoder.Decode(&payload); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if validationErr := s.validator.ValidateStruct(payload); validationErr != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, validationErr)
		return
	}

	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM riders WHERE phone_number = $1)`, phone).Scan(&exists); err != nil {
		log.Printf("[CHAT] rider lookup error: %v", err)
		SendErrorResponse(w, "Failed to send message", http.StatusInternalServerError, nil)
		return
	}
	if !exists {
		SendErrorResponse(w, "Rider not found", http.StatusNotFound, nil)
		return
	}

	msg := models.ChatMessage{
		ID:         uuid.NewString(),
		RiderPhone: phone,
		Sender:     models.ChatSenderAdmin,
		SenderName: middleware.AdminEmail(r.Context()),
		Text:       payload.Text,
		Read:       true,
		SentAt:     time.Now().UTC(),
	}

	if _, err := s.db.Exec(
		`INSERT INTO chat_messages (id, rider_phone, sender, sender_name, text, read, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.RiderPhone, msg.Sender, msg.SenderName, msg.Text, msg.Read, msg.SentAt); err != nil {
		log.Printf("[CHAT] insert message error: %v", err)
		SendErrorResponse(w, "Failed to send message", http.StatusInternalServerError, nil)
		return
	}

	if s.hub != nil {
		s.hub.Broadcast(&msg)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}

// ReceiveMessage ingests a rider message
// @Summary Receive a rider message
// @Description Rider-app entry point. Stores the message unread and pushes it to connected consoles.
// @Tags chat
// @Accept json
// @Produce json
// @Param phone path string true "Rider phone number"
// @Param payload body sendMessagePayload true "Message"
// @Success 201 {object} models.ChatMessage
// @Router /chat/conversations/{phone}/rider-messages [post]
func (s *ChatService) ReceiveMessage(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var payload sendMessagePayload
	if err := decoder.Decode(&payload); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if validationErr := s.validator.ValidateStruct(payload); validationErr != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, validationErr)
		return
	}

	var riderName string
	err := s.db.QueryRow(`SELECT full_name FROM riders WHERE phone_number = $1`, phone).Scan(&riderName)
	if err == sql.ErrNoRows {
		SendErrorResponse(w, "Rider not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		log.Printf("[CHAT] rider lookup error: %v", err)
		SendErrorResponse(w, "Failed to send message", http.StatusInternalServerError, nil)
		return
	}

	msg := models.ChatMessage{
		ID:         uuid.NewString(),
		RiderPhone: phone,
		Sender:     models.ChatSenderRider,
		SenderName: riderName,
		Text:       payload.Text,
		SentAt:     time.Now().UTC(),
	}

	if _, err := s.db.Exec(
		`INSERT INTO chat_messages (id, rider_phone, sender, sender_name, text, read, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.RiderPhone, msg.Sender, msg.SenderName, msg.Text, msg.Read, msg.SentAt); err != nil {
		log.Printf("[CHAT] insert message error: %v", err)
		SendErrorResponse(w, "Failed to send message", http.StatusInternalServerError, nil)
		return
	}

	if s.hub != nil {
		s.hub.Broadcast(&msg)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}
