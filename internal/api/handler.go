package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"chat-admin/chat"
	"chat-admin/config"
	"chat-admin/internal/app"
	"chat-admin/models"
	"chat-admin/observability"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// maxBodyBytes bounds request bodies; chat messages are the largest payload
const maxBodyBytes = 1 << 20

// Handler handles HTTP API requests
type Handler struct {
	app *app.App
	cfg *config.Config
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, cfg *config.Config) *Handler {
	return &Handler{app: application, cfg: cfg}
}

// LoginRequest is the admin login body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned on a successful login
type LoginResponse struct {
	Success bool            `json:"success"`
	User    models.Identity `json:"user"`
}

// CreateAPIKeyRequest is the body for adding a key
type CreateAPIKeyRequest struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// SendMessageRequest is the body for a chat turn
type SendMessageRequest struct {
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}

// SendMessageResponse mirrors chat.SendResult on the wire
type SendMessageResponse struct {
	UserMessage   *models.ChatMessage `json:"userMessage"`
	AIMessage     *models.ChatMessage `json:"aiMessage"`
	TokensUsed    int64               `json:"tokensUsed"`
	EstimatedCost decimal.Decimal     `json:"estimatedCost"`
	Error         string              `json:"error,omitempty"`
}

// SuccessResponse acknowledges an operation with no payload
type SuccessResponse struct {
	Success bool `json:"success"`
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.app.Health(r.Context()))
}

// HandleLogin checks admin credentials
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	identity, err := h.app.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, app.ErrValidation):
		h.jsonError(w, "Username and password are required", http.StatusBadRequest)
		return
	case errors.Is(err, app.ErrInvalidCredentials):
		h.jsonError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	case err != nil:
		h.internalError(w, r, err, "Login failed")
		return
	}

	h.jsonResponse(w, LoginResponse{Success: true, User: *identity})
}

// HandleListAPIKeys returns all keys with their secrets masked
func (h *Handler) HandleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.app.ListAPIKeys(r.Context())
	if err != nil {
		h.internalError(w, r, err, "Failed to fetch API keys")
		return
	}

	masked := make([]models.APIKey, 0, len(keys))
	for _, k := range keys {
		masked = append(masked, k.Masked())
	}
	h.jsonResponse(w, masked)
}

// HandleCreateAPIKey adds a key and returns it unmasked
func (h *Handler) HandleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req CreateAPIKeyRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.jsonError(w, "Invalid API key data", http.StatusBadRequest)
		return
	}

	key, err := h.app.CreateAPIKey(r.Context(), req.Name, req.Key)
	if errors.Is(err, app.ErrValidation) {
		h.jsonError(w, "Invalid API key data", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.internalError(w, r, err, "Failed to create API key")
		return
	}

	h.jsonResponse(w, key)
}

// HandleDeleteAPIKey removes a key; unknown ids still succeed
func (h *Handler) HandleDeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.jsonError(w, "Invalid API key id", http.StatusBadRequest)
		return
	}

	if err := h.app.DeleteAPIKey(r.Context(), id); err != nil {
		h.internalError(w, r, err, "Failed to delete API key")
		return
	}

	h.jsonResponse(w, SuccessResponse{Success: true})
}

// HandleGetMessages returns the conversation in chronological order
func (h *Handler) HandleGetMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.app.ChatMessages(r.Context())
	if err != nil {
		h.internalError(w, r, err, "Failed to fetch messages")
		return
	}
	h.jsonResponse(w, messages)
}

// HandleSendMessage relays a chat turn. A provider failure still answers 200
// with the fallback reply and an error field.
func (h *Handler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.app.SendChat(r.Context(), chat.SendRequest{Message: req.Message, Model: req.Model})
	switch {
	case errors.Is(err, chat.ErrInvalidRequest):
		h.jsonError(w, "Message is required", http.StatusBadRequest)
		return
	case errors.Is(err, chat.ErrNoActiveKey):
		h.jsonError(w, "No active API key available", http.StatusBadRequest)
		return
	case err != nil:
		h.internalError(w, r, err, "Failed to process chat message")
		return
	}

	h.jsonResponse(w, SendMessageResponse{
		UserMessage:   result.UserMessage,
		AIMessage:     result.AssistantMessage,
		TokensUsed:    result.TokensUsed,
		EstimatedCost: result.EstimatedCost,
		Error:         result.Error,
	})
}

// HandleGetStats returns the admin dashboard summary
func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.app.Stats(r.Context())
	if err != nil {
		h.internalError(w, r, err, "Failed to fetch statistics")
		return
	}
	h.jsonResponse(w, stats)
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// internalError logs the cause and answers with a generic message
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error, message string) {
	observability.WithContext(r.Context()).Error(message,
		"path", r.URL.Path,
		"error", err)
	h.jsonError(w, message, http.StatusInternalServerError)
}
