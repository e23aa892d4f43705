package fakeapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/gst-chat/client/pkg/utils"
)

// Handler serves the auth, chat and message routes.
type Handler struct {
	store     *Store
	tokens    *Tokens
	responder Responder
	upgrader  websocket.Upgrader
}

// New creates the backend handler.
func New(store *Store, tokens *Tokens, responder Responder) *Handler {
	if responder == nil {
		responder = EchoResponder{}
	}
	return &Handler{
		store:     store,
		tokens:    tokens,
		responder: responder,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册全部路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/auth/me", h.handleMe)

	r.Route("/chats", func(r chi.Router) {
		r.Get("/", h.handleListChats)
		r.Post("/", h.handleCreateChat)
		r.Get("/{chatID}/messages", h.handleMessages)
	})

	r.Get("/ws/chat/{chatID}", h.handleWebSocket)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Name) == "" || strings.TrimSpace(payload.Email) == "" || payload.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	if _, err := h.store.Register(r.Context(), payload.Name, payload.Email, payload.Password); err != nil {
		if errors.Is(err, ErrUserExists) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	utils.RespondMessage(w, http.StatusOK, "User registered successfully")
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	password := r.URL.Query().Get("password")

	user, err := h.store.Authenticate(r.Context(), email, password)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, ErrInvalidCredentials.Error())
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "could not issue session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	utils.RespondMessage(w, http.StatusOK, "Login successful")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	utils.RespondMessage(w, http.StatusOK, "Logged out")
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"user":  user.ID,
		"email": user.Email,
		"name":  user.Name,
	})
}

func (h *Handler) handleListChats(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.store.ListChats(r.Context(), user.ID))
}

func (h *Handler) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	utils.RespondJSON(w, http.StatusOK, h.store.CreateChat(r.Context(), user.ID, title))
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	chatID := chi.URLParam(r, "chatID")
	if _, err := h.store.ChatForUser(r.Context(), chatID, user.ID); err != nil {
		respondChatError(w, err)
		return
	}

	messages, err := h.store.LoadTranscript(r.Context(), chatID)
	if err != nil {
		respondChatError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

// currentUser resolves the session cookie to a user.
func (h *Handler) currentUser(r *http.Request) (User, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return User{}, ErrInvalidToken
	}
	userID, err := h.tokens.Verify(cookie.Value)
	if err != nil {
		return User{}, err
	}
	return h.store.UserByID(r.Context(), userID)
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (User, bool) {
	user, err := h.currentUser(r)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "Not authenticated")
		return User{}, false
	}
	return user, true
}

func respondChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrChatNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAccessDenied):
		utils.RespondError(w, http.StatusForbidden, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
