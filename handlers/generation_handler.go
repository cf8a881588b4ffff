package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"brandforgeAPI/internal/realtime"
	"brandforgeAPI/internal/types/generation"
	"brandforgeAPI/middleware"
	"brandforgeAPI/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type GenerationHandler struct {
	dispatcher *services.GenerationDispatcher
	hub        *realtime.Hub
}

func NewGenerationHandler(dispatcher *services.GenerationDispatcher, hub *realtime.Hub) *GenerationHandler {
	return &GenerationHandler{
		dispatcher: dispatcher,
		hub:        hub,
	}
}

// GenerateVisuals queues a generation batch for the posted event. The batch
// runs off the request path; completion reaches the client over the
// websocket room.
func (h *GenerationHandler) GenerateVisuals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var ev generation.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	ev.UserID = clerkID

	if ev.DomainID == "" || ev.PostID == "" {
		respondWithError(w, http.StatusBadRequest, "domainId and postId are required")
		return
	}
	if ev.Slogan == "" && ev.BusinessName == "" {
		respondWithError(w, http.StatusBadRequest, "Nothing to generate: no slogan or business name")
		return
	}

	if !h.dispatcher.Dispatch(&ev) {
		respondWithError(w, http.StatusServiceUnavailable, "Generation queue is full, try again later")
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]string{
		"status": "queued",
		"postId": ev.PostID,
	})
}

// VisualsSocket subscribes a client to its (user, domain) room for
// completion events. The room's user half comes from the verified token, so
// a client can only ever join its own rooms.
func (h *GenerationHandler) VisualsSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetClerkID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	domainID := r.URL.Query().Get("domainId")
	if domainID == "" {
		respondWithError(w, http.StatusBadRequest, "Query parameter 'domainId' is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Websocket upgrade failed: %v", err)
		return
	}

	client := &realtime.Client{
		Hub:    h.hub,
		Conn:   conn,
		Send:   make(chan []byte, 16),
		Room:   realtime.RoomKey(userID, domainID),
		UserID: userID,
	}
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
