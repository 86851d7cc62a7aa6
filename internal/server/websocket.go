package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

type wsHub struct {
	mu     sync.Mutex
	groups map[string]map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{
		groups: make(map[string]map[*websocket.Conn]struct{}),
	}
}

func (h *wsHub) Add(episodeID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[episodeID]
	if group == nil {
		group = make(map[*websocket.Conn]struct{})
		h.groups[episodeID] = group
	}
	group[conn] = struct{}{}
}

func (h *wsHub) Remove(episodeID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[episodeID]
	if group == nil {
		return
	}
	delete(group, conn)
	_ = conn.Close()
	if len(group) == 0 {
		delete(h.groups, episodeID)
	}
}

func (h *wsHub) Send(conn *websocket.Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func (h *wsHub) Broadcast(episodeID string, payload any) {
	h.mu.Lock()
	group := h.groups[episodeID]
	conns := make([]*websocket.Conn, 0, len(group))
	for conn := range group {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Remove(episodeID, conn)
		}
	}
}

func (s *Server) handleEpisodeWebsocket(w http.ResponseWriter, r *http.Request) {
	episodeID := r.PathValue("id")
	if _, err := s.store.GetEpisode(r.Context(), episodeID); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		writeError(w, http.StatusInternalServerError, CodeDB, "failed to load episode")
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.log.Info().Str("episode_id", episodeID).Str("remote", r.RemoteAddr).Msg("ws connected")
	s.ws.Add(episodeID, conn)
	if snapshot, err := s.snapshotEpisode(r.Context(), episodeID); err == nil {
		s.ws.Send(conn, snapshot)
	}
	go s.readWS(episodeID, conn)
}

// readWS drains the connection until the peer goes away. Inbound frames
// carry nothing; all state changes come through the HTTP API.
func (s *Server) readWS(episodeID string, conn *websocket.Conn) {
	defer s.ws.Remove(episodeID, conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.log.Info().Str("episode_id", episodeID).Msg("ws disconnected")
			return
		}
	}
}
