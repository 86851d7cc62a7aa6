package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kimhaegyeong/ai-webtoon/internal/assets"
	"github.com/kimhaegyeong/ai-webtoon/internal/config"
	"github.com/kimhaegyeong/ai-webtoon/internal/gen"
)

// Server wires the HTTP API, the websocket hub, and the generation
// pipelines over a Store.
type Server struct {
	store  Store
	cfg    config.Config
	ws     *wsHub
	story  gen.StoryGenerator
	images gen.ImageGenerator
	assets assets.Store
	refs   *http.Client
	log    zerolog.Logger
	now    func() time.Time
}

type Options struct {
	Store  Store
	Config config.Config
	Story  gen.StoryGenerator
	Images gen.ImageGenerator
	Assets assets.Store
	Logger zerolog.Logger
}

func New(opts Options) *Server {
	return &Server{
		store:  opts.Store,
		cfg:    opts.Config,
		ws:     newWSHub(),
		story:  opts.Story,
		images: opts.Images,
		assets: opts.Assets,
		refs:   &http.Client{Timeout: 10 * time.Second},
		log:    opts.Logger,
		now:    time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/episodes", s.handleCreateEpisode)
	mux.HandleFunc("GET /api/episodes", s.handleListEpisodes)
	mux.HandleFunc("GET /api/episodes/{id}", s.handleGetEpisode)
	mux.HandleFunc("POST /api/episodes/{id}/join", s.handleJoinEpisode)
	mux.HandleFunc("POST /api/episodes/{id}/complete", s.handleCompleteEpisode)

	mux.HandleFunc("POST /api/episodes/{id}/panels", s.handleCreatePanel)
	mux.HandleFunc("POST /api/episodes/{id}/panels/{panelID}/image", s.handleRetryPanelImage)
	mux.HandleFunc("POST /api/episodes/{id}/continue", s.handleContinueEpisode)

	mux.HandleFunc("POST /api/episodes/{id}/like", s.handleToggleEpisodeLike)
	mux.HandleFunc("POST /api/episodes/{id}/panels/{panelID}/like", s.handleTogglePanelLike)
	mux.HandleFunc("GET /api/episodes/{id}/reviews", s.handleListReviews)
	mux.HandleFunc("POST /api/episodes/{id}/reviews", s.handleCreateReview)

	mux.HandleFunc("GET /ws/episodes/{id}", s.handleEpisodeWebsocket)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}
