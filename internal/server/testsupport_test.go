package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kimhaegyeong/ai-webtoon/internal/config"
	"github.com/kimhaegyeong/ai-webtoon/internal/db"
	"github.com/kimhaegyeong/ai-webtoon/internal/gen"
)

// memStore is the in-memory Store used by the handler tests.
type memStore struct {
	mu           sync.Mutex
	episodes     map[string]*db.Episode
	participants map[string][]db.Participant
	panels       map[string][]db.Panel
	panelLikes   map[string]map[string]struct{}
	episodeLikes map[string]map[string]struct{}
	reviews      map[string][]db.EpisodeReview
	events       []db.Event
}

func newMemStore() *memStore {
	return &memStore{
		episodes:     make(map[string]*db.Episode),
		participants: make(map[string][]db.Participant),
		panels:       make(map[string][]db.Panel),
		panelLikes:   make(map[string]map[string]struct{}),
		episodeLikes: make(map[string]map[string]struct{}),
		reviews:      make(map[string][]db.EpisodeReview),
	}
}

func (s *memStore) CreateEpisode(ctx context.Context, episode *db.Episode, owner *db.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *episode
	s.episodes[episode.ID] = &copied
	s.participants[episode.ID] = []db.Participant{*owner}
	return nil
}

func (s *memStore) GetEpisode(ctx context.Context, id string) (*db.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	episode, ok := s.episodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *episode
	return &copied, nil
}

func (s *memStore) ListEpisodes(ctx context.Context, opts ListOptions) ([]EpisodeSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var episodes []db.Episode
	for _, episode := range s.episodes {
		if opts.Status != "" && episode.Status != opts.Status {
			continue
		}
		episodes = append(episodes, *episode)
	}
	sort.Slice(episodes, func(i, j int) bool {
		return episodes[i].CreatedAt.After(episodes[j].CreatedAt)
	})
	if opts.Offset > 0 && opts.Offset < len(episodes) {
		episodes = episodes[opts.Offset:]
	} else if opts.Offset >= len(episodes) {
		episodes = nil
	}
	if opts.Limit > 0 && len(episodes) > opts.Limit {
		episodes = episodes[:opts.Limit]
	}
	summaries := make([]EpisodeSummary, 0, len(episodes))
	for _, episode := range episodes {
		summaries = append(summaries, EpisodeSummary{
			Episode:    episode,
			PanelCount: int64(len(s.panels[episode.ID])),
			LikeCount:  int64(len(s.episodeLikes[episode.ID])),
		})
	}
	return summaries, nil
}

func (s *memStore) UpdateEpisodeTurn(ctx context.Context, id string, turnIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	episode, ok := s.episodes[id]
	if !ok {
		return ErrNotFound
	}
	episode.CurrentTurnIndex = turnIndex
	return nil
}

func (s *memStore) CompleteEpisode(ctx context.Context, id string, title, summary *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	episode, ok := s.episodes[id]
	if !ok || episode.Status != db.StatusInProgress {
		return ErrNotFound
	}
	episode.Status = db.StatusCompleted
	if title != nil {
		episode.Title = title
	}
	if summary != nil {
		episode.Summary = summary
	}
	return nil
}

func (s *memStore) CountEpisodesByCreatorSince(ctx context.Context, creatorID string, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, episode := range s.episodes {
		if episode.CreatorID == creatorID && !episode.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *memStore) AddParticipant(ctx context.Context, participant *db.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[participant.EpisodeID] = append(s.participants[participant.EpisodeID], *participant)
	return nil
}

func (s *memStore) ListParticipants(ctx context.Context, episodeID string) ([]db.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]db.Participant(nil), s.participants[episodeID]...), nil
}

func (s *memStore) InsertPanel(ctx context.Context, panel *db.Panel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panels[panel.EpisodeID] = append(s.panels[panel.EpisodeID], *panel)
	return nil
}

func (s *memStore) GetPanel(ctx context.Context, episodeID, panelID string) (*db.Panel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, panel := range s.panels[episodeID] {
		if panel.ID == panelID {
			copied := panel
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) ListPanels(ctx context.Context, episodeID string) ([]db.Panel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]db.Panel(nil), s.panels[episodeID]...), nil
}

func (s *memStore) UpdatePanelImage(ctx context.Context, panelID, imageURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for episodeID := range s.panels {
		for i := range s.panels[episodeID] {
			if s.panels[episodeID][i].ID == panelID {
				url := imageURL
				s.panels[episodeID][i].ImageURL = &url
				return nil
			}
		}
	}
	return ErrNotFound
}

func (s *memStore) TogglePanelLike(ctx context.Context, panelID, anonymousID string) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	likes := s.panelLikes[panelID]
	if likes == nil {
		likes = make(map[string]struct{})
		s.panelLikes[panelID] = likes
	}
	liked := false
	if _, ok := likes[anonymousID]; ok {
		delete(likes, anonymousID)
	} else {
		likes[anonymousID] = struct{}{}
		liked = true
	}
	return liked, int64(len(likes)), nil
}

func (s *memStore) ToggleEpisodeLike(ctx context.Context, episodeID, anonymousID string) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	likes := s.episodeLikes[episodeID]
	if likes == nil {
		likes = make(map[string]struct{})
		s.episodeLikes[episodeID] = likes
	}
	liked := false
	if _, ok := likes[anonymousID]; ok {
		delete(likes, anonymousID)
	} else {
		likes[anonymousID] = struct{}{}
		liked = true
	}
	return liked, int64(len(likes)), nil
}

func (s *memStore) PanelLikeCounts(ctx context.Context, episodeID string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int64)
	for _, panel := range s.panels[episodeID] {
		if likes := s.panelLikes[panel.ID]; len(likes) > 0 {
			counts[panel.ID] = int64(len(likes))
		}
	}
	return counts, nil
}

func (s *memStore) CountEpisodeLikes(ctx context.Context, episodeID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.episodeLikes[episodeID])), nil
}

func (s *memStore) AddReview(ctx context.Context, review *db.EpisodeReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	review.ID = uint(len(s.reviews[review.EpisodeID]) + 1)
	s.reviews[review.EpisodeID] = append(s.reviews[review.EpisodeID], *review)
	return nil
}

func (s *memStore) ListReviews(ctx context.Context, episodeID string) ([]db.EpisodeReview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]db.EpisodeReview(nil), s.reviews[episodeID]...), nil
}

func (s *memStore) AppendEvent(ctx context.Context, event *db.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

// stubStory replays a scripted plan, or fails with err.
type stubStory struct {
	panels []gen.StoryPanel
	err    error
	calls  int
}

func (s *stubStory) GeneratePanels(ctx context.Context, req gen.StoryRequest) ([]gen.StoryPanel, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.panels, nil
}

// stubImages renders fixed bytes, failing on scripted call numbers. It
// records the reference image passed to each call.
type stubImages struct {
	mu         sync.Mutex
	failOn     map[int]error
	calls      int
	references [][]byte
}

func (s *stubImages) GeneratePanelImage(ctx context.Context, req gen.ImageRequest) (gen.ImageResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.references = append(s.references, req.ReferenceImage)
	if err, ok := s.failOn[s.calls]; ok {
		return gen.ImageResult{}, err
	}
	return gen.ImageResult{Data: []byte{0xFF, byte(s.calls)}, MimeType: "image/jpeg"}, nil
}

// stubAssets returns deterministic URLs without touching storage.
type stubAssets struct {
	mu      sync.Mutex
	err     error
	uploads []string
}

func (s *stubAssets) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.uploads = append(s.uploads, objectPath)
	return "https://cdn.test/" + objectPath, nil
}

type testEnv struct {
	srv    *Server
	store  *memStore
	story  *stubStory
	images *stubImages
	assets *stubAssets
	ts     *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:  newMemStore(),
		story:  &stubStory{},
		images: &stubImages{},
		assets: &stubAssets{},
	}
	env.srv = New(Options{
		Store:  env.store,
		Config: config.Default(),
		Story:  env.story,
		Images: env.images,
		Assets: env.assets,
		Logger: zerolog.Nop(),
	})
	env.ts = httptest.NewServer(env.srv.Handler())
	t.Cleanup(env.ts.Close)
	return env
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

// createEpisode drives the create endpoint and returns episode and owner
// participant ids.
func createEpisode(t *testing.T, env *testEnv, anonymousID string) (string, string) {
	t.Helper()
	resp := doRequest(t, env.ts, http.MethodPost, "/api/episodes", map[string]any{
		"style":            "webtoon",
		"character_prompt": "a shy barista with silver hair",
		"nickname":         "mochi",
		"anonymous_id":     anonymousID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	episode := body["episode"].(map[string]any)
	participant := body["participant"].(map[string]any)
	return episode["id"].(string), participant["id"].(string)
}

// joinEpisode adds a participant and returns its id.
func joinEpisode(t *testing.T, env *testEnv, episodeID, nickname string) string {
	t.Helper()
	resp := doRequest(t, env.ts, http.MethodPost, "/api/episodes/"+episodeID+"/join", map[string]any{
		"nickname":     nickname,
		"anonymous_id": "anon-" + nickname,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["participant"].(map[string]any)["id"].(string)
}

// submitPanel posts a panel as the given participant.
func submitPanel(t *testing.T, env *testEnv, episodeID, participantID, scene string) *http.Response {
	t.Helper()
	return doRequest(t, env.ts, http.MethodPost, "/api/episodes/"+episodeID+"/panels", map[string]any{
		"participant_id":    participantID,
		"scene_description": scene,
		"bubble_position":   "center",
	})
}
