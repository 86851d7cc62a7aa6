package server

import (
	"net/http"
	"strings"
	"testing"
)

func TestEpisodeLikeToggle(t *testing.T) {
	env := newTestEnv(t)
	episodeID, _ := createEpisode(t, env, "anon-1")

	resp := doRequest(t, env.ts, http.MethodPost, "/api/episodes/"+episodeID+"/like", map[string]any{
		"anonymous_id": "reader-1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["liked"] != true || body["like_count"].(float64) != 1 {
		t.Fatalf("expected liked with count 1, got %v", body)
	}

	// The same identity toggling again removes the like.
	resp = doRequest(t, env.ts, http.MethodPost, "/api/episodes/"+episodeID+"/like", map[string]any{
		"anonymous_id": "reader-1",
	})
	body = decodeBody(t, resp)
	if body["liked"] != false || body["like_count"].(float64) != 0 {
		t.Fatalf("expected unliked with count 0, got %v", body)
	}

	// Distinct identities accumulate.
	doRequest(t, env.ts, http.MethodPost, "/api/episodes/"+episodeID+"/like", map[string]any{
		"anonymous_id": "reader-1",
	})
	resp = doRequest(t, env.ts, http.MethodPost, "/api/episodes/"+episodeID+"/like", map[string]any{
		"anonymous_id": "reader-2",
	})
	body = decodeBody(t, resp)
	if body["like_count"].(float64) != 2 {
		t.Fatalf("expected count 2, got %v", body["like_count"])
	}
}

func TestPanelLikeToggle(t *testing.T) {
	env := newTestEnv(t)
	episodeID, owner := createEpisode(t, env, "anon-1")
	resp := submitPanel(t, env, episodeID, owner, "a likable scene")
	panelID := decodeBody(t, resp)["panel"].(map[string]any)["id"].(string)

	resp = doRequest(t, env.ts, http.MethodPost, "/api/episodes/"+episodeID+"/panels/"+panelID+"/like", map[string]any{
		"anonymous_id": "reader-1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["liked"] != true || body["like_count"].(float64) != 1 {
		t.Fatalf("expected liked with count 1, got %v", body)
	}

	// Panel likes surface in the snapshot.
	resp = doRequest(t, env.ts, http.MethodGet, "/api/episodes/"+episodeID, nil)
	snapshot := decodeBody(t, resp)
	panelLikes := snapshot["panel_likes"].(map[string]any)
	if panelLikes[panelID].(float64) != 1 {
		t.Fatalf("expected 1 like in snapshot, got %v", panelLikes[panelID])
	}
}

func TestPanelLikeUnknownPanel(t *testing.T) {
	env := newTestEnv(t)
	episodeID, _ := createEpisode(t, env, "anon-1")

	resp := doRequest(t, env.ts, http.MethodPost, "/api/episodes/"+episodeID+"/panels/ghost/like", map[string]any{
		"anonymous_id": "reader-1",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestReviews(t *testing.T) {
	env := newTestEnv(t)
	episodeID, _ := createEpisode(t, env, "anon-1")

	resp := doRequest(t, env.ts, http.MethodPost, "/api/episodes/"+episodeID+"/reviews", map[string]any{
		"anonymous_id": "reader-1",
		"content":      "the noir turn in panel three was perfect",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}

	resp = doRequest(t, env.ts, http.MethodGet, "/api/episodes/"+episodeID+"/reviews", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	reviews := body["reviews"].([]any)
	if len(reviews) != 1 {
		t.Fatalf("expected 1 review, got %d", len(reviews))
	}
	if reviews[0].(map[string]any)["content"] != "the noir turn in panel three was perfect" {
		t.Fatalf("unexpected review content %v", reviews[0])
	}
}

func TestReviewValidation(t *testing.T) {
	env := newTestEnv(t)
	episodeID, _ := createEpisode(t, env, "anon-1")

	cases := []map[string]any{
		{"anonymous_id": "reader-1"},
		{"anonymous_id": "reader-1", "content": ""},
		{"anonymous_id": "reader-1", "content": strings.Repeat("x", 201)},
		{"content": "no identity"},
	}
	for i, payload := range cases {
		resp := doRequest(t, env.ts, http.MethodPost, "/api/episodes/"+episodeID+"/reviews", payload)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("case %d: expected status %d, got %d", i, http.StatusBadRequest, resp.StatusCode)
		}
	}
}
