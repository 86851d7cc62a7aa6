// Package live holds the client-side view of one episode: a mutable
// identity cell plus a reducer that folds websocket events into local
// state. It is the counterpart of the server's broadcast layer and is
// what viewer frontends embed.
package live

import (
	"sync"

	"github.com/kimhaegyeong/ai-webtoon/internal/db"
)

// ViewState is the room lifecycle. A room starts loading, then settles
// into join (no identity yet) or active (identity known), or error.
type ViewState string

const (
	StateLoading ViewState = "loading"
	StateError   ViewState = "error"
	StateJoin    ViewState = "join"
	StateActive  ViewState = "active"
)

// Event is one reducer input, decoded from a websocket frame. Snapshot
// frames carry the full roster and panel list; incremental frames carry
// a single row.
type Event struct {
	Type         string           `json:"type"`
	Episode      *db.Episode      `json:"episode,omitempty"`
	Participants []db.Participant `json:"participants,omitempty"`
	Panels       []db.Panel       `json:"panels,omitempty"`
	Participant  *db.Participant  `json:"participant,omitempty"`
	Panel        *db.Panel        `json:"panel,omitempty"`
	Completed    int              `json:"completed,omitempty"`
	Total        int              `json:"total,omitempty"`
}

// Identity is the participant identity for one episode. It is a shared
// mutable cell: the join flow writes it after the room already exists,
// and the reducer reads it on every panel event.
type Identity struct {
	mu            sync.Mutex
	participantID string
}

func (c *Identity) Set(participantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.participantID = participantID
}

func (c *Identity) Get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.participantID
}

// Room is the local episode state. All methods are safe for concurrent
// use; the websocket reader and the UI goroutine share one Room.
type Room struct {
	mu           sync.Mutex
	state        ViewState
	identity     *Identity
	episode      *db.Episode
	participants []db.Participant
	panels       []db.Panel
	progress     Progress
}

// Progress tracks an in-flight AI continuation batch.
type Progress struct {
	Completed int
	Total     int
}

func NewRoom(identity *Identity) *Room {
	if identity == nil {
		identity = &Identity{}
	}
	return &Room{state: StateLoading, identity: identity}
}

// Resolve installs the authoritative snapshot. The room leaves loading
// for active when an identity is already known, join otherwise.
func (r *Room) Resolve(episode db.Episode, participants []db.Participant, panels []db.Panel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.episode = &episode
	r.participants = append([]db.Participant(nil), participants...)
	r.panels = append([]db.Panel(nil), panels...)
	if r.identity.Get() != "" {
		r.state = StateActive
	} else {
		r.state = StateJoin
	}
}

// Fail marks the room unrecoverable; only a fresh Room restarts it.
func (r *Room) Fail() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = StateError
}

// Join records the participant created by the join endpoint and moves
// the room to active.
func (r *Room) Join(participant db.Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identity.Set(participant.ID)
	r.appendParticipant(participant)
	r.state = StateActive
}

// Apply folds one remote event into local state. Applying the same event
// twice leaves the state unchanged, except panel inserts, whose
// self-echo suppression makes duplicates a server-side concern.
func (r *Room) Apply(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch evt.Type {
	case "snapshot":
		if evt.Episode == nil {
			return
		}
		r.episode = evt.Episode
		r.participants = append([]db.Participant(nil), evt.Participants...)
		r.panels = append([]db.Panel(nil), evt.Panels...)
		if r.state == StateLoading {
			if r.identity.Get() != "" {
				r.state = StateActive
			} else {
				r.state = StateJoin
			}
		}
	case "panel_insert":
		if evt.Panel == nil {
			return
		}
		// The author already rendered its own panel optimistically;
		// dropping the echo keeps it from appearing twice.
		if evt.Panel.CreatedBy != nil && *evt.Panel.CreatedBy == r.identity.Get() {
			return
		}
		r.panels = append(r.panels, *evt.Panel)
	case "panel_update":
		if evt.Panel == nil {
			return
		}
		for i := range r.panels {
			if r.panels[i].ID == evt.Panel.ID {
				r.panels[i] = *evt.Panel
				return
			}
		}
	case "episode_update":
		if evt.Episode != nil {
			r.episode = evt.Episode
		}
	case "participant_insert":
		if evt.Participant != nil {
			r.appendParticipant(*evt.Participant)
		}
	case "continuation_progress":
		r.progress = Progress{Completed: evt.Completed, Total: evt.Total}
	}
}

func (r *Room) appendParticipant(participant db.Participant) {
	for _, existing := range r.participants {
		if existing.ID == participant.ID {
			return
		}
	}
	r.participants = append(r.participants, participant)
}

// InsertOwn records a panel the local participant authored, straight
// from the HTTP response rather than the websocket echo.
func (r *Room) InsertOwn(panel db.Panel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.panels {
		if existing.ID == panel.ID {
			return
		}
	}
	r.panels = append(r.panels, panel)
}

// CanAuthor reports whether the local participant may submit a panel
// right now: room active, episode running, pointer on them.
func (r *Room) CanAuthor() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateActive || r.episode == nil || r.episode.Status != db.StatusInProgress {
		return false
	}
	id := r.identity.Get()
	for _, participant := range r.participants {
		if participant.ID == id {
			return r.episode.CurrentTurnIndex == participant.TurnOrder
		}
	}
	return false
}

func (r *Room) State() ViewState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Room) Episode() *db.Episode {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.episode == nil {
		return nil
	}
	episode := *r.episode
	return &episode
}

func (r *Room) Participants() []db.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]db.Participant(nil), r.participants...)
}

func (r *Room) Panels() []db.Panel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]db.Panel(nil), r.panels...)
}

func (r *Room) Progress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}
