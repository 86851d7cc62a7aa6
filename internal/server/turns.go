package server

import (
	"github.com/kimhaegyeong/ai-webtoon/internal/db"
)

// isMyTurn reports whether the participant holds the turn pointer. A
// completed episode has no active turn.
func isMyTurn(episode *db.Episode, participant *db.Participant) bool {
	if episode.Status != db.StatusInProgress {
		return false
	}
	return episode.CurrentTurnIndex == participant.TurnOrder
}

// nextTurnIndex advances the pointer round-robin over the current
// participant roster. A solo episode keeps pointing at the owner.
func nextTurnIndex(current, participantCount int) int {
	if participantCount < 1 {
		participantCount = 1
	}
	return (current + 1) % participantCount
}

// trailingRun counts how many of the newest panels were authored by the
// participant without interruption.
func trailingRun(panels []db.Panel, participantID string) int {
	run := 0
	for i := len(panels) - 1; i >= 0; i-- {
		if panels[i].CreatedBy == nil || *panels[i].CreatedBy != participantID {
			break
		}
		run++
	}
	return run
}

// canAuthor gates panel submission: episode state, turn ownership,
// episode capacity, and the consecutive-turn cap. The consecutive cap is
// waived for solo episodes, which would otherwise deadlock.
func (s *Server) canAuthor(episode *db.Episode, participants []db.Participant, panels []db.Panel, participant *db.Participant) *apiError {
	if episode.Status != db.StatusInProgress {
		return errValidation(409, "episode is already completed")
	}
	if !isMyTurn(episode, participant) {
		return errValidation(403, "not your turn")
	}
	if len(panels) >= s.cfg.MaxPanelsPerEpisode {
		return errValidation(409, "episode panel limit reached")
	}
	if len(participants) > 1 && trailingRun(panels, participant.ID) >= s.cfg.MaxConsecutiveTurns {
		return errValidation(403, "consecutive turn limit reached")
	}
	return nil
}

func findParticipant(participants []db.Participant, id string) *db.Participant {
	for i := range participants {
		if participants[i].ID == id {
			return &participants[i]
		}
	}
	return nil
}
