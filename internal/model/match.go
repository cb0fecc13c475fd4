package model

import "time"

// Match is an archived finished session
type Match struct {
	ID                 string     `json:"id" bson:"_id,omitempty"`
	RoomID             string     `json:"roomId" bson:"roomId"`
	Pin                string     `json:"pin" bson:"pin"`
	StartedAt          time.Time  `json:"startedAt" bson:"startedAt"`
	EndedAt            time.Time  `json:"endedAt" bson:"endedAt"`
	DurationSeconds    int64      `json:"durationSeconds" bson:"durationSeconds"`
	Players            []Player   `json:"players" bson:"players"`
	Logs               []LogEntry `json:"logs" bson:"logs"`
	ParticipantUserIDs []string   `json:"participantUserIds" bson:"participantUserIds"`
}

// NewMatch builds an archive record from a final state
func NewMatch(roomID, pin string, final *FinalState) *Match {
	userIDs := make([]string, 0, len(final.Players))
	for _, p := range final.Players {
		if p.UserID != nil && *p.UserID != "" {
			userIDs = append(userIDs, *p.UserID)
		}
	}
	return &Match{
		RoomID:             roomID,
		Pin:                pin,
		StartedAt:          final.StartedAt,
		EndedAt:            final.EndedAt,
		DurationSeconds:    final.DurationSeconds,
		Players:            final.Players,
		Logs:               final.Logs,
		ParticipantUserIDs: userIDs,
	}
}
