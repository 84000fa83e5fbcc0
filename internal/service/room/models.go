package room

import "github.com/gotheater/lockstep/internal/protocol"

type Participant struct {
	Id                    string  `json:"id"`
	Name                  string  `json:"name"`
	Playing               bool    `json:"playing"`
	CurrentMediaURL       string  `json:"current_media_url"`
	CurrentMediaTimestamp int     `json:"current_media_timestamp"`
	CurrentPing           int     `json:"current_ping"`
	CurrentPlaybackRate   float64 `json:"current_playback_rate"`
}

type Media struct {
	URL       string `json:"url"`
	Paused    bool   `json:"paused"`
	Timestamp int    `json:"timestamp"`
}

type Room struct {
	RoomId       string        `json:"room_id"`
	RulerId      string        `json:"ruler_id"`
	RulerEpoch   uint64        `json:"ruler_epoch"`
	Media        Media         `json:"media"`
	Participants []Participant `json:"participants"`
}

func (p Participant) session() protocol.Session {
	return protocol.Session{
		ID: p.Id,
		StatusData: protocol.StatusData{
			Name:                  p.Name,
			Playing:               p.Playing,
			CurrentMediaURL:       p.CurrentMediaURL,
			CurrentMediaTimestamp: p.CurrentMediaTimestamp,
			CurrentPing:           p.CurrentPing,
			CurrentPlaybackRate:   p.CurrentPlaybackRate,
		},
	}
}
