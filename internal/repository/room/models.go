package room

type Participant struct {
	RoomId                string  `redis:"room_id"`
	Name                  string  `redis:"name"`
	Playing               bool    `redis:"playing"`
	CurrentMediaURL       string  `redis:"current_media_url"`
	CurrentMediaTimestamp int     `redis:"current_media_timestamp"`
	CurrentPing           int     `redis:"current_ping"`
	CurrentPlaybackRate   float64 `redis:"current_playback_rate"`
}

type Ruler struct {
	RulerId string `redis:"ruler_id"`
	Epoch   uint64 `redis:"epoch"`
}

type Media struct {
	URL       string `redis:"url"`
	Paused    bool   `redis:"paused"`
	Timestamp int    `redis:"timestamp"`
	// unix ms when Timestamp was recorded
	UpdatedAt int64 `redis:"updated_at"`
}
