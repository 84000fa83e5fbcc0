package protocol

// Session is one entry of the participant list sent on connect.
type Session struct {
	ID string `json:"id"`
	StatusData
}

type ConnectData struct {
	ID                    string    `json:"id"`
	CurrentRulerID        string    `json:"currentRulerID"`
	CurrentRulerEpoch     uint64    `json:"currentRulerEpoch,omitempty"`
	CurrentSessions       []Session `json:"currentSessions"`
	CurrentMediaURL       string    `json:"currentMediaURL"`
	CurrentMediaPaused    bool      `json:"currentMediaPaused"`
	CurrentMediaTimestamp int       `json:"currentMediaTimestamp"`
}

type PingData struct {
	Timestamp int64 `json:"timestamp"`
}

type PongData struct {
	Timestamp  int64 `json:"timestamp"`
	ReceivedAt int64 `json:"receivedAt,omitempty"`
}

type StatusData struct {
	Name                  string  `json:"name"`
	Playing               bool    `json:"playing"`
	CurrentMediaURL       string  `json:"currentMediaURL"`
	CurrentMediaTimestamp int     `json:"currentMediaTimestamp"`
	CurrentPing           int     `json:"currentPing"`
	CurrentPlaybackRate   float64 `json:"currentPlaybackRate"`
}

type PlaybackStatusData struct {
	Playing               bool `json:"playing"`
	CurrentMediaTimestamp int  `json:"currentMediaTimestamp"`
	CurrentPing           int  `json:"currentPing"`
}

// SetRulerData carries a ruler transfer. Epoch is zero when the sender does not stamp transfers.
type SetRulerData struct {
	NewRulerID string `json:"newRulerID"`
	Epoch      uint64 `json:"epoch,omitempty"`
}

type SeekData struct {
	MediaTimestamp int `json:"mediaTimestamp"`
}

type SetMediaData struct {
	URL string `json:"url"`
}

type DisconnectData struct {
	ID string `json:"id"`
}
