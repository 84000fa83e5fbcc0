package room

type AddParticipantParams struct {
	ParticipantId string
	RoomId        string
	Name          string
}

type RemoveParticipantParams struct {
	ParticipantId string
	RoomId        string
}

type UpdateParticipantParams struct {
	ParticipantId         string
	RoomId                string
	Name                  string
	Playing               bool
	CurrentMediaURL       string
	CurrentMediaTimestamp int
	CurrentPing           int
	CurrentPlaybackRate   float64
}

type SetRulerParams struct {
	RoomId  string
	RulerId string
	Epoch   uint64
}

type SetMediaParams struct {
	RoomId    string
	URL       string
	Paused    bool
	Timestamp int
	UpdatedAt int64
}
