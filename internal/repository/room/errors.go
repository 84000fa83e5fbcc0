package room

import "errors"

var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrRulerNotFound       = errors.New("ruler not found")
	ErrMediaNotFound       = errors.New("media not found")
)
