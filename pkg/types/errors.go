package types

import "errors"

var errInvalidParticipantID = errors.New("types: invalid participant id")
