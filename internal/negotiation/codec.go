package negotiation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pion/ice/v4"
	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v4"
)

// DecodeDescription parses a wire session description and checks that the
// SDP body is well formed.
func DecodeDescription(raw json.RawMessage) (webrtc.SessionDescription, error) {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(raw, &desc); err != nil {
		return desc, fmt.Errorf("%w: description: %v", ErrMalformed, err)
	}
	if err := checkSDP(desc); err != nil {
		return desc, err
	}
	return desc, nil
}

// DecodeCandidate parses a wire ICE candidate.
func DecodeCandidate(raw json.RawMessage) (webrtc.ICECandidateInit, error) {
	var c webrtc.ICECandidateInit
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%w: candidate: %v", ErrMalformed, err)
	}
	return c, nil
}

func checkSDP(desc webrtc.SessionDescription) error {
	if desc.SDP == "" {
		return fmt.Errorf("%w: empty sdp", ErrMalformed)
	}
	var parsed sdp.SessionDescription
	if err := parsed.Unmarshal([]byte(desc.SDP)); err != nil {
		return fmt.Errorf("%w: sdp: %v", ErrMalformed, err)
	}
	return nil
}

// candidateKey validates c and returns a key identifying it for duplicate
// detection. An empty key with a nil error marks end-of-candidates.
func candidateKey(c webrtc.ICECandidateInit) (string, error) {
	line := strings.TrimSpace(c.Candidate)
	if line == "" {
		return "", nil
	}
	parsed, err := ice.UnmarshalCandidate(strings.TrimPrefix(line, "candidate:"))
	if err != nil {
		return "", fmt.Errorf("%w: candidate: %v", ErrMalformed, err)
	}

	mid := ""
	if c.SDPMid != nil {
		mid = *c.SDPMid
	}
	return mid + "|" + parsed.String(), nil
}
