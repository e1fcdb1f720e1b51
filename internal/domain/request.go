package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ParseEstimateRequest decodes a source-topic message. The request ID is taken
// from the body, then the message key, and otherwise derived from the payload
// so redelivered messages keep the same ID.
func ParseEstimateRequest(raw RawEvent) (EstimateRequest, error) {
	var req EstimateRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return EstimateRequest{}, NewValidationError("body", "is not a valid estimate request: "+err.Error())
	}

	if req.ID == "" {
		req.ID = string(raw.Key)
	}
	if req.ID == "" {
		req.ID = payloadID(raw.Value)
	}
	return req, nil
}

// payloadID is a deterministic ID for a request body.
func payloadID(payload []byte) string {
	sum := sha256.Sum256(payload)
	return "est-" + hex.EncodeToString(sum[:8])
}
