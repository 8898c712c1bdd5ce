package dto

import "time"

// RateLimitInfo is the outcome of one rate limit check.
type RateLimitInfo struct {
	Allowed      bool
	Limit        int
	Remaining    int
	ResetTime    *time.Time
	BlockedUntil *time.Time
}

// RateLimitExceeded is the data of a 429 response.
type RateLimitExceeded struct {
	EndpointType string `json:"endpoint_type"`
	BlockedUntil int64  `json:"blocked_until,omitempty"`
	RetryAfter   int    `json:"retry_after,omitempty"`
}
