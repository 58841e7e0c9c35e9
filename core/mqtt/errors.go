package mqtt

import "errors"

// ErrPublishFailed is returned when a message could not be delivered after
// every retry.
var ErrPublishFailed = errors.New("mqtt publish failed")

// ErrInvalidTopic is returned for topics outside the configured prefix.
var ErrInvalidTopic = errors.New("invalid topic")
