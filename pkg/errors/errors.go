package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeTransport represents network or HTTP-status failures
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeExtraction represents per-item HTML extraction failures
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeNormalization represents price parse/convert failures
	ErrorTypeNormalization ErrorType = "normalization"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ScrapeError represents a scraper-specific error
type ScrapeError struct {
	Type      ErrorType
	Component string
	Message   string
	Err       error
	Time      time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is worth another attempt.
// Only transport failures are; everything else is deterministic.
func (e *ScrapeError) IsRetryable() bool {
	return e.Type == ErrorTypeTransport
}

// New creates a new ScrapeError
func New(errType ErrorType, component, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:      errType,
		Component: component,
		Message:   message,
		Err:       err,
		Time:      time.Now(),
	}
}

// NewTransport creates a new transport error
func NewTransport(component, message string, err error) *ScrapeError {
	return New(ErrorTypeTransport, component, message, err)
}

// NewExtraction creates a new extraction error
func NewExtraction(component, message string, err error) *ScrapeError {
	return New(ErrorTypeExtraction, component, message, err)
}

// NewNormalization creates a new normalization error
func NewNormalization(component, message string, err error) *ScrapeError {
	return New(ErrorTypeNormalization, component, message, err)
}

// NewCache creates a new cache error
func NewCache(component, message string, err error) *ScrapeError {
	return New(ErrorTypeCache, component, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(component, message string, err error) *ScrapeError {
	return New(ErrorTypePublisher, component, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "config", message, err)
}
