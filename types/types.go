package types

import (
	"errors"
	"fmt"
	"time"
)

// FailureKind classifies why a document load or a backend call failed.
type FailureKind string

const (
	ArtifactUnavailable FailureKind = "artifact_unavailable"
	ConversionFailure   FailureKind = "conversion_failure"
	BackendUnreachable  FailureKind = "backend_unreachable"
	BackendMalformed    FailureKind = "backend_malformed"
)

// Failure carries the kind of a failure together with its cause.
// It stays inside the service and is only surfaced through logs and metrics.
type Failure struct {
	Kind FailureKind
	Err  error
}

func NewFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf returns the failure kind wrapped in err, or "" if there is none.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// LoadFailedContent replaces the document text when a load attempt fails.
const LoadFailedContent = "Resume data could not be loaded. Please ensure your resume.pdf is in the public folder."

// DocumentCache is the immutable result of one load attempt.
type DocumentCache struct {
	Content     string    // Extracted text or LoadFailedContent
	LastUpdated time.Time // Time of the load attempt
	Pages       int
	Source      string   // Artifact location the content came from
	Failure     *Failure // nil on success
}

func (c *DocumentCache) Failed() bool {
	return c.Content == LoadFailedContent
}

// DocumentState is the readiness of the document from the caller's point of view.
type DocumentState string

const (
	StateLoading DocumentState = "loading"
	StateReady   DocumentState = "ready"
	StateFailed  DocumentState = "failed"
)

// StateOf maps a cache value to a readiness state. A nil cache means the
// document was never loaded or a load is in flight.
func StateOf(c *DocumentCache) DocumentState {
	switch {
	case c == nil:
		return StateLoading
	case c.Failed():
		return StateFailed
	default:
		return StateReady
	}
}

type Origin string

const (
	OriginUser      Origin = "user"
	OriginAssistant Origin = "assistant"
)

// ChatTurn is one message of the transcript. Turns are never modified after creation.
type ChatTurn struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Origin    Origin    `json:"origin"`
	Timestamp string    `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// Outcome tells which of the mutually exclusive reply paths produced an answer.
type Outcome string

const (
	OutcomeAnswered     Outcome = "answered"
	OutcomeStillLoading Outcome = "still_loading"
	OutcomeLoadFailed   Outcome = "load_failed"
	OutcomeDifficulties Outcome = "technical_difficulties"
)

// Reply messages shown to the user instead of errors.
const (
	StillLoadingReply = "Resume data is still loading. Please try again in a moment."
	LoadFailedReply   = "I'm sorry, but I couldn't load the resume data. Please ensure your resume.pdf file is placed in the public folder of this application."
	DifficultiesReply = "I'm experiencing technical difficulties. Please try again later."
)

type Reply struct {
	Text     string
	Outcome  Outcome
	Question ChatTurn
	Answer   ChatTurn
	Failure  *Failure // set for OutcomeDifficulties
}

type DoclingResponse struct {
	Document struct {
		MdContent string `json:"md_content"`
	} `json:"document"`
}
