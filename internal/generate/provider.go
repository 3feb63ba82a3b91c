package generate

import (
	"context"

	"github.com/pringgosatmoko/Creativestudio/pkg/models"
)

// Request describes one billable generation call.
type Request struct {
	Kind        models.OperationKind
	Prompt      string
	SourceImage []byte // optional reference frame (img2vid, studio)
	Voice       string // TTS voice preset
	AspectRatio string
	Resolution  string
}

// Artifact is the terminal output of a generation call.
type Artifact struct {
	Kind     models.OperationKind
	MIMEType string
	Data     []byte
	Text     string // text output for storyboard/chat-style results
	URI      string // source location for fetched artifacts
}

// JobHandle identifies a submitted generation job. Synchronous kinds
// complete at submit time with the artifact inline.
type JobHandle struct {
	ID       string
	Done     bool
	Location string
	Artifact *Artifact
}

// JobStatus is one poll observation of an asynchronous job.
type JobStatus struct {
	Done     bool
	Location string
}

// Provider is the external generation service boundary. Implementations map
// their failure signatures onto ErrRateLimited / ErrCredentialInvalid for
// quota-class errors; anything else is treated as fatal by the invoker.
type Provider interface {
	Submit(ctx context.Context, req Request, credential string) (JobHandle, error)
	Poll(ctx context.Context, handle JobHandle, credential string) (JobStatus, error)
	Fetch(ctx context.Context, location string, credential string) (Artifact, error)
}
