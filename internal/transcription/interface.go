package transcription

import "context"

// Service turns one self-contained audio file into text.
type Service interface {
	Transcribe(ctx context.Context, audio []byte, filename string, cred Credential) (string, error)
}
