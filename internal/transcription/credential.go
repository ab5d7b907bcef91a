package transcription

import "errors"

var ErrCredentialMissing = errors.New("no transcription API key available")

type CredentialSource string

const (
	SourceCaller CredentialSource = "caller"
	SourceServer CredentialSource = "server"
)

// Credential is the key a request is allowed to use, resolved once per
// request and passed explicitly to every call.
type Credential struct {
	Key    string
	Source CredentialSource
}

func (c Credential) Empty() bool {
	return c.Key == ""
}

// Masked returns the key length and its first three characters, never the
// whole key.
func (c Credential) Masked() (length int, prefix string) {
	length = len(c.Key)
	if length >= 3 {
		prefix = c.Key[:3]
	} else {
		prefix = c.Key
	}
	return length, prefix
}

// ResolveCredential picks the caller-supplied key first and falls back to the
// server key only for verified sessions.
func ResolveCredential(explicitKey string, verified bool, serverKey string) (Credential, error) {
	if explicitKey != "" {
		return Credential{Key: explicitKey, Source: SourceCaller}, nil
	}
	if verified && serverKey != "" {
		return Credential{Key: serverKey, Source: SourceServer}, nil
	}
	return Credential{}, ErrCredentialMissing
}
