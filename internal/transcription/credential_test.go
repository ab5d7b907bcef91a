package transcription

import (
	"errors"
	"testing"
)

func TestResolveCredential(t *testing.T) {
	tests := []struct {
		name       string
		explicit   string
		verified   bool
		serverKey  string
		wantKey    string
		wantSource CredentialSource
		wantErr    bool
	}{
		{"caller key wins", "sk-caller", true, "sk-server", "sk-caller", SourceCaller, false},
		{"caller key without session", "sk-caller", false, "", "sk-caller", SourceCaller, false},
		{"verified falls back to server", "", true, "sk-server", "sk-server", SourceServer, false},
		{"unverified never uses server", "", false, "sk-server", "", "", true},
		{"verified but no server key", "", true, "", "", "", true},
		{"nothing", "", false, "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := ResolveCredential(tt.explicit, tt.verified, tt.serverKey)
			if tt.wantErr {
				if !errors.Is(err, ErrCredentialMissing) {
					t.Fatalf("expected ErrCredentialMissing, got %v", err)
				}
				if !cred.Empty() {
					t.Error("expected empty credential on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cred.Key != tt.wantKey {
				t.Errorf("expected key %q, got %q", tt.wantKey, cred.Key)
			}
			if cred.Source != tt.wantSource {
				t.Errorf("expected source %q, got %q", tt.wantSource, cred.Source)
			}
		})
	}
}

func TestCredential_Masked(t *testing.T) {
	tests := []struct {
		key        string
		wantLen    int
		wantPrefix string
	}{
		{"sk-abcdef", 9, "sk-"},
		{"ab", 2, "ab"},
		{"", 0, ""},
	}
	for _, tt := range tests {
		n, p := Credential{Key: tt.key}.Masked()
		if n != tt.wantLen || p != tt.wantPrefix {
			t.Errorf("Masked(%q) = (%d, %q), want (%d, %q)", tt.key, n, p, tt.wantLen, tt.wantPrefix)
		}
	}
}
