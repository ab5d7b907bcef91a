package session

import "time"

// Session marks a browser that has passed the access-password check and may
// therefore spend the server-held transcription key.
type Session struct {
	ID           string    `json:"id"`
	Verified     bool      `json:"verified"`
	RemoteAddr   string    `json:"remote_addr"`
	UserAgent    string    `json:"user_agent,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

func (s *Session) RedisKey() string {
	return redisKey(s.ID)
}

func redisKey(id string) string {
	return "session:" + id
}
