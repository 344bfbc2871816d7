package domain

// PresenceEntry is the live record of one connected participant.
// It exists only while the connection is open: created on join,
// destroyed on disconnect, independent of message lifecycles.
type PresenceEntry struct {
	UserID    string     `json:"userId"`
	Name      string     `json:"name"`
	AvatarURL string     `json:"avatarUrl,omitempty"`
	Languages []Language `json:"languages"`
}
