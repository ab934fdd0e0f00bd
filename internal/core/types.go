package core

import "time"

// Track is one playable audio file within a playlist.
type Track struct {
	ID          string
	TrackNumber int
	Title       string
	FilePath    string
	DurationMs  int64
}

// Playlist is an ordered sequence of tracks with at most one bound NFC tag.
type Playlist struct {
	ID        string
	Title     string
	NFCTagUID *string
	Tracks    []Track
}

// TrackByNumber returns the track with the given 1-based TrackNumber, or
// false if none matches.
func (p *Playlist) TrackByNumber(number int) (Track, bool) {
	for _, t := range p.Tracks {
		if t.TrackNumber == number {
			return t, true
		}
	}
	return Track{}, false
}

// PlaybackStatus enumerates the variants of the playback state sum type.
type PlaybackStatus string

const (
	StatusStopped PlaybackStatus = "stopped"
	StatusPlaying PlaybackStatus = "playing"
	StatusPaused  PlaybackStatus = "paused"
)

// PlayerStatus is a snapshot of the playback state sum type described in
// SPEC_FULL.md section 3. PlaylistID/TrackIndex/PositionMs are only
// meaningful when Status is StatusPlaying or StatusPaused.
type PlayerStatus struct {
	Status      PlaybackStatus
	PlaylistID  string
	TrackIndex  int // zero-based
	TrackNumber int // 1-based, derived from the current track
	PositionMs  int64
	VolumePct   int
}

// AssociationState enumerates the states of an NFC association session.
type AssociationState string

const (
	AssocListening AssociationState = "listening"
	AssocSuccess   AssociationState = "success"
	AssocDuplicate AssociationState = "duplicate"
	AssocTimeout   AssociationState = "timeout"
	AssocCancelled AssociationState = "cancelled"
	AssocError     AssociationState = "error"
)

// Session is a time-bounded NFC association session.
type Session struct {
	SessionID          string
	PlaylistID         string
	State              AssociationState
	StartedAt          time.Time
	TimeoutSeconds     int
	DetectedTagUID     string
	ConflictPlaylistID string
	ErrorMessage       string
}

// EventType enumerates the event types emitted on the subscription stream.
type EventType string

const (
	EventStatePlaylists  EventType = "state:playlists"
	EventStatePlaylist   EventType = "state:playlist"
	EventStatePlayer     EventType = "state:player"
	EventStateNFC        EventType = "state:nfc"
	EventPlayerState     EventType = "player_state_changed"
	EventTrackChanged    EventType = "track_changed"
	EventVolumeChanged   EventType = "volume_changed"
	EventPositionChanged EventType = "position_changed"
	EventPlaylistStarted EventType = "playlist_started"
	EventPlaylistEnded   EventType = "playlist_ended"
	EventNFCAssociated   EventType = "nfc_associated"
	EventNFCDuplicate    EventType = "nfc_duplicate"
	EventNFCTimeout      EventType = "nfc_timeout"
	EventNFCCancelled    EventType = "nfc_cancelled"
	EventNFCError        EventType = "nfc_error"
	EventPlayerError     EventType = "player_error"
)

// Envelope wraps every event published through the Broadcast Hub.
type Envelope struct {
	EventID        string
	EventType      EventType
	ServerSeq      int64
	PlaylistSeq    *int64
	TimestampMs    int64
	PlaylistID     string
	Data           any
	IdempotencyKey string
}

// Room names the channels a client may subscribe to.
const (
	RoomPlaylists = "playlists"
	RoomPlayer    = "player"
	RoomNFC       = "nfc"
)

// RoomForPlaylist returns the room name for one playlist's detail channel.
func RoomForPlaylist(playlistID string) string {
	return "playlist:" + playlistID
}

// ControlAction enumerates the simple transport control commands.
type ControlAction string

const (
	ActionPause    ControlAction = "pause"
	ActionResume   ControlAction = "resume"
	ActionStop     ControlAction = "stop"
	ActionNext     ControlAction = "next"
	ActionPrevious ControlAction = "previous"
)

// ButtonEvent enumerates physical GPIO button events mapped 1:1 to commands.
type ButtonEvent string

const (
	ButtonPlayPause  ButtonEvent = "play_pause"
	ButtonNext       ButtonEvent = "next"
	ButtonPrevious   ButtonEvent = "previous"
	ButtonVolumeUp   ButtonEvent = "volume_up"
	ButtonVolumeDown ButtonEvent = "volume_down"
)

// SessionDescriptor is the externally visible view of a Session.
type SessionDescriptor struct {
	SessionID          string
	PlaylistID         string
	State              AssociationState
	StartedAt          time.Time
	TimeoutSeconds     int
	DetectedTagUID     string
	ConflictPlaylistID string
	ErrorMessage       string
}

// Descriptor converts a Session to its externally visible representation.
func (s Session) Descriptor() SessionDescriptor {
	return SessionDescriptor{
		SessionID:          s.SessionID,
		PlaylistID:         s.PlaylistID,
		State:              s.State,
		StartedAt:          s.StartedAt,
		TimeoutSeconds:     s.TimeoutSeconds,
		DetectedTagUID:     s.DetectedTagUID,
		ConflictPlaylistID: s.ConflictPlaylistID,
		ErrorMessage:       s.ErrorMessage,
	}
}

// NFCStatus is the response for GetNFCStatus.
type NFCStatus struct {
	Sessions          []SessionDescriptor
	HardwareAvailable bool
}
