package models

import "slices"

// SongLibraryRow represents a row of the song_library table: user has a song
// in their library. Immutable once created except for deletion.
type SongLibraryRow struct {
	User      string `json:"user_id"`
	SongID    string `json:"song_id"`
	SongOwner string `json:"song_owner_id"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (r SongLibraryRow) EntityID() string { return r.SongID }
func (r SongLibraryRow) OwnerID() string  { return r.SongOwner }
func (r SongLibraryRow) UserID() string   { return r.User }
func (r SongLibraryRow) AddedAt() string  { return r.CreatedAt }

// PlaylistLibraryRow represents a row of the playlist_library table.
type PlaylistLibraryRow struct {
	User          string `json:"user_id"`
	PlaylistID    string `json:"playlist_id"`
	PlaylistOwner string `json:"playlist_owner_id"`
	CreatedAt     string `json:"created_at,omitempty"`
}

func (r PlaylistLibraryRow) EntityID() string { return r.PlaylistID }
func (r PlaylistLibraryRow) OwnerID() string  { return r.PlaylistOwner }
func (r PlaylistLibraryRow) UserID() string   { return r.User }
func (r PlaylistLibraryRow) AddedAt() string  { return r.CreatedAt }

// SongRow represents the public metadata of a song.
type SongRow struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	OwnerID string `json:"owner_id,omitempty"`
	Public  bool   `json:"public,omitempty"`
}

// PlaylistRow represents the public metadata of a playlist, including its
// ordered song id list.
type PlaylistRow struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Slug      string   `json:"slug"`
	OwnerID   string   `json:"owner_id,omitempty"`
	Public    bool     `json:"public,omitempty"`
	SongOrder []string `json:"song_order,omitempty"`
}

// AppendSong adds a song id to the end of the playlist's song order.
// Used for optimistic edits before the playlist record is persisted.
// No-op if the song is already present.
func (p *PlaylistRow) AppendSong(songID string) bool {
	if slices.Contains(p.SongOrder, songID) {
		return false
	}
	p.SongOrder = append(p.SongOrder, songID)
	return true
}

// RemoveSong removes a song id from the playlist's song order.
// No-op if the song is not present.
func (p *PlaylistRow) RemoveSong(songID string) bool {
	idx := slices.Index(p.SongOrder, songID)
	if idx < 0 {
		return false
	}
	p.SongOrder = slices.Delete(p.SongOrder, idx, idx+1)
	return true
}

// MoveSong moves a song id to position idx within the song order, clamping
// idx to the valid range. No-op if the song is not present.
func (p *PlaylistRow) MoveSong(songID string, idx int) bool {
	cur := slices.Index(p.SongOrder, songID)
	if cur < 0 {
		return false
	}

	order := slices.Delete(slices.Clone(p.SongOrder), cur, cur+1)
	if idx < 0 {
		idx = 0
	}
	if idx > len(order) {
		idx = len(order)
	}

	p.SongOrder = slices.Insert(order, idx, songID)
	return true
}

// ProfileRow represents the public profile of a user.
type ProfileRow struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// stringField extracts a non-empty string value from a decoded JSON object.
func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}

	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}

	return s, true
}

// optionalString extracts a string value, tolerating absence.
func optionalString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// SongLibraryRowFromMap narrows a decoded JSON object into a [SongLibraryRow].
// Returns false unless user_id, song_id and song_owner_id are all non-empty strings.
func SongLibraryRowFromMap(m map[string]any) (SongLibraryRow, bool) {
	var row SongLibraryRow

	user, ok := stringField(m, "user_id")
	if !ok {
		return row, false
	}
	songID, ok := stringField(m, "song_id")
	if !ok {
		return row, false
	}
	owner, ok := stringField(m, "song_owner_id")
	if !ok {
		return row, false
	}

	row = SongLibraryRow{
		User:      user,
		SongID:    songID,
		SongOwner: owner,
		CreatedAt: optionalString(m, "created_at"),
	}
	return row, true
}

// PlaylistLibraryRowFromMap narrows a decoded JSON object into a [PlaylistLibraryRow].
func PlaylistLibraryRowFromMap(m map[string]any) (PlaylistLibraryRow, bool) {
	var row PlaylistLibraryRow

	user, ok := stringField(m, "user_id")
	if !ok {
		return row, false
	}
	playlistID, ok := stringField(m, "playlist_id")
	if !ok {
		return row, false
	}
	owner, ok := stringField(m, "playlist_owner_id")
	if !ok {
		return row, false
	}

	row = PlaylistLibraryRow{
		User:          user,
		PlaylistID:    playlistID,
		PlaylistOwner: owner,
		CreatedAt:     optionalString(m, "created_at"),
	}
	return row, true
}

// SongRowFromMap narrows a decoded JSON object into a [SongRow].
func SongRowFromMap(m map[string]any) (SongRow, bool) {
	id, ok := stringField(m, "id")
	if !ok {
		return SongRow{}, false
	}

	public, _ := m["public"].(bool)
	return SongRow{
		ID:      id,
		Name:    optionalString(m, "name"),
		Slug:    optionalString(m, "slug"),
		OwnerID: optionalString(m, "owner_id"),
		Public:  public,
	}, true
}

// PlaylistRowFromMap narrows a decoded JSON object into a [PlaylistRow].
func PlaylistRowFromMap(m map[string]any) (PlaylistRow, bool) {
	id, ok := stringField(m, "id")
	if !ok {
		return PlaylistRow{}, false
	}

	row := PlaylistRow{
		ID:      id,
		Name:    optionalString(m, "name"),
		Slug:    optionalString(m, "slug"),
		OwnerID: optionalString(m, "owner_id"),
	}
	row.Public, _ = m["public"].(bool)

	if raw, ok := m["song_order"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				row.SongOrder = append(row.SongOrder, s)
			}
		}
	}

	return row, true
}

// ProfileRowFromMap narrows a decoded JSON object into a [ProfileRow].
func ProfileRowFromMap(m map[string]any) (ProfileRow, bool) {
	id, ok := stringField(m, "id")
	if !ok {
		return ProfileRow{}, false
	}

	return ProfileRow{
		ID:       id,
		Username: optionalString(m, "username"),
	}, true
}
