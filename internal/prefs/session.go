package prefs

// Session remembers the display name of the signed-in user.
type Session struct {
	prefs *Store
}

func NewSession(prefs *Store) *Session {
	return &Session{prefs: prefs}
}

func (s *Session) Save(userID int64, username string) error {
	return s.prefs.Write(userID, SessionUsername, username)
}

func (s *Session) Clear(userID int64) error {
	return s.prefs.Clear(userID, SessionUsername)
}

// Username returns the saved name and whether the user is marked logged in.
func (s *Session) Username(userID int64) (string, bool, error) {
	v, err := s.prefs.Get(userID, SessionUsername)
	if err != nil {
		return "", false, err
	}
	return v.Raw, v.Set, nil
}
