package domain

import "time"

type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Session identifies who is acting. The zero value is an anonymous session.
type Session struct {
	UserID int64
	authed bool
}

func NewSession(userID int64) Session {
	return Session{UserID: userID, authed: true}
}

func Anonymous() Session {
	return Session{}
}

func (s Session) Authenticated() bool {
	return s.authed
}
