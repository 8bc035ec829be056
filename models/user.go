package models

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
}

// Identity is the minimal view of a user returned after a successful login
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username}
}
