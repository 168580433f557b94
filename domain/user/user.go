package user

import "strings"

// Session is the authenticated viewer. It does not change for the lifetime
// of a session.
type Session struct {
	Id          int64  `json:"id"`
	DisplayName string `json:"fullName"`
	AvatarRef   string `json:"avatar,omitempty"`
}

// User is an account as returned by the users endpoints. Anyone other than
// the session identity is a follow candidate.
type User struct {
	Id          int64  `json:"id" bson:"id"`
	DisplayName string `json:"fullName" bson:"fullName"`
	AvatarRef   string `json:"avatar,omitempty" bson:"avatar,omitempty"`
	Username    string `json:"username,omitempty" bson:"username,omitempty"`
	Email       string `json:"email,omitempty" bson:"email,omitempty"`
}

// Handle is the short name shown next to the display name: the username,
// or the local part of the e-mail address when there is none.
func (u User) Handle() string {
	if u.Username != "" {
		return u.Username
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}

func (u User) Session() *Session {
	return &Session{Id: u.Id, DisplayName: u.DisplayName, AvatarRef: u.AvatarRef}
}

// WithoutSession drops the session identity from users, keeping server order.
func WithoutSession(users []User, sessionId int64) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		if u.Id == sessionId {
			continue
		}
		out = append(out, u)
	}
	return out
}
