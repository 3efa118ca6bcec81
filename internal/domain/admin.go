package domain

import "time"

type User struct {
	ID        UserID
	Email     string
	Name      string
	Role      string
	CreatedAt time.Time
}

// AIModel is a configured backend model (chat persona, embedding, speech).
type AIModel struct {
	ID       string
	Name     string
	Provider string
	Purpose  string
	Active   bool
}

// Credentials is the result of a gateway login.
type Credentials struct {
	Token string
	User  User
}
