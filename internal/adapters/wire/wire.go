// Package wire holds the JSON shapes of the Master Trainer REST API and
// their conversions to domain types. The remote gateway client and the
// development gateway share them.
package wire

import "time"

type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func OK[T any](data T) Envelope[T] {
	return Envelope[T]{Success: true, Data: &data}
}

func Fail(message string) Envelope[struct{}] {
	return Envelope[struct{}]{Success: false, Message: message}
}

type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Session struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	ScenarioID  string     `json:"scenarioId"`
	Status      string     `json:"status"`
	Messages    []Message  `json:"messages"`
	Feedback    *Feedback  `json:"feedback,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type Persona struct {
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Company     string   `json:"company"`
	Background  string   `json:"background"`
	Concerns    []string `json:"concerns"`
	Personality string   `json:"personality"`
}

type Scenario struct {
	ID                string   `json:"id,omitempty" yaml:"id,omitempty"`
	Title             string   `json:"title" yaml:"title"`
	Description       string   `json:"description" yaml:"description"`
	Persona           Persona  `json:"persona" yaml:"persona"`
	Objections        []string `json:"objections" yaml:"objections"`
	IdealResponses    []string `json:"idealResponses" yaml:"idealResponses"`
	Difficulty        string   `json:"difficulty" yaml:"difficulty"`
	Category          string   `json:"category" yaml:"category"`
	EstimatedDuration int      `json:"estimatedDuration" yaml:"estimatedDuration"`
}

type Feedback struct {
	SessionID       string             `json:"sessionId"`
	OverallScore    float64            `json:"overallScore"`
	Scores          map[string]float64 `json:"scores"`
	Summary         string             `json:"summary"`
	Recommendations []string           `json:"recommendations"`
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type AIModel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Purpose  string `json:"purpose"`
	Active   bool   `json:"isActive"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type StartRequest struct {
	ScenarioID string `json:"scenarioId"`
}

type MessageRequest struct {
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
}

type EndRequest struct {
	SessionID string `json:"sessionId"`
}

type Exchange struct {
	UserMessage Message `json:"userMessage"`
	AIMessage   Message `json:"aiMessage"`
}
