package wire

import "github.com/mastertrainer/mt/internal/domain"

func MapPage[W any, D any](page Page[W], convert func(W) D) domain.Page[D] {
	items := make([]D, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, convert(item))
	}
	return domain.Page[D]{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}
}

func FromDomainPage[D any, W any](page domain.Page[D], convert func(D) W) Page[W] {
	items := make([]W, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, convert(item))
	}
	return Page[W]{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}
}

func ToMessage(m Message) domain.Message {
	return domain.Message{
		ID:        m.ID,
		SessionID: domain.SessionID(m.SessionID),
		Role:      domain.Role(m.Role),
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
}

func FromMessage(m domain.Message) Message {
	return Message{
		ID:        m.ID,
		SessionID: string(m.SessionID),
		Role:      string(m.Role),
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
}

func ToSession(s Session) domain.Session {
	messages := make([]domain.Message, 0, len(s.Messages))
	for _, message := range s.Messages {
		messages = append(messages, ToMessage(message))
	}

	session := domain.Session{
		ID:          domain.SessionID(s.ID),
		UserID:      domain.UserID(s.UserID),
		ScenarioID:  domain.ScenarioID(s.ScenarioID),
		Status:      domain.SessionStatus(s.Status),
		Messages:    messages,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
	}
	if s.Feedback != nil {
		feedback := ToFeedback(*s.Feedback)
		session.Feedback = &feedback
	}
	return session
}

func FromSession(s domain.Session) Session {
	messages := make([]Message, 0, len(s.Messages))
	for _, message := range s.Messages {
		messages = append(messages, FromMessage(message))
	}

	session := Session{
		ID:          string(s.ID),
		UserID:      string(s.UserID),
		ScenarioID:  string(s.ScenarioID),
		Status:      string(s.Status),
		Messages:    messages,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
	}
	if s.Feedback != nil {
		feedback := FromFeedback(*s.Feedback)
		session.Feedback = &feedback
	}
	return session
}

func ToScenario(s Scenario) domain.Scenario {
	return domain.Scenario{
		ID:          domain.ScenarioID(s.ID),
		Title:       s.Title,
		Description: s.Description,
		Persona: domain.Persona{
			Name:        s.Persona.Name,
			Role:        s.Persona.Role,
			Company:     s.Persona.Company,
			Background:  s.Persona.Background,
			Concerns:    s.Persona.Concerns,
			Personality: s.Persona.Personality,
		},
		Objections:        s.Objections,
		IdealResponses:    s.IdealResponses,
		Difficulty:        domain.Difficulty(s.Difficulty),
		Category:          s.Category,
		EstimatedDuration: s.EstimatedDuration,
	}
}

func FromScenario(s domain.Scenario) Scenario {
	return Scenario{
		ID:          string(s.ID),
		Title:       s.Title,
		Description: s.Description,
		Persona: Persona{
			Name:        s.Persona.Name,
			Role:        s.Persona.Role,
			Company:     s.Persona.Company,
			Background:  s.Persona.Background,
			Concerns:    s.Persona.Concerns,
			Personality: s.Persona.Personality,
		},
		Objections:        s.Objections,
		IdealResponses:    s.IdealResponses,
		Difficulty:        string(s.Difficulty),
		Category:          s.Category,
		EstimatedDuration: s.EstimatedDuration,
	}
}

func ToFeedback(f Feedback) domain.Feedback {
	return domain.Feedback{
		SessionID:       domain.SessionID(f.SessionID),
		OverallScore:    f.OverallScore,
		Scores:          f.Scores,
		Summary:         f.Summary,
		Recommendations: f.Recommendations,
	}
}

func FromFeedback(f domain.Feedback) Feedback {
	return Feedback{
		SessionID:       string(f.SessionID),
		OverallScore:    f.OverallScore,
		Scores:          f.Scores,
		Summary:         f.Summary,
		Recommendations: f.Recommendations,
	}
}

func ToUser(u User) domain.User {
	return domain.User{
		ID:        domain.UserID(u.ID),
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func FromUser(u domain.User) User {
	return User{
		ID:        string(u.ID),
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func ToModel(m AIModel) domain.AIModel {
	return domain.AIModel{ID: m.ID, Name: m.Name, Provider: m.Provider, Purpose: m.Purpose, Active: m.Active}
}

func FromModel(m domain.AIModel) AIModel {
	return AIModel{ID: m.ID, Name: m.Name, Provider: m.Provider, Purpose: m.Purpose, Active: m.Active}
}

func ToExchange(e Exchange) domain.MessageExchange {
	return domain.MessageExchange{UserMessage: ToMessage(e.UserMessage), AIMessage: ToMessage(e.AIMessage)}
}

func FromExchange(e domain.MessageExchange) Exchange {
	return Exchange{UserMessage: FromMessage(e.UserMessage), AIMessage: FromMessage(e.AIMessage)}
}
