package domain

import "time"

const (
	ThemeModern  = "modern"
	ThemeClassic = "classic"
	ThemeMinimal = "minimal"
)

// Card is a published digital business card.
type Card struct {
	CardID       string            `json:"id" dynamodbav:"card_id"`
	UserID       string            `json:"user_id" dynamodbav:"user_id"`
	ActivationID *string           `json:"activation_id,omitempty" dynamodbav:"activation_id,omitempty"`
	Name         string            `json:"name" dynamodbav:"name"`
	JobTitle     *string           `json:"job_title" dynamodbav:"job_title"`
	Company      *string           `json:"company" dynamodbav:"company"`
	Email        *string           `json:"email" dynamodbav:"email"`
	Phone        *string           `json:"phone" dynamodbav:"phone"`
	Website      *string           `json:"website" dynamodbav:"website"`
	Bio          *string           `json:"bio" dynamodbav:"bio"`
	AvatarURL    *string           `json:"avatar_url" dynamodbav:"avatar_url"`
	SocialLinks  map[string]string `json:"social_links" dynamodbav:"social_links"`
	Theme        string            `json:"theme" dynamodbav:"theme"`
	Slug         string            `json:"slug" dynamodbav:"slug"`
	CreatedAt    time.Time         `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time         `json:"updated" dynamodbav:"updated_at"`
}

type CreateCardRequest struct {
	Name         string            `json:"name" validate:"required,max=120"`
	JobTitle     *string           `json:"job_title" validate:"omitempty,max=120"`
	Company      *string           `json:"company" validate:"omitempty,max=120"`
	Email        *string           `json:"email" validate:"omitempty,email"`
	Phone        *string           `json:"phone" validate:"omitempty,max=32"`
	Website      *string           `json:"website" validate:"omitempty,url"`
	Bio          *string           `json:"bio" validate:"omitempty,max=1000"`
	AvatarURL    *string           `json:"avatar_url" validate:"omitempty,url"`
	SocialLinks  map[string]string `json:"social_links"`
	Theme        string            `json:"theme" validate:"omitempty,oneof=modern classic minimal"`
	ActivationID *string           `json:"activation_id"`
}
