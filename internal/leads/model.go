package leads

import (
	"net/mail"
	"net/url"
	"strings"
	"time"
)

// CategoryOther selects the free-text custom category.
const CategoryOther = "Other"

// Categories is the suggested enumeration shown on the intake form. Values
// outside it are stored verbatim.
var Categories = []string{
	"Restaurant or Cafe",
	"Retail Shop",
	"Salon or Spa",
	"Tattoo Studio",
	"Candle or Craft Shop",
	"Nonprofit",
	"Professional Services",
	"Health and Fitness",
	"Creative Portfolio",
	"Home Services",
	CategoryOther,
}

// Lead is a prospect captured by the intake form.
type Lead struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	BusinessName        string    `json:"business_name"`
	Category            string    `json:"category"`
	WebsiteGoal         string    `json:"website_goal"`
	Description         string    `json:"description,omitempty"`
	InspirationTemplate string    `json:"inspiration_template,omitempty"`
	AccessToken         string    `json:"-"`
	CreatedAt           time.Time `json:"created_at"`
}

// DashboardPath is the client dashboard route carrying the lead's credential.
func (l *Lead) DashboardPath() string {
	return "/project/" + url.PathEscape(l.ID) + "?token=" + url.QueryEscape(l.AccessToken)
}

// IntakeForm is the raw intake submission, JSON or form-encoded.
type IntakeForm struct {
	Email               string `json:"email"`
	BusinessName        string `json:"business_name"`
	Category            string `json:"category"`
	CustomCategory      string `json:"custom_category"`
	WebsiteGoal         string `json:"website_goal"`
	Description         string `json:"description"`
	InspirationTemplate string `json:"inspiration_template"`
}

// CreateLeadRequest is what the store persists for a validated submission.
type CreateLeadRequest struct {
	Email               string
	BusinessName        string
	Category            string
	WebsiteGoal         string
	Description         string
	InspirationTemplate string
	AccessToken         string
}

// ResolveCategory returns the category to store. "Other" resolves to the
// trimmed custom value.
func ResolveCategory(category, custom string) (string, error) {
	resolved := strings.TrimSpace(category)
	if resolved == CategoryOther {
		resolved = strings.TrimSpace(custom)
	}
	if resolved == "" {
		return "", ErrCategoryRequired
	}
	return resolved, nil
}

// Validate normalizes the form into a CreateLeadRequest without a token.
func (f IntakeForm) Validate() (*CreateLeadRequest, error) {
	fields := map[string]error{}

	email := strings.TrimSpace(f.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		fields["email"] = ErrInvalidEmail
	}
	name := strings.TrimSpace(f.BusinessName)
	if name == "" {
		fields["business_name"] = ErrBusinessNameRequired
	}
	category, err := ResolveCategory(f.Category, f.CustomCategory)
	if err != nil {
		fields["category"] = err
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	return &CreateLeadRequest{
		Email:               email,
		BusinessName:        name,
		Category:            category,
		WebsiteGoal:         strings.TrimSpace(f.WebsiteGoal),
		Description:         strings.TrimSpace(f.Description),
		InspirationTemplate: strings.TrimSpace(f.InspirationTemplate),
	}, nil
}
