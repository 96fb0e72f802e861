package entities

// CreateReservationRequest is the public booking form payload.
type CreateReservationRequest struct {
	Name         string   `json:"name" validate:"required"`
	Email        string   `json:"email" validate:"required,email"`
	Phone        string   `json:"phone" validate:"required"`
	Address      string   `json:"address" validate:"required"`
	Info         *string  `json:"info"`
	FlatType     string   `json:"flat_type" validate:"required"`
	Subscription string   `json:"subscription" validate:"required"`
	Plan         *string  `json:"plan"`
	Activities   []string `json:"activities" validate:"omitempty,dive,required"`
	TotalPrice   *int     `json:"total_price" validate:"required,gte=0"`
	Date         string   `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string   `json:"time" validate:"required,clock"`
	ServiceType  string   `json:"service_type" validate:"required"`
}

// ContactMessage is the contact form payload.
type ContactMessage struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required"`
}
