package entities

type ReservationEmailData struct {
	Name        string
	FlatType    string
	Plan        string
	Activities  []string
	TotalPrice  int
	Date        string
	Time        string
	DeclineURL  string
	CurrentYear int
}

type ContactEmailData struct {
	Name    string
	Email   string
	Message string
}
