package store

import "time"

type User struct {
	ID           int64
	FirstName    string
	LastName     string
	NationalID   string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// DisplayName is the "{first} {last}" form shown next to comments.
func (u User) DisplayName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

type Category struct {
	ID   int64
	Name string
}

type Complaint struct {
	ID           int64
	Folio        string
	Title        string
	Description  string
	CategoryID   int64
	CategoryName string
	Status       string
	Latitude     *float64
	Longitude    *float64
	District     *string
	Rating       *int
	OwnerID      int64
	// Owner names are only populated by queries that join users.
	OwnerFirstName string
	OwnerLastName  string
	// ImageURL is the stored reference of the first image, if any.
	ImageURL  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Comment struct {
	ID          int64
	ComplaintID int64
	AuthorID    int64
	AuthorFirst string
	AuthorLast  string
	Body        string
	IsAuthority bool
	CreatedAt   time.Time
}

// ComplaintFilter narrows ListComplaints. Zero values mean "no filter".
type ComplaintFilter struct {
	Status       string
	CreatedAfter *time.Time
	District     string
	CategoryID   int64
	OwnerID      int64
}

type StatusCounts struct {
	Total      int
	Received   int
	InProgress int
	Resolved   int
	Rejected   int
}

type UserSummary struct {
	User
	TotalComplaints    int
	ResolvedComplaints int
	PendingComplaints  int
}

type UserTotals struct {
	Total       int
	Citizens    int
	Authorities int
	NewLastDays int
}
