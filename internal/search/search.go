package search

// Result is a single complaint hit returned to the caller.
type Result struct {
	ID         int64  `json:"id"`
	Folio      string `json:"folio"`
	Title      string `json:"title"`
	Snippet    string `json:"snippet"`
	Status     string `json:"status"`
	CategoryID int64  `json:"categoryId"`
	OwnerID    int64  `json:"-"`
}

// Query describes a search request. OwnerID 0 searches every complaint.
type Query struct {
	Text    string
	OwnerID int64
	Status  string
	Limit   int
	Offset  int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// ComplaintRecord is the data we index for a complaint.
type ComplaintRecord struct {
	ID          int64  `json:"id"`
	Folio       string `json:"folio"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CategoryID  int64  `json:"categoryId"`
	OwnerID     int64  `json:"ownerId"`
	District    string `json:"district"`
}

const defaultLimit = 20

func normalizePage(q Query) (int, int) {
	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = defaultLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
