package model

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PostInput is the create payload. Any author supplied by the client is
// dropped by the decoder since the struct has no such field.
type PostInput struct {
	Title  string        `json:"title"`
	Status string        `json:"status"`
	Date   Field[string] `json:"date"`
	Views  Field[int]    `json:"views"`
}

type PostPatch struct {
	Title  Field[string] `json:"title"`
	Status Field[string] `json:"status"`
	Date   Field[string] `json:"date"`
	Views  Field[int]    `json:"views"`
}

type EventInput struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

type EventPatch struct {
	Name Field[string] `json:"name"`
	Date Field[string] `json:"date"`
}
