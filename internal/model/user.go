package model

// User is the authenticated candidate as carried by the bearer token.
// Token issuance and the subscription ledger live with the auth
// collaborator; the engine only reads these fields.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Subscribed bool   `json:"subscribed"`
}
