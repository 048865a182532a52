package model

// LoginResponse struct holds the user and the access token returned by login or registration
type LoginResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"access_token"`
}

// SetAccessToken sets the access token in the LoginResponse
func (r *LoginResponse) SetAccessToken(accessToken string) {
	r.AccessToken = accessToken
}
