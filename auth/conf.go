package auth

// Conf holds the credentials accepted by the API. A request is authorized
// when its bearer token equals APIToken or is an HS256 JWT signed with
// JWTSecret. Both empty disables authentication.
type Conf struct {
	APIToken  string `json:"api_token"`
	JWTSecret string `json:"jwt_secret"`
}

// Enabled reports whether any credential is configured.
func (c Conf) Enabled() bool {
	return c.APIToken != "" || c.JWTSecret != ""
}
