package models

const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// TokenResponse is the body returned by /auth/login and /auth/refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

func (t TokenResponse) Credentials() Credentials {
	return Credentials{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
	}
}

// Credentials is the access/refresh token pair held by the client.
// An empty field is absent.
type Credentials struct {
	AccessToken  string `json:"access_token,omitempty" dynamodbav:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty" dynamodbav:"refresh_token,omitempty"`
}

// Complete reports whether both tokens are present. A half-populated pair is
// treated as no credentials at all.
func (c Credentials) Complete() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// Merge returns c with every non-empty field of update applied.
func (c Credentials) Merge(update Credentials) Credentials {
	if update.AccessToken != "" {
		c.AccessToken = update.AccessToken
	}
	if update.RefreshToken != "" {
		c.RefreshToken = update.RefreshToken
	}
	return c
}
