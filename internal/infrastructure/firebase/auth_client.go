package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"
)

// AuthClient wraps the Firebase identity provider: it verifies ID tokens and
// reads the profile attributes the chat subsystem snapshots.
type AuthClient struct {
	client *auth.Client
}

func NewAuthClient(client *auth.Client) *AuthClient {
	return &AuthClient{
		client: client,
	}
}

func (a *AuthClient) VerifyToken(ctx context.Context, token string) (string, error) {
	result, err := a.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", err
	}

	return result.UID, nil
}

// GetUser returns the provider's record for uid: the stable id plus the
// display name and email used for participant snapshots.
func (a *AuthClient) GetUser(ctx context.Context, uid string) (*auth.UserRecord, error) {
	return a.client.GetUser(ctx, uid)
}
