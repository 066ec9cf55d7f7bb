package firebase

import (
	"context"
	"fmt"
	"os"

	fbapp "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"lugares/internal/domain/entity"
)

// CredentialsOption prefers inline service account JSON and falls back to a key file.
func CredentialsOption(serviceAccountJSON, serviceAccountPath string) (option.ClientOption, error) {
	if serviceAccountJSON != "" {
		return option.WithCredentialsJSON([]byte(serviceAccountJSON)), nil
	}
	if serviceAccountPath == "" {
		return nil, nil
	}
	if _, err := os.Stat(serviceAccountPath); err != nil {
		return nil, fmt.Errorf("service account file %s: %w", serviceAccountPath, err)
	}
	return option.WithCredentialsFile(serviceAccountPath), nil
}

// NewApp initializes the Firebase app. A nil opt uses application default credentials.
func NewApp(ctx context.Context, projectID string, opt option.ClientOption) (*fbapp.App, error) {
	var opts []option.ClientOption
	if opt != nil {
		opts = append(opts, opt)
	}
	app, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase: %w", err)
	}
	return app, nil
}

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

// VerifyToken checks a Firebase ID token and returns the caller's uid and email claim.
func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (entity.AuthorIdentity, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return entity.AuthorIdentity{}, err
	}

	email, _ := result.Claims["email"].(string)
	return entity.NewAuthorIdentity(result.UID, email), nil
}
