package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// FirebaseVerifier validates Firebase ID tokens issued by the client SDK.
type FirebaseVerifier struct {
	client *fbauth.Client
	logger *zap.Logger
}

func NewFirebaseVerifier(ctx context.Context, credentialsFile string, logger *zap.Logger) (*FirebaseVerifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := app.Auth(initCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth: %w", err)
	}

	logger.Info("Firebase initialized successfully")
	return &FirebaseVerifier{client: client, logger: logger}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (Identity, error) {
	if idToken == "" {
		return Identity{}, errors.New("empty token provided")
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	token, err := v.client.VerifyIDToken(verifyCtx, idToken)
	if err != nil {
		v.logger.Warn("Token verification failed", zap.Error(err))
		return Identity{}, errors.New("invalid or expired ID token")
	}
	if token.UID == "" {
		return Identity{}, errors.New("token missing user ID")
	}

	id := Identity{UserID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		id.Name = name
	}
	return id, nil
}
