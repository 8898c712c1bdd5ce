package services

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/db"
	"firebase.google.com/go/v4/messaging"
	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// FirebaseService owns the Firebase Admin app. Without FIREBASE_DATABASE_URL
// it stays disabled and the API falls back to in-process backends.
type FirebaseService struct {
	appContext.DefaultService

	databaseURL     string
	credentialsFile string
	apiKey          string

	app       *firebase.App
	database  *db.Client
	auth      *auth.Client
	messaging *messaging.Client
}

const FIREBASE_SVC = "firebase_svc"

func (svc FirebaseService) Id() string {
	return FIREBASE_SVC
}

func (svc *FirebaseService) Configure(ctx *appContext.Context) error {
	svc.databaseURL = os.Getenv("FIREBASE_DATABASE_URL")
	svc.credentialsFile = os.Getenv("FIREBASE_CREDENTIALS_FILE")
	svc.apiKey = os.Getenv("FIREBASE_API_KEY")
	return svc.DefaultService.Configure(ctx)
}

func (svc *FirebaseService) Start() error {
	if svc.databaseURL == "" {
		log.Warn("FIREBASE_DATABASE_URL not set, Firebase disabled; using in-memory store and local identity")
		return nil
	}

	ctx := context.Background()

	var opts []option.ClientOption
	if svc.credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(svc.credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: svc.databaseURL}, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialise firebase app: %w", err)
	}
	svc.app = app

	if svc.database, err = app.Database(ctx); err != nil {
		return fmt.Errorf("failed to create realtime database client: %w", err)
	}
	if svc.auth, err = app.Auth(ctx); err != nil {
		return fmt.Errorf("failed to create firebase auth client: %w", err)
	}
	if svc.messaging, err = app.Messaging(ctx); err != nil {
		log.WithError(err).Warn("Firebase messaging unavailable, push notifications disabled")
		svc.messaging = nil
	}

	log.WithField("database_url", svc.databaseURL).Info("Firebase initialised")
	return nil
}

func (svc *FirebaseService) Enabled() bool {
	return svc.app != nil
}

func (svc *FirebaseService) Database() *db.Client {
	return svc.database
}

func (svc *FirebaseService) Auth() *auth.Client {
	return svc.auth
}

func (svc *FirebaseService) Messaging() *messaging.Client {
	return svc.messaging
}

func (svc *FirebaseService) APIKey() string {
	return svc.apiKey
}

func (svc *FirebaseService) CredentialsFile() string {
	return svc.credentialsFile
}
