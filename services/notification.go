package services

import (
	"context"

	"firebase.google.com/go/v4/messaging"
	appContext "github.com/alphabatem/common/context"
	"github.com/lac-hong-legacy/ecotale_api/model"
	"github.com/lac-hong-legacy/ecotale_api/services/repositories"
	log "github.com/sirupsen/logrus"
)

// Notifier delivers a push notification to every device of a user.
type Notifier interface {
	Notify(ctx context.Context, profile *model.UserProfile, title, body string, data map[string]string) error
}

// NotificationService sends FCM pushes and prunes tokens FCM reports as gone.
type NotificationService struct {
	appContext.DefaultService

	client *messaging.Client
	users  *repositories.UserRepository
}

const NOTIFICATION_SVC = "notification_svc"

func (svc NotificationService) Id() string {
	return NOTIFICATION_SVC
}

func (svc *NotificationService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *NotificationService) Start() error {
	svc.client = svc.Service(FIREBASE_SVC).(*FirebaseService).Messaging()
	svc.users = svc.Service(STORE_SVC).(*StoreService).Users()
	if svc.client == nil {
		log.Warn("FCM not configured, push notifications disabled")
	}
	return nil
}

func (svc *NotificationService) Notify(ctx context.Context, profile *model.UserProfile, title, body string, data map[string]string) error {
	if svc.client == nil || !profile.Preferences.Notifications || len(profile.DeviceTokens) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(profile.DeviceTokens))
	for _, token := range profile.DeviceTokens {
		tokens = append(tokens, token)
	}

	br, err := svc.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	})
	if err != nil {
		log.WithError(err).WithField("uid", profile.ID).Error("Failed to send push notification")
		return err
	}

	for i, resp := range br.Responses {
		if resp.Success || i >= len(tokens) {
			continue
		}
		if messaging.IsUnregistered(resp.Error) || messaging.IsInvalidArgument(resp.Error) || messaging.IsSenderIDMismatch(resp.Error) {
			if err := svc.users.RemoveDeviceToken(ctx, profile.ID, tokens[i]); err != nil {
				log.WithError(err).WithField("uid", profile.ID).Warn("Failed to remove stale device token")
			}
			continue
		}
		log.WithError(resp.Error).WithField("uid", profile.ID).Warn("Push notification not delivered")
	}

	log.WithFields(log.Fields{
		"uid":     profile.ID,
		"success": br.SuccessCount,
		"failure": br.FailureCount,
	}).Debug("Push notification sent")
	return nil
}
