package notification

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/ducnx/licgate/internal/repository"
	"google.golang.org/api/option"
)

// AlertService pushes operational alerts to operator devices via FCM
type AlertService struct {
	client       *messaging.Client
	operatorRepo *repository.OperatorRepository
}

// NewAlertService creates a new FCM alert service
func NewAlertService(credentialsFile string, operatorRepo *repository.OperatorRepository) (*AlertService, error) {
	if credentialsFile == "" {
		log.Println("⚠️ Firebase credentials not provided, operator alerts disabled")
		return nil, nil
	}

	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		// Log warning instead of error to not block server startup
		log.Printf("⚠️ Failed to initialize Firebase app: %v (operator alerts disabled)", err)
		return nil, nil
	}

	client, err := app.Messaging(context.Background())
	if err != nil {
		log.Printf("⚠️ Failed to get messaging client: %v", err)
		return nil, nil
	}

	log.Println("✅ Firebase FCM initialized")
	return &AlertService{
		client:       client,
		operatorRepo: operatorRepo,
	}, nil
}

// SendPairingAlert notifies all registered operator devices that the
// messaging session dropped to pairing and needs a fresh scan
func (s *AlertService) SendPairingAlert(ctx context.Context, challengeURL string) error {
	if s == nil || s.client == nil {
		return nil
	}

	devices, err := s.operatorRepo.AllDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		tokens = append(tokens, d.FCMToken)
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: "LicGate",
			Body:  "Messaging session needs re-pairing. Scan the QR code to reconnect.",
		},
		Data: map[string]string{
			"type":          "session_pairing",
			"challenge_url": challengeURL,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	br, err := s.client.SendMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending multicast message: %w", err)
	}

	if br.FailureCount > 0 {
		// Log failures
		for idx, resp := range br.Responses {
			if !resp.Success {
				log.Printf("⚠️ FCM failure for token %s: %v", tokens[idx], resp.Error)
			}
		}
	}

	return nil
}
