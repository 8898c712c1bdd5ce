package services

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/lac-hong-legacy/ecotale_api/shared"
	log "github.com/sirupsen/logrus"
)

const CONTACT_SVC = "contact_svc"

const contactTimeout = 10 * time.Second

var ErrContactRelayDisabled = errors.New("contact relay not configured")

// ContactService forwards contact form submissions to an external relay.
type ContactService struct {
	appContext.DefaultService

	relayURL string
	timeout  time.Duration
}

func NewContactService(relayURL string) *ContactService {
	return &ContactService{relayURL: relayURL, timeout: contactTimeout}
}

func (svc ContactService) Id() string {
	return CONTACT_SVC
}

func (svc *ContactService) Configure(ctx *appContext.Context) error {
	svc.relayURL = os.Getenv("CONTACT_RELAY_URL")
	svc.timeout = contactTimeout
	if svc.relayURL == "" {
		log.Warn("CONTACT_RELAY_URL not set, contact form is disabled")
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *ContactService) Start() error {
	return nil
}

// Submit posts the message to the relay. The caller shows the result as a toast.
func (svc *ContactService) Submit(req dto.ContactRequest) error {
	if svc.relayURL == "" {
		return shared.NewServiceUnavailableError(ErrContactRelayDisabled, "The contact form is currently unavailable")
	}

	agent := fiber.Post(svc.relayURL)
	agent.JSONEncoder(shared.JSONMarshal)
	agent.Timeout(svc.timeout)
	agent.JSON(fiber.Map{
		"name":    strings.TrimSpace(req.Name),
		"email":   strings.TrimSpace(req.Email),
		"subject": strings.TrimSpace(req.Subject),
		"message": strings.TrimSpace(req.Message),
	})
	if err := agent.Parse(); err != nil {
		return shared.NewInternalError(err, "Failed to send your message")
	}

	code, _, errs := agent.Bytes()
	if len(errs) > 0 {
		log.WithError(errs[0]).Warn("Contact relay request failed")
		return shared.NewBadGatewayError(errs[0], "Failed to send your message. Please try again later.")
	}
	if code < 200 || code >= 300 {
		err := fmt.Errorf("contact relay returned status %d", code)
		log.WithError(err).Warn("Contact relay rejected message")
		return shared.NewBadGatewayError(err, "Failed to send your message. Please try again later.")
	}

	log.WithField("email", req.Email).Info("Contact message relayed")
	return nil
}
