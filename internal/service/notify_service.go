package service

import (
	"fmt"
	"strings"

	"ecfresh/internal/config"
	"ecfresh/internal/utils"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// EmailFunc delivers one email.
type EmailFunc func(toEmail, toName, subject, plainText, html string) error

// SMSFunc delivers one text message.
type SMSFunc func(toNumber, body string) error

// NewSendGridEmail returns nil when SendGrid is not configured.
func NewSendGridEmail(cfg *config.Config, log *zap.Logger) EmailFunc {
	if cfg.SendGridAPIKey == "" || cfg.SendGridFromEmail == "" {
		log.Warn("SENDGRID_API_KEY or SENDGRID_FROM_EMAIL not set, emails will not be sent")
		return nil
	}
	client := sendgrid.NewSendClient(cfg.SendGridAPIKey)
	from := mail.NewEmail(cfg.SendGridFromName, cfg.SendGridFromEmail)

	return func(toEmail, toName, subject, plainText, html string) error {
		message := mail.NewSingleEmail(from, subject, mail.NewEmail(toName, toEmail), plainText, html)
		response, err := client.Send(message)
		if err != nil {
			return fmt.Errorf("sendgrid send failed: %w", err)
		}
		if response.StatusCode < 200 || response.StatusCode >= 300 {
			return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
		}
		log.Info("email sent", zap.String("to", toEmail), zap.String("subject", subject), zap.Int("status", response.StatusCode))
		return nil
	}
}

// NewTwilioSMS returns nil when Twilio is not configured.
func NewTwilioSMS(cfg *config.Config, log *zap.Logger) SMSFunc {
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFromNumber == "" {
		log.Warn("Twilio credentials not set, SMS will not be sent")
		return nil
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username:   cfg.TwilioAccountSID,
		Password:   cfg.TwilioAuthToken,
		AccountSid: cfg.TwilioAccountSID,
	})

	return func(toNumber, body string) error {
		to := utils.E164(toNumber)
		if !strings.HasPrefix(to, "+") {
			log.Warn("destination number is not E.164", zap.String("to", to))
		}
		params := &openapi.CreateMessageParams{}
		params.SetTo(to)
		params.SetFrom(cfg.TwilioFromNumber)
		params.SetBody(body)

		resp, err := client.Api.CreateMessage(params)
		if err != nil {
			return fmt.Errorf("twilio send failed: %w", err)
		}
		if resp != nil && resp.Sid != nil {
			log.Info("sms sent", zap.String("to", to), zap.String("sid", *resp.Sid))
		}
		return nil
	}
}
