package notify

import (
	"context"

	twilio "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// MessageCreator is the slice of the Twilio REST API used here.
type MessageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// NewTwilioAPI returns nil when credentials are missing.
func NewTwilioAPI(accountSID, authToken string) MessageCreator {
	if accountSID == "" || authToken == "" {
		return nil
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return client.Api
}

type twilioChannel struct {
	name   string
	api    MessageCreator
	from   string
	to     string
	prefix string
}

// NewWhatsApp returns nil when any of api, from or to is missing, so the
// Notifier skips it.
func NewWhatsApp(api MessageCreator, from, to string) Channel {
	if api == nil || from == "" || to == "" {
		return nil
	}
	return &twilioChannel{name: "whatsapp", api: api, from: from, to: to, prefix: "whatsapp:"}
}

func NewSMS(api MessageCreator, from, to string) Channel {
	if api == nil || from == "" || to == "" {
		return nil
	}
	return &twilioChannel{name: "sms", api: api, from: from, to: to}
}

func (t *twilioChannel) Name() string { return t.name }

func (t *twilioChannel) Send(_ context.Context, message string) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(t.prefix + t.to)
	params.SetFrom(t.prefix + t.from)
	params.SetBody(message)

	_, err := t.api.CreateMessage(params)
	return err
}
