package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/melanieperez26/unitrack/internal/model"
)

// ErrExpired means the push service no longer knows the subscription (404/410).
var ErrExpired = errors.New("push subscription expired")

// Payload is the JSON body the service worker receives.
type Payload struct {
	ID    int32  `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
	TTL             time.Duration
	Urgency         string
	HTTPClient      webpush.HTTPClient
}

const defaultSubscriber = "mailto:noreply@unitrack.app"

// Service signs and sends Web Push messages with the server's VAPID identity.
type Service struct {
	opts webpush.Options
}

func NewService(cfg Config) *Service {
	opts := webpush.Options{
		VAPIDPublicKey:  cfg.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.VAPIDPrivateKey,
		Subscriber:      cfg.Subscriber,
		TTL:             int(cfg.TTL / time.Second),
		Urgency:         webpush.Urgency(cfg.Urgency),
		HTTPClient:      cfg.HTTPClient,
	}
	if opts.Subscriber == "" {
		opts.Subscriber = defaultSubscriber
	}
	if opts.TTL <= 0 {
		opts.TTL = int((24 * time.Hour) / time.Second)
	}
	if opts.Urgency == "" {
		opts.Urgency = webpush.UrgencyHigh
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Service{opts: opts}
}

func (s *Service) VAPIDPublicKey() string {
	return s.opts.VAPIDPublicKey
}

// Send encrypts payload for sub and hands it to the subscription's push
// service. A payload tag becomes the push topic, so an undelivered message
// for the same reminder is replaced rather than stacked.
func (s *Service) Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	opts := s.opts
	opts.Topic = payload.Tag

	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &opts)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return ErrExpired
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

// GenerateVAPIDKeys returns a fresh base64url-encoded P-256 key pair.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("generate VAPID keys: %w", err)
	}
	return publicKey, privateKey, nil
}
