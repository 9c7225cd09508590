// Package webhook delivers lifecycle events to registered HTTP endpoints.
package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/quillmark/core/internal/models"
	"github.com/quillmark/core/internal/modules/publishing"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service dispatches signed event payloads to enabled webhooks and audits
// every delivery attempt in webhook_events.
type Service struct {
	db     *gorm.DB
	client *http.Client
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:     db,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Handler returns an event bus handler that fans the event out to all
// matching webhooks.
func (s *Service) Handler() func(event publishing.LifecycleEvent) {
	return func(event publishing.LifecycleEvent) {
		s.Dispatch(event.EventName(), event)
	}
}

// Dispatch sends an event payload to all matching, enabled webhooks.
func (s *Service) Dispatch(event string, payload interface{}) {
	var hooks []models.WebhookModel
	if err := s.db.Where("enabled = ?", true).Find(&hooks).Error; err != nil {
		s.logger.Warn("webhook lookup failed", zap.Error(err))
		return
	}

	for _, hook := range hooks {
		if !hookListensTo(hook.Events, event) {
			continue
		}
		go s.deliver(hook, event, payload)
	}
}

func hookListensTo(events []string, event string) bool {
	for _, e := range events {
		if e == "all" || e == event {
			return true
		}
	}
	return false
}

func (s *Service) deliver(hook models.WebhookModel, event string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("webhook payload marshal failed", zap.String("event", event), zap.Error(err))
		return
	}

	mac := hmac.New(sha256.New, []byte(hook.Secret))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequest("POST", hook.PayloadURL, bytes.NewReader(body))
	if err != nil {
		s.logEvent(hook.ID, event, body, false, 0)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", event)
	req.Header.Set("X-Webhook-Id", hook.ID)
	req.Header.Set("X-Webhook-Signature256", signature)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logEvent(hook.ID, event, body, false, 0)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) // nolint:errcheck

	s.logEvent(hook.ID, event, body, resp.StatusCode >= 200 && resp.StatusCode < 300, resp.StatusCode)
}

func (s *Service) logEvent(hookID, event string, body []byte, success bool, status int) {
	var payload map[string]interface{}
	_ = json.Unmarshal(body, &payload)

	entry := models.WebhookEventModel{
		HookID:    hookID,
		Event:     event,
		Payload:   payload,
		Success:   success,
		Status:    status,
		Timestamp: time.Now(),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		s.logger.Warn("webhook delivery audit failed", zap.String("hook_id", hookID), zap.Error(err))
	}
}
