// Package services provides external service integrations like the flow-execution engine
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ariacomm/campfire/config"
	"github.com/ariacomm/campfire/models"
	"github.com/ariacomm/campfire/utils"
)

// FlowEngineService starts flows for contacts on the flow-execution engine
// and withdraws starts queued for released events
type FlowEngineService interface {
	StartFlow(ctx context.Context, contactID, flowID uint, mode models.StartMode) error
	DetachStartsForEvent(ctx context.Context, eventID uint) error
}

// FlowEngineServiceImpl implements FlowEngineService over HTTP
type FlowEngineServiceImpl struct {
	config *config.FlowEngineConfig
	client *http.Client
}

// FlowStartRequest represents the request payload for the flow-engine start API
type FlowStartRequest struct {
	ContactID uint   `json:"contact_id"`
	FlowID    uint   `json:"flow_id"`
	Mode      string `json:"mode"` // I, S, P
}

// NewFlowEngineService creates a new flow engine service instance
func NewFlowEngineService(cfg *config.FlowEngineConfig) FlowEngineService {
	return &FlowEngineServiceImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// StartFlow asks the flow engine to start a flow run for one contact
func (s *FlowEngineServiceImpl) StartFlow(ctx context.Context, contactID, flowID uint, mode models.StartMode) error {
	requestBody, err := json.Marshal(FlowStartRequest{
		ContactID: contactID,
		FlowID:    flowID,
		Mode:      mode.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal flow start request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/flow_starts", s.config.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIToken != "" {
		req.Header.Set("Authorization", "Token "+s.config.APIToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send flow start request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("flow start rejected for contact %d: %s (%d)", contactID, string(body), resp.StatusCode)
	}
	return nil
}

// DetachStartsForEvent asks the flow engine to drop queued starts that
// reference the event
func (s *FlowEngineServiceImpl) DetachStartsForEvent(ctx context.Context, eventID uint) error {
	url := fmt.Sprintf("%s/api/v1/flow_starts?campaign_event_id=%d", s.config.BaseURL, eventID)
	req, err := http.NewRequestWithContext(ctx, "DELETE", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if s.config.APIToken != "" {
		req.Header.Set("Authorization", "Token "+s.config.APIToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send detach request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("detach rejected for event %d: %s (%d)", eventID, string(body), resp.StatusCode)
	}
	return nil
}

// MockFlowEngineService implements FlowEngineService for testing
type MockFlowEngineService struct {
	StartedFlows   []MockFlowStart
	DetachedEvents []uint
}

// MockFlowStart represents a recorded mock flow start
type MockFlowStart struct {
	ContactID uint
	FlowID    uint
	Mode      models.StartMode
	StartedAt time.Time
}

// NewMockFlowEngineService creates a new mock flow engine service
func NewMockFlowEngineService() *MockFlowEngineService {
	return &MockFlowEngineService{
		StartedFlows: make([]MockFlowStart, 0),
	}
}

// StartFlow records a mock flow start
func (m *MockFlowEngineService) StartFlow(ctx context.Context, contactID, flowID uint, mode models.StartMode) error {
	start := MockFlowStart{
		ContactID: contactID,
		FlowID:    flowID,
		Mode:      mode,
		StartedAt: utils.UTCNow(),
	}
	fmt.Println("Mock flow start:", start)
	m.StartedFlows = append(m.StartedFlows, start)
	return nil
}

// DetachStartsForEvent records a mock detach
func (m *MockFlowEngineService) DetachStartsForEvent(ctx context.Context, eventID uint) error {
	m.DetachedEvents = append(m.DetachedEvents, eventID)
	return nil
}
