package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/eligibility/internal/pipeline"
)

// --- Mock JetStreamPublisher ---
type MockJetStreamPublisher struct {
	mock.Mock
	PublishedMessages map[string][]byte // subject -> last payload
	LastStreamConfig  *nats.StreamConfig
}

func NewMockJetStreamPublisher() *MockJetStreamPublisher {
	return &MockJetStreamPublisher{
		PublishedMessages: make(map[string][]byte),
	}
}

func (m *MockJetStreamPublisher) StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error) {
	args := m.Called(stream, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*nats.StreamInfo), args.Error(1)
}

func (m *MockJetStreamPublisher) AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error) {
	args := m.Called(cfg, opts)
	m.LastStreamConfig = cfg
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*nats.StreamInfo), args.Error(1)
}

func (m *MockJetStreamPublisher) Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error) {
	args := m.Called(subj, data, opts)
	if m.PublishedMessages == nil {
		m.PublishedMessages = make(map[string][]byte)
	}
	m.PublishedMessages[subj] = data
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*nats.PubAck), args.Error(1)
}

func sampleReport(status string) *pipeline.RunReport {
	started := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
	return &pipeline.RunReport{
		LoadRunID:  "run1",
		Status:     status,
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Ingestion: &pipeline.RunSummary{
			LoadRunID:     "run1",
			TotalIngested: 41,
			TotalSkipped:  2,
			VendorsFailed: 1,
		},
	}
}

func TestNATSPublisherNotifyRun(t *testing.T) {
	ctx := context.Background()

	t.Run("Publishes run event on the status subject", func(t *testing.T) {
		mockJS := NewMockJetStreamPublisher()
		mockJS.On("StreamInfo", runStream, mock.Anything).Return(&nats.StreamInfo{}, nil).Once()
		mockJS.On("Publish", "eligibility.runs.succeeded", mock.Anything, mock.Anything).
			Return(&nats.PubAck{Stream: runStream, Sequence: 1}, nil).Once()

		pub := NewNATSPublisher(mockJS)
		err := pub.NotifyRun(ctx, sampleReport(pipeline.StatusSucceeded))
		require.NoError(t, err)
		mockJS.AssertExpectations(t)

		payload, ok := mockJS.PublishedMessages["eligibility.runs.succeeded"]
		require.True(t, ok)
		var event RunEvent
		require.NoError(t, json.Unmarshal(payload, &event))
		assert.Equal(t, "run1", event.LoadRunID)
		assert.Equal(t, pipeline.StatusSucceeded, event.Status)
		assert.Equal(t, 41, event.RowsIngested)
		assert.Equal(t, 2, event.RowsSkipped)
		assert.Equal(t, 1, event.VendorsFailed)
		assert.Empty(t, event.Error)
		_, err = uuid.Parse(event.EventID)
		assert.NoError(t, err, "event id should be a UUID")
	})

	t.Run("Failed runs land on the failed subject with the error", func(t *testing.T) {
		mockJS := NewMockJetStreamPublisher()
		mockJS.On("StreamInfo", runStream, mock.Anything).Return(&nats.StreamInfo{}, nil).Once()
		mockJS.On("Publish", "eligibility.runs.failed", mock.Anything, mock.Anything).
			Return(&nats.PubAck{Stream: runStream, Sequence: 2}, nil).Once()

		report := sampleReport(pipeline.StatusFailed)
		report.Error = "2 of 5 vendors failed"

		pub := NewNATSPublisher(mockJS)
		require.NoError(t, pub.NotifyRun(ctx, report))
		mockJS.AssertExpectations(t)

		var event RunEvent
		require.NoError(t, json.Unmarshal(mockJS.PublishedMessages["eligibility.runs.failed"], &event))
		assert.Equal(t, "2 of 5 vendors failed", event.Error)
	})

	t.Run("Creates the stream when it does not exist", func(t *testing.T) {
		mockJS := NewMockJetStreamPublisher()
		mockJS.On("StreamInfo", runStream, mock.Anything).Return(nil, nats.ErrStreamNotFound).Once()
		mockJS.On("AddStream", mock.AnythingOfType("*nats.StreamConfig"), mock.Anything).
			Return(&nats.StreamInfo{}, nil).Once()
		mockJS.On("Publish", "eligibility.runs.succeeded", mock.Anything, mock.Anything).
			Return(&nats.PubAck{Stream: runStream, Sequence: 1}, nil).Once()

		pub := NewNATSPublisher(mockJS)
		require.NoError(t, pub.NotifyRun(ctx, sampleReport(pipeline.StatusSucceeded)))
		mockJS.AssertExpectations(t)

		require.NotNil(t, mockJS.LastStreamConfig)
		assert.Equal(t, runStream, mockJS.LastStreamConfig.Name)
		assert.Equal(t, []string{"eligibility.runs.>"}, mockJS.LastStreamConfig.Subjects)
	})

	t.Run("Stream creation failure is returned", func(t *testing.T) {
		mockJS := NewMockJetStreamPublisher()
		mockJS.On("StreamInfo", runStream, mock.Anything).Return(nil, nats.ErrStreamNotFound).Once()
		mockJS.On("AddStream", mock.AnythingOfType("*nats.StreamConfig"), mock.Anything).
			Return(nil, errors.New("jetstream unavailable")).Once()

		pub := NewNATSPublisher(mockJS)
		err := pub.NotifyRun(ctx, sampleReport(pipeline.StatusSucceeded))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create NATS stream")
		mockJS.AssertExpectations(t)
		mockJS.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Publish failure is returned", func(t *testing.T) {
		mockJS := NewMockJetStreamPublisher()
		mockJS.On("StreamInfo", runStream, mock.Anything).Return(&nats.StreamInfo{}, nil).Once()
		mockJS.On("Publish", "eligibility.runs.failed", mock.Anything, mock.Anything).
			Return(nil, errors.New("nats: timeout")).Once()

		pub := NewNATSPublisher(mockJS)
		err := pub.NotifyRun(ctx, sampleReport(pipeline.StatusFailed))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to publish run event")
		mockJS.AssertExpectations(t)
	})

	t.Run("Report without an ingestion summary publishes zero counts", func(t *testing.T) {
		mockJS := NewMockJetStreamPublisher()
		mockJS.On("StreamInfo", runStream, mock.Anything).Return(&nats.StreamInfo{}, nil).Once()
		mockJS.On("Publish", "eligibility.runs.failed", mock.Anything, mock.Anything).
			Return(&nats.PubAck{Stream: runStream, Sequence: 3}, nil).Once()

		report := sampleReport(pipeline.StatusFailed)
		report.Ingestion = nil
		report.Error = "manifest: permission denied"

		pub := NewNATSPublisher(mockJS)
		require.NoError(t, pub.NotifyRun(ctx, report))

		var event RunEvent
		require.NoError(t, json.Unmarshal(mockJS.PublishedMessages["eligibility.runs.failed"], &event))
		assert.Zero(t, event.RowsIngested)
		assert.Zero(t, event.VendorsFailed)
		assert.Equal(t, "manifest: permission denied", event.Error)
	})
}
