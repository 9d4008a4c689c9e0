package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/highscore-api/internal/config"
	"github.com/highscore-api/internal/domain"
)

type recordingHandler struct {
	mu      sync.Mutex
	batches [][]domain.ScoreSubmission
}

func (h *recordingHandler) SubmitScoreBatch(_ context.Context, batch domain.BatchScoreSubmission) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	scores := make([]domain.ScoreSubmission, len(batch.Scores))
	copy(scores, batch.Scores)
	h.batches = append(h.batches, scores)
	return len(scores), nil
}

func (h *recordingHandler) submitted() []domain.ScoreSubmission {
	h.mu.Lock()
	defer h.mu.Unlock()
	var all []domain.ScoreSubmission
	for _, b := range h.batches {
		all = append(all, b...)
	}
	return all
}

type fakeSession struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "member" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context                 { return s.ctx }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                            { return "highscore-submissions" }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func message(t *testing.T, offset int64, value any) *sarama.ConsumerMessage {
	t.Helper()
	data, ok := value.(string)
	if !ok {
		raw, err := json.Marshal(value)
		require.NoError(t, err)
		data = string(raw)
	}
	return &sarama.ConsumerMessage{Offset: offset, Value: []byte(data)}
}

func TestConsumeClaim_BatchesAndMarksEveryMessage(t *testing.T) {
	cfg := &config.KafkaConfig{BatchSize: 2, BatchTimeout: time.Hour}
	recorder := &recordingHandler{}
	handler := newGroupHandler(cfg, recorder, slog.New(slog.NewTextHandler(io.Discard, nil)), make(chan struct{}))

	session := &fakeSession{ctx: context.Background()}
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 8)}

	claim.messages <- message(t, 0, domain.ScoreSubmission{Project: "game", Username: "ada", Score: 5})
	claim.messages <- message(t, 1, "not json")
	claim.messages <- message(t, 2, domain.ScoreSubmission{Username: "no-project", Score: 5})
	claim.messages <- message(t, 3, domain.ScoreSubmission{Project: "game", Username: "bob", Score: 7})
	claim.messages <- message(t, 4, domain.ScoreSubmission{Project: "game", Username: "cy", Score: 1})
	close(claim.messages)

	require.NoError(t, handler.Setup(session))
	require.NoError(t, handler.ConsumeClaim(session, claim))

	assert.Equal(t, []int64{0, 1, 2, 3, 4}, session.marked)
	assert.Len(t, recorder.batches, 2)
	assert.Equal(t, []domain.ScoreSubmission{
		{Project: "game", Username: "ada", Score: 5},
		{Project: "game", Username: "bob", Score: 7},
		{Project: "game", Username: "cy", Score: 1},
	}, recorder.submitted())
}

func TestConsumeClaim_FlushesOnTimeout(t *testing.T) {
	cfg := &config.KafkaConfig{BatchSize: 100, BatchTimeout: 20 * time.Millisecond}
	recorder := &recordingHandler{}
	handler := newGroupHandler(cfg, recorder, slog.New(slog.NewTextHandler(io.Discard, nil)), make(chan struct{}))

	ctx, cancel := context.WithCancel(context.Background())
	session := &fakeSession{ctx: ctx}
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 1)}
	claim.messages <- message(t, 0, domain.ScoreSubmission{Project: "game", Username: "ada", Score: 5})

	done := make(chan error, 1)
	go func() { done <- handler.ConsumeClaim(session, claim) }()

	require.Eventually(t, func() bool { return len(recorder.submitted()) == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestProducer_Publish(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	mock := mocks.NewSyncProducer(t, cfg)
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var submission domain.ScoreSubmission
		if err := json.Unmarshal(value, &submission); err != nil {
			return err
		}
		if submission.Project != "game" || submission.Score != 42 {
			return assert.AnError
		}
		return nil
	})

	producer := NewProducerWith(mock, "highscore-submissions")
	require.NoError(t, producer.Publish(domain.ScoreSubmission{Project: "game", Username: "ada", Score: 42}))
	require.NoError(t, producer.Close())
}
