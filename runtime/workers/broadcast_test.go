package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"babelroom/contract"
	"babelroom/domain"
	"babelroom/domain/event"
	"babelroom/mocks"
)

func sampleEvent() event.DomainEvent {
	return event.NewMessage{Message: domain.Message{
		ID:             uuid.New(),
		Room:           "general",
		AuthorID:       "alice",
		Content:        "hola",
		SourceLanguage: domain.Spanish,
		CreatedAt:      time.Now().UTC(),
	}}
}

func TestBroadcastWorker_Fanout_Delivers_To_Room_And_Permanent_Sinks(t *testing.T) {
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	roomSink := mocks.NewMockEventSink(ctrl)
	permanentSink := mocks.NewMockEventSink(ctrl)

	evt := sampleEvent()
	mockRegistry.EXPECT().GetSinksForRoom(domain.RoomID("general")).
		Return([]contract.EventSink{roomSink, roomSink})
	roomSink.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(2)
	permanentSink.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	worker := NewBroadcastWorker(log, mockRegistry,
		[]contract.EventSink{permanentSink}, make(chan event.DomainEvent), time.Second)

	worker.Fanout(context.Background(), evt)
}

func TestBroadcastWorker_Fanout_Absorbs_Sink_Failures(t *testing.T) {
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	failing := mocks.NewMockEventSink(ctrl)
	healthy := mocks.NewMockEventSink(ctrl)

	evt := sampleEvent()
	mockRegistry.EXPECT().GetSinksForRoom(gomock.Any()).
		Return([]contract.EventSink{failing, healthy})
	// Given the first sink stalls until its delivery timeout fires
	failing.EXPECT().Consume(gomock.Any(), evt).
		DoAndReturn(func(ctx context.Context, _ event.DomainEvent) error {
			<-ctx.Done()
			return ctx.Err()
		})
	// Then the next sink is still served
	healthy.EXPECT().Consume(gomock.Any(), evt).Return(nil)

	worker := NewBroadcastWorker(log, mockRegistry, nil,
		make(chan event.DomainEvent), 20*time.Millisecond)

	worker.Fanout(context.Background(), evt)
}

func TestBroadcastWorker_Run_Stops_On_Closed_Channel(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	events := make(chan event.DomainEvent)
	worker := NewBroadcastWorker(log, mockRegistry, nil, events, time.Second)

	done := make(chan error, 1)
	go func() { done <- worker.Run(context.Background()) }()
	close(events)

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(500 * time.Millisecond):
		req.Fail("Run should have returned after channel close")
	}
}

func TestBroadcastWorker_Run_Stops_On_Context_Cancel(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	worker := NewBroadcastWorker(log, mockRegistry, nil,
		make(chan event.DomainEvent), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(500 * time.Millisecond):
		req.Fail("Run should have returned after cancellation")
	}
}
