package testutils

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/tech-arch1tect/authstarter/services/notifier"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, msg notifier.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockNotifier) Name() string {
	return "mock"
}

// RecordingNotifier keeps every message it is asked to send.
type RecordingNotifier struct {
	mu       sync.Mutex
	messages []notifier.Message
	Err      error
}

func (r *RecordingNotifier) Send(ctx context.Context, msg notifier.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return r.Err
}

func (r *RecordingNotifier) Name() string {
	return "recording"
}

func (r *RecordingNotifier) Messages() []notifier.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifier.Message(nil), r.messages...)
}

func (r *RecordingNotifier) Last() (notifier.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return notifier.Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}
