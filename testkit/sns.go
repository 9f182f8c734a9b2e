package testkit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSPublishCall is one message published to FakeSNSClient.
type SNSPublishCall struct {
	TopicARN string
	Subject  string
	Message  string
}

// FakeSNSClient records error notifications instead of sending them. It
// satisfies the publisher interface the zap error notifier expects.
type FakeSNSClient struct {
	mu sync.Mutex

	calls []SNSPublishCall

	PublishErr error
	nextID     int
	published  chan struct{}
}

func NewFakeSNSClient() *FakeSNSClient {
	return &FakeSNSClient{nextID: 1, published: make(chan struct{}, 64)}
}

// Published returns a copy of the recorded messages.
func (f *FakeSNSClient) Published() []SNSPublishCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SNSPublishCall(nil), f.calls...)
}

// WaitForPublish blocks until a message arrives or ctx is done. Notifications
// are sent asynchronously, so tests use this instead of sleeping.
func (f *FakeSNSClient) WaitForPublish(ctx context.Context) error {
	select {
	case <-f.published:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *FakeSNSClient) Publish(
	_ context.Context,
	params *sns.PublishInput,
	_ ...func(*sns.Options),
) (*sns.PublishOutput, error) {
	if f == nil {
		return nil, errors.New("testkit: sns client is nil")
	}
	if params == nil {
		return nil, errors.New("testkit: publish input is nil")
	}

	topicARN := strings.TrimSpace(aws.ToString(params.TopicArn))
	if topicARN == "" {
		return nil, errors.New("testkit: topic arn is empty")
	}

	f.mu.Lock()
	if f.PublishErr != nil {
		err := f.PublishErr
		f.mu.Unlock()
		return nil, err
	}
	f.calls = append(f.calls, SNSPublishCall{
		TopicARN: topicARN,
		Subject:  aws.ToString(params.Subject),
		Message:  aws.ToString(params.Message),
	})
	id := f.nextID
	f.nextID++
	f.mu.Unlock()

	select {
	case f.published <- struct{}{}:
	default:
	}

	return &sns.PublishOutput{
		MessageId: aws.String("msg-" + strconv.Itoa(id)),
	}, nil
}
