package queue

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type fakeSQS struct {
	sent     *sqs.SendMessageInput
	received *sqs.ReceiveMessageInput
	deleted  []string
	messages []sqstypes.Message
	err      error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.sent = params
	return &sqs.SendMessageOutput{}, f.err
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.received = params
	return &sqs.ReceiveMessageOutput{Messages: f.messages}, f.err
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, f.err
}

func TestPublishEncodesJob(t *testing.T) {
	api := &fakeSQS{}
	q := &SQS{api: api, queueURL: "https://sqs.local/calls"}

	if err := q.Publish(context.Background(), Job{CallID: "call-1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if aws.ToString(api.sent.QueueUrl) != "https://sqs.local/calls" {
		t.Fatalf("unexpected queue url %q", aws.ToString(api.sent.QueueUrl))
	}
	body := aws.ToString(api.sent.MessageBody)
	if !strings.Contains(body, `"callId":"call-1"`) || !strings.Contains(body, `"version":1`) {
		t.Fatalf("unexpected body %q", body)
	}
	if aws.ToString(api.sent.MessageAttributes["callId"].StringValue) != "call-1" {
		t.Fatalf("expected callId attribute")
	}
}

func TestPublishWrapsError(t *testing.T) {
	boom := errors.New("throttled")
	q := &SQS{api: &fakeSQS{err: boom}, queueURL: "q"}
	if err := q.Publish(context.Background(), Job{CallID: "c"}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestReceiveMapsDeliveries(t *testing.T) {
	api := &fakeSQS{messages: []sqstypes.Message{{
		MessageId:     aws.String("m1"),
		ReceiptHandle: aws.String("r1"),
		Body:          aws.String(`{"callId":"c1"}`),
		Attributes:    map[string]string{"ApproximateReceiveCount": "3"},
	}}}
	q := &SQS{api: api, queueURL: "q"}

	got, err := q.Receive(context.Background(), 50, 900)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if api.received.MaxNumberOfMessages != 10 || api.received.VisibilityTimeout != 900 {
		t.Fatalf("unexpected receive input %+v", api.received)
	}
	if len(got) != 1 || got[0].Receipt != "r1" || got[0].ReceiveCount != 3 || got[0].Body != `{"callId":"c1"}` {
		t.Fatalf("unexpected deliveries %+v", got)
	}
}

func TestDeleteNeedsReceipt(t *testing.T) {
	api := &fakeSQS{}
	q := &SQS{api: api, queueURL: "q"}
	if err := q.Delete(context.Background(), Delivery{MessageID: "m1"}); err == nil {
		t.Fatalf("expected missing receipt error")
	}
	if err := q.Delete(context.Background(), Delivery{MessageID: "m1", Receipt: "r1"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(api.deleted) != 1 || api.deleted[0] != "r1" {
		t.Fatalf("unexpected deletes %v", api.deleted)
	}
}

func TestNewSQSRequiresURLAndRegion(t *testing.T) {
	if _, err := NewSQS(context.Background(), " ", "eu-central-1"); err == nil {
		t.Fatalf("expected error for empty queue url")
	}
	if _, err := NewSQS(context.Background(), "https://sqs.local/q", ""); err == nil {
		t.Fatalf("expected error for empty region")
	}
}
