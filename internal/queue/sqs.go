package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const (
	receiveCountAttr = "ApproximateReceiveCount"
	maxBatch         = 10
	maxWaitSeconds   = 20
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Delivery is one received message awaiting a delete or redelivery.
type Delivery struct {
	MessageID    string
	Body         string
	Receipt      string
	ReceiveCount int
}

// SQS publishes and consumes call jobs on one queue.
type SQS struct {
	api      sqsAPI
	queueURL string
}

// NewSQS loads the default AWS credential chain for region.
func NewSQS(ctx context.Context, queueURL, region string) (*SQS, error) {
	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, fmt.Errorf("CALLS_SQS_QUEUE_URL is required")
	}
	if strings.TrimSpace(region) == "" {
		return nil, fmt.Errorf("AWS region is required for %s", queueURL)
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SQS{api: sqs.NewFromConfig(cfg), queueURL: queueURL}, nil
}

// Publish sends job. The call id travels as a message attribute too so
// queue tooling can find a job without parsing the body.
func (q *SQS) Publish(ctx context.Context, job Job) error {
	payload, err := job.Encode()
	if err != nil {
		return fmt.Errorf("encode call job: %w", err)
	}
	_, err = q.api.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(payload)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"callId": {DataType: aws.String("String"), StringValue: aws.String(job.CallID)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish call %s: %w", job.CallID, err)
	}
	return nil
}

// Receive long-polls for up to max messages and hides them for
// visibilitySeconds while they are processed.
func (q *SQS) Receive(ctx context.Context, max, visibilitySeconds int) ([]Delivery, error) {
	if max <= 0 || max > maxBatch {
		max = maxBatch
	}
	out, err := q.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:                    aws.String(q.queueURL),
		MaxNumberOfMessages:         int32(max),
		WaitTimeSeconds:             maxWaitSeconds,
		VisibilityTimeout:           int32(visibilitySeconds),
		MessageSystemAttributeNames: []sqstypes.MessageSystemAttributeName{receiveCountAttr},
	})
	if err != nil {
		return nil, err
	}
	deliveries := make([]Delivery, 0, len(out.Messages))
	for _, m := range out.Messages {
		count, _ := strconv.Atoi(m.Attributes[receiveCountAttr])
		deliveries = append(deliveries, Delivery{
			MessageID:    aws.ToString(m.MessageId),
			Body:         aws.ToString(m.Body),
			Receipt:      aws.ToString(m.ReceiptHandle),
			ReceiveCount: count,
		})
	}
	return deliveries, nil
}

// Delete acknowledges a delivery so it is not redelivered.
func (q *SQS) Delete(ctx context.Context, d Delivery) error {
	if d.Receipt == "" {
		return fmt.Errorf("delete %s: missing receipt handle", d.MessageID)
	}
	_, err := q.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(d.Receipt),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", d.MessageID, err)
	}
	return nil
}

var _ Publisher = (*SQS)(nil)
