package zap

import (
	"context"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

const (
	envErrorTopicARN = "SIDECAR_SSR_ERROR_TOPIC_ARN"
	envErrorSubject  = "SIDECAR_SSR_ERROR_SUBJECT"
)

// WithEnvironmentErrorNotifications wires an SNS notifier when
// SIDECAR_SSR_ERROR_TOPIC_ARN is set. It is a no-op otherwise.
func WithEnvironmentErrorNotifications(ctx context.Context) Option {
	return func(opts *loggerOptions) {
		topicARN := strings.TrimSpace(os.Getenv(envErrorTopicARN))
		if topicARN == "" {
			return
		}
		if ctx == nil {
			ctx = context.Background()
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			opts.initErr = err
			return
		}

		opts.notifier = NewSNSNotifier(sns.NewFromConfig(awsCfg), topicARN, SNSNotifierOptions{
			Subject: os.Getenv(envErrorSubject),
		})
	}
}
