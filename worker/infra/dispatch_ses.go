package infra

import (
	"context"
	"fmt"

	"edge-worker/worker/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

const charsetUTF8 = "UTF-8"

// SESAPI é o subconjunto do cliente SES usado aqui.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESOptions struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// SESDispatcher entrega via Amazon SES (SendEmail).
type SESDispatcher struct {
	client SESAPI
}

// NewSESDispatcher carrega a config AWS. Sem chaves explícitas usa a cadeia
// padrão de credenciais (env, profile, role).
func NewSESDispatcher(ctx context.Context, opts SESOptions) (*SESDispatcher, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSESDispatcherWithClient(ses.NewFromConfig(cfg)), nil
}

func NewSESDispatcherWithClient(client SESAPI) *SESDispatcher {
	return &SESDispatcher{client: client}
}

func (d *SESDispatcher) Send(ctx context.Context, e domain.Email) error {
	if _, err := d.client.SendEmail(ctx, sesInput(e)); err != nil {
		return fmt.Errorf("%w: ses: %v", domain.ErrDispatchFailed, err)
	}
	return nil
}

func sesInput(e domain.Email) *ses.SendEmailInput {
	in := &ses.SendEmailInput{
		Source:      aws.String(e.From),
		Destination: &types.Destination{ToAddresses: []string{e.To}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(e.Subject), Charset: aws.String(charsetUTF8)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(e.HTMLBody), Charset: aws.String(charsetUTF8)},
			},
		},
	}
	if e.ReplyTo != "" {
		in.ReplyToAddresses = []string{e.ReplyTo}
	}
	return in
}
