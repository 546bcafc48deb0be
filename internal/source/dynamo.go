package source

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pable/atlas-metrics/internal/config"
	"github.com/pable/atlas-metrics/internal/metrics"
	"github.com/pable/atlas-metrics/internal/model"
)

// ScanAPI is the part of the DynamoDB client used by Dynamo.
type ScanAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// throttleCodes are the DynamoDB error codes retried with backoff.
var throttleCodes = map[string]bool{
	"ProvisionedThroughputExceededException": true,
	"ThrottlingException":                    true,
	"RequestLimitExceeded":                   true,
}

// Dynamo scans the games table page by page.
type Dynamo struct {
	client   ScanAPI
	table    string
	attempts uint
	delay    time.Duration
	maxDelay time.Duration
	logger   zerolog.Logger
}

// DynamoOption customises a Dynamo source.
type DynamoOption func(*Dynamo)

// WithBackoff sets the first retry delay and the cap for throttled pages.
func WithBackoff(delay, maxDelay time.Duration) DynamoOption {
	return func(d *Dynamo) {
		d.delay = delay
		d.maxDelay = maxDelay
	}
}

// WithAttempts sets how many times one page is tried before giving up.
func WithAttempts(n uint) DynamoOption {
	return func(d *Dynamo) { d.attempts = n }
}

// NewDynamo wraps an existing client.
func NewDynamo(client ScanAPI, table string, opts ...DynamoOption) *Dynamo {
	d := &Dynamo{
		client:   client,
		table:    table,
		attempts: 8,
		delay:    time.Second,
		maxDelay: 30 * time.Second,
		logger:   log.With().Str("module", "source").Str("table", table).Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DynamoFromConfig builds a client for cfg's region and credentials.
func DynamoFromConfig(ctx context.Context, cfg *config.Config) (*Dynamo, error) {
	awsCfg, err := cfg.AWS(ctx)
	if err != nil {
		return nil, err
	}
	// Throttling is retried by Scan with its own backoff.
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.RetryMaxAttempts = 1
	})
	return NewDynamo(client, cfg.DynamoTable), nil
}

func isThrottle(err error) bool {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return throttleCodes[ae.ErrorCode()]
	}
	return false
}

// Scan reads the whole table, skipping records whose game id is known.
// Paging stops when the response carries no LastEvaluatedKey. A throttled
// page is retried with exponential backoff capped at maxDelay; any other
// error aborts the scan.
func (d *Dynamo) Scan(ctx context.Context, known map[string]struct{}) ([]model.RawRecord, error) {
	var (
		out      []model.RawRecord
		startKey map[string]types.AttributeValue
		scanned  int
	)
	for page := 1; ; page++ {
		var resp *dynamodb.ScanOutput
		err := retry.Do(
			func() error {
				var err error
				resp, err = d.client.Scan(ctx, &dynamodb.ScanInput{
					TableName:         aws.String(d.table),
					ExclusiveStartKey: startKey,
				})
				return err
			},
			retry.Context(ctx),
			retry.Attempts(d.attempts),
			retry.Delay(d.delay),
			retry.MaxDelay(d.maxDelay),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
			retry.RetryIf(isThrottle),
			retry.OnRetry(func(n uint, err error) {
				metrics.ScanRetries.Inc()
				d.logger.Warn().Int("page", page).Uint("attempt", n+1).Err(err).Msg("scan throttled, backing off")
			}),
		)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to scan page %d", page)
		}

		for _, item := range resp.Items {
			scanned++
			var rec map[string]any
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				d.logger.Warn().Err(err).Msg("skipping undecodable item")
				continue
			}
			r := model.RawRecord(rec)
			if _, ok := known[r.GameID()]; ok {
				continue
			}
			out = append(out, r)
		}
		d.logger.Debug().Int("page", page).Int("scanned", scanned).Int("new", len(out)).Msg("scanned page")

		if len(resp.LastEvaluatedKey) == 0 {
			break
		}
		startKey = resp.LastEvaluatedKey
	}

	metrics.RecordsFetched.Add(float64(len(out)))
	d.logger.Info().Int("scanned", scanned).Int("new", len(out)).Msg("scan complete")
	return out, nil
}
