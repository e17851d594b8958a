package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	ethrpc "github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"
)

const (
	defaultBatchItemLimit = 100
	defaultRetryCount     = 5
	defaultRetryTime      = time.Second
	defaultRequestTimeout = 60 * time.Second
)

type (
	Client struct {
		rpcClient *ethrpc.Client
		limiter   *rate.Limiter
		options   *Options
	}

	Options struct {
		batchItemLimit int
		retryCount     int
		retryTime      time.Duration
		requestTimeout time.Duration
		rateLimit      rate.Limit
		rateBurst      int
	}

	Option func(*Options)
)

func WithBatchItemLimit(batchItemLimit int) Option {
	return func(o *Options) {
		o.batchItemLimit = batchItemLimit
	}
}

func WithRetryCount(retryCount int) Option {
	return func(o *Options) {
		o.retryCount = retryCount
	}
}

func WithRetryTime(retryTime time.Duration) Option {
	return func(o *Options) {
		o.retryTime = retryTime
	}
}

// WithRequestTimeout bounds the duration of a single call, zero disables the timeout.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.requestTimeout = timeout
	}
}

// WithRateLimit limits the number of calls per second sent to the gateway.
func WithRateLimit(callsPerSecond float64, burst int) Option {
	return func(o *Options) {
		o.rateLimit = rate.Limit(callsPerSecond)
		o.rateBurst = burst
	}
}

func NewClient(ctx context.Context, rpcUrl string, opts ...Option) (*Client, error) {
	options := optionsWithDefaults(opts)

	httpClient := &http.Client{Timeout: options.requestTimeout}
	rpcClient, err := ethrpc.DialOptions(ctx, rpcUrl, ethrpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		limiter:   rate.NewLimiter(options.rateLimit, options.rateBurst),
		options:   options,
	}, nil
}

func (c *Client) BatchCall(ctx context.Context, batch []*ethrpc.BatchElem) error {
	start, end := 0, 0
	for len(batch) > end {
		if c.options.batchItemLimit == 0 {
			end = len(batch)
		} else {
			end = min(len(batch), start+c.options.batchItemLimit)
		}
		if err := c.batchCallWithRetry(ctx, batch[start:end]); err != nil {
			return fmt.Errorf("failed to send batch request: %w", err)
		}
		start = end
	}
	return nil
}

func (c *Client) batchCallWithRetry(ctx context.Context, batch []*ethrpc.BatchElem) error {
	for countdown := c.options.retryCount; ; countdown-- {
		err := c.batchCallContext(ctx, batch)
		if err == nil {
			var retryBatch []*ethrpc.BatchElem
			for _, elem := range batch {
				if elem.Error != nil && retryable(elem.Error) {
					retryBatch = append(retryBatch, elem)
				}
			}
			if len(retryBatch) == 0 || countdown <= 0 {
				return nil
			}
			batch = retryBatch
		}

		if countdown <= 0 {
			return fmt.Errorf("batch request failed (retries %d): err %w", c.options.retryCount, err)
		}

		select {
		case <-time.After(c.options.retryTime):
			continue
		case <-ctx.Done():
			return fmt.Errorf("batch request failed: err %w", ctx.Err())
		}
	}
}

// batchCallContext is wrapper form batch []*ethrpc.BatchElem to batch []ethrpc.BatchElem
func (c *Client) batchCallContext(ctx context.Context, batch []*ethrpc.BatchElem) error {
	if err := c.limiter.WaitN(ctx, min(len(batch), c.limiter.Burst())); err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	batchToSend := make([]ethrpc.BatchElem, len(batch))
	for i, element := range batch {
		batchToSend[i] = *element
	}
	err := c.rpcClient.BatchCallContext(ctx, batchToSend)
	for i, element := range batchToSend {
		batch[i].Result = element.Result
		batch[i].Error = element.Error
	}
	return err
}

// CallContext calls the method retrying on transport errors. Errors returned
// by the gateway itself are not retried.
func (c *Client) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	for countdown := c.options.retryCount; ; countdown-- {
		err := c.call(ctx, result, method, args...)
		if err == nil || countdown <= 0 || !retryable(err) {
			return err
		}

		select {
		case <-time.After(c.options.retryTime):
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// CallOnce calls the method exactly once, used for non-idempotent calls.
func (c *Client) CallOnce(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	return c.call(ctx, result, method, args...)
}

func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.rpcClient.CallContext(ctx, result, method, args...)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.options.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.options.requestTimeout)
}

func (c *Client) Close() {
	c.rpcClient.Close()
}

// retryable returns false for errors which are responses of the server and
// for calls which ran out of time.
func retryable(err error) bool {
	var rpcErr ethrpc.Error
	if errors.As(err, &rpcErr) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func optionsWithDefaults(opts []Option) *Options {
	res := &Options{
		batchItemLimit: defaultBatchItemLimit,
		retryCount:     defaultRetryCount,
		retryTime:      defaultRetryTime,
		requestTimeout: defaultRequestTimeout,
		rateLimit:      rate.Inf,
		rateBurst:      1,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}
