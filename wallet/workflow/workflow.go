package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/knowable-run/namwallet/client/types"
	"github.com/knowable-run/namwallet/wallet"
	"github.com/knowable-run/namwallet/wallet/account"
	"github.com/knowable-run/namwallet/wallet/alias"
	"github.com/knowable-run/namwallet/wallet/reveal"
	"github.com/knowable-run/namwallet/wallet/transfer"
	"github.com/knowable-run/namwallet/wallet/txbuilder"
)

type (
	// Config replaces the process wide chain constants of the wallet commands.
	Config struct {
		ChainID string
		// NativeToken is queried from the chain when empty.
		NativeToken         types.Address
		WaitForConfirmation bool
		TxOptions           []types.Option
		// PollInterval of transaction results, default is used when zero.
		PollInterval time.Duration
	}

	Store interface {
		alias.Store
		ListPublicKeys() []*account.PublicKeyRecord
		SignerFor(pk types.PublicKey) (types.Signer, error)
	}

	Observability interface {
		TracerProvider() trace.TracerProvider
		PrometheusRegisterer() prometheus.Registerer
	}

	Workflow struct {
		resolver  *alias.Resolver
		gate      *reveal.Gate
		submitter *transfer.Submitter
		builder   *txbuilder.Builder
		metrics   *Metrics
		tracer    trace.Tracer
		log       *slog.Logger
	}

	// Order is the user supplied transfer, addresses may be given as aliases.
	Order struct {
		Kind   string `json:"kind" yaml:"kind" plist:"kind"`
		Source string `json:"source" yaml:"source" plist:"source"`
		// Target is address or alias, for IBC transfer the receiver on the other chain.
		Target string `json:"target" yaml:"target" plist:"target"`
		// Token address or alias, native token when empty.
		Token   string `json:"token,omitempty" yaml:"token,omitempty" plist:"token,omitempty"`
		Amount  string `json:"amount" yaml:"amount" plist:"amount"`
		Channel string `json:"channel,omitempty" yaml:"channel,omitempty" plist:"channel,omitempty"`
		Port    string `json:"port,omitempty" yaml:"port,omitempty" plist:"port,omitempty"`
		Memo    string `json:"memo,omitempty" yaml:"memo,omitempty" plist:"memo,omitempty"`
	}

	// Result describes a run, including failed ones.
	Result struct {
		RunID   uuid.UUID
		State   State
		Source  types.Address
		Reveal  reveal.Outcome
		Receipt *transfer.Receipt
	}
)

func New(ctx context.Context, cfg Config, chain types.ChainClient, store Store, obs Observability, log *slog.Logger) (*Workflow, error) {
	if cfg.ChainID == "" {
		return nil, fmt.Errorf("%w: chain id is required", wallet.ErrInvalidInput)
	}
	if cfg.NativeToken.IsZero() {
		token, err := chain.NativeToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: querying native token: %w", wallet.ErrNetworkFailure, err)
		}
		cfg.NativeToken = token
	}
	metrics, err := NewMetrics(obs.PrometheusRegisterer())
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	builder := txbuilder.New(cfg.ChainID, cfg.NativeToken)
	return &Workflow{
		resolver: alias.NewResolver(store),
		gate: reveal.NewGate(chain, store, builder, log,
			reveal.WithTxOptions(cfg.TxOptions...), reveal.WithPollInterval(cfg.PollInterval)),
		submitter: transfer.NewSubmitter(chain, store, builder, log,
			transfer.WithConfirmation(cfg.WaitForConfirmation), transfer.WithTxOptions(cfg.TxOptions...)),
		builder: builder,
		metrics: metrics,
		tracer:  obs.TracerProvider().Tracer("namwallet/workflow"),
		log:     log,
	}, nil
}

func (w *Workflow) NativeToken() types.Address {
	return w.builder.NativeToken()
}

// Reveal resolves the source and makes sure its public key is revealed.
func (w *Workflow) Reveal(ctx context.Context, source string) (*Result, error) {
	r := w.newRun()
	start := time.Now()
	ctx, span := w.tracer.Start(ctx, "workflow.reveal", trace.WithAttributes(attribute.String("run_id", r.RunID.String())))
	defer span.End()

	_, err := w.resolveAndReveal(ctx, r, source)
	w.metrics.duration.WithLabelValues("reveal").Observe(time.Since(start).Seconds())
	return r, w.finish(ctx, span, r, err)
}

/*
Transfer runs the whole workflow for the order: resolve aliases, make sure the
source is revealed, then build, sign and send the transfer. The order is
validated before the reveal gate runs. The first failure ends the run, a failed
reveal means no transfer is attempted.
*/
func (w *Workflow) Transfer(ctx context.Context, order *Order) (*Result, error) {
	r := w.newRun()
	start := time.Now()
	ctx, span := w.tracer.Start(ctx, "workflow.transfer", trace.WithAttributes(
		attribute.String("run_id", r.RunID.String()),
		attribute.String("kind", order.Kind),
	))
	defer span.End()

	kind, err := transfer.ParseKind(order.Kind)
	if err != nil {
		return r, w.finish(ctx, span, r, err)
	}
	err = w.transfer(ctx, r, kind, order)
	w.metrics.transfers.WithLabelValues(kind.String(), resultLabel(err)).Inc()
	w.metrics.duration.WithLabelValues("transfer").Observe(time.Since(start).Seconds())
	return r, w.finish(ctx, span, r, err)
}

func (w *Workflow) transfer(ctx context.Context, r *Result, kind transfer.Kind, order *Order) error {
	req, err := w.request(ctx, r, kind, order)
	if err != nil {
		return err
	}
	clearance, err := w.reveal(ctx, r)
	if err != nil {
		return err
	}

	draft, err := step(ctx, w.tracer, "build", func(context.Context) (*transfer.Draft, error) {
		return w.submitter.Build(clearance, req)
	})
	if err != nil {
		return err
	}
	w.advance(ctx, r, Built)

	signed, err := step(ctx, w.tracer, "sign", func(context.Context) (*transfer.SignedTx, error) {
		return w.submitter.Sign(draft)
	})
	if err != nil {
		return err
	}
	w.advance(ctx, r, Signed)

	receipt, err := step(ctx, w.tracer, "send", func(ctx context.Context) (*transfer.Receipt, error) {
		return w.submitter.Send(ctx, signed)
	})
	if err != nil {
		return err
	}
	r.Receipt = receipt
	w.advance(ctx, r, Submitted)
	return nil
}

// request resolves the aliases of the order and validates the result, nothing
// is sent to the chain before the order is known to be valid.
func (w *Workflow) request(ctx context.Context, r *Result, kind transfer.Kind, order *Order) (*transfer.Request, error) {
	if err := w.resolveSource(ctx, r, order.Source); err != nil {
		return nil, err
	}
	req := &transfer.Request{
		Kind:    kind,
		Source:  r.Source,
		Amount:  order.Amount,
		Channel: order.Channel,
		Port:    order.Port,
		Memo:    order.Memo,
	}
	var err error
	if req.Token, err = w.resolveToken(order.Token); err != nil {
		return nil, err
	}
	switch kind {
	case transfer.Transparent:
		req.Target, err = w.resolver.ResolveTransparent(order.Target)
	case transfer.Shielding:
		req.Target, err = w.resolver.ResolvePaymentAddress(order.Target)
	case transfer.IBC:
		req.Receiver = strings.TrimSpace(order.Target)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving target: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := w.builder.ParseAmount(req.Amount); err != nil {
		return nil, err
	}
	return req, nil
}

func (w *Workflow) resolveAndReveal(ctx context.Context, r *Result, source string) (*reveal.Clearance, error) {
	if err := w.resolveSource(ctx, r, source); err != nil {
		return nil, err
	}
	return w.reveal(ctx, r)
}

func (w *Workflow) resolveSource(ctx context.Context, r *Result, source string) error {
	addr, err := w.resolver.ResolveTransparent(source)
	if err != nil {
		return fmt.Errorf("resolving source: %w", err)
	}
	r.Source = addr
	w.advance(ctx, r, AliasResolved)
	return nil
}

func (w *Workflow) reveal(ctx context.Context, r *Result) (*reveal.Clearance, error) {
	var outcome reveal.Outcome
	clearance, err := step(ctx, w.tracer, "reveal", func(ctx context.Context) (c *reveal.Clearance, err error) {
		outcome, c, err = w.gate.EnsureRevealed(ctx, r.Source)
		return c, err
	})
	if err != nil {
		w.metrics.reveals.WithLabelValues("failed").Inc()
		return nil, err
	}
	w.metrics.reveals.WithLabelValues(strings.ReplaceAll(outcome.String(), " ", "_")).Inc()
	r.Reveal = outcome
	w.advance(ctx, r, RevealChecked)
	return clearance, nil
}

func (w *Workflow) resolveToken(token string) (types.Address, error) {
	if strings.TrimSpace(token) == "" {
		return w.builder.NativeToken(), nil
	}
	addr, err := w.resolver.ResolveTransparent(token)
	if err != nil {
		return "", fmt.Errorf("resolving token: %w", err)
	}
	return addr, nil
}

func (w *Workflow) newRun() *Result {
	return &Result{RunID: uuid.New(), State: Init}
}

func (w *Workflow) advance(ctx context.Context, r *Result, to State) {
	if !r.State.next(to) {
		panic(fmt.Sprintf("invalid workflow state transition %s -> %s", r.State, to))
	}
	w.log.DebugContext(ctx, "workflow state", slog.String("run_id", r.RunID.String()), slog.String("from", r.State.String()), slog.String("to", to.String()))
	r.State = to
}

func (w *Workflow) finish(ctx context.Context, span trace.Span, r *Result, err error) error {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	w.log.InfoContext(ctx, "workflow failed", slog.String("run_id", r.RunID.String()), slog.String("state", r.State.String()), slog.Any("err", err))
	w.advance(ctx, r, Failed)
	return err
}

// step runs "f" in its own span.
func step[T any](ctx context.Context, tracer trace.Tracer, name string, f func(context.Context) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()
	v, err := f(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return v, err
}

// IsRevealFailure returns true when the error was caused by the reveal gate.
func IsRevealFailure(err error) bool {
	return errors.Is(err, reveal.ErrQueryFailed) || errors.Is(err, reveal.ErrSubmitFailed)
}
