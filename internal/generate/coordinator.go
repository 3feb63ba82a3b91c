package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pringgosatmoko/Creativestudio/pkg/kafka"
	"github.com/pringgosatmoko/Creativestudio/pkg/logging"
	"github.com/pringgosatmoko/Creativestudio/pkg/models"
)

// Ledger is the credit store the coordinator charges against.
type Ledger interface {
	IsAdmin(email string) bool
	Balance(ctx context.Context, email string) (int64, error)
	Debit(ctx context.Context, email string, amount int64) error
	Credit(ctx context.Context, email string, amount int64) error
	SaveReceipt(ctx context.Context, receipt *models.Receipt) error
	MarkReceiptRefunded(ctx context.Context, receiptID string) error
	Member(ctx context.Context, email string) (*models.Member, error)
}

// Pricer resolves the cost of an operation kind.
type Pricer interface {
	Cost(ctx context.Context, kind models.OperationKind) (int64, error)
}

// Notifier delivers operational notifications. Implementations must not
// block the request path.
type Notifier interface {
	Send(channel, message string)
}

// EventSink publishes usage events to the event bus.
type EventSink interface {
	PublishUsageEvent(event *kafka.UsageEvent) error
}

// Generator runs a generation request end to end.
type Generator interface {
	Ready() error
	Invoke(ctx context.Context, req Request) (*Result, error)
}

// Outcome bundles what the API layer needs after a charged generation.
type Outcome struct {
	Receipt   models.Receipt
	Artifact  Artifact
	Balance   int64
	Attempts  int
	Rotations int
}

// Coordinator enforces the charge-then-generate flow: cost resolution,
// readiness check, atomic debit, invocation and the optional terminal-failure
// refund. Admin members bypass the debit entirely.
type Coordinator struct {
	ledger          Ledger
	pricer          Pricer
	generator       Generator
	notifier        Notifier
	events          EventSink
	logger          logging.Logger
	refundOnFailure bool
}

// NewCoordinator creates a Coordinator. notifier and events may be nil.
func NewCoordinator(ledger Ledger, pricer Pricer, generator Generator, notifier Notifier, events EventSink, logger logging.Logger, refundOnFailure bool) *Coordinator {
	return &Coordinator{
		ledger:          ledger,
		pricer:          pricer,
		generator:       generator,
		notifier:        notifier,
		events:          events,
		logger:          logger,
		refundOnFailure: refundOnFailure,
	}
}

// Generate charges the member and runs the request. Credits are debited
// before the provider is called and are not returned on failure unless the
// refund flag is enabled.
func (c *Coordinator) Generate(ctx context.Context, email string, req Request) (*Outcome, error) {
	cost, err := c.pricer.Cost(ctx, req.Kind)
	if err != nil {
		return nil, err
	}

	// No charge ever happens when no credential could serve the request.
	if err := c.generator.Ready(); err != nil {
		return nil, err
	}

	receipt, balance, err := c.charge(ctx, email, req.Kind, cost)
	if err != nil {
		return nil, err
	}

	c.publishUsage(receipt, kafka.OutcomeCharged, 0, 0)
	c.notify("billing", fmt.Sprintf("%s charged <b>%d</b> credits for %s (balance %d)", email, receipt.Cost, req.Kind, balance))

	result, err := c.generator.Invoke(ctx, req)
	if err != nil {
		balance = c.settleFailure(ctx, receipt, balance, err)
		c.publishUsage(receipt, kafka.OutcomeFailed, 0, 0)
		c.notify("alerts", fmt.Sprintf("%s generation failed for %s: %s", req.Kind, email, err.Error()))
		return nil, err
	}

	c.publishUsage(receipt, kafka.OutcomeSucceeded, result.Attempts, result.Rotations)
	c.notify("billing", fmt.Sprintf("%s generation succeeded for %s after %d attempt(s)", req.Kind, email, result.Attempts))

	return &Outcome{
		Receipt:   *receipt,
		Artifact:  result.Artifact,
		Balance:   balance,
		Attempts:  result.Attempts,
		Rotations: result.Rotations,
	}, nil
}

// Charge debits a member for one operation without running it. Used by
// callers that meter externally produced work.
func (c *Coordinator) Charge(ctx context.Context, email string, kind models.OperationKind) (*models.Receipt, int64, error) {
	cost, err := c.pricer.Cost(ctx, kind)
	if err != nil {
		return nil, 0, err
	}
	receipt, balance, err := c.charge(ctx, email, kind, cost)
	if err != nil {
		return nil, 0, err
	}
	c.publishUsage(receipt, kafka.OutcomeCharged, 0, 0)
	return receipt, balance, nil
}

// Refresh returns the member's current state.
func (c *Coordinator) Refresh(ctx context.Context, email string) (*models.Member, error) {
	return c.ledger.Member(ctx, email)
}

func (c *Coordinator) charge(ctx context.Context, email string, kind models.OperationKind, cost int64) (*models.Receipt, int64, error) {
	charged := cost
	if c.ledger.IsAdmin(email) {
		charged = 0
	} else if err := c.ledger.Debit(ctx, email, cost); err != nil {
		return nil, 0, err
	}

	balance, err := c.ledger.Balance(ctx, email)
	if err != nil {
		balance = 0
	}

	receipt := &models.Receipt{
		ID:        uuid.New().String(),
		Email:     email,
		Kind:      string(kind),
		Cost:      charged,
		ChargedAt: time.Now().UTC(),
	}
	if err := c.ledger.SaveReceipt(ctx, receipt); err != nil {
		// The debit stands; a missing receipt row must not fail the request.
		c.logger.WithFields(logging.Fields{
			"receipt_id": receipt.ID,
			"email":      email,
			"error":      err.Error(),
		}).Error("Failed to persist receipt")
	}
	return receipt, balance, nil
}

// settleFailure applies the terminal-failure refund when enabled and returns
// the balance the caller should report.
func (c *Coordinator) settleFailure(ctx context.Context, receipt *models.Receipt, balance int64, cause error) int64 {
	if !c.refundOnFailure || receipt.Cost == 0 {
		return balance
	}
	// Cancellation does not qualify, only provider-terminal outcomes do.
	if errors.Is(cause, context.Canceled) {
		return balance
	}
	if err := c.ledger.Credit(ctx, receipt.Email, receipt.Cost); err != nil {
		c.logger.WithFields(logging.Fields{
			"receipt_id": receipt.ID,
			"email":      receipt.Email,
			"error":      err.Error(),
		}).Error("Failed to refund after terminal failure")
		return balance
	}
	if err := c.ledger.MarkReceiptRefunded(ctx, receipt.ID); err != nil {
		c.logger.WithFields(logging.Fields{
			"receipt_id": receipt.ID,
			"error":      err.Error(),
		}).Error("Failed to mark receipt refunded")
	}
	c.publishUsage(receipt, kafka.OutcomeRefunded, 0, 0)
	return balance + receipt.Cost
}

func (c *Coordinator) notify(channel, message string) {
	if c.notifier == nil {
		return
	}
	c.notifier.Send(channel, message)
}

func (c *Coordinator) publishUsage(receipt *models.Receipt, outcome string, attempts, rotations int) {
	if c.events == nil {
		return
	}
	event := &kafka.UsageEvent{
		EventID:   uuid.New().String(),
		ReceiptID: receipt.ID,
		Email:     receipt.Email,
		Kind:      receipt.Kind,
		Cost:      receipt.Cost,
		Outcome:   outcome,
		Attempts:  attempts,
		Rotations: rotations,
		Timestamp: time.Now().UTC(),
	}
	if err := c.events.PublishUsageEvent(event); err != nil {
		c.logger.WithFields(logging.Fields{
			"receipt_id": receipt.ID,
			"outcome":    outcome,
			"error":      err.Error(),
		}).Warn("Failed to publish usage event")
	}
}
