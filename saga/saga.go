package saga

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/cenkalti/backoff/v4"
	"github.com/eve-ticketing/tickets/metrics"
	"github.com/sirupsen/logrus"
)

// Step is a single forward action of a saga. Compensate undoes a successful
// Action when a later step fails. Escalate receives a compensation (or a
// finalizer) that still fails after retries and must hand it to something
// durable.
//
// Uncertain reports whether a failed Action may still have taken effect,
// like a remote call that timed out. Such a step is compensated too.
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
	Escalate   func(ctx context.Context, cause error) error
	Uncertain  func(err error) bool
}

type Option func(*Saga)

// WithBackOff replaces the retry policy used for compensations and
// finalizers.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(s *Saga) {
		s.newBackOff = newBackOff
	}
}

type Saga struct {
	name       string
	steps      []Step
	finalizers []Step
	newBackOff func() backoff.BackOff
}

func New(name string, opts ...Option) *Saga {
	s := &Saga{
		name:       name,
		newBackOff: defaultBackOff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 5 * time.Second
	return b
}

func (s *Saga) AddStep(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// OnSuccess registers work that runs only after every step succeeded, like
// freeing the previous seat of an updated ticket. A failing finalizer is
// retried and escalated but never fails the saga.
func (s *Saga) OnSuccess(step Step) *Saga {
	s.finalizers = append(s.finalizers, step)
	return s
}

// Execute runs the steps in order. When a step fails every completed step
// (and the failed one, if its outcome is uncertain) is compensated in
// reverse order and the returned *Error wraps the failure
// of the step, so errors.As still finds the original cause.
func (s *Saga) Execute(ctx context.Context) error {
	logger := log.FromContext(ctx).WithField("saga", s.name)

	for i, step := range s.steps {
		err := step.Action(ctx)
		if err == nil {
			continue
		}

		logger.WithError(err).WithField("step", step.Name).Info("Saga step failed, compensating")

		last := i - 1
		if step.Uncertain != nil && step.Uncertain(err) {
			last = i
		}

		sagaErr := &Error{Saga: s.name, Step: step.Name, Err: err}
		for j := last; j >= 0; j-- {
			done := s.steps[j]
			if done.Compensate == nil {
				continue
			}
			if !s.resolve(ctx, done.Name, done.Compensate, done.Escalate) {
				sagaErr.Unresolved = append(sagaErr.Unresolved, done.Name)
			}
		}

		if len(sagaErr.Unresolved) > 0 {
			metrics.TrackSagaOutcome(s.name, metrics.OutcomeEscalated)
		} else {
			metrics.TrackSagaOutcome(s.name, metrics.OutcomeCompensated)
		}
		return sagaErr
	}

	for _, finalizer := range s.finalizers {
		s.resolve(ctx, finalizer.Name, finalizer.Action, finalizer.Escalate)
	}

	metrics.TrackSagaOutcome(s.name, metrics.OutcomeCompleted)
	return nil
}

// resolve retries fn and escalates it when retries run out. It reports
// false only when the work is neither done nor queued.
func (s *Saga) resolve(
	ctx context.Context,
	name string,
	fn func(ctx context.Context) error,
	escalate func(ctx context.Context, cause error) error,
) bool {
	// the caller going away must not leave half of the saga behind
	ctx = context.WithoutCancel(ctx)
	logger := log.FromContext(ctx).WithFields(logrus.Fields{"saga": s.name, "step": name})

	err := backoff.RetryNotify(
		func() error { return fn(ctx) },
		backoff.WithContext(s.newBackOff(), ctx),
		func(err error, next time.Duration) {
			logger.WithError(err).WithField("retry_in", next).Warn("Saga step compensation failed, retrying")
		},
	)
	if err == nil {
		metrics.TrackCompensation(name, metrics.ResultOK)
		return true
	}
	metrics.TrackCompensation(name, metrics.ResultFailed)

	if escalate == nil {
		logger.WithError(err).Error("Saga step could not be compensated and has no escalation")
		return false
	}
	if escErr := escalate(ctx, err); escErr != nil {
		logger.WithError(escErr).WithField("cause", err.Error()).Error("Could not escalate saga step")
		return false
	}

	logger.WithError(err).Warn("Saga step escalated to the compensation queue")
	return true
}

// Error is returned by Execute when a step failed.
type Error struct {
	Saga string
	Step string
	Err  error
	// Unresolved lists compensations that were neither done nor escalated.
	Unresolved []string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("saga %s failed at step %s: %v", e.Saga, e.Step, e.Err)
	if len(e.Unresolved) > 0 {
		msg += fmt.Sprintf(" (unresolved compensations: %s)", strings.Join(e.Unresolved, ", "))
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}
