package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pgtask-dev/pgtask"
	"github.com/pgtask-dev/pgtask/internal/logger"
)

// JobStep is a small sum-type example step: Kind selects which branch
// of Step runs, demonstrating a single-step completion (echo), a
// self-rescheduling delayed step (sleep), and a step that always
// errors and parks (fail).
type JobStep struct {
	pgtask.DefaultRetryPolicy
	Kind    string                 `json:"kind"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

func (s JobStep) RetryLimit() int { return 3 }

func (s JobStep) Step(ctx context.Context, h *pgtask.Handle) (pgtask.Outcome[JobStep], error) {
	switch s.Kind {
	case "echo":
		logger.Info().Interface("payload", s.Payload).Msg("echo job ran")
		return pgtask.Done[JobStep](), nil

	case "sleep":
		delay := time.Second
		if d, ok := s.Payload["duration_ms"].(float64); ok {
			delay = time.Duration(d) * time.Millisecond
		}
		if _, done := s.Payload["slept"]; done {
			logger.Info().Msg("sleep job woke up")
			return pgtask.Done[JobStep](), nil
		}
		payload := map[string]interface{}{"slept": true}
		return pgtask.NextDelayed(JobStep{Kind: "sleep", Payload: payload}, delay), nil

	case "compute":
		iterations := 1_000_000
		if n, ok := s.Payload["iterations"].(float64); ok {
			iterations = int(n)
		}
		sum := 0
		for i := 0; i < iterations; i++ {
			select {
			case <-ctx.Done():
				return pgtask.Outcome[JobStep]{}, ctx.Err()
			default:
				sum += i
			}
		}
		logger.Info().Int("result", sum).Msg("compute job finished")
		return pgtask.Done[JobStep](), nil

	case "fail":
		return pgtask.Outcome[JobStep]{}, fmt.Errorf("intentional failure for %s", s.Kind)

	default:
		return pgtask.Outcome[JobStep]{}, fmt.Errorf("unknown job kind %q", s.Kind)
	}
}
