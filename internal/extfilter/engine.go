// Package extfilter decides whether a file name may be uploaded, based on the
// fixed and custom extension registries.
package extfilter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"extfilter/internal/domain"
	"extfilter/internal/metrics"
)

const defaultBatchConcurrency = 8

var ErrUnrecognizedExtension = errors.New("file extension could not be determined")

// FixedLookup is the read side of the fixed registry.
type FixedLookup interface {
	Lookup(ctx context.Context, name string) (blocked bool, found bool, err error)
}

// CustomLookup is the read side of the custom registry.
type CustomLookup interface {
	Contains(ctx context.Context, name string) (bool, error)
}

type Reason string

const (
	ReasonNone   Reason = ""
	ReasonFixed  Reason = "fixed"
	ReasonCustom Reason = "custom"
)

type Decision struct {
	Extension string
	Allowed   bool
	Reason    Reason
}

// FileResult is one entry of a batch validation. Err is only ever
// ErrUnrecognizedExtension; storage faults fail the whole batch.
type FileResult struct {
	FileName string
	Decision Decision
	Err      error
}

type Engine struct {
	fixed            FixedLookup
	custom           CustomLookup
	batchConcurrency int
}

func NewEngine(fixed FixedLookup, custom CustomLookup) *Engine {
	return &Engine{
		fixed:            fixed,
		custom:           custom,
		batchConcurrency: defaultBatchConcurrency,
	}
}

// ExtractExtension returns the lowercased text after the last dot, or "" when
// there is no dot or nothing follows it.
func ExtractExtension(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

// Validate blocks the file when its extension is a blocked fixed extension or a
// registered custom extension. The registries are disjoint, so at most one of
// the two checks can match.
func (e *Engine) Validate(ctx context.Context, filename string) (Decision, error) {
	ext := ExtractExtension(filename)
	if ext == "" {
		metrics.ValidationsTotal.WithLabelValues(metrics.ResultUnrecognized).Inc()
		return Decision{}, fmt.Errorf("%w: %q", ErrUnrecognizedExtension, filename)
	}

	decision := Decision{Extension: ext, Allowed: true}

	// Registered names always satisfy the name rules, so anything else
	// (trailing spaces included) matches no entry.
	if !domain.IsValidExtensionName(ext) {
		metrics.ValidationsTotal.WithLabelValues(metrics.ResultAllowed).Inc()
		return decision, nil
	}

	blocked, found, err := e.fixed.Lookup(ctx, ext)
	if err != nil {
		return Decision{}, fmt.Errorf("validate %q: %w", filename, err)
	}
	if found && blocked {
		decision.Allowed = false
		decision.Reason = ReasonFixed
	} else {
		custom, err := e.custom.Contains(ctx, ext)
		if err != nil {
			return Decision{}, fmt.Errorf("validate %q: %w", filename, err)
		}
		if custom {
			decision.Allowed = false
			decision.Reason = ReasonCustom
		}
	}

	if decision.Allowed {
		metrics.ValidationsTotal.WithLabelValues(metrics.ResultAllowed).Inc()
	} else {
		metrics.ValidationsTotal.WithLabelValues(metrics.ResultBlocked).Inc()
	}
	return decision, nil
}

// ValidateAll validates every name concurrently and returns results in input order.
func (e *Engine) ValidateAll(ctx context.Context, filenames []string) ([]FileResult, error) {
	results := make([]FileResult, len(filenames))
	if len(filenames) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.batchConcurrency)

	for idx, name := range filenames {
		g.Go(func() error {
			decision, err := e.Validate(gctx, name)
			results[idx] = FileResult{FileName: name, Decision: decision}
			if err != nil {
				if errors.Is(err, ErrUnrecognizedExtension) {
					results[idx].Err = ErrUnrecognizedExtension
					return nil
				}
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
