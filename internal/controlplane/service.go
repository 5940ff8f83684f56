// Package controlplane provides the HTTP API and service layer for the
// dispatcher daemon.
package controlplane

import (
	"context"
	"errors"
	"fmt"

	"github.com/TanveerShahriar/Thesis/internal/audit"
	"github.com/TanveerShahriar/Thesis/internal/estimate"
	"github.com/TanveerShahriar/Thesis/internal/models"
	"github.com/TanveerShahriar/Thesis/internal/scheduler"
	"github.com/TanveerShahriar/Thesis/internal/slots"
	"github.com/TanveerShahriar/Thesis/internal/store"
)

// Service provides the control plane business logic.
type Service struct {
	store    *store.Store
	pdr      *audit.PDRWriter
	pool     *scheduler.Pool
	resolver *estimate.Resolver
}

// NewService creates a new control plane service.
func NewService(s *store.Store, pdr *audit.PDRWriter, pool *scheduler.Pool) *Service {
	return &Service{
		store:    s,
		pdr:      pdr,
		pool:     pool,
		resolver: estimate.NewResolver(),
	}
}

// FunctionView is a catalog entry together with its dispatch table ID.
type FunctionView struct {
	models.FunctionInfo
	FunctionID   int  `json:"function_id"`
	Dispatchable bool `json:"dispatchable"`
}

// InvokeResult describes an admitted invocation.
type InvokeResult struct {
	Function string `json:"function"`
	Slot     int    `json:"slot"`
	Weight   int64  `json:"weight"`
	Fallback bool   `json:"fallback"`
}

// SlotResult is the state of an invocation slot.
type SlotResult struct {
	Done   bool `json:"done"`
	Result any  `json:"result,omitempty"`
}

// Ping checks the database.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ListFunctions returns all catalog entries. Entries without a function body
// in the dispatch table are listed with FunctionID -1.
func (s *Service) ListFunctions() ([]FunctionView, error) {
	infos, err := s.store.ListFunctions()
	if err != nil {
		return nil, err
	}
	out := make([]FunctionView, 0, len(infos))
	for _, info := range infos {
		v := FunctionView{FunctionInfo: info, FunctionID: -1}
		if e, ok := s.pool.Table().ByName(info.Signature); ok {
			v.FunctionID = int(e.ID)
			v.Dispatchable = true
		}
		out = append(out, v)
	}
	return out, nil
}

// Invoke resolves the task weight for signature and admits the invocation.
func (s *Service) Invoke(signature string, args []any) (*InvokeResult, error) {
	entry, ok := s.pool.Table().ByName(signature)
	if !ok {
		return nil, fmt.Errorf("%s: %w", signature, ErrUnknownFunction)
	}
	if len(args) != entry.Arity {
		return nil, fmt.Errorf("%s takes %d arguments, got %d: %w", signature, entry.Arity, len(args), ErrBadArguments)
	}

	info, err := s.store.GetFunction(signature)
	if err != nil {
		return nil, err
	}
	if info == nil {
		info = &models.FunctionInfo{Signature: signature}
	}
	weight, fellBack := s.resolver.Weight(info, args)

	inputs := map[string]any{"function": signature, "args": args}
	slot, err := s.pool.Submit(entry.ID, weight, args...)
	if err != nil {
		s.pdr.Record(audit.ActionInvoke, inputs, "rejected", signature, err.Error())
		if errors.Is(err, scheduler.ErrShutdown) || errors.Is(err, scheduler.ErrNotInitialized) {
			return nil, ErrShuttingDown
		}
		if errors.Is(err, scheduler.ErrBadArguments) {
			return nil, fmt.Errorf("%v: %w", err, ErrBadArguments)
		}
		return nil, err
	}

	s.pdr.Record(audit.ActionInvoke, inputs, "accepted", signature,
		fmt.Sprintf("slot=%d weight=%d fallback=%v", slot, weight, fellBack))
	return &InvokeResult{Function: signature, Slot: slot, Weight: weight, Fallback: fellBack}, nil
}

// Poll reports the state of a slot.
func (s *Service) Poll(signature string, slot int) (*SlotResult, error) {
	entry, ok := s.pool.Table().ByName(signature)
	if !ok {
		return nil, fmt.Errorf("%s: %w", signature, ErrUnknownFunction)
	}
	done, res, err := s.pool.PollResult(entry.ID, slot)
	if err != nil {
		return nil, mapSlotError(err)
	}
	if !done {
		return &SlotResult{}, nil
	}
	return &SlotResult{Done: true, Result: res}, nil
}

// Release hands a finished slot back to the pool.
func (s *Service) Release(signature string, slot int) error {
	entry, ok := s.pool.Table().ByName(signature)
	if !ok {
		return fmt.Errorf("%s: %w", signature, ErrUnknownFunction)
	}
	return mapSlotError(s.pool.ReleaseSlot(entry.ID, slot))
}

// Workers returns pool statistics.
func (s *Service) Workers() models.PoolStats {
	return s.pool.Stats()
}

func mapSlotError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, slots.ErrSlotOutOfRange), errors.Is(err, slots.ErrSlotNotAcquired):
		return fmt.Errorf("%v: %w", err, ErrNotFound)
	case errors.Is(err, slots.ErrSlotPending):
		return fmt.Errorf("%v: %w", err, ErrNotReady)
	default:
		return err
	}
}
