package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Simulator is a concurrency-safe in-memory ledger used by tests and
// development mode. It applies transactions atomically at submission: all
// transfers plus the network fee land together or the whole transaction is
// recorded as failed.
type Simulator struct {
	mu         sync.Mutex
	balances   map[string]int64
	statuses   map[string]Confirmation
	blockSeq   int
	networkFee int64
	rejectWith string
	stallNext  bool
}

// NewSimulator builds an empty simulated ledger charging networkFee lamports
// per transaction.
func NewSimulator(networkFee int64) *Simulator {
	return &Simulator{
		balances:   make(map[string]int64),
		statuses:   make(map[string]Confirmation),
		networkFee: networkFee,
	}
}

// SetBalance seeds an account balance.
func (s *Simulator) SetBalance(address string, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[address] = amount
}

// RejectNext makes the next submitted transaction fail with the given
// ledger-side reason.
func (s *Simulator) RejectNext(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectWith = reason
}

// StallNext makes the next submitted transaction land on the ledger without
// a confirmation ever becoming observable, forcing a timeout.
func (s *Simulator) StallNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stallNext = true
}

// GetBalance returns the balance for an address; unknown addresses hold zero.
func (s *Simulator) GetBalance(_ context.Context, address string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[address], nil
}

// LatestBlockReference returns a fresh pseudo blockhash.
func (s *Simulator) LatestBlockReference(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blockSeq++
	return fmt.Sprintf("block-%d", s.blockSeq), nil
}

// SubmitTransaction verifies and applies the transaction atomically. The
// balance check happens here, under the same lock as the mutation, so a
// stale earlier read can never double-spend.
func (s *Simulator) SubmitTransaction(_ context.Context, tx *Transaction) (string, error) {
	if err := tx.Verify(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.Signature == "" {
		return "", errors.New("transaction is unsigned")
	}
	if _, exists := s.statuses[tx.Signature]; exists {
		return tx.Signature, nil
	}

	stalled := s.stallNext
	s.stallNext = false

	if s.rejectWith != "" {
		reason := s.rejectWith
		s.rejectWith = ""
		s.statuses[tx.Signature] = Confirmation{Status: ConfirmFailed, Reason: reason}
		return tx.Signature, nil
	}

	debits := map[string]int64{tx.FeePayer: s.networkFee}
	for _, tr := range tx.Transfers {
		debits[tr.From] += tr.Amount
	}
	for address, owed := range debits {
		if s.balances[address] < owed {
			s.statuses[tx.Signature] = Confirmation{Status: ConfirmFailed, Reason: "insufficient funds for transaction"}
			return tx.Signature, nil
		}
	}

	s.balances[tx.FeePayer] -= s.networkFee
	for _, tr := range tx.Transfers {
		s.balances[tr.From] -= tr.Amount
		s.balances[tr.To] += tr.Amount
	}

	if !stalled {
		s.statuses[tx.Signature] = Confirmation{Status: ConfirmConfirmed}
	}
	return tx.Signature, nil
}

// ConfirmTransaction waits for the transaction's status to become
// observable, up to timeout.
func (s *Simulator) ConfirmTransaction(ctx context.Context, signature string, timeout time.Duration) (Confirmation, error) {
	deadline := time.Now().Add(timeout)
	for {
		s.mu.Lock()
		conf, ok := s.statuses[signature]
		s.mu.Unlock()
		if ok {
			return conf, nil
		}
		if time.Now().After(deadline) {
			return Confirmation{Status: ConfirmTimedOut}, nil
		}
		select {
		case <-ctx.Done():
			return Confirmation{Status: ConfirmTimedOut}, nil
		case <-time.After(5 * time.Millisecond):
		}
	}
}
