package ledger

import (
	"fmt"

	"github.com/garyjia/approval-ledger/internal/domain/entity"
	domainwf "github.com/garyjia/approval-ledger/internal/domain/workflow"
)

// Replay folds an audit trail from DRAFT and returns the state it ends in.
// A record whose from_state does not continue the chain, or whose pair is off
// the allow-list, fails with ErrInvalidTransition; a record after a terminal
// state fails with ErrAlreadyCompleted.
func Replay(records []entity.TransitionRecord) (domainwf.State, error) {
	m := domainwf.NewMachine(domainwf.StateDraft)
	for i, rec := range records {
		if rec.FromState != m.State() {
			return m.State(), fmt.Errorf("%w: record %d starts at %s, chain is at %s",
				domainwf.ErrInvalidTransition, i, rec.FromState, m.State())
		}
		if err := m.Fire(rec.ToState); err != nil {
			return m.State(), fmt.Errorf("record %d: %w", i, err)
		}
	}
	return m.State(), nil
}

// Verify checks that a stored record is consistent with its own audit trail
func Verify(w *entity.WorkflowData, records []entity.TransitionRecord) error {
	final, err := Replay(records)
	if err != nil {
		return err
	}
	if final != w.CurrentState {
		return fmt.Errorf("%w: history ends at %s but record is at %s",
			domainwf.ErrInvalidTransition, final, w.CurrentState)
	}
	if w.IsCompleted != w.CurrentState.IsTerminal() {
		return fmt.Errorf("%w: is_completed=%t disagrees with state %s",
			domainwf.ErrInvalidArgument, w.IsCompleted, w.CurrentState)
	}
	if w.UpdatedAt < w.CreatedAt {
		return fmt.Errorf("%w: updated_at %d precedes created_at %d",
			domainwf.ErrInvalidArgument, w.UpdatedAt, w.CreatedAt)
	}
	return nil
}
