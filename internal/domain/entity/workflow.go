package entity

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	domainwf "github.com/garyjia/approval-ledger/internal/domain/workflow"
)

// WorkflowData is the on-ledger record of one workflow instance.
// Only hashes of the template and business data are kept; the documents stay off-chain.
type WorkflowData struct {
	ID           uint256.Int    `json:"id"`
	TemplateHash Hash           `json:"template_hash"`
	DataHash     Hash           `json:"data_hash"`
	CurrentState domainwf.State `json:"current_state"`
	Creator      AccountHash    `json:"creator"`
	CreatedAt    uint64         `json:"created_at"`
	UpdatedAt    uint64         `json:"updated_at"`
	IsCompleted  bool           `json:"is_completed"`
}

// TransitionRecord is one entry of a workflow's audit trail
type TransitionRecord struct {
	FromState   domainwf.State `json:"from_state"`
	ToState     domainwf.State `json:"to_state"`
	Actor       AccountHash    `json:"actor"`
	ActorRole   Role           `json:"actor_role"`
	Timestamp   uint64         `json:"timestamp"`
	CommentHash Hash           `json:"comment_hash"`
}

// NewWorkflow builds the DRAFT record produced by workflow creation
func NewWorkflow(id *uint256.Int, templateHash, dataHash Hash, creator AccountHash, now uint64) *WorkflowData {
	return &WorkflowData{
		ID:           *id,
		TemplateHash: templateHash,
		DataHash:     dataHash,
		CurrentState: domainwf.StateDraft,
		Creator:      creator,
		CreatedAt:    now,
		UpdatedAt:    now,
		IsCompleted:  false,
	}
}

// Apply moves the record to a new state, stamps it with now and recomputes
// the completion flag. It performs no validation; callers consult the state
// table first. updated_at always equals the timestamp of the latest audit
// record, so ordering against created_at is the clock's responsibility.
func (w *WorkflowData) Apply(to domainwf.State, now uint64) {
	w.CurrentState = to
	w.UpdatedAt = now
	w.IsCompleted = to.IsTerminal()
}

// WorkflowKey is the storage key of a workflow id: its decimal representation
func WorkflowKey(id *uint256.Int) string {
	return id.Dec()
}

// ParseWorkflowID accepts a decimal id or a 0x-prefixed hex id
func ParseWorkflowID(s string) (*uint256.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: workflow_id", domainwf.ErrMissingArgument)
	}
	var (
		id  *uint256.Int
		err error
	)
	if strings.HasPrefix(s, "0x") {
		id, err = uint256.FromHex(s)
	} else {
		id, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: workflow_id %q: %v", domainwf.ErrInvalidArgument, s, err)
	}
	return id, nil
}
