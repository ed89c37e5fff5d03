package react

import (
	"context"
	"encoding/json"

	"github.com/aws-idp/agentcore/checkpoint"
	"github.com/aws-idp/agentcore/corerrors"
	"github.com/aws-idp/agentcore/model"
)

const snapshotDataKey = "snapshot_json"

// persistInterrupt saves enough state to resume the loop after a pending
// tool-call approval: the working message history, the tool calls awaiting
// approval, and the references gathered so far.
func (e *Engine) persistInterrupt(ctx context.Context, st *loopState, cfg Config, pending []model.ToolCall) error {
	snap := snapshot{
		ThreadID:       st.threadID,
		IndexID:        st.actx.IndexID,
		DocumentID:     st.actx.DocumentID,
		SegmentID:      st.actx.SegmentID,
		Query:          st.actx.UserQuery,
		Messages:       toWireMessages(st.messages),
		PendingCalls:   pending,
		ToolReferences: st.toolRefs,
		SystemPrompt:   st.systemPrompt,
		CostUSD:        st.costUSD,
		Config:         cfg,
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return corerrors.Wrap(corerrors.KindInternal, "encode interrupt snapshot", err)
	}
	state := checkpoint.State{
		ThreadID: st.threadID,
		Version:  1,
		Data:     map[string]any{snapshotDataKey: string(raw)},
	}
	if err := e.ckpt.UpdateState(ctx, state); err != nil {
		return corerrors.Wrap(corerrors.KindInternal, "persist interrupt state", err)
	}
	return nil
}

// decodeSnapshot recovers the snapshot persisted by persistInterrupt from a
// loaded checkpoint.State.
func decodeSnapshot(state checkpoint.State) (snapshot, error) {
	raw, ok := state.Data[snapshotDataKey].(string)
	if !ok {
		return snapshot{}, corerrors.New(corerrors.KindValidation, "checkpoint state missing interrupt snapshot")
	}
	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return snapshot{}, corerrors.Wrap(corerrors.KindValidation, "decode interrupt snapshot", err)
	}
	return snap, nil
}
