package outline

import (
	"encoding/json"
	"fmt"
)

// ActionType names a reducer transition.
type ActionType string

// Action kinds accepted by the reducer. This is the complete mutation surface of a TreeState.
const (
	ActionSetText             ActionType = "SET_TEXT"
	ActionToggleExpanded      ActionType = "TOGGLE_EXPANDED"
	ActionSetGenerated        ActionType = "SET_GENERATED"
	ActionAddNode             ActionType = "ADD_NODE"
	ActionDeleteChildren      ActionType = "DELETE_CHILDREN"
	ActionMergeRemoteChildren ActionType = "MERGE_REMOTE_CHILDREN"
	ActionResetState          ActionType = "RESET_STATE"
)

// ActionTypes lists every action kind, in declaration order.
var ActionTypes = []ActionType{
	ActionSetText,
	ActionToggleExpanded,
	ActionSetGenerated,
	ActionAddNode,
	ActionDeleteChildren,
	ActionMergeRemoteChildren,
	ActionResetState,
}

// Action is a typed reducer input. Which fields are meaningful depends on Type.
type Action struct {
	Type ActionType
	Path string
	Text string
	// Value is the optional target of TOGGLE_EXPANDED (nil flips) and the flag of SET_GENERATED.
	Value *bool
	// State carries the patch of MERGE_REMOTE_CHILDREN and the replacement of RESET_STATE.
	State TreeState
}

// SetText replaces the node's text; a changed text clears its generated flag.
func SetText(path, text string) Action {
	return Action{Type: ActionSetText, Path: path, Text: text}
}

// ToggleExpanded flips the node's expansion.
func ToggleExpanded(path string) Action {
	return Action{Type: ActionToggleExpanded, Path: path}
}

// SetExpanded forces the node's expansion to value.
func SetExpanded(path string, value bool) Action {
	return Action{Type: ActionToggleExpanded, Path: path, Value: &value}
}

// SetGenerated sets the node's has-generated-children flag.
func SetGenerated(path string, hasGenerated bool) Action {
	return Action{Type: ActionSetGenerated, Path: path, Value: &hasGenerated}
}

// AddNode inserts a fresh record at path and registers it with its parent.
func AddNode(path, text string) Action {
	return Action{Type: ActionAddNode, Path: path, Text: text}
}

// DeleteChildren removes every descendant of path, keeping path itself.
func DeleteChildren(path string) Action {
	return Action{Type: ActionDeleteChildren, Path: path}
}

// MergeRemoteChildren folds patch into the state, keeping local expansion and flags.
func MergeRemoteChildren(patch TreeState) Action {
	return Action{Type: ActionMergeRemoteChildren, State: patch}
}

// ResetState replaces the whole state; a nil state resets to InitialState.
func ResetState(state TreeState) Action {
	return Action{Type: ActionResetState, State: state}
}

// actionPayload is the wire form of every action's payload.
type actionPayload struct {
	NodePath     string    `json:"node_path,omitempty"`
	Text         *string   `json:"text,omitempty"`
	Value        *bool     `json:"value,omitempty"`
	HasGenerated *bool     `json:"has_generated,omitempty"`
	NewState     TreeState `json:"new_state,omitempty"`
}

type actionEnvelope struct {
	Type    ActionType    `json:"type"`
	Payload actionPayload `json:"payload"`
}

// MarshalJSON encodes the action as {"type": ..., "payload": {...}}.
func (a Action) MarshalJSON() ([]byte, error) {
	env := actionEnvelope{Type: a.Type}
	switch a.Type {
	case ActionSetText, ActionAddNode:
		text := a.Text
		env.Payload = actionPayload{NodePath: a.Path, Text: &text}
	case ActionToggleExpanded:
		env.Payload = actionPayload{NodePath: a.Path, Value: a.Value}
	case ActionSetGenerated:
		env.Payload = actionPayload{NodePath: a.Path, HasGenerated: a.Value}
	case ActionDeleteChildren:
		env.Payload = actionPayload{NodePath: a.Path}
	case ActionMergeRemoteChildren, ActionResetState:
		env.Payload = actionPayload{NewState: a.State}
	default:
		return nil, fmt.Errorf("unknown action type %q", a.Type)
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the envelope form produced by MarshalJSON.
func (a *Action) UnmarshalJSON(data []byte) error {
	var env actionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	*a = Action{Type: env.Type, Path: env.Payload.NodePath}
	switch env.Type {
	case ActionSetText, ActionAddNode:
		if env.Payload.Text != nil {
			a.Text = *env.Payload.Text
		}
	case ActionToggleExpanded:
		a.Value = env.Payload.Value
	case ActionSetGenerated:
		hasGenerated := env.Payload.HasGenerated != nil && *env.Payload.HasGenerated
		a.Value = &hasGenerated
	case ActionDeleteChildren:
	case ActionMergeRemoteChildren, ActionResetState:
		a.State = env.Payload.NewState
	default:
		return fmt.Errorf("unknown action type %q", env.Type)
	}
	return nil
}

// TargetsPath reports whether the action addresses a single node path.
func (a Action) TargetsPath() bool {
	switch a.Type {
	case ActionMergeRemoteChildren, ActionResetState:
		return false
	default:
		return true
	}
}
