package model

import "encoding/json"

// TransitionRecord is one committed lifecycle transition of a strategy.
type TransitionRecord struct {
	ID          string            `json:"id"`
	RunID       string            `json:"run_id,omitempty"`
	Strategy    string            `json:"strategy"`
	Variant     string            `json:"variant"`
	From        string            `json:"from"`
	To          string            `json:"to"`
	BlockNumber uint64            `json:"block_number"`
	Caller      string            `json:"caller,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
	RecordedAt  string            `json:"recorded_at"`
}

// MarshalJSON ensures TransitionRecord is encoded with stable field names.
func (tr TransitionRecord) MarshalJSON() ([]byte, error) {
	type Alias TransitionRecord
	return json.Marshal(Alias(tr))
}

// UnmarshalJSON decodes a TransitionRecord from JSON.
func (tr *TransitionRecord) UnmarshalJSON(data []byte) error {
	type Alias TransitionRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*tr = TransitionRecord(a)
	return nil
}
