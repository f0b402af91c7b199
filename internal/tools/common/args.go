package common

import (
	"fmt"

	"github.com/inboxpilot/inboxpilot/internal/mailbox"
)

// ParseSnoozeTargets parses the snoozeIds argument: an array of
// {emailId, account} objects, with a single object accepted as a
// one-element batch.
func ParseSnoozeTargets(param interface{}) ([]mailbox.SnoozeTarget, error) {
	if param == nil {
		return nil, fmt.Errorf("snoozeIds is required")
	}

	var items []interface{}
	switch v := param.(type) {
	case map[string]interface{}:
		items = []interface{}{v}
	case []interface{}:
		items = v
	default:
		return nil, fmt.Errorf("snoozeIds must be an object or array of objects")
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("snoozeIds cannot be empty")
	}

	targets := make([]mailbox.SnoozeTarget, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("snoozeIds[%d] must be an object", i)
		}
		emailID, _ := obj["emailId"].(string)
		acct, _ := obj["account"].(string)
		if emailID == "" || acct == "" {
			return nil, fmt.Errorf("snoozeIds[%d] requires emailId and account", i)
		}
		targets = append(targets, mailbox.SnoozeTarget{EmailID: emailID, Account: acct})
	}
	return targets, nil
}
