package common

import (
	"github.com/inboxpilot/inboxpilot/internal/account"
)

// AccountFromArgs extracts the target account email from request
// arguments. Tools name the field differently (inbox_perform_action
// nests it in the message, inbox_unsubscribe uses "accountEmail"), so
// the known keys are checked in order. Returns "" when none is present.
func AccountFromArgs(args map[string]interface{}) string {
	for _, key := range []string{"accountEmail", "account"} {
		if v, ok := args[key].(string); ok && v != "" {
			return v
		}
	}
	if msg, ok := args["email"].(map[string]interface{}); ok {
		if v, ok := msg["account"].(string); ok {
			return v
		}
	}
	return ""
}

// SessionAccounts decodes the caller-supplied opaque accounts blob from
// request arguments. Missing or corrupt input yields an empty list.
func SessionAccounts(args map[string]interface{}) []account.Account {
	blob, _ := args["accounts"].(string)
	return account.Decode(blob)
}

// SessionSenders decodes the caller-supplied list of previously
// unsubscribed senders. Missing or corrupt input yields an empty list.
func SessionSenders(args map[string]interface{}) []string {
	blob, _ := args["unsubscribedSenders"].(string)
	return account.DecodeSenders(blob)
}
