package common

import (
	"testing"

	"github.com/inboxpilot/inboxpilot/internal/account"
)

func TestAccountFromArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]interface{}
		expected string
	}{
		{
			name:     "no account fields returns empty",
			args:     map[string]interface{}{},
			expected: "",
		},
		{
			name: "accountEmail field",
			args: map[string]interface{}{
				"accountEmail": "work@example.com",
			},
			expected: "work@example.com",
		},
		{
			name: "account field",
			args: map[string]interface{}{
				"account": "personal@example.com",
			},
			expected: "personal@example.com",
		},
		{
			name: "accountEmail wins over account",
			args: map[string]interface{}{
				"accountEmail": "a@example.com",
				"account":      "b@example.com",
			},
			expected: "a@example.com",
		},
		{
			name: "account nested in message object",
			args: map[string]interface{}{
				"email": map[string]interface{}{
					"id":      "m1",
					"account": "nested@example.com",
				},
			},
			expected: "nested@example.com",
		},
		{
			name:     "nil args returns empty",
			args:     nil,
			expected: "",
		},
		{
			name: "non-string account type returns empty",
			args: map[string]interface{}{
				"account": 123,
			},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AccountFromArgs(tt.args)
			if result != tt.expected {
				t.Errorf("AccountFromArgs() = %q, expected %q", result, tt.expected)
			}
		})
	}
}

func TestSessionAccountsRoundTrip(t *testing.T) {
	accounts := []account.Account{
		{Email: "a@example.com", Name: "A", Tokens: account.Tokens{"access": "tok-a"}},
		{Email: "b@example.com", Name: "B", Tokens: account.Tokens{"access": "tok-b"}},
	}
	args := map[string]interface{}{
		"accounts": account.Encode(accounts),
	}

	decoded := SessionAccounts(args)
	if len(decoded) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(decoded))
	}
	if decoded[0].Email != "a@example.com" || decoded[1].Email != "b@example.com" {
		t.Errorf("unexpected accounts: %+v", decoded)
	}
	if decoded[0].Tokens.Access() != "tok-a" {
		t.Errorf("tokens not preserved: %+v", decoded[0].Tokens)
	}
}

func TestSessionAccountsDefensiveDecode(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{name: "missing argument", args: map[string]interface{}{}},
		{name: "wrong type", args: map[string]interface{}{"accounts": 42}},
		{name: "corrupt blob", args: map[string]interface{}{"accounts": "!!not-base64!!"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SessionAccounts(tt.args); len(got) != 0 {
				t.Errorf("expected empty list, got %+v", got)
			}
		})
	}
}

func TestSessionSenders(t *testing.T) {
	args := map[string]interface{}{
		"unsubscribedSenders": account.EncodeSenders([]string{"deals@shop.example"}),
	}
	senders := SessionSenders(args)
	if len(senders) != 1 || senders[0] != "deals@shop.example" {
		t.Errorf("unexpected senders: %v", senders)
	}

	if got := SessionSenders(map[string]interface{}{}); len(got) != 0 {
		t.Errorf("expected empty list for missing argument, got %v", got)
	}
}
