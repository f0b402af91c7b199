package inbox_tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/inboxpilot/inboxpilot/internal/mailbox"
)

func TestUnsubscribeHeaderLink(t *testing.T) {
	factory := newFakeFactory()
	box := factory.box("a@example.com")
	box.seed("m1", "Deals <deals@shop.example>", "50% off")
	box.messages["m1"].Payload.Headers = append(box.messages["m1"].Payload.Headers,
		&gmail.MessagePartHeader{Name: "List-Unsubscribe", Value: "<https://shop.example/u>"})
	sc := testServerContext(t, factory)

	args := map[string]interface{}{
		"accounts":     encodedAccounts("a@example.com"),
		"messageId":    "m1",
		"accountEmail": "a@example.com",
	}

	result, err := handleUnsubscribe(context.Background(), requestWithArgs(args), sc)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var out mailbox.UnsubscribeResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.True(t, out.Success)
	assert.Equal(t, mailbox.MethodLink, out.Method)
	assert.Equal(t, "https://shop.example/u", out.UnsubscribeURL)
	assert.Equal(t, "deals@shop.example", out.SenderEmail)

	// The message is always marked read.
	assert.False(t, mailbox.IsVisible(box.labels["m1"]))
}

func TestUnsubscribeNothingFound(t *testing.T) {
	factory := newFakeFactory()
	box := factory.box("a@example.com")
	box.seed("m1", "Deals <deals@shop.example>", "50% off")
	sc := testServerContext(t, factory)

	args := map[string]interface{}{
		"accounts":     encodedAccounts("a@example.com"),
		"messageId":    "m1",
		"accountEmail": "a@example.com",
	}

	result, err := handleUnsubscribe(context.Background(), requestWithArgs(args), sc)
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out mailbox.UnsubscribeResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.True(t, out.Success)
	assert.Equal(t, mailbox.MethodNone, out.Method)
	assert.Empty(t, out.UnsubscribeURL)
}

func TestUnsubscribeUnknownAccount(t *testing.T) {
	factory := newFakeFactory()
	sc := testServerContext(t, factory)

	args := map[string]interface{}{
		"accounts":     encodedAccounts("a@example.com"),
		"messageId":    "m1",
		"accountEmail": "nobody@example.com",
	}

	result, err := handleUnsubscribe(context.Background(), requestWithArgs(args), sc)
	require.NoError(t, err)
	require.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "account_not_found")
	assert.Equal(t, 0, factory.connectCount())
}

func TestUnsubscribeMissingArguments(t *testing.T) {
	factory := newFakeFactory()
	sc := testServerContext(t, factory)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{
			name: "missing messageId",
			args: map[string]interface{}{
				"accounts":     encodedAccounts("a@example.com"),
				"accountEmail": "a@example.com",
			},
		},
		{
			name: "missing accountEmail",
			args: map[string]interface{}{
				"accounts":  encodedAccounts("a@example.com"),
				"messageId": "m1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handleUnsubscribe(context.Background(), requestWithArgs(tt.args), sc)
			require.NoError(t, err)
			require.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), "unsubscribe_failed")
		})
	}
}

func TestRegisterInboxTools(t *testing.T) {
	assert.NotNil(t, RegisterInboxTools)
	assert.NotNil(t, RegisterListTools)
	assert.NotNil(t, RegisterActionTools)
	assert.NotNil(t, RegisterUnsubscribeTools)
}
