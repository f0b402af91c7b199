package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testAccounts() []Account {
	return []Account{
		{
			Email:  "alice@example.com",
			Name:   "Alice",
			Tokens: Tokens{"access": "tok-a", "refresh": "ref-a"},
		},
		{
			Email:  "bob@example.com",
			Name:   "Bob",
			Tokens: Tokens{"access": "tok-b", "refresh": "ref-b", "scope": "mail"},
		},
	}
}

func TestDecodeDefensive(t *testing.T) {
	tests := []struct {
		name   string
		opaque string
	}{
		{name: "empty string", opaque: ""},
		{name: "not base64", opaque: "%%%not-base64%%%"},
		{name: "base64 but not json", opaque: Encode(nil)[:3] + "zzzz"},
		{name: "json but wrong shape", opaque: "eyJmb28iOiJiYXIifQ"}, // {"foo":"bar"}
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, Decode(tt.opaque))
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	accounts := testAccounts()
	decoded := Decode(Encode(accounts))

	assert.Equal(t, accounts, decoded)
	// Opaque token keys survive the round trip.
	assert.Equal(t, "mail", decoded[1].Tokens["scope"])
}

func TestLookup(t *testing.T) {
	accounts := testAccounts()

	tok := Lookup(accounts, "bob@example.com")
	assert.Equal(t, "tok-b", tok.Access())
	assert.Equal(t, "ref-b", tok.Refresh())

	assert.Nil(t, Lookup(accounts, "carol@example.com"))
	assert.Nil(t, Lookup(nil, "alice@example.com"))
}

func TestUpsert(t *testing.T) {
	accounts := testAccounts()

	// Replace keeps position.
	replaced := Upsert(accounts, Account{Email: "alice@example.com", Name: "Alice 2", Tokens: Tokens{"access": "new"}})
	assert.Len(t, replaced, 2)
	assert.Equal(t, "Alice 2", replaced[0].Name)
	assert.Equal(t, "new", replaced[0].Tokens.Access())
	// Original list untouched.
	assert.Equal(t, "Alice", accounts[0].Name)

	// New account appends.
	appended := Upsert(accounts, Account{Email: "carol@example.com", Name: "Carol"})
	assert.Len(t, appended, 3)
	assert.Equal(t, "carol@example.com", appended[2].Email)
}

func TestRemove(t *testing.T) {
	accounts := testAccounts()

	out := Remove(accounts, "alice@example.com")
	assert.Len(t, out, 1)
	assert.Equal(t, "bob@example.com", out[0].Email)

	// Removing an unknown account is a no-op.
	assert.Len(t, Remove(accounts, "carol@example.com"), 2)
}

func TestSummaries(t *testing.T) {
	got := Summaries(testAccounts())
	assert.Equal(t, []Summary{
		{Email: "alice@example.com", Name: "Alice"},
		{Email: "bob@example.com", Name: "Bob"},
	}, got)
}

func TestSenderListRoundTrip(t *testing.T) {
	senders := []string{"news@letters.example", "promo@shop.example"}
	assert.Equal(t, senders, DecodeSenders(EncodeSenders(senders)))

	assert.Empty(t, DecodeSenders(""))
	assert.Empty(t, DecodeSenders("!!!"))
}
