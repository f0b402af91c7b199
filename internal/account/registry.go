package account

import (
	"encoding/base64"
	"encoding/json"
)

// Tokens holds the provider credentials for one account. The "access" and
// "refresh" keys are the ones this server reads; any additional keys are
// carried through the codec untouched so callers can round-trip state the
// server does not interpret.
type Tokens map[string]string

// Access returns the provider access token, or "" if absent.
func (t Tokens) Access() string {
	return t["access"]
}

// Refresh returns the provider refresh token, or "" if absent.
func (t Tokens) Refresh() string {
	return t["refresh"]
}

// Account is one connected mail account.
type Account struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Tokens Tokens `json:"tokens"`
}

// Summary is the token-free projection of an Account reported to callers.
type Summary struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Decode parses an opaque account blob. Any decode or parse failure yields
// an empty list; it never returns an error.
func Decode(opaque string) []Account {
	if opaque == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(opaque)
	if err != nil {
		// Callers may hand us padded or standard-alphabet encodings.
		raw, err = base64.StdEncoding.DecodeString(opaque)
		if err != nil {
			return nil
		}
	}
	var accounts []Account
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil
	}
	return accounts
}

// Encode serializes accounts into the opaque blob form Decode accepts.
func Encode(accounts []Account) string {
	if len(accounts) == 0 {
		accounts = []Account{}
	}
	raw, err := json.Marshal(accounts)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Lookup returns the tokens for the first account matching email exactly,
// or nil if the account is not connected.
func Lookup(accounts []Account, email string) Tokens {
	for _, a := range accounts {
		if a.Email == email {
			return a.Tokens
		}
	}
	return nil
}

// Upsert replaces the account with the same email, or appends if absent.
// Order of existing accounts is preserved.
func Upsert(accounts []Account, acct Account) []Account {
	for i, a := range accounts {
		if a.Email == acct.Email {
			out := make([]Account, len(accounts))
			copy(out, accounts)
			out[i] = acct
			return out
		}
	}
	return append(append([]Account{}, accounts...), acct)
}

// Remove filters out the account with the given email.
func Remove(accounts []Account, email string) []Account {
	out := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		if a.Email != email {
			out = append(out, a)
		}
	}
	return out
}

// Summaries returns the token-free projection of accounts.
func Summaries(accounts []Account) []Summary {
	out := make([]Summary, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, Summary{Email: a.Email, Name: a.Name})
	}
	return out
}

// DecodeSenders parses the opaque previously-unsubscribed sender list.
// Same defensive contract as Decode: corrupt input yields an empty list.
func DecodeSenders(opaque string) []string {
	if opaque == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(opaque)
	if err != nil {
		raw, err = base64.StdEncoding.DecodeString(opaque)
		if err != nil {
			return nil
		}
	}
	var senders []string
	if err := json.Unmarshal(raw, &senders); err != nil {
		return nil
	}
	return senders
}

// EncodeSenders serializes the sender list into its opaque blob form.
func EncodeSenders(senders []string) string {
	if len(senders) == 0 {
		senders = []string{}
	}
	raw, err := json.Marshal(senders)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}
