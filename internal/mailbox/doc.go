// Package mailbox implements the Gmail-backed mail pipeline: fetching and
// normalizing raw provider messages, executing the action vocabulary as
// label mutations, and resolving unsubscribe requests.
//
// The package is organized around a small Mailbox interface describing the
// provider operations the pipeline needs (list/get/modify/trash/send).
// The concrete Client implements it against the Gmail API using tokens
// resolved from the account registry; tests substitute fakes.
//
// Visibility contract: a message is part of the working set if and only if
// it carries both the INBOX and UNREAD labels. IsVisible is the single
// predicate encoding that rule; the fetcher's listing query and every
// terminal action are written against it. Each terminal action removes at
// least one of the two labels so the message cannot reappear on the next
// fetch.
package mailbox
