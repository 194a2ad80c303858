package ledger

import "errors"

// ErrInsufficientCredit is the expected business outcome when a free account
// has no credits left. Callers surface it as an upgrade prompt, never as a
// system error.
var ErrInsufficientCredit = errors.New("insufficient generation credits")

// ErrUnresolvedUser means a billing event carried no user id or customer ref
// that matches a local account. Webhook ingestion must still acknowledge the
// event; the mismatch is an operational-log concern only.
var ErrUnresolvedUser = errors.New("billing event does not resolve to a user")
