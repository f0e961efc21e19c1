// Package campaign implements the campaign dispatch pipeline: recipient
// estimation, sending (filter compile -> resolve -> personalize -> queue
// write -> run ledger), schedule mutation under the lock window, and the
// operations that keep the ledger honest.
//
// The service layer contains all business logic and depends only on the
// interfaces defined in this package. Repository implementations live in
// repository/postgres/; the dispatch store client lives in
// internal/dispatch.
package campaign
