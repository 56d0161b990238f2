// Package ledger defines how the market talks to the append-only ledger.
//
// The ledger is an external collaborator reached through Gateway: Submit
// sends one state-mutating operation as a signed transaction, Query reads
// the current record of one entity and Count returns how many ids of a
// kind have ever been assigned. Ids are taken from the events a receipt
// carries (see DecodeCreatedID), never from return values, because
// state-mutating calls on a chain do not return data.
//
// Authorization is the ledger's job. Callers only identify themselves
// through the Signer handed to Submit; the ledger derives the sender from
// the transaction signature and rejects with CodeNotAuthorized.
package ledger
