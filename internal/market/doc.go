// Package market is the client facade over the market contract and the
// off-ledger document store.
//
// Every entity (Demand, Supply, Agreement) keeps a few fields on the
// ledger and a larger payload off the ledger, bound to the ledger record
// by the payload's root hash. Writes follow one order:
//
//	validate -> hash -> submit on ledger -> put off ledger -> sync
//
// so no document is written for an operation the ledger refused. Reads
// go the other way: the ledger record is fetched first and the document
// is only exposed after its recomputed hash matches the commitment.
//
// A Market is safe for concurrent use. Entity values are not; each one is
// a snapshot owned by its caller and refreshed by Sync.
package market
