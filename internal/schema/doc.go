// Package schema validates off-ledger payloads before they are committed.
//
// Each payload kind has one closed CUE definition in cue/market.cue. The
// definitions are compiled once per Validator; validation unifies the
// canonical JSON of a payload with its definition and requires the result
// to be concrete. Schemas carry no version: a payload either matches the
// compiled definition or it does not.
package schema
