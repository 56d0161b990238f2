// Package harness runs market scenarios.
//
// A scenario is a YAML file naming actors, a list of market operations
// performed by those actors, and assertions on the final market. Each run
// gets a fresh in-memory chain and document store, so scenarios are
// independent and their traces are reproducible.
//
// Example:
//
//	name: agreement_approval
//	description: both owners approve
//	actors:
//	  producer: ""        # empty key: development account of that name
//	  consumer: ""
//	steps:
//	  - actor: producer
//	    op: create_asset
//	  - actor: producer
//	    op: create_supply
//	    asset: 0
//	    props: {price: 1.2, currency: 1, availableWh: 5000, timeframe: 3}
//	assertions:
//	  - type: count
//	    kind: Supply
//	    count: 1
//
// RunWithGolden compares the trace with testdata/golden/<name>.golden.
// Regenerate with:
//
//	go test ./internal/harness -update
package harness
