// Package testutil holds fixtures shared by tests and scenarios: the
// well-known development accounts and a deterministic step sequence.
package testutil

import (
	"fmt"
	"sort"

	"github.com/roach88/powermarket/internal/ledger"
)

// DevKeys are the first four accounts of the standard development
// mnemonic. They are public; never fund them.
var DevKeys = map[string]string{
	"producer": "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
	"consumer": "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d",
	"matcher":  "5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a",
	"outsider": "7c852118294e51e653712a81e05800f419141751be58f605c371e15141b007a6",
}

var (
	Producer = ledger.MustSigner(DevKeys["producer"])
	Consumer = ledger.MustSigner(DevKeys["consumer"])
	Matcher  = ledger.MustSigner(DevKeys["matcher"])
	Outsider = ledger.MustSigner(DevKeys["outsider"])
)

// DevSigner returns the development account called name.
func DevSigner(name string) (ledger.Signer, error) {
	key, ok := DevKeys[name]
	if !ok {
		names := make([]string, 0, len(DevKeys))
		for n := range DevKeys {
			names = append(names, n)
		}
		sort.Strings(names)
		return ledger.Signer{}, fmt.Errorf("no development account %q (have %v)", name, names)
	}
	return ledger.NewSigner(key)
}
