package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/powermarket/internal/commit"
	"github.com/roach88/powermarket/internal/market"
)

// DocumentView shows an off-ledger document with its ledger commitment.
type DocumentView[P any] struct {
	Hash       commit.Hash `json:"hash"`
	URL        string      `json:"url"`
	Properties *P          `json:"properties,omitempty"`
	Error      string      `json:"error,omitempty"`
}

func newDocumentView[P any](o market.OffChain[P]) DocumentView[P] {
	v := DocumentView[P]{
		Hash:       o.Handle.Hash,
		Properties: o.Properties,
	}
	if !o.Handle.IsZero() {
		v.URL = o.Handle.URL()
	}
	if err := o.Err(); err != nil {
		v.Error = err.Error()
	}
	return v
}

func (v DocumentView[P]) writeTo(b *strings.Builder, label string) {
	if v.Hash.IsZero() {
		fmt.Fprintf(b, "\n  %s: none", label)
		return
	}
	fmt.Fprintf(b, "\n  %s: %s", label, v.URL)
	switch {
	case v.Error != "":
		fmt.Fprintf(b, "\n    unavailable: %s", v.Error)
	case v.Properties != nil:
		data, _ := json.Marshal(v.Properties)
		fmt.Fprintf(b, "\n    %s", data)
	}
}

// AssetView is the output of asset commands.
type AssetView struct {
	ID       uint64   `json:"id"`
	Owner    string   `json:"owner"`
	Matchers []string `json:"matchers"`
}

func newAssetView(a *market.Asset) AssetView {
	id, _ := a.ID()
	return AssetView{ID: id, Owner: a.Owner.Hex(), Matchers: hexAddresses(a.Matchers)}
}

func (v AssetView) String() string {
	return fmt.Sprintf("Asset %d owner %s matchers [%s]", v.ID, v.Owner, strings.Join(v.Matchers, " "))
}

// DemandView is the output of demand commands.
type DemandView struct {
	ID       uint64                                `json:"id"`
	Owner    string                                `json:"owner"`
	Document DocumentView[market.DemandProperties] `json:"document"`
}

func newDemandView(d *market.Demand) DemandView {
	id, _ := d.ID()
	return DemandView{ID: id, Owner: d.Owner.Hex(), Document: newDocumentView(d.Props)}
}

func (v DemandView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Demand %d owner %s", v.ID, v.Owner)
	v.Document.writeTo(&b, "properties")
	return b.String()
}

// SupplyView is the output of supply commands.
type SupplyView struct {
	ID       uint64                                `json:"id"`
	Owner    string                                `json:"owner"`
	AssetID  uint64                                `json:"assetId"`
	Document DocumentView[market.SupplyProperties] `json:"document"`
}

func newSupplyView(s *market.Supply) SupplyView {
	id, _ := s.ID()
	return SupplyView{ID: id, Owner: s.Owner.Hex(), AssetID: s.AssetID, Document: newDocumentView(s.Props)}
}

func (v SupplyView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Supply %d owner %s asset %d", v.ID, v.Owner, v.AssetID)
	v.Document.writeTo(&b, "properties")
	return b.String()
}

// AgreementView is the output of agreement commands.
type AgreementView struct {
	ID                    uint64                                   `json:"id"`
	DemandID              uint64                                   `json:"demandId"`
	SupplyID              uint64                                   `json:"supplyId"`
	State                 string                                   `json:"state"`
	ApprovedBySupplyOwner bool                                     `json:"approvedBySupplyOwner"`
	ApprovedByDemandOwner bool                                     `json:"approvedByDemandOwner"`
	AllowedMatchers       []string                                 `json:"allowedMatchers"`
	Terms                 DocumentView[market.AgreementProperties] `json:"terms"`
	Matcher               DocumentView[market.MatcherProperties]   `json:"matcher"`
}

func newAgreementView(a *market.Agreement) AgreementView {
	id, _ := a.ID()
	return AgreementView{
		ID:                    id,
		DemandID:              a.DemandID,
		SupplyID:              a.SupplyID,
		State:                 a.State().String(),
		ApprovedBySupplyOwner: a.ApprovedBySupplyOwner,
		ApprovedByDemandOwner: a.ApprovedByDemandOwner,
		AllowedMatchers:       hexAddresses(a.AllowedMatchers),
		Terms:                 newDocumentView(a.Props),
		Matcher:               newDocumentView(a.Matcher),
	}
}

func (v AgreementView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Agreement %d demand %d supply %d %s", v.ID, v.DemandID, v.SupplyID, v.State)
	fmt.Fprintf(&b, "\n  matchers: [%s]", strings.Join(v.AllowedMatchers, " "))
	v.Terms.writeTo(&b, "terms")
	v.Matcher.writeTo(&b, "matcher")
	return b.String()
}

// ListView prints one element per line in text mode and a JSON array in
// json mode.
type ListView[T fmt.Stringer] []T

func (l ListView[T]) String() string {
	if len(l) == 0 {
		return "(none)"
	}
	lines := make([]string, len(l))
	for i, v := range l {
		lines[i] = v.String()
	}
	return strings.Join(lines, "\n")
}

func listView[E any, T fmt.Stringer](entities []E, view func(E) T) ListView[T] {
	out := make(ListView[T], len(entities))
	for i, e := range entities {
		out[i] = view(e)
	}
	return out
}

// Message is a plain confirmation.
type Message struct {
	Message string `json:"message"`
}

func (m Message) String() string { return m.Message }

func hexAddresses(addrs []common.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	return out
}
