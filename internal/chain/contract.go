package chain

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/powermarket/internal/ledger"
)

// execute runs one contract call against q and returns the events it
// emits. Authorization is decided here from the recovered sender only.
func execute(ctx context.Context, q querier, c call, sender common.Address) ([]ledger.Event, error) {
	switch c.op {
	case ledger.OpCreateAsset:
		return createAsset(ctx, q, c, sender)
	case ledger.OpCreateDemand:
		return createDemand(ctx, q, c, sender)
	case ledger.OpDeleteDemand:
		return deleteDemand(ctx, q, c, sender)
	case ledger.OpCreateSupply:
		return createSupply(ctx, q, c, sender)
	case ledger.OpCreateAgreement:
		return createAgreement(ctx, q, c, sender)
	case ledger.OpApproveAgreementSupply:
		return approveAgreement(ctx, q, c, sender, true)
	case ledger.OpApproveAgreementDemand:
		return approveAgreement(ctx, q, c, sender, false)
	case ledger.OpSetMatcherProperties:
		return setMatcherProperties(ctx, q, c, sender)
	default:
		return nil, c.rejected("unknown operation")
	}
}

// createAsset(matchers)
func createAsset(ctx context.Context, q querier, c call, sender common.Address) ([]ledger.Event, error) {
	if err := c.arity(1); err != nil {
		return nil, err
	}
	matchers, err := c.argAddresses(0)
	if err != nil {
		return nil, err
	}
	encoded, err := encodeAddresses(matchers)
	if err != nil {
		return nil, err
	}

	id, err := count(ctx, q, "assets")
	if err != nil {
		return nil, fmt.Errorf("next asset id: %w", err)
	}
	if _, err := q.ExecContext(ctx, `
		INSERT INTO assets (id, owner, matchers) VALUES (?, ?, ?)
	`, id, sender.Hex(), encoded); err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}

	return []ledger.Event{created(ledger.EventAssetCreated, id, sender)}, nil
}

// createDemand(propertiesDocumentHash, documentDBURL)
func createDemand(ctx context.Context, q querier, c call, sender common.Address) ([]ledger.Event, error) {
	if err := c.arity(2); err != nil {
		return nil, err
	}
	hash, err := c.argHash(0)
	if err != nil {
		return nil, err
	}
	url, err := c.argString(1)
	if err != nil {
		return nil, err
	}

	id, err := count(ctx, q, "demands")
	if err != nil {
		return nil, fmt.Errorf("next demand id: %w", err)
	}
	if _, err := q.ExecContext(ctx, `
		INSERT INTO demands (id, owner, document_hash, document_url) VALUES (?, ?, ?, ?)
	`, id, sender.Hex(), string(hash), url); err != nil {
		return nil, fmt.Errorf("insert demand: %w", err)
	}

	return []ledger.Event{created(ledger.EventCreatedNewDemand, id, sender)}, nil
}

// deleteDemand(id) flags the demand as deleted. Deleting twice succeeds
// and emits nothing the second time.
func deleteDemand(ctx context.Context, q querier, c call, sender common.Address) ([]ledger.Event, error) {
	if err := c.arity(1); err != nil {
		return nil, err
	}
	id, err := c.argUint(0)
	if err != nil {
		return nil, err
	}

	var (
		owner   string
		deleted bool
	)
	err = q.QueryRowContext(ctx, `SELECT owner, deleted FROM demands WHERE id = ?`, id).Scan(&owner, &deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, c.rejected("demand %d does not exist", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load demand %d: %w", id, err)
	}
	if common.HexToAddress(owner) != sender {
		return nil, ledger.NotAuthorized(c.kind, c.op, "%s does not own demand %d", sender.Hex(), id)
	}
	if deleted {
		return nil, nil
	}

	if _, err := q.ExecContext(ctx, `UPDATE demands SET deleted = 1 WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete demand %d: %w", id, err)
	}
	return []ledger.Event{created(ledger.EventDeletedDemand, id, sender)}, nil
}

// createSupply(propertiesDocumentHash, documentDBURL, assetId)
func createSupply(ctx context.Context, q querier, c call, sender common.Address) ([]ledger.Event, error) {
	if err := c.arity(3); err != nil {
		return nil, err
	}
	hash, err := c.argHash(0)
	if err != nil {
		return nil, err
	}
	url, err := c.argString(1)
	if err != nil {
		return nil, err
	}
	assetID, err := c.argUint(2)
	if err != nil {
		return nil, err
	}

	var owner string
	err = q.QueryRowContext(ctx, `SELECT owner FROM assets WHERE id = ?`, assetID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, c.rejected("asset %d does not exist", assetID)
	}
	if err != nil {
		return nil, fmt.Errorf("load asset %d: %w", assetID, err)
	}
	if common.HexToAddress(owner) != sender {
		return nil, ledger.NotAuthorized(c.kind, c.op, "%s does not own asset %d", sender.Hex(), assetID)
	}

	id, err := count(ctx, q, "supplies")
	if err != nil {
		return nil, fmt.Errorf("next supply id: %w", err)
	}
	if _, err := q.ExecContext(ctx, `
		INSERT INTO supplies (id, owner, asset_id, document_hash, document_url) VALUES (?, ?, ?, ?, ?)
	`, id, sender.Hex(), assetID, string(hash), url); err != nil {
		return nil, fmt.Errorf("insert supply: %w", err)
	}

	return []ledger.Event{created(ledger.EventCreatedNewSupply, id, sender)}, nil
}

// createAgreement(propertiesDocumentHash, documentDBURL,
// matcherPropertiesDocumentHash, matcherDBURL, demandId, supplyId)
func createAgreement(ctx context.Context, q querier, c call, sender common.Address) ([]ledger.Event, error) {
	if err := c.arity(6); err != nil {
		return nil, err
	}
	hash, err := c.argHash(0)
	if err != nil {
		return nil, err
	}
	url, err := c.argString(1)
	if err != nil {
		return nil, err
	}
	matcherHash, err := c.argHash(2)
	if err != nil {
		return nil, err
	}
	matcherURL, err := c.argString(3)
	if err != nil {
		return nil, err
	}
	demandID, err := c.argUint(4)
	if err != nil {
		return nil, err
	}
	supplyID, err := c.argUint(5)
	if err != nil {
		return nil, err
	}

	var (
		demandOwner string
		deleted     bool
	)
	err = q.QueryRowContext(ctx, `SELECT owner, deleted FROM demands WHERE id = ?`, demandID).Scan(&demandOwner, &deleted)
	if errors.Is(err, sql.ErrNoRows) || deleted {
		return nil, c.rejected("demand %d does not exist", demandID)
	}
	if err != nil {
		return nil, fmt.Errorf("load demand %d: %w", demandID, err)
	}

	var supplyOwner, matchers string
	err = q.QueryRowContext(ctx, `
		SELECT s.owner, a.matchers FROM supplies s JOIN assets a ON a.id = s.asset_id WHERE s.id = ?
	`, supplyID).Scan(&supplyOwner, &matchers)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, c.rejected("supply %d does not exist", supplyID)
	}
	if err != nil {
		return nil, fmt.Errorf("load supply %d: %w", supplyID, err)
	}

	byDemand := common.HexToAddress(demandOwner) == sender
	bySupply := common.HexToAddress(supplyOwner) == sender
	if !byDemand && !bySupply {
		return nil, ledger.NotAuthorized(c.kind, c.op, "%s owns neither demand %d nor supply %d", sender.Hex(), demandID, supplyID)
	}

	id, err := count(ctx, q, "agreements")
	if err != nil {
		return nil, fmt.Errorf("next agreement id: %w", err)
	}
	if _, err := q.ExecContext(ctx, `
		INSERT INTO agreements
		(id, demand_id, supply_id, document_hash, document_url, matcher_hash, matcher_url,
		 approved_supply, approved_demand, allowed_matchers)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, demandID, supplyID, string(hash), url, string(matcherHash), matcherURL,
		bySupply, byDemand, matchers); err != nil {
		return nil, fmt.Errorf("insert agreement: %w", err)
	}

	events := []ledger.Event{
		ledger.NewEvent(ledger.EventAgreementCreated, ledger.IDTopic(id), ledger.IDTopic(demandID), ledger.IDTopic(supplyID)),
	}
	if byDemand && bySupply {
		events = append(events, ledger.NewEvent(ledger.EventAgreementFullySigned, ledger.IDTopic(id), ledger.IDTopic(demandID), ledger.IDTopic(supplyID)))
	}
	return events, nil
}

// approveAgreementSupply(id) / approveAgreementDemand(id). Approving an
// already approved side succeeds without events. LogAgreementFullySigned
// is emitted by the approval that completes the pair.
func approveAgreement(ctx context.Context, q querier, c call, sender common.Address, supplySide bool) ([]ledger.Event, error) {
	if err := c.arity(1); err != nil {
		return nil, err
	}
	id, err := c.argUint(0)
	if err != nil {
		return nil, err
	}

	var (
		demandID, supplyID             uint64
		demandOwner, supplyOwner       string
		approvedSupply, approvedDemand bool
	)
	err = q.QueryRowContext(ctx, `
		SELECT a.demand_id, a.supply_id, d.owner, s.owner, a.approved_supply, a.approved_demand
		FROM agreements a
		JOIN demands d ON d.id = a.demand_id
		JOIN supplies s ON s.id = a.supply_id
		WHERE a.id = ?
	`, id).Scan(&demandID, &supplyID, &demandOwner, &supplyOwner, &approvedSupply, &approvedDemand)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, c.rejected("agreement %d does not exist", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load agreement %d: %w", id, err)
	}

	owner, already, column := demandOwner, approvedDemand, "approved_demand"
	if supplySide {
		owner, already, column = supplyOwner, approvedSupply, "approved_supply"
	}
	if common.HexToAddress(owner) != sender {
		return nil, ledger.NotAuthorized(c.kind, c.op, "%s is not the owner of agreement %d's %s side", sender.Hex(), id, side(supplySide))
	}
	if already {
		return nil, nil
	}

	if _, err := q.ExecContext(ctx, `UPDATE agreements SET `+column+` = 1 WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("approve agreement %d: %w", id, err)
	}

	if (supplySide && approvedDemand) || (!supplySide && approvedSupply) {
		return []ledger.Event{
			ledger.NewEvent(ledger.EventAgreementFullySigned, ledger.IDTopic(id), ledger.IDTopic(demandID), ledger.IDTopic(supplyID)),
		}, nil
	}
	return nil, nil
}

func side(supply bool) string {
	if supply {
		return "supply"
	}
	return "demand"
}

// setMatcherProperties(id, matcherPropertiesDocumentHash, matcherDBURL)
func setMatcherProperties(ctx context.Context, q querier, c call, sender common.Address) ([]ledger.Event, error) {
	if err := c.arity(3); err != nil {
		return nil, err
	}
	id, err := c.argUint(0)
	if err != nil {
		return nil, err
	}
	hash, err := c.argHash(1)
	if err != nil {
		return nil, err
	}
	url, err := c.argString(2)
	if err != nil {
		return nil, err
	}

	var encoded string
	err = q.QueryRowContext(ctx, `SELECT allowed_matchers FROM agreements WHERE id = ?`, id).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, c.rejected("agreement %d does not exist", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load agreement %d: %w", id, err)
	}
	allowed, err := decodeAddresses(encoded)
	if err != nil {
		return nil, fmt.Errorf("agreement %d matchers: %w", id, err)
	}
	if !slices.Contains(allowed, sender) {
		return nil, ledger.NotAuthorized(c.kind, c.op, "%s is not an allowed matcher of agreement %d", sender.Hex(), id)
	}

	if _, err := q.ExecContext(ctx, `
		UPDATE agreements SET matcher_hash = ?, matcher_url = ? WHERE id = ?
	`, string(hash), url, id); err != nil {
		return nil, fmt.Errorf("set matcher properties of agreement %d: %w", id, err)
	}

	ev := ledger.NewEvent(ledger.EventMatcherPropertiesSet, ledger.IDTopic(id))
	ev.Data = sender.Bytes()
	return []ledger.Event{ev}, nil
}

// created builds a creation event: topic 1 is the id, the sender is data.
func created(name string, id uint64, sender common.Address) ledger.Event {
	ev := ledger.NewEvent(name, ledger.IDTopic(id), ledger.AddressTopic(sender))
	ev.Data = sender.Bytes()
	return ev
}

func encodeAddresses(addrs []common.Address) (string, error) {
	if addrs == nil {
		addrs = []common.Address{}
	}
	b, err := json.Marshal(addrs)
	if err != nil {
		return "", fmt.Errorf("encode addresses: %w", err)
	}
	return string(b), nil
}

func decodeAddresses(s string) ([]common.Address, error) {
	var addrs []common.Address
	if err := json.Unmarshal([]byte(s), &addrs); err != nil {
		return nil, fmt.Errorf("decode addresses: %w", err)
	}
	if addrs == nil {
		addrs = []common.Address{}
	}
	return addrs, nil
}

func queryAsset(ctx context.Context, q querier, id uint64) (ledger.Record, error) {
	var owner, matchers string
	if err := q.QueryRowContext(ctx, `SELECT owner, matchers FROM assets WHERE id = ?`, id).Scan(&owner, &matchers); err != nil {
		return nil, err
	}
	addrs, err := decodeAddresses(matchers)
	if err != nil {
		return nil, err
	}
	return ledger.Record{
		ledger.FieldOwner:    common.HexToAddress(owner),
		ledger.FieldMatchers: addrs,
	}, nil
}

// queryDemand returns deleted demands too, flagged with FieldDeleted.
func queryDemand(ctx context.Context, q querier, id uint64) (ledger.Record, error) {
	var (
		owner, hash, url string
		deleted          bool
	)
	if err := q.QueryRowContext(ctx, `
		SELECT owner, document_hash, document_url, deleted FROM demands WHERE id = ?
	`, id).Scan(&owner, &hash, &url, &deleted); err != nil {
		return nil, err
	}
	return ledger.Record{
		ledger.FieldOwner:          common.HexToAddress(owner),
		ledger.FieldPropertiesHash: hash,
		ledger.FieldDocumentURL:    url,
		ledger.FieldDeleted:        deleted,
	}, nil
}

func querySupply(ctx context.Context, q querier, id uint64) (ledger.Record, error) {
	var (
		owner, hash, url string
		assetID          uint64
	)
	if err := q.QueryRowContext(ctx, `
		SELECT owner, asset_id, document_hash, document_url FROM supplies WHERE id = ?
	`, id).Scan(&owner, &assetID, &hash, &url); err != nil {
		return nil, err
	}
	return ledger.Record{
		ledger.FieldOwner:          common.HexToAddress(owner),
		ledger.FieldAssetID:        assetID,
		ledger.FieldPropertiesHash: hash,
		ledger.FieldDocumentURL:    url,
	}, nil
}

func queryAgreement(ctx context.Context, q querier, id uint64) (ledger.Record, error) {
	var (
		demandID, supplyID                           uint64
		hash, url, matcherHash, matcherURL, matchers string
		approvedSupply, approvedDemand               bool
	)
	if err := q.QueryRowContext(ctx, `
		SELECT demand_id, supply_id, document_hash, document_url, matcher_hash, matcher_url,
		       approved_supply, approved_demand, allowed_matchers
		FROM agreements WHERE id = ?
	`, id).Scan(&demandID, &supplyID, &hash, &url, &matcherHash, &matcherURL,
		&approvedSupply, &approvedDemand, &matchers); err != nil {
		return nil, err
	}
	allowed, err := decodeAddresses(matchers)
	if err != nil {
		return nil, err
	}
	return ledger.Record{
		ledger.FieldDemandID:              demandID,
		ledger.FieldSupplyID:              supplyID,
		ledger.FieldPropertiesHash:        hash,
		ledger.FieldDocumentURL:           url,
		ledger.FieldMatcherPropertiesHash: matcherHash,
		ledger.FieldMatcherURL:            matcherURL,
		ledger.FieldApprovedBySupplyOwner: approvedSupply,
		ledger.FieldApprovedByDemandOwner: approvedDemand,
		ledger.FieldAllowedMatcher:        allowed,
	}, nil
}
