package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"truthchain/errs"
	"truthchain/metrics"
	"truthchain/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type reconcileService struct {
	uowFactory UnitOfWorkFactory
	ledger     LedgerService
	oracle     ChainOracle
}

// NewReconcileService creates a service that opportunistically
// reconciles database balances with the chain oracle.
func NewReconcileService(uowFactory UnitOfWorkFactory, ledger LedgerService, oracle ChainOracle) ReconcileService {
	return &reconcileService{
		uowFactory: uowFactory,
		ledger:     ledger,
		oracle:     oracle,
	}
}

// SyncUser compares the database balance with the oracle reading.
// A zero or unavailable reading never overrides a known-good database
// balance. When the chain reports more than the database holds, the
// difference is credited as a reconcile transaction; a lower chain
// reading is logged but the database stays authoritative.
func (s *reconcileService) SyncUser(ctx context.Context, userID string) error {
	user, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		return err
	}

	chainBalance, ok, err := s.oracle.Balance(ctx, userID)
	if err != nil || !ok || chainBalance.Sign() == 0 {
		metrics.OracleSkips.Inc()
		log.WithFields(log.Fields{
			"userID": userID,
			"ok":     ok,
			"error":  err,
		}).Debug("Skipping unusable chain oracle reading")
		return nil
	}

	switch chainBalance.Cmp(user.Balance) {
	case 0:
		return nil
	case -1:
		log.WithFields(log.Fields{
			"userID":       userID,
			"dbBalance":    user.Balance,
			"chainBalance": chainBalance,
		}).Warn("Chain balance below database balance; keeping database value")
		return nil
	}

	diff := chainBalance.Sub(user.Balance)
	if _, err := s.ledger.Credit(ctx, userID, diff, models.TransactionTypeReconcile, nil, nil); err != nil {
		return err
	}

	metrics.OracleAdjustments.Inc()
	log.WithFields(log.Fields{
		"userID": userID,
		"credit": diff,
	}).Info("Credited balance from chain oracle reading")

	return nil
}

// SyncAll reconciles every user against the oracle. A failing user does
// not stop the sweep; the count of cleanly synced users is returned.
func (s *reconcileService) SyncAll(ctx context.Context) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, errs.Wrap(errs.ErrStorageUnavailable, "failed to begin transaction")
	}

	users, err := uow.UserRepository().GetAll(ctx)
	uow.Rollback()
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, user := range users {
		if err := s.SyncUser(ctx, user.ID); err != nil {
			log.WithFields(log.Fields{
				"userID": user.ID,
				"error":  err,
			}).Warn("Skipping user in reconciliation sweep")
			continue
		}
		synced++
	}

	return synced, nil
}

// httpOracle queries a chain indexer over HTTP for account balances
type httpOracle struct {
	baseURL string
	client  *http.Client
}

// NewHTTPOracle creates a ChainOracle backed by an HTTP indexer.
// baseURL may be empty, in which case every reading reports unavailable.
func NewHTTPOracle(baseURL string) ChainOracle {
	return &httpOracle{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (o *httpOracle) Balance(ctx context.Context, userID string) (decimal.Decimal, bool, error) {
	if o.baseURL == "" {
		return decimal.Zero, false, nil
	}

	url := fmt.Sprintf("%s/v2/accounts/%s", o.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, false, err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return decimal.Zero, false, errs.Wrap(errs.ErrStorageUnavailable, "oracle request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, false, nil
	}

	var body struct {
		Balance string `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, false, err
	}

	balance, err := decimal.NewFromString(body.Balance)
	if err != nil {
		return decimal.Zero, false, err
	}

	return balance, true, nil
}
