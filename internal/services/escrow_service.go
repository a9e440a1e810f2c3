// internal/services/escrow_service.go
package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/payout"
	"gorm.io/gorm"

	"github.com/druklands/landledger/internal/apperrors"
	"github.com/druklands/landledger/internal/config"
	"github.com/druklands/landledger/internal/metrics"
	"github.com/druklands/landledger/internal/models"
)

const componentEscrow = "escrow"

// EscrowService drives the sale lifecycle of a minted token:
// listing, administrative verification, payment, custody transfer,
// withdrawal, and cancellation. Each mutating operation holds a
// per-token (or per-holder, for withdrawals) lock for its full
// duration so a reentrant call can never observe a stale status, and
// all state changes commit before any external value transfer runs.
type EscrowService struct {
	db        *gorm.DB
	events    *EventService
	tokens    *TokenizationService
	verifiers *VerifierService
	config    *config.Config
	metrics   *metrics.Metrics

	tokenLocks  sync.Map // tokenID int64 -> *sync.Mutex
	holderLocks sync.Map // holderID uuid.UUID -> *sync.Mutex

	// payoutFunc releases withdrawn funds through the external
	// value-transfer mechanism; tests substitute it.
	payoutFunc func(user *models.User, amount int64) (string, error)
}

type ListForSaleRequest struct {
	Price int64 `json:"price" validate:"required,min=1"`
}

type MakePaymentRequest struct {
	Amount           int64  `json:"amount" validate:"required,min=1"`
	PaymentReference string `json:"payment_reference,omitempty"`
}

func NewEscrowService(db *gorm.DB, events *EventService, tokens *TokenizationService, verifiers *VerifierService, cfg *config.Config, m *metrics.Metrics) *EscrowService {
	if cfg != nil && cfg.Payment.StripeSecretKey != "" {
		stripe.Key = cfg.Payment.StripeSecretKey
	}

	s := &EscrowService{
		db:        db,
		events:    events,
		tokens:    tokens,
		verifiers: verifiers,
		config:    cfg,
		metrics:   m,
	}
	s.payoutFunc = s.stripePayout
	return s
}

func (s *EscrowService) lockToken(tokenID int64) func() {
	v, _ := s.tokenLocks.LoadOrStore(tokenID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *EscrowService) lockHolder(holderID uuid.UUID) func() {
	v, _ := s.holderLocks.LoadOrStore(holderID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ListLandForSale opens a sale for a fully verified token the caller
// holds. A token with any active sale cannot be listed again.
func (s *EscrowService) ListLandForSale(callerID uuid.UUID, tokenID int64, price int64) (*models.Sale, error) {
	unlock := s.lockToken(tokenID)
	defer unlock()

	if price <= 0 {
		return nil, apperrors.Validation("sale price must be positive")
	}

	if _, err := s.tokens.GetToken(tokenID); err != nil {
		return nil, err
	}

	holds, err := s.tokens.IsHolder(tokenID, callerID)
	if err != nil {
		return nil, err
	}
	if !holds {
		return nil, apperrors.Authorization("caller holds no share of token %d", tokenID)
	}

	verified, err := s.verifiers.IsLandVerified(tokenID)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, apperrors.NotVerified("token %d has not completed bank, court, and tax verification", tokenID)
	}

	var existing models.Sale
	err = s.db.First(&existing, "token_id = ?", tokenID).Error
	if err == nil && existing.Status != models.SaleStatusNotForSale {
		return nil, apperrors.AlreadyListed("token %d already has an active sale", tokenID)
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal(err, "failed to check existing sale")
	}

	sale := &models.Sale{
		TokenID:  tokenID,
		SellerID: callerID,
		Price:    price,
		Status:   models.SaleStatusPendingVerification,
		ListedAt: time.Now(),
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sale).Error; err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}

		return s.events.Emit(tx, componentEscrow, "listed_for_sale", tokenKey(tokenID), callerID, nil, models.JSONB{
			"token_id": tokenID,
			"price":    price,
		})
	})
	if txErr != nil {
		return nil, wrapServiceError(txErr, "sale listing failed")
	}

	return sale, nil
}

// VerifyLandDetails is the escrow administrator's sign-off moving a
// pending sale to VERIFIED.
func (s *EscrowService) VerifyLandDetails(callerID uuid.UUID, tokenID int64) (*models.Sale, error) {
	unlock := s.lockToken(tokenID)
	defer unlock()

	if _, err := requireApprover(s.db, callerID); err != nil {
		return nil, err
	}

	sale, err := s.activeSale(tokenID)
	if err != nil {
		return nil, err
	}

	if sale.Status != models.SaleStatusPendingVerification {
		return nil, apperrors.InvalidState("sale for token %d is %s, expected %s", tokenID, sale.Status, models.SaleStatusPendingVerification)
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(sale).Update("status", models.SaleStatusVerified).Error; err != nil {
			return fmt.Errorf("failed to update sale status: %w", err)
		}

		return s.events.Emit(tx, componentEscrow, "sale_verified", tokenKey(tokenID), callerID, nil, models.JSONB{
			"token_id": tokenID,
		})
	})
	if txErr != nil {
		return nil, wrapServiceError(txErr, "sale verification failed")
	}

	sale.Status = models.SaleStatusVerified
	return sale, nil
}

// CreatePaymentIntent opens an external payment reference for the
// exact sale price so a buyer can fund the purchase.
func (s *EscrowService) CreatePaymentIntent(callerID uuid.UUID, tokenID int64) (string, error) {
	sale, err := s.activeSale(tokenID)
	if err != nil {
		return "", err
	}

	if sale.Status != models.SaleStatusVerified {
		return "", apperrors.InvalidState("sale for token %d is %s, expected %s", tokenID, sale.Status, models.SaleStatusVerified)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(sale.Price),
		Currency: stripe.String(s.currency()),
	}
	params.AddMetadata("token_id", fmt.Sprintf("%d", tokenID))
	params.AddMetadata("buyer_id", callerID.String())

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", apperrors.TransferFailed(err, "failed to create payment intent")
	}

	return pi.ClientSecret, nil
}

// MakePayment records the buyer's payment. The amount must equal the
// sale price exactly; the seller's withdrawal balance is credited in
// the same transaction that flips the sale to PAYMENT_COMPLETE.
func (s *EscrowService) MakePayment(callerID uuid.UUID, tokenID int64, req *MakePaymentRequest) (*models.Sale, error) {
	unlock := s.lockToken(tokenID)
	defer unlock()

	sale, err := s.activeSale(tokenID)
	if err != nil {
		return nil, err
	}

	if sale.PaymentReceived {
		return nil, apperrors.DuplicatePayment("payment for token %d is already recorded", tokenID)
	}
	if sale.Status != models.SaleStatusVerified {
		return nil, apperrors.InvalidState("sale for token %d is %s, expected %s", tokenID, sale.Status, models.SaleStatusVerified)
	}
	if req.Amount != sale.Price {
		return nil, apperrors.PaymentMismatch("submitted amount %d does not match sale price %d", req.Amount, sale.Price)
	}

	now := time.Now()
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"buyer_id":          callerID,
			"payment_received":  true,
			"payment_reference": req.PaymentReference,
			"status":            models.SaleStatusPaymentComplete,
			"paid_at":           now,
		}
		if err := tx.Model(sale).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		if err := s.creditBalanceTx(tx, sale.SellerID, sale.Price); err != nil {
			return err
		}

		return s.events.Emit(tx, componentEscrow, "payment_received", tokenKey(tokenID), callerID,
			[]string{sale.SellerID.String(), callerID.String()}, models.JSONB{
				"token_id": tokenID,
				"amount":   sale.Price,
				"buyer_id": callerID.String(),
			})
	})
	if txErr != nil {
		return nil, wrapServiceError(txErr, "payment failed")
	}

	s.metrics.AddEscrowVolume("credit", sale.Price)

	sale.BuyerID = &callerID
	sale.PaymentReceived = true
	sale.Status = models.SaleStatusPaymentComplete
	sale.PaidAt = &now
	return sale, nil
}

// TransferOwnershipAfterPayment moves token custody seller to buyer
// and clears the sale record. A second identical call finds no record
// and fails cleanly.
func (s *EscrowService) TransferOwnershipAfterPayment(callerID uuid.UUID, tokenID int64) error {
	unlock := s.lockToken(tokenID)
	defer unlock()

	sale, err := s.activeSale(tokenID)
	if err != nil {
		return err
	}

	if sale.Status != models.SaleStatusPaymentComplete || !sale.PaymentReceived || sale.BuyerID == nil {
		return apperrors.InvalidState("sale for token %d has no completed payment", tokenID)
	}

	buyerID := *sale.BuyerID
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.tokens.transferCustodyTx(tx, tokenID, sale.SellerID, buyerID); err != nil {
			return err
		}

		if err := tx.Delete(&models.Sale{}, "token_id = ?", tokenID).Error; err != nil {
			return fmt.Errorf("failed to clear sale record: %w", err)
		}

		return s.events.Emit(tx, componentEscrow, "ownership_transferred", tokenKey(tokenID), callerID,
			[]string{sale.SellerID.String(), buyerID.String()}, models.JSONB{
				"token_id": tokenID,
				"seller":   sale.SellerID.String(),
				"buyer":    buyerID.String(),
				"price":    sale.Price,
			})
	})
	return wrapNilServiceError(txErr, "ownership transfer failed")
}

// Withdraw zeroes the caller's pending balance and then releases the
// funds externally. The debit commits first; if the external transfer
// fails the debit is compensated and the operation reports
// TransferFailed, so funds are never lost and never paid twice.
func (s *EscrowService) Withdraw(callerID uuid.UUID) (int64, error) {
	unlock := s.lockHolder(callerID)
	defer unlock()

	var balance models.WithdrawalBalance
	if err := s.db.First(&balance, "holder_id = ?", callerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.NoFunds("no pending withdrawal balance")
		}
		return 0, apperrors.Internal(err, "failed to load balance")
	}
	if balance.Amount <= 0 {
		return 0, apperrors.NoFunds("no pending withdrawal balance")
	}

	amount := balance.Amount

	var holder models.User
	if err := s.db.First(&holder, "id = ?", callerID).Error; err != nil {
		return 0, apperrors.Internal(err, "failed to load holder account")
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&balance).Update("amount", 0).Error; err != nil {
			return fmt.Errorf("failed to zero balance: %w", err)
		}

		return s.events.Emit(tx, componentEscrow, "withdrawal", "holder:"+callerID.String(), callerID, nil, models.JSONB{
			"holder_id": callerID.String(),
			"amount":    amount,
		})
	})
	if txErr != nil {
		return 0, wrapServiceError(txErr, "withdrawal failed")
	}

	if _, err := s.payoutFunc(&holder, amount); err != nil {
		// Compensate: the debit is reversed so the funds stay claimable.
		restoreErr := s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&balance).Update("amount", amount).Error; err != nil {
				return err
			}

			return s.events.Emit(tx, componentEscrow, "withdrawal_reverted", "holder:"+callerID.String(), callerID, nil, models.JSONB{
				"holder_id": callerID.String(),
				"amount":    amount,
			})
		})
		if restoreErr != nil {
			s.metrics.IncrementError(componentEscrow, string(apperrors.CodeInternal))
			return 0, apperrors.Internal(restoreErr, "payout failed and balance restore failed; manual reconciliation required")
		}

		s.metrics.IncrementError(componentEscrow, string(apperrors.CodeTransferFailed))
		return 0, apperrors.TransferFailed(err, "external payout failed, balance restored")
	}

	s.metrics.AddEscrowVolume("withdrawal", amount)
	return amount, nil
}

// CancelSale lets the seller clear a sale any time before payment
// completes.
func (s *EscrowService) CancelSale(callerID uuid.UUID, tokenID int64) error {
	unlock := s.lockToken(tokenID)
	defer unlock()

	sale, err := s.activeSale(tokenID)
	if err != nil {
		return err
	}

	if sale.SellerID != callerID {
		return apperrors.Authorization("only the seller may cancel the sale of token %d", tokenID)
	}
	if sale.Status == models.SaleStatusPaymentComplete {
		return apperrors.AlreadyComplete("sale of token %d is already paid and can no longer be cancelled", tokenID)
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Sale{}, "token_id = ?", tokenID).Error; err != nil {
			return fmt.Errorf("failed to clear sale record: %w", err)
		}

		return s.events.Emit(tx, componentEscrow, "sale_cancelled", tokenKey(tokenID), callerID, nil, models.JSONB{
			"token_id": tokenID,
		})
	})
	return wrapNilServiceError(txErr, "sale cancellation failed")
}

// GetSale returns the active sale record for a token.
func (s *EscrowService) GetSale(tokenID int64) (*models.Sale, error) {
	return s.activeSale(tokenID)
}

// GetBalance returns the caller's pending withdrawal balance.
func (s *EscrowService) GetBalance(callerID uuid.UUID) (int64, error) {
	var balance models.WithdrawalBalance
	if err := s.db.First(&balance, "holder_id = ?", callerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, apperrors.Internal(err, "failed to load balance")
	}
	return balance.Amount, nil
}

func (s *EscrowService) activeSale(tokenID int64) (*models.Sale, error) {
	var sale models.Sale
	if err := s.db.First(&sale, "token_id = ?", tokenID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.InvalidState("token %d has no active sale", tokenID)
		}
		return nil, apperrors.Internal(err, "failed to load sale")
	}
	return &sale, nil
}

func (s *EscrowService) creditBalanceTx(tx *gorm.DB, holderID uuid.UUID, amount int64) error {
	var balance models.WithdrawalBalance
	err := tx.Where(models.WithdrawalBalance{HolderID: holderID}).FirstOrCreate(&balance).Error
	if err != nil {
		return fmt.Errorf("failed to load withdrawal balance: %w", err)
	}

	if err := tx.Model(&balance).Update("amount", gorm.Expr("amount + ?", amount)).Error; err != nil {
		return fmt.Errorf("failed to credit withdrawal balance: %w", err)
	}

	return nil
}

func (s *EscrowService) currency() string {
	if s.config != nil && s.config.Payment.Currency != "" {
		return s.config.Payment.Currency
	}
	return "usd"
}

// stripePayout releases withdrawn funds through Stripe.
func (s *EscrowService) stripePayout(user *models.User, amount int64) (string, error) {
	params := &stripe.PayoutParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(s.currency()),
	}
	params.AddMetadata("holder_id", user.ID.String())

	p, err := payout.New(params)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}
