// Package fiscal issues electronic invoices for completed sales against the
// tax authority.
package fiscal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retailcore/backoffice/internal/domain/audit"
	"github.com/retailcore/backoffice/internal/domain/fiscal"
	"github.com/retailcore/backoffice/internal/domain/identity"
	"github.com/retailcore/backoffice/internal/domain/partner"
	"github.com/retailcore/backoffice/internal/domain/shared"
	"github.com/retailcore/backoffice/internal/domain/trade"
	"go.uber.org/zap"
)

// Authority error codes used when the failure happened before the service answered
const (
	AuthorityCodeTimeout     = "TIMEOUT"
	AuthorityCodeUnavailable = "UNAVAILABLE"
)

// VoucherArchive keeps a copy of each authorized request
type VoucherArchive interface {
	Archive(ctx context.Context, saleID uuid.UUID, req fiscal.VoucherRequest, auth *fiscal.Authorization) error
}

// VoucherLinker hands out temporary download links to archived vouchers
type VoucherLinker interface {
	VoucherURL(ctx context.Context, pointOfSale int, voucherType fiscal.VoucherType, number int64) (string, time.Time, error)
}

// InvoiceMetrics receives invoicing outcomes. Implemented by the telemetry package.
type InvoiceMetrics interface {
	InvoiceIssued(ctx context.Context, voucherType fiscal.VoucherType)
	AuthorityCall(ctx context.Context, operation string, elapsed time.Duration, err error)
}

// InvoiceService issues at most one authorized voucher per sale. Voucher
// numbers come from the authority on every call; nothing is cached locally.
type InvoiceService struct {
	gate         identity.Gate
	saleRepo     trade.SaleRepository
	customerRepo partner.CustomerRepository
	authority    fiscal.Authority
	claims       shared.ClaimStore
	claimTTL     time.Duration
	pointOfSale  int
	archive      VoucherArchive
	linker       VoucherLinker
	publisher    shared.EventPublisher
	recorder     audit.Recorder
	metrics      InvoiceMetrics
	logger       *zap.Logger
	now          func() time.Time
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	gate identity.Gate,
	saleRepo trade.SaleRepository,
	customerRepo partner.CustomerRepository,
	authority fiscal.Authority,
	claims shared.ClaimStore,
	pointOfSale int,
	logger *zap.Logger,
) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		gate:         gate,
		saleRepo:     saleRepo,
		customerRepo: customerRepo,
		authority:    authority,
		claims:       claims,
		claimTTL:     shared.DefaultClaimTTL,
		pointOfSale:  pointOfSale,
		logger:       logger,
		now:          time.Now,
	}
}

// SetArchive sets the voucher archive. Archives that can presign links
// also serve VoucherLink.
func (s *InvoiceService) SetArchive(archive VoucherArchive) {
	s.archive = archive
	if linker, ok := archive.(VoucherLinker); ok {
		s.linker = linker
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *InvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetAuditRecorder sets the audit recorder
func (s *InvoiceService) SetAuditRecorder(recorder audit.Recorder) {
	s.recorder = recorder
}

// SetMetrics sets the business metrics sink
func (s *InvoiceService) SetMetrics(metrics InvoiceMetrics) {
	s.metrics = metrics
}

// claimMargin covers the work around the two authority calls of one issue
const claimMargin = 30 * time.Second

// ClaimTTLFor returns how long an invoice claim must live when each authority
// call may take up to authorityTimeout. An issue makes two sequential calls,
// so a shorter claim could expire under a live holder.
func ClaimTTLFor(authorityTimeout time.Duration) time.Duration {
	if authorityTimeout <= 0 {
		return shared.DefaultClaimTTL
	}
	return 2*authorityTimeout + claimMargin
}

// SetClaimTTL overrides how long an in-flight claim survives a crashed caller
func (s *InvoiceService) SetClaimTTL(ttl time.Duration) {
	if ttl > 0 {
		s.claimTTL = ttl
	}
}

// IssueInvoice authorizes a voucher for the sale and stores the fiscal data.
// On any authority failure the sale is left untouched and a
// FISCAL_AUTHORITY_ERROR is returned; the call can then be retried.
func (s *InvoiceService) IssueInvoice(ctx context.Context, actor identity.Actor, saleID uuid.UUID, req IssueInvoiceRequest) (*InvoiceResponse, error) {
	if err := s.gate.Authorize(ctx, actor, identity.ActionInvoicesIssue); err != nil {
		return nil, err
	}
	if req.VoucherType != nil && !fiscal.VoucherType(*req.VoucherType).IsValid() {
		return nil, shared.NewValidationError("voucher_type", "Voucher type must be 1, 6 or 11")
	}

	sale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale.Invoiced {
		return nil, shared.ErrAlreadyInvoiced.WithDetail("sale_id", saleID.String())
	}

	claimKey := "invoice:" + saleID.String()
	claimToken, claimed, err := s.claims.Claim(ctx, claimKey, s.claimTTL)
	if err != nil {
		return nil, fmt.Errorf("claim invoice for sale %s: %w", saleID, err)
	}
	if !claimed {
		return nil, shared.ErrInvoiceInProgress.WithDetail("sale_id", saleID.String())
	}
	defer func() {
		if err := s.claims.Release(context.WithoutCancel(ctx), claimKey, claimToken); err != nil {
			s.logger.Warn("Failed to release invoice claim", zap.String("sale_id", saleID.String()), zap.Error(err))
		}
	}()

	// Another caller may have finished between the first read and the claim.
	sale, err = s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if sale.Invoiced {
		return nil, shared.ErrAlreadyInvoiced.WithDetail("sale_id", saleID.String())
	}

	buyer, err := s.buyerFor(ctx, sale)
	if err != nil {
		return nil, err
	}

	voucherType := fiscal.SelectVoucherType(buyer)
	if req.VoucherType != nil {
		voucherType = fiscal.VoucherType(*req.VoucherType)
		if voucherType == fiscal.VoucherTypeFacturaA && !buyer.IsRegisteredBusiness() {
			return nil, shared.NewValidationError("voucher_type", "Factura A requires a registered taxpayer with CUIT")
		}
	}

	breakdown, err := fiscal.ComputeBreakdown(sale.TaxableLines())
	if err != nil {
		return nil, shared.NewValidationError("items", err.Error())
	}
	totals := breakdown.Rounded()

	last, err := s.lastVoucherNumber(ctx, voucherType)
	if err != nil {
		return nil, s.authorityError(ctx, saleID, "last_voucher_number", err)
	}

	voucher := fiscal.NewVoucherRequest(s.pointOfSale, voucherType, last+1, buyer, totals, s.now())
	auth, err := s.submit(ctx, voucher)
	if err != nil {
		return nil, s.authorityError(ctx, saleID, "submit_voucher", err)
	}

	data := trade.FiscalData{
		VoucherType:         voucherType,
		PointOfSale:         s.pointOfSale,
		VoucherNumber:       voucher.Number,
		AuthorizationCode:   auth.Code,
		AuthorizationExpiry: auth.Expiry,
		InvoicedAt:          s.now(),
	}
	// A caller that gave up after the authority answered must not lose the
	// authorization, so the write ignores cancellation.
	if err := s.saleRepo.MarkInvoiced(context.WithoutCancel(ctx), saleID, data); err != nil {
		// The authority has already authorized this number. Keep everything
		// needed to reconcile by hand.
		s.logger.Error("Authorized voucher could not be stored",
			zap.String("sale_id", saleID.String()),
			zap.Int("voucher_type", int(voucherType)),
			zap.Int("point_of_sale", s.pointOfSale),
			zap.Int64("voucher_number", voucher.Number),
			zap.String("authorization_code", auth.Code),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Invoice issued",
		zap.String("sale_id", saleID.String()),
		zap.String("voucher_type", voucherType.String()),
		zap.Int64("voucher_number", voucher.Number),
		zap.String("authorization_code", auth.Code),
	)

	s.afterIssue(ctx, actor, sale, data, voucher, auth)

	response := toInvoiceResponse(saleID, voucher, auth, totals)
	return &response, nil
}

// CheckAuthority asks the authority for the last number of each voucher
// sequence of the configured point of sale
func (s *InvoiceService) CheckAuthority(ctx context.Context, actor identity.Actor) (*AuthorityHealthResponse, error) {
	if err := s.gate.Authorize(ctx, actor, identity.ActionInvoicesRead); err != nil {
		return nil, err
	}

	resp := &AuthorityHealthResponse{PointOfSale: s.pointOfSale, CheckedAt: s.now()}
	for _, vt := range []fiscal.VoucherType{fiscal.VoucherTypeFacturaA, fiscal.VoucherTypeFacturaB, fiscal.VoucherTypeFacturaC} {
		last, err := s.lastVoucherNumber(ctx, vt)
		if err != nil {
			s.logger.Warn("Tax authority health check failed", zap.Error(err))
			resp.Error = s.authorityError(ctx, uuid.Nil, "health_check", err).Error()
			return resp, nil
		}
		resp.Sequences = append(resp.Sequences, SequenceStatus{
			VoucherType:       int(vt),
			VoucherTypeName:   vt.String(),
			LastVoucherNumber: last,
		})
	}
	resp.Reachable = true
	return resp, nil
}

// VoucherLink returns a temporary URL to the archived voucher of an invoiced sale
func (s *InvoiceService) VoucherLink(ctx context.Context, actor identity.Actor, saleID uuid.UUID) (*VoucherLinkResponse, error) {
	if err := s.gate.Authorize(ctx, actor, identity.ActionInvoicesRead); err != nil {
		return nil, err
	}
	if s.linker == nil {
		return nil, shared.ErrNotFound.WithDetail("reason", "voucher archive disabled")
	}

	sale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if !sale.Invoiced || sale.Fiscal == nil {
		return nil, shared.ErrInvalidState.WithDetail("sale_id", saleID.String())
	}

	f := sale.Fiscal
	url, expires, err := s.linker.VoucherURL(ctx, f.PointOfSale, f.VoucherType, f.VoucherNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to link voucher of sale %s: %w", saleID, err)
	}
	return &VoucherLinkResponse{SaleID: saleID, URL: url, ExpiresAt: expires}, nil
}

func (s *InvoiceService) buyerFor(ctx context.Context, sale *trade.Sale) (*fiscal.Buyer, error) {
	if sale.CustomerID == nil {
		return nil, nil
	}
	customer, err := s.customerRepo.FindByID(ctx, *sale.CustomerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewCustomerNotFoundError(*sale.CustomerID)
		}
		return nil, err
	}
	return customer.Buyer(), nil
}

func (s *InvoiceService) lastVoucherNumber(ctx context.Context, vt fiscal.VoucherType) (int64, error) {
	start := time.Now()
	last, err := s.authority.LastVoucherNumber(ctx, s.pointOfSale, vt)
	if s.metrics != nil {
		s.metrics.AuthorityCall(ctx, "last_voucher_number", time.Since(start), err)
	}
	return last, err
}

func (s *InvoiceService) submit(ctx context.Context, req fiscal.VoucherRequest) (*fiscal.Authorization, error) {
	start := time.Now()
	auth, err := s.authority.SubmitVoucher(ctx, req)
	if s.metrics != nil {
		s.metrics.AuthorityCall(ctx, "submit_voucher", time.Since(start), err)
	}
	return auth, err
}

// authorityError converts an authority failure into FISCAL_AUTHORITY_ERROR.
// Rejections keep the authority's code and message; transport failures are
// logged in full and reported generically.
func (s *InvoiceService) authorityError(ctx context.Context, saleID uuid.UUID, operation string, err error) error {
	var rejection *fiscal.Rejection
	if errors.As(err, &rejection) {
		s.logger.Warn("Tax authority rejected request",
			zap.String("sale_id", saleID.String()),
			zap.String("operation", operation),
			zap.String("code", rejection.Code),
			zap.String("message", rejection.Message),
		)
		return shared.NewFiscalAuthorityError(rejection.Code, rejection.Message)
	}

	s.logger.Error("Tax authority request failed",
		zap.String("sale_id", saleID.String()),
		zap.String("operation", operation),
		zap.Error(err),
	)
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return shared.NewFiscalAuthorityError(AuthorityCodeTimeout, "Tax authority did not respond in time")
	}
	return shared.NewFiscalAuthorityError(AuthorityCodeUnavailable, "Tax authority is unavailable")
}

// afterIssue runs the best-effort follow-ups of a stored invoice
func (s *InvoiceService) afterIssue(ctx context.Context, actor identity.Actor, sale *trade.Sale, data trade.FiscalData, voucher fiscal.VoucherRequest, auth *fiscal.Authorization) {
	if s.metrics != nil {
		s.metrics.InvoiceIssued(ctx, data.VoucherType)
	}

	sale.ClearDomainEvents()
	if err := sale.MarkInvoiced(data, actor.UserID); err == nil && s.publisher != nil {
		if err := s.publisher.Publish(ctx, sale.PullDomainEvents()...); err != nil {
			s.logger.Error("Failed to publish invoice event", zap.String("sale_id", sale.ID.String()), zap.Error(err))
		}
	}

	if s.recorder != nil {
		s.recorder.Record(ctx, audit.NewEntry(actor.UserID, actor.Name, audit.ActionIssue, audit.ModuleInvoices,
			fmt.Sprintf("%s %04d-%08d CAE %s", data.VoucherType, data.PointOfSale, data.VoucherNumber, data.AuthorizationCode)).
			WithResource(sale.ID))
	}

	if s.archive != nil {
		if err := s.archive.Archive(context.WithoutCancel(ctx), sale.ID, voucher, auth); err != nil {
			s.logger.Warn("Failed to archive voucher", zap.String("sale_id", sale.ID.String()), zap.Error(err))
		}
	}
}
