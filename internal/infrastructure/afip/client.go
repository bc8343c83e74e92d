// Package afip talks to the national tax authority's electronic invoicing
// service (WSFE) through a JSON gateway.
package afip

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/retailcore/backoffice/internal/domain/fiscal"
	"github.com/retailcore/backoffice/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	// maxResponseSize limits the response body size
	maxResponseSize = 1 << 20

	methodLastVoucher = "FECompUltimoAutorizado"
	methodRequestCAE  = "FECAESolicitar"

	resultApproved = "A"
	dateLayout     = "20060102"
)

// argentinaTime is the authority's timezone for voucher and CAE dates
var argentinaTime = time.FixedZone("ART", -3*60*60)

// Client implements fiscal.Authority against the WSFE gateway
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Client with the given configuration
func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("afip"),
	}, nil
}

// LastVoucherNumber returns the last number the authority authorized for
// the (point of sale, voucher type) sequence. Zero means none yet.
func (c *Client) LastVoucherNumber(ctx context.Context, pointOfSale int, voucherType fiscal.VoucherType) (int64, error) {
	params := lastVoucherParams{
		Auth:     c.auth(),
		PtoVta:   pointOfSale,
		CbteTipo: int(voucherType),
	}

	var resp lastVoucherResponse
	if err := c.call(ctx, methodLastVoucher, params, &resp); err != nil {
		return 0, err
	}
	if rejection := firstError(resp.Result.Errors); rejection != nil {
		return 0, rejection
	}
	return resp.Result.CbteNro, nil
}

// SubmitVoucher requests a CAE for one voucher
func (c *Client) SubmitVoucher(ctx context.Context, req fiscal.VoucherRequest) (*fiscal.Authorization, error) {
	var resp caeResponse
	if err := c.call(ctx, methodRequestCAE, c.caeParams(req), &resp); err != nil {
		return nil, err
	}

	result := resp.Result
	if rejection := firstError(result.Errors); rejection != nil {
		return nil, rejection
	}
	if len(result.FeDetResp.Detail) == 0 {
		return nil, &fiscal.Rejection{Code: "EMPTY_RESPONSE", Message: "authority returned no voucher detail"}
	}

	detail := result.FeDetResp.Detail[0]
	if detail.Resultado != resultApproved || detail.CAE == "" {
		if detail.Observaciones != nil && len(detail.Observaciones.Obs) > 0 {
			obs := detail.Observaciones.Obs[0]
			return nil, &fiscal.Rejection{Code: strconv.Itoa(obs.Code), Message: obs.Msg}
		}
		return nil, &fiscal.Rejection{Code: "REJECTED", Message: "voucher rejected without observations"}
	}

	expiry, err := time.ParseInLocation(dateLayout, detail.CAEFchVto, argentinaTime)
	if err != nil {
		return nil, fmt.Errorf("afip: invalid CAE expiry %q: %w", detail.CAEFchVto, err)
	}

	return &fiscal.Authorization{Code: detail.CAE, Expiry: expiry}, nil
}

func (c *Client) auth() authParams {
	return authParams{Cuit: fiscal.NormalizeTaxID(c.config.CUIT)}
}

// caeParams maps a voucher request to the WSFE payload
func (c *Client) caeParams(req fiscal.VoucherRequest) caeParams {
	rates := make([]vatRate, 0, len(req.VAT))
	for _, line := range req.VAT {
		rates = append(rates, vatRate{
			ID:      int(line.CategoryID),
			BaseImp: amount(line.Base),
			Importe: amount(line.Amount),
		})
	}

	detail := detailRequest{
		Concepto:   req.Concept,
		DocTipo:    int(req.DocType),
		DocNro:     req.DocNumber,
		CbteDesde:  req.Number,
		CbteHasta:  req.Number,
		CbteFch:    req.IssueDate.In(argentinaTime).Format(dateLayout),
		ImpTotal:   amount(req.Total),
		ImpTotConc: amount(req.Untaxed),
		ImpNeto:    amount(req.Net),
		ImpOpEx:    amount(req.Exempt),
		ImpIVA:     amount(req.Tax),
		ImpTrib:    amount(req.OtherTaxes),
		MonID:      req.Currency,
		MonCotiz:   json.Number(req.ExchangeRate.String()),
		Iva:        vatRates{AlicIva: rates},
	}

	params := caeParams{Auth: c.auth()}
	params.FeCAEReq.FeCabReq = headerRequest{
		CantReg:  1,
		PtoVta:   req.PointOfSale,
		CbteTipo: int(req.VoucherType),
	}
	params.FeCAEReq.FeDetReq.Detail = []detailRequest{detail}
	return params
}

// call posts one WSFE method through the gateway and decodes the result.
// Transport failures keep their cause so callers can tell timeouts apart.
func (c *Client) call(ctx context.Context, method string, params any, out any) (err error) {
	ctx, span := telemetry.StartClientSpan(ctx, "afip", method, attribute.String("afip.environment", c.config.Environment))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	body, err := json.Marshal(gatewayRequest{
		Environment: c.config.gatewayEnvironment(),
		Method:      method,
		WSID:        "wsfe",
		TaxID:       fiscal.NormalizeTaxID(c.config.CUIT),
		Params:      params,
	})
	if err != nil {
		return fmt.Errorf("afip: failed to marshal %s request: %w", method, err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/afip/requests"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("afip: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
	telemetry.InjectHTTP(ctx, req.Header)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("afip: %s timed out: %w", method, context.DeadlineExceeded)
		}
		return fmt.Errorf("afip: %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("afip: failed to read %s response: %w", method, err)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.logger.Debug("gateway call",
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("afip: %s gateway returned HTTP %d", method, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		var gwErr gatewayError
		_ = json.Unmarshal(raw, &gwErr)
		if gwErr.Message == "" {
			gwErr.Message = http.StatusText(resp.StatusCode)
		}
		return &fiscal.Rejection{Code: "HTTP_" + strconv.Itoa(resp.StatusCode), Message: gwErr.Message}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("afip: failed to decode %s response: %w", method, err)
	}
	return nil
}

// amount renders a money value with two decimals as a JSON number
func amount(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// firstError converts the first WSFE error to a Rejection
func firstError(errs *wsErrors) *fiscal.Rejection {
	if errs == nil || len(errs.Err) == 0 {
		return nil
	}
	return &fiscal.Rejection{Code: strconv.Itoa(errs.Err[0].Code), Message: errs.Err[0].Msg}
}

// Ensure Client implements Authority
var _ fiscal.Authority = (*Client)(nil)
