package afip

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/retailcore/backoffice/internal/domain/fiscal"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{
		CUIT:        "20-12345678-9",
		AccessToken: "test-token",
		Environment: EnvironmentTesting,
		BaseURL:     server.URL,
		Timeout:     2 * time.Second,
	}, nil)
	require.NoError(t, err)
	return client
}

func decodeRequest(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{CUIT: "20123456789", AccessToken: "t", Environment: EnvironmentProduction, BaseURL: DefaultBaseURL}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"missing cuit", func(c *Config) { c.CUIT = "" }, ErrConfigMissingCUIT},
		{"short cuit", func(c *Config) { c.CUIT = "2012" }, ErrConfigInvalidCUIT},
		{"missing token", func(c *Config) { c.AccessToken = "" }, ErrConfigMissingToken},
		{"bad environment", func(c *Config) { c.Environment = "staging" }, ErrConfigInvalidEnv},
		{"missing base url", func(c *Config) { c.BaseURL = "" }, ErrConfigMissingBaseURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), tt.wantErr)
		})
	}
}

func TestClient_LastVoucherNumber(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/afip/requests", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		body := decodeRequest(t, r)
		assert.Equal(t, methodLastVoucher, body["method"])
		assert.Equal(t, "dev", body["environment"])
		params := body["params"].(map[string]any)
		assert.EqualValues(t, 3, params["PtoVta"])
		assert.EqualValues(t, 6, params["CbteTipo"])

		_, _ = w.Write([]byte(`{"FECompUltimoAutorizadoResult":{"PtoVta":3,"CbteTipo":6,"CbteNro":42}}`))
	})

	last, err := client.LastVoucherNumber(context.Background(), 3, fiscal.VoucherTypeFacturaB)

	require.NoError(t, err)
	assert.Equal(t, int64(42), last)
}

func TestClient_LastVoucherNumber_ServiceError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"FECompUltimoAutorizadoResult":{"CbteNro":0,"Errors":{"Err":[{"Code":600,"Msg":"ValidacionDeToken: No validaron las fechas del token"}]}}}`))
	})

	_, err := client.LastVoucherNumber(context.Background(), 3, fiscal.VoucherTypeFacturaB)

	var rejection *fiscal.Rejection
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, "600", rejection.Code)
}

func testVoucherRequest(t *testing.T) fiscal.VoucherRequest {
	t.Helper()

	b, err := fiscal.ComputeBreakdown([]fiscal.TaxableLine{
		{Gross: decimal.RequireFromString("121"), Rate: decimal.NewFromInt(21)},
		{Gross: decimal.RequireFromString("110.50"), Rate: decimal.RequireFromString("10.5")},
	})
	require.NoError(t, err)
	buyer := &fiscal.Buyer{TaxID: "30-71234567-1", TaxCondition: fiscal.TaxConditionRegisteredTaxpayer}
	issued := time.Date(2026, 10, 16, 1, 30, 0, 0, time.UTC)
	return fiscal.NewVoucherRequest(3, fiscal.VoucherTypeFacturaA, 43, buyer, b.Rounded(), issued)
}

func TestClient_SubmitVoucher_Approved(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeRequest(t, r)
		assert.Equal(t, methodRequestCAE, body["method"])

		req := body["params"].(map[string]any)["FeCAEReq"].(map[string]any)
		header := req["FeCabReq"].(map[string]any)
		assert.EqualValues(t, 1, header["CantReg"])
		assert.EqualValues(t, 1, header["CbteTipo"])

		detail := req["FeDetReq"].(map[string]any)["FECAEDetRequest"].([]any)[0].(map[string]any)
		assert.EqualValues(t, 80, detail["DocTipo"])
		assert.EqualValues(t, 30712345671, detail["DocNro"])
		assert.EqualValues(t, 43, detail["CbteDesde"])
		assert.EqualValues(t, 43, detail["CbteHasta"])
		// 01:30 UTC is still the previous day in Buenos Aires
		assert.Equal(t, "20261015", detail["CbteFch"])
		assert.EqualValues(t, 231.5, detail["ImpTotal"])
		assert.EqualValues(t, 200, detail["ImpNeto"])
		assert.EqualValues(t, 31.5, detail["ImpIVA"])
		assert.EqualValues(t, 0, detail["ImpTotConc"])
		assert.Equal(t, "PES", detail["MonId"])

		rates := detail["Iva"].(map[string]any)["AlicIva"].([]any)
		require.Len(t, rates, 2)
		first := rates[0].(map[string]any)
		assert.EqualValues(t, 4, first["Id"])
		assert.EqualValues(t, 100, first["BaseImp"])
		assert.EqualValues(t, 10.5, first["Importe"])

		_, _ = w.Write([]byte(`{"FECAESolicitarResult":{"FeCabResp":{"Resultado":"A"},"FeDetResp":{"FECAEDetResponse":[{"Resultado":"A","CAE":"74123456789012","CAEFchVto":"20261026","CbteDesde":43}]}}}`))
	})

	auth, err := client.SubmitVoucher(context.Background(), testVoucherRequest(t))

	require.NoError(t, err)
	assert.Equal(t, "74123456789012", auth.Code)
	assert.Equal(t, 2026, auth.Expiry.Year())
	assert.Equal(t, time.October, auth.Expiry.Month())
	assert.Equal(t, 26, auth.Expiry.Day())
}

func TestClient_SubmitVoucher_Rejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"FECAESolicitarResult":{"FeCabResp":{"Resultado":"R"},"FeDetResp":{"FECAEDetResponse":[{"Resultado":"R","Observaciones":{"Obs":[{"Code":10016,"Msg":"El numero o fecha del comprobante no se corresponde con el proximo a autorizar"}]}}]}}}`))
	})

	_, err := client.SubmitVoucher(context.Background(), testVoucherRequest(t))

	var rejection *fiscal.Rejection
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, "10016", rejection.Code)
	assert.Contains(t, rejection.Message, "proximo a autorizar")
}

func TestClient_TransportFailures(t *testing.T) {
	t.Run("server error is not a rejection", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := client.LastVoucherNumber(context.Background(), 3, fiscal.VoucherTypeFacturaC)

		require.Error(t, err)
		var rejection *fiscal.Rejection
		assert.False(t, errors.As(err, &rejection))
	})

	t.Run("unauthorized is a rejection", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid access token"}`))
		})

		_, err := client.LastVoucherNumber(context.Background(), 3, fiscal.VoucherTypeFacturaC)

		var rejection *fiscal.Rejection
		require.True(t, errors.As(err, &rejection))
		assert.Equal(t, "HTTP_401", rejection.Code)
		assert.Equal(t, "invalid access token", rejection.Message)
	})

	t.Run("deadline is reported as such", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := client.SubmitVoucher(ctx, testVoucherRequest(t))

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("malformed body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		})

		_, err := client.LastVoucherNumber(context.Background(), 3, fiscal.VoucherTypeFacturaC)
		assert.Error(t, err)
	})
}
