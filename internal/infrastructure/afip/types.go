package afip

import "encoding/json"

// gatewayRequest is the envelope for every WSFE method call
type gatewayRequest struct {
	Environment string `json:"environment"`
	Method      string `json:"method"`
	WSID        string `json:"wsid"`
	TaxID       string `json:"tax_id"`
	Params      any    `json:"params"`
}

type authParams struct {
	Cuit string `json:"Cuit"`
}

type lastVoucherParams struct {
	Auth     authParams `json:"Auth"`
	PtoVta   int        `json:"PtoVta"`
	CbteTipo int        `json:"CbteTipo"`
}

type wsError struct {
	Code int    `json:"Code"`
	Msg  string `json:"Msg"`
}

type wsErrors struct {
	Err []wsError `json:"Err"`
}

type lastVoucherResult struct {
	PtoVta   int       `json:"PtoVta"`
	CbteTipo int       `json:"CbteTipo"`
	CbteNro  int64     `json:"CbteNro"`
	Errors   *wsErrors `json:"Errors,omitempty"`
}

type lastVoucherResponse struct {
	Result lastVoucherResult `json:"FECompUltimoAutorizadoResult"`
}

type vatRate struct {
	ID      int         `json:"Id"`
	BaseImp json.Number `json:"BaseImp"`
	Importe json.Number `json:"Importe"`
}

type vatRates struct {
	AlicIva []vatRate `json:"AlicIva"`
}

type detailRequest struct {
	Concepto   int         `json:"Concepto"`
	DocTipo    int         `json:"DocTipo"`
	DocNro     int64       `json:"DocNro"`
	CbteDesde  int64       `json:"CbteDesde"`
	CbteHasta  int64       `json:"CbteHasta"`
	CbteFch    string      `json:"CbteFch"`
	ImpTotal   json.Number `json:"ImpTotal"`
	ImpTotConc json.Number `json:"ImpTotConc"`
	ImpNeto    json.Number `json:"ImpNeto"`
	ImpOpEx    json.Number `json:"ImpOpEx"`
	ImpIVA     json.Number `json:"ImpIVA"`
	ImpTrib    json.Number `json:"ImpTrib"`
	MonID      string      `json:"MonId"`
	MonCotiz   json.Number `json:"MonCotiz"`
	Iva        vatRates    `json:"Iva"`
}

type headerRequest struct {
	CantReg  int `json:"CantReg"`
	PtoVta   int `json:"PtoVta"`
	CbteTipo int `json:"CbteTipo"`
}

type caeRequestBody struct {
	FeCabReq headerRequest `json:"FeCabReq"`
	FeDetReq struct {
		Detail []detailRequest `json:"FECAEDetRequest"`
	} `json:"FeDetReq"`
}

type caeParams struct {
	Auth     authParams     `json:"Auth"`
	FeCAEReq caeRequestBody `json:"FeCAEReq"`
}

type observations struct {
	Obs []wsError `json:"Obs"`
}

type detailResponse struct {
	Resultado     string        `json:"Resultado"`
	CAE           string        `json:"CAE"`
	CAEFchVto     string        `json:"CAEFchVto"`
	CbteDesde     int64         `json:"CbteDesde"`
	Observaciones *observations `json:"Observaciones,omitempty"`
}

type caeResult struct {
	FeCabResp struct {
		Resultado string `json:"Resultado"`
	} `json:"FeCabResp"`
	FeDetResp struct {
		Detail []detailResponse `json:"FECAEDetResponse"`
	} `json:"FeDetResp"`
	Errors *wsErrors `json:"Errors,omitempty"`
}

type caeResponse struct {
	Result caeResult `json:"FECAESolicitarResult"`
}

// gatewayError is the body the gateway returns on 4xx
type gatewayError struct {
	Message string `json:"message"`
}
