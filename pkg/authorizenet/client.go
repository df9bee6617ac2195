package authorizenet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/sikars/sikars-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://apitest.authorize.net/xml/v1/request.api"
	responseBodyReadLimit int64 = 1 << 20

	transactionTypeAuthCapture = "authCaptureTransaction"
	transactionTypeRefund      = "refundTransaction"

	responseCodeApproved = "1"
)

var (
	errCredentialsRequired = errors.New("authorize.net login id and transaction key are required")
)

// Client wraps the Authorize.net JSON transaction API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	loginID        string
	transactionKey string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the gateway endpoint, e.g. to target production.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the gateway client given merchant credentials.
func NewClient(loginID, transactionKey string, opts ...Option) (*Client, error) {
	trimmedLogin := strings.TrimSpace(loginID)
	trimmedKey := strings.TrimSpace(transactionKey)
	if trimmedLogin == "" || trimmedKey == "" {
		return nil, errCredentialsRequired
	}

	client := &Client{
		loginID:        trimmedLogin,
		transactionKey: trimmedKey,
		baseURL:        defaultBaseURL,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// ChargeRequest describes an auth-capture attempt against a card.
type ChargeRequest struct {
	OrderNumber    string
	AmountCents    int
	CardNumber     string
	ExpirationDate string
	CardCode       string
	BillTo         *BillingAddress
}

// BillingAddress identifies the cardholder for the gateway's AVS checks.
type BillingAddress struct {
	FirstName string
	LastName  string
	Address   string
	City      string
	State     string
	Zip       string
	Country   string
}

// ChargeResult is the normalized gateway response for a charge.
// Approved carries transaction and auth identifiers; declined carries the
// gateway's reason text.
type ChargeResult struct {
	Approved      bool
	TransactionID string
	AuthCode      string
	CardLastFour  string
	DeclineReason string
}

// RefundRequest describes a linked refund against a settled transaction.
// CardLastFour is all the gateway needs to reference the original card.
type RefundRequest struct {
	OrderNumber          string
	AmountCents          int
	CardLastFour         string
	GatewayTransactionID string
}

// RefundResult carries the refund transaction identifier.
type RefundResult struct {
	TransactionID string
}

type merchantAuthentication struct {
	Name           string `json:"name"`
	TransactionKey string `json:"transactionKey"`
}

type creditCard struct {
	CardNumber     string `json:"cardNumber"`
	ExpirationDate string `json:"expirationDate"`
	CardCode       string `json:"cardCode,omitempty"`
}

type paymentBlock struct {
	CreditCard creditCard `json:"creditCard"`
}

type billTo struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Address   string `json:"address,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Country   string `json:"country,omitempty"`
}

type transactionRequest struct {
	TransactionType string        `json:"transactionType"`
	Amount          string        `json:"amount"`
	Payment         *paymentBlock `json:"payment,omitempty"`
	BillTo          *billTo       `json:"billTo,omitempty"`
	RefTransID      string        `json:"refTransId,omitempty"`
}

type createTransactionRequest struct {
	MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
	RefID                  string                 `json:"refId,omitempty"`
	TransactionRequest     transactionRequest     `json:"transactionRequest"`
}

type apiRequest struct {
	CreateTransactionRequest createTransactionRequest `json:"createTransactionRequest"`
}

type transactionResponse struct {
	ResponseCode string `json:"responseCode"`
	AuthCode     string `json:"authCode"`
	TransID      string `json:"transId"`
	Errors       []struct {
		ErrorCode string `json:"errorCode"`
		ErrorText string `json:"errorText"`
	} `json:"errors"`
}

type apiResponse struct {
	TransactionResponse transactionResponse `json:"transactionResponse"`
	Messages            struct {
		ResultCode string `json:"resultCode"`
		Message    []struct {
			Code string `json:"code"`
			Text string `json:"text"`
		} `json:"message"`
	} `json:"messages"`
}

// Charge runs an auth-capture transaction. A decline is not an error: the
// result carries Approved=false plus the gateway reason. Errors mean the
// gateway could not be reached or gave an unusable response.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayDown, "payment gateway client not configured")
	}
	cardNumber := strings.TrimSpace(req.CardNumber)
	if cardNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card number is required")
	}
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}

	payload := apiRequest{
		CreateTransactionRequest: createTransactionRequest{
			MerchantAuthentication: merchantAuthentication{
				Name:           c.loginID,
				TransactionKey: c.transactionKey,
			},
			RefID: req.OrderNumber,
			TransactionRequest: transactionRequest{
				TransactionType: transactionTypeAuthCapture,
				Amount:          FormatAmount(req.AmountCents),
				Payment: &paymentBlock{
					CreditCard: creditCard{
						CardNumber:     cardNumber,
						ExpirationDate: strings.TrimSpace(req.ExpirationDate),
						CardCode:       strings.TrimSpace(req.CardCode),
					},
				},
			},
		},
	}
	if req.BillTo != nil {
		payload.CreateTransactionRequest.TransactionRequest.BillTo = &billTo{
			FirstName: req.BillTo.FirstName,
			LastName:  req.BillTo.LastName,
			Address:   req.BillTo.Address,
			City:      req.BillTo.City,
			State:     req.BillTo.State,
			Zip:       req.BillTo.Zip,
			Country:   req.BillTo.Country,
		}
	}

	resp, err := c.post(ctx, payload, "charge")
	if err != nil {
		return nil, err
	}

	result := &ChargeResult{CardLastFour: LastFour(cardNumber)}
	if resp.TransactionResponse.ResponseCode == responseCodeApproved {
		result.Approved = true
		result.TransactionID = resp.TransactionResponse.TransID
		result.AuthCode = resp.TransactionResponse.AuthCode
		return result, nil
	}

	result.DeclineReason = declineReason(resp)
	return result, nil
}

// Refund issues a linked refund for a previously settled transaction.
func (c *Client) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayDown, "payment gateway client not configured")
	}
	if strings.TrimSpace(req.GatewayTransactionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway transaction id is required")
	}
	if len(req.CardLastFour) != 4 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card last four is required")
	}
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	payload := apiRequest{
		CreateTransactionRequest: createTransactionRequest{
			MerchantAuthentication: merchantAuthentication{
				Name:           c.loginID,
				TransactionKey: c.transactionKey,
			},
			RefID: req.OrderNumber,
			TransactionRequest: transactionRequest{
				TransactionType: transactionTypeRefund,
				Amount:          FormatAmount(req.AmountCents),
				RefTransID:      req.GatewayTransactionID,
				Payment: &paymentBlock{
					CreditCard: creditCard{
						CardNumber:     req.CardLastFour,
						ExpirationDate: "XXXX",
					},
				},
			},
		},
	}

	resp, err := c.post(ctx, payload, "refund")
	if err != nil {
		return nil, err
	}

	if resp.TransactionResponse.ResponseCode != responseCodeApproved {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway rejected refund").
			WithDetails(map[string]any{"reason": declineReason(resp)})
	}

	return &RefundResult{TransactionID: resp.TransactionResponse.TransID}, nil
}

func (c *Client) post(ctx context.Context, payload apiRequest, op string) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal "+op+" request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build "+op+" request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayDown, err, "execute "+op+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayDown, err, "read "+op+" response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.Wrap(
			pkgerrors.CodeGatewayDown,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
			op+" request failed",
		)
	}

	// Authorize.net prefixes JSON responses with a UTF-8 BOM.
	raw = bytes.TrimPrefix(raw, []byte("\uFEFF"))

	var apiResp apiResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayDown, err, "decode "+op+" response")
	}

	return &apiResp, nil
}

func declineReason(resp *apiResponse) string {
	if len(resp.TransactionResponse.Errors) > 0 {
		return resp.TransactionResponse.Errors[0].ErrorText
	}
	if len(resp.Messages.Message) > 0 {
		return resp.Messages.Message[0].Text
	}
	return "transaction declined"
}

// FormatAmount renders integer cents as the decimal string the gateway expects.
func FormatAmount(cents int) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// LastFour extracts the final four digits of a card number.
func LastFour(cardNumber string) string {
	digits := make([]rune, 0, len(cardNumber))
	for _, r := range cardNumber {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 4 {
		return string(digits)
	}
	return string(digits[len(digits)-4:])
}
