package asaas

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/provider"
	"go.uber.org/zap"
)

type customerList struct {
	TotalCount int                 `json:"totalCount"`
	Data       []provider.Customer `json:"data"`
}

// FindCustomerByTaxID searches customers by CPF/CNPJ
// GET /customers?cpfCnpj={taxID}
func (c *Client) FindCustomerByTaxID(ctx context.Context, taxID string) (*provider.Customer, error) {
	query := url.Values{}
	query.Set("cpfCnpj", taxID)

	body, err := c.do(ctx, "find_customer", http.MethodGet, "/customers?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var list customerList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, &provider.GatewayError{GatewayCode: "PARSE_ERROR", Message: "Failed to parse customer list: " + err.Error()}
	}
	if len(list.Data) == 0 {
		return nil, nil
	}
	return &list.Data[0], nil
}

// CreateCustomer registers a payer
// POST /customers
func (c *Client) CreateCustomer(ctx context.Context, req *provider.CreateCustomerRequest) (*provider.Customer, error) {
	body, err := c.do(ctx, "create_customer", http.MethodPost, "/customers", req)
	if err != nil {
		return nil, err
	}

	var customer provider.Customer
	if err := json.Unmarshal(body, &customer); err != nil {
		return nil, &provider.GatewayError{GatewayCode: "PARSE_ERROR", Message: "Failed to parse customer: " + err.Error()}
	}

	c.logger.Info("Asaas customer created",
		zap.String("gateway_customer_id", customer.ID),
		zap.String("external_reference", req.ExternalReference))
	return &customer, nil
}
