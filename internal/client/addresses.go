package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ashendes/order-edit/internal/models"
)

// AddressBookClient manages a customer's saved addresses
type AddressBookClient struct {
	c *collaborator
}

func NewAddressBookClient(b *Backend) *AddressBookClient {
	return &AddressBookClient{c: b.collaborator("AddressBook")}
}

func addressesPath(customerID string) string {
	return "/customers/" + url.PathEscape(customerID) + "/addresses"
}

func (a *AddressBookClient) List(ctx context.Context, customerID string) ([]models.Address, error) {
	var addresses []models.Address
	if err := a.c.call(ctx, http.MethodGet, addressesPath(customerID), nil, &addresses); err != nil {
		return nil, err
	}
	return addresses, nil
}

func (a *AddressBookClient) Create(ctx context.Context, customerID string, addr models.Address) (*models.Address, error) {
	var created models.Address
	if err := a.c.call(ctx, http.MethodPost, addressesPath(customerID), addr, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (a *AddressBookClient) Update(ctx context.Context, customerID, addressID string, addr models.Address) (*models.Address, error) {
	var updated models.Address
	path := addressesPath(customerID) + "/" + url.PathEscape(addressID)
	if err := a.c.call(ctx, http.MethodPut, path, addr, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (a *AddressBookClient) Delete(ctx context.Context, customerID, addressID string) error {
	return a.c.call(ctx, http.MethodDelete, addressesPath(customerID)+"/"+url.PathEscape(addressID), nil, nil)
}
